package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradhub/thesis-api/internal/models"
	"github.com/gradhub/thesis-api/internal/service"
)

const testSecret = "middleware-test-secret"

func testAuthService() *service.AuthService {
	return service.NewAuthService(nil, nil, nil, service.AuthConfig{
		AccessTokenSecret: testSecret,
		AccessTokenExpiry: time.Hour,
		Issuer:            "thesis-api-test",
	})
}

func signedToken(t *testing.T, role models.UserRole) string {
	t.Helper()
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: "user-1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/theses", nil)

	JWT(testAuthService())(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, c.IsAborted())
}

func TestJWTRejectsMalformedToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/theses", nil)
	c.Request.Header.Set("Authorization", "Bearer not-a-jwt")

	JWT(testAuthService())(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTStoresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/theses", nil)
	c.Request.Header.Set("Authorization", "Bearer "+signedToken(t, models.RoleStudent))

	JWT(testAuthService())(c)

	assert.False(t, c.IsAborted())
	value, exists := c.Get(ContextUserKey)
	require.True(t, exists)
	claims := value.(*models.JWTClaims)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestOptionalJWTPassesWithoutHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/theses/thesis-1", nil)

	OptionalJWT(testAuthService())(c)

	assert.False(t, c.IsAborted())
	_, exists := c.Get(ContextUserKey)
	assert.False(t, exists)
}

func TestRequireRolesBlocksOtherRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/tasks", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	RequireRoles(models.RoleFaculty)(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, c.IsAborted())
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/tasks", nil)
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "fac-user", Role: models.RoleFaculty})

	RequireRoles(models.RoleFaculty, models.RoleAdmin)(c)

	assert.False(t, c.IsAborted())
}
