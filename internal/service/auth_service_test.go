package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
)

type mockUserRepo struct {
	usersByEmail map[string]models.User
	usersByID    map[string]models.User
	tokens       map[string]models.RefreshToken
	revoked      []string
	revokedAll   []string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByEmail: make(map[string]models.User),
		usersByID:    make(map[string]models.User),
		tokens:       make(map[string]models.RefreshToken),
	}
}

func (m *mockUserRepo) addUser(user models.User) {
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.usersByEmail[email]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.usersByID[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) CreateWithProfile(ctx context.Context, user *models.User, department string) error {
	m.addUser(*user)
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := m.usersByID[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	m.addUser(u)
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.tokens[token.Token] = *token
	return nil
}

func (m *mockUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	m.revoked = append(m.revoked, id)
	for key, t := range m.tokens {
		if t.ID == id {
			t.Revoked = true
			m.tokens[key] = t
		}
	}
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockUserRepo) {
	t.Helper()
	repo := newMockUserRepo()
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "thesis-api-test",
	})
	return svc, repo
}

func seedUser(t *testing.T, repo *mockUserRepo, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		ID:           "user-1",
		Email:        "ana@example.edu",
		PasswordHash: string(hash),
		FullName:     "Ana Silva",
		Role:         models.RoleStudent,
		Active:       true,
	}
	repo.addUser(user)
	return user
}

func TestRegisterCreatesAccount(t *testing.T) {
	svc, repo := newAuthFixture(t)

	info, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName:   "Ana Silva",
		Email:      "ana@example.edu",
		Password:   "secret123",
		Role:       "student",
		Department: "Computer Science",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, info.Role)
	assert.NotEmpty(t, info.ID)
	_, ok := repo.usersByEmail["ana@example.edu"]
	assert.True(t, ok)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, repo := newAuthFixture(t)
	seedUser(t, repo, "secret123")

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName:   "Ana Again",
		Email:      "ana@example.edu",
		Password:   "secret123",
		Role:       "STUDENT",
		Department: "Computer Science",
	})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName:   "Root",
		Email:      "root@example.edu",
		Password:   "secret123",
		Role:       "ADMIN",
		Department: "IT",
	})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo := newAuthFixture(t)
	seedUser(t, repo, "secret123")

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.edu",
		Password: "wrong",
	})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, typed.Code)
}

func TestLoginIssuesValidatableToken(t *testing.T) {
	svc, repo := newAuthFixture(t)
	user := seedUser(t, repo, "secret123")

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.edu",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RefreshToken)
	_, ok := repo.tokens[res.RefreshToken]
	assert.True(t, ok)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthFixture(t)
	seedUser(t, repo, "secret123")

	res, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.edu",
		Password: "secret123",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: res.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, refreshed.RefreshToken)
	require.Len(t, repo.revoked, 1)

	// The revoked token cannot be used again.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: res.RefreshToken,
	})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, typed.Code)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	svc, repo := newAuthFixture(t)
	user := seedUser(t, repo, "secret123")

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "evenmoresecret",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{user.ID}, repo.revokedAll)

	_, err = svc.Login(context.Background(), models.LoginRequest{
		Email:    "ana@example.edu",
		Password: "evenmoresecret",
	})
	require.NoError(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-jwt")
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, typed.Code)
}
