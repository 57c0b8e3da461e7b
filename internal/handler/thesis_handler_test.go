package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradhub/thesis-api/internal/middleware"
	"github.com/gradhub/thesis-api/internal/models"
)

type stubThesisService struct {
	mine []models.ThesisDetail
}

func (s *stubThesisService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateThesisRequest) (*models.Thesis, error) {
	return nil, nil
}

func (s *stubThesisService) Join(ctx context.Context, actor *models.JWTClaims, req models.JoinThesisRequest) (*models.ThesisMember, error) {
	return nil, nil
}

func (s *stubThesisService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.ThesisDetail, error) {
	return s.mine, nil
}

func (s *stubThesisService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.ThesisDetail, []models.ThesisMemberDetail, error) {
	return nil, nil, nil
}

func (s *stubThesisService) GetPublic(ctx context.Context, id string) (*models.ThesisPublic, error) {
	return nil, nil
}

func (s *stubThesisService) Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateThesisRequest) (*models.Thesis, error) {
	return nil, nil
}

func (s *stubThesisService) RotateJoinPassword(ctx context.Context, actor *models.JWTClaims, id string) (string, error) {
	return "", nil
}

func (s *stubThesisService) Close(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateThesisStatusRequest) error {
	return nil
}

func (s *stubThesisService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	return nil
}

func (s *stubThesisService) AddMember(ctx context.Context, actor *models.JWTClaims, thesisID string, req models.AddThesisMemberRequest) (*models.ThesisMember, error) {
	return nil, nil
}

func (s *stubThesisService) RemoveMember(ctx context.Context, actor *models.JWTClaims, thesisID, studentID string) error {
	return nil
}

func thesisListFixture() *stubThesisService {
	supervisor := "fac-1"
	return &stubThesisService{mine: []models.ThesisDetail{
		{Thesis: models.Thesis{ID: "t-active", Status: models.ThesisStatusActive, SupervisorID: &supervisor}},
		{Thesis: models.Thesis{ID: "t-done", Status: models.ThesisStatusInactive, SupervisorID: &supervisor}},
		{Thesis: models.Thesis{ID: "t-pending", Status: models.ThesisStatusPendingSupervisor}},
	}}
}

func listTheses(t *testing.T, target string) []models.ThesisDetail {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewThesisHandler(thesisListFixture())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "fac-user", Role: models.RoleFaculty})

	handler.ListMine(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Success bool                 `json:"success"`
		Data    []models.ThesisDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func TestThesisListReturnsAllByDefault(t *testing.T) {
	theses := listTheses(t, "/theses")
	assert.Len(t, theses, 3)
}

func TestThesisListFiltersByStatus(t *testing.T) {
	active := listTheses(t, "/theses?status=ACTIVE")
	require.Len(t, active, 1)
	assert.Equal(t, "t-active", active[0].ID)

	completed := listTheses(t, "/theses?status=INACTIVE")
	require.Len(t, completed, 1)
	assert.Equal(t, "t-done", completed[0].ID)
}

func TestThesisListFiltersUnsupervised(t *testing.T) {
	unsupervised := listTheses(t, "/theses?unsupervised=true")
	require.Len(t, unsupervised, 1)
	assert.Equal(t, "t-pending", unsupervised[0].ID)
}
