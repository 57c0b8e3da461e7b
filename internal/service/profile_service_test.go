package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
)

type mockProfileStudents struct {
	byUser        map[string]models.Student
	contributions map[string]models.Contribution
	updated       *models.Contribution
}

func (m *mockProfileStudents) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if s, ok := m.byUser[userID]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileStudents) Update(ctx context.Context, student *models.Student) error {
	m.byUser[student.UserID] = *student
	return nil
}

func (m *mockProfileStudents) CreateContribution(ctx context.Context, c *models.Contribution) error {
	if c.ID == "" {
		c.ID = "contrib-new"
	}
	if m.contributions == nil {
		m.contributions = make(map[string]models.Contribution)
	}
	m.contributions[c.ID] = *c
	return nil
}

func (m *mockProfileStudents) ListContributions(ctx context.Context, studentID string) ([]models.Contribution, error) {
	out := []models.Contribution{}
	for _, c := range m.contributions {
		if c.StudentID == studentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockProfileStudents) FindContribution(ctx context.Context, id, studentID string) (*models.Contribution, error) {
	if c, ok := m.contributions[id]; ok && c.StudentID == studentID {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileStudents) UpdateContribution(ctx context.Context, c *models.Contribution) error {
	m.contributions[c.ID] = *c
	m.updated = c
	return nil
}

func (m *mockProfileStudents) DeleteContribution(ctx context.Context, id, studentID string) (bool, error) {
	if c, ok := m.contributions[id]; ok && c.StudentID == studentID {
		delete(m.contributions, id)
		return true, nil
	}
	return false, nil
}

func newProfileFixture() (*ProfileService, *mockProfileStudents) {
	students := &mockProfileStudents{
		byUser: map[string]models.Student{"user-1": {ID: "student-1", UserID: "user-1", FullName: "Dina"}},
		contributions: map[string]models.Contribution{
			"contrib-1": {ID: "contrib-1", StudentID: "student-1", Title: "Graph Sampling at Scale", Venue: "VLDB", Year: 2024},
		},
	}
	svc := NewProfileService(students, nil, nil, nil, nil, nil)
	return svc, students
}

func TestUpdateContributionEditsOwnedEntry(t *testing.T) {
	svc, students := newProfileFixture()

	title := "Graph Sampling at Scale, Revisited"
	year := 2025
	updated, err := svc.UpdateContribution(context.Background(), studentActor("user-1"), "contrib-1", models.UpdateContributionRequest{Title: &title, Year: &year})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, 2025, updated.Year)
	// Untouched fields survive a partial edit.
	assert.Equal(t, "VLDB", updated.Venue)
	require.NotNil(t, students.updated)
	assert.Equal(t, title, students.updated.Title)
}

func TestUpdateContributionForeignEntryNotFound(t *testing.T) {
	svc, students := newProfileFixture()
	students.contributions["contrib-2"] = models.Contribution{ID: "contrib-2", StudentID: "student-9", Title: "Someone else's paper"}

	title := "hijacked"
	_, err := svc.UpdateContribution(context.Background(), studentActor("user-1"), "contrib-2", models.UpdateContributionRequest{Title: &title})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
	assert.Nil(t, students.updated)
}

func TestUpdateContributionRejectsNonStudents(t *testing.T) {
	svc, _ := newProfileFixture()

	title := "x"
	_, err := svc.UpdateContribution(context.Background(), facultyActor("fac-user"), "contrib-1", models.UpdateContributionRequest{Title: &title})
	var typed *appErrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
}
