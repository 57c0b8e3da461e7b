package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradhub/thesis-api/internal/models"
)

func TestThesisRepositoryCreateWithCreator(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewThesisRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO theses")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO thesis_members")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	thesis := &models.Thesis{
		Title:        "Graph Neural Networks for Citation Analysis",
		Code:         "GNN-4821",
		JoinPassword: "a1b2c3d4",
		Status:       models.ThesisStatusPendingSupervisor,
		ResearchTags: pq.StringArray{"machine learning", "graphs"},
	}
	err := repo.CreateWithCreator(context.Background(), thesis, "student-1")
	require.NoError(t, err)
	assert.NotEmpty(t, thesis.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThesisRepositoryCreateRollsBackWhenMemberInsertFails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewThesisRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO theses")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO thesis_members")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	thesis := &models.Thesis{Title: "T", Code: "T-0001", Status: models.ThesisStatusPendingSupervisor}
	err := repo.CreateWithCreator(context.Background(), thesis, "student-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThesisRepositoryFindByCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewThesisRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "title", "description", "code", "join_password", "status", "research_tags", "supervisor_id", "created_at", "updated_at"}).
		AddRow("thesis-1", "Edge Caching", nil, "EC-9911", "pw12pw34", "PENDING_SUPERVISOR", "{cdn,caching}", nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM theses WHERE code = $1")).
		WithArgs("EC-9911").
		WillReturnRows(rows)

	thesis, err := repo.FindByCode(context.Background(), "EC-9911")
	require.NoError(t, err)
	assert.Equal(t, "thesis-1", thesis.ID)
	assert.Equal(t, models.ThesisStatusPendingSupervisor, thesis.Status)
	assert.Nil(t, thesis.SupervisorID)
}

func TestThesisRepositoryDeleteCascadeOrdersChildTablesFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewThesisRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM supervisor_requests WHERE thesis_id = $1")).
		WithArgs("thesis-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM thesis_members WHERE thesis_id = $1")).
		WithArgs("thesis-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM theses WHERE id = $1")).
		WithArgs("thesis-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DeleteCascade(context.Background(), "thesis-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestThesisRepositoryDeleteCascadeMissingThesis(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewThesisRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM supervisor_requests")).
		WithArgs("thesis-404").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM thesis_members")).
		WithArgs("thesis-404").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM theses")).
		WithArgs("thesis-404").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), "thesis-404")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestThesisRepositoryRemoveMemberProtectsCreator(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewThesisRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM thesis_members WHERE thesis_id = $1 AND student_id = $2 AND creator = FALSE")).
		WithArgs("thesis-1", "student-creator").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RemoveMember(context.Background(), "thesis-1", "student-creator")
	require.ErrorIs(t, err, sql.ErrNoRows)
}
