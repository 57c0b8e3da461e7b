package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradhub/thesis-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func TestRequestRepositoryAcceptCommitsAllThreeWrites(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE supervisor_requests SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3")).
		WithArgs(models.RequestStatusAccepted, "req-1", models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE theses SET supervisor_id = $1, status = $2, updated_at = NOW() WHERE id = $3")).
		WithArgs("fac-1", models.ThesisStatusActive, "thesis-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE supervisor_requests SET status = $1, updated_at = NOW() WHERE thesis_id = $2 AND status = $3 AND id <> $4")).
		WithArgs(models.RequestStatusRejected, "thesis-1", models.RequestStatusPending, "req-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.Accept(context.Background(), "req-1", "thesis-1", "fac-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryAcceptRollsBackOnThesisUpdateFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE supervisor_requests")).
		WithArgs(models.RequestStatusAccepted, "req-1", models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE theses")).
		WithArgs("fac-1", models.ThesisStatusActive, "thesis-1").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Accept(context.Background(), "req-1", "thesis-1", "fac-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryAcceptAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE supervisor_requests")).
		WithArgs(models.RequestStatusAccepted, "req-1", models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Accept(context.Background(), "req-1", "thesis-1", "fac-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryExistsPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("thesis-1", "fac-1", models.RequestStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsPending(context.Background(), "thesis-1", "fac-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRequestRepositoryUpdateStatusGuardsExpectedState(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE supervisor_requests SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3")).
		WithArgs(models.RequestStatusDeleted, "req-1", models.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "req-1", models.RequestStatusPending, models.RequestStatusDeleted)
	require.ErrorIs(t, err, sql.ErrNoRows)
}
