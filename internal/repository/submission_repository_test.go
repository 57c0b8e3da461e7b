package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradhub/thesis-api/internal/models"
)

func TestSubmissionRepositoryCreateFlipsTask(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3")).
		WithArgs(models.TaskStatusCompleted, "task-1", models.TaskStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	content := "first draft attached"
	submission := &models.Submission{TaskID: "task-1", StudentID: "student-1", Content: &content}
	err := repo.CreateAndCompleteTask(context.Background(), submission)
	require.NoError(t, err)
	assert.NotEmpty(t, submission.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryResubmitKeepsCompletedStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Guarded update matches zero rows when the task is already COMPLETED.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks")).
		WithArgs(models.TaskStatusCompleted, "task-1", models.TaskStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	content := "revised draft"
	submission := &models.Submission{TaskID: "task-1", StudentID: "student-1", Content: &content}
	err := repo.CreateAndCompleteTask(context.Background(), submission)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryGradeOnlyFeedbackKeepsText(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	// Empty feedback must not erase the stored text.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET feedback = COALESCE(NULLIF($1, ''), feedback), grade = COALESCE($2, grade), updated_at = NOW() WHERE id = $3")).
		WithArgs("", 95, "sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	grade := 95
	err := repo.UpdateFeedback(context.Background(), "sub-1", "", &grade)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryStats(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	rows := sqlmock.NewRows([]string{"total_tasks", "completed_tasks", "pending_tasks"}).AddRow(5, 3, 2)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE thesis_id = $1")).
		WithArgs("thesis-1").
		WillReturnRows(rows)

	stats, err := repo.Stats(context.Background(), "thesis-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalTasks)
	assert.Equal(t, 3, stats.CompletedTasks)
	assert.Equal(t, 2, stats.PendingTasks)
}
