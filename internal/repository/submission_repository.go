package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradhub/thesis-api/internal/models"
)

// SubmissionRepository provides persistence for task submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// CreateAndCompleteTask inserts the submission and flips the task to
// COMPLETED in one transaction. Re-submitting a completed task keeps its
// status; the flip is a no-op then.
func (r *SubmissionRepository) CreateAndCompleteTask(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create submission: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const submissionQuery = `INSERT INTO submissions (id, task_id, student_id, content, file_url, created_at, updated_at)
VALUES (:id, :task_id, :student_id, :content, :file_url, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, submissionQuery, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.TaskStatusCompleted, submission.TaskID, models.TaskStatusPending); err != nil {
		return fmt.Errorf("complete task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create submission: %w", err)
	}
	return nil
}

// FindByID returns a submission by identifier.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT id, task_id, student_id, content, file_url, feedback, grade, created_at, updated_at
FROM submissions WHERE id = $1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListByTask returns a task's submissions, newest first.
func (r *SubmissionRepository) ListByTask(ctx context.Context, taskID string) ([]models.Submission, error) {
	const query = `SELECT id, task_id, student_id, content, file_url, feedback, grade, created_at, updated_at
FROM submissions WHERE task_id = $1
ORDER BY created_at DESC`
	submissions := []models.Submission{}
	if err := r.db.SelectContext(ctx, &submissions, query, taskID); err != nil {
		return nil, fmt.Errorf("list submissions by task: %w", err)
	}
	return submissions, nil
}

// ListByThesis returns every submission across a thesis's tasks with the
// student and task names joined in, oldest first for report ordering.
func (r *SubmissionRepository) ListByThesis(ctx context.Context, thesisID string) ([]models.SubmissionDetail, error) {
	const query = `SELECT sub.id, sub.task_id, sub.student_id, sub.content, sub.file_url, sub.feedback, sub.grade, sub.created_at, sub.updated_at,
       s.full_name AS student_name, t.title AS task_title
FROM submissions sub
JOIN tasks t ON t.id = sub.task_id
JOIN students s ON s.id = sub.student_id
WHERE t.thesis_id = $1
ORDER BY sub.created_at ASC`
	submissions := []models.SubmissionDetail{}
	if err := r.db.SelectContext(ctx, &submissions, query, thesisID); err != nil {
		return nil, fmt.Errorf("list submissions by thesis: %w", err)
	}
	return submissions, nil
}

// UpdateFeedback records the reviewer's feedback and grade. Empty or nil
// inputs keep the stored value so a grade-only review cannot erase earlier
// feedback.
func (r *SubmissionRepository) UpdateFeedback(ctx context.Context, id string, feedback string, grade *int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE submissions SET feedback = COALESCE(NULLIF($1, ''), feedback), grade = COALESCE($2, grade), updated_at = NOW() WHERE id = $3",
		feedback, grade, id)
	if err != nil {
		return fmt.Errorf("update submission feedback: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission feedback rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
