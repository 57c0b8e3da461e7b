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

// ReportRepository provides persistence for progress report export jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new pending job.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	job.Status = models.ReportJobPending
	job.CreatedAt = now
	job.UpdatedAt = now

	const query = `INSERT INTO report_jobs (id, thesis_id, requested_by, format, status, created_at, updated_at)
VALUES (:id, :thesis_id, :requested_by, :format, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID returns a job by identifier.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, thesis_id, requested_by, format, status, file_path, error_text, created_at, updated_at
FROM report_jobs WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing claims a pending job for a worker. The status guard keeps
// two workers from processing the same job.
func (r *ReportRepository) MarkProcessing(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE report_jobs SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.ReportJobProcessing, id, models.ReportJobPending)
	if err != nil {
		return fmt.Errorf("mark report processing: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark report processing rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkCompleted records the rendered file path.
func (r *ReportRepository) MarkCompleted(ctx context.Context, id, filePath string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE report_jobs SET status = $1, file_path = $2, updated_at = NOW() WHERE id = $3",
		models.ReportJobCompleted, filePath, id); err != nil {
		return fmt.Errorf("mark report completed: %w", err)
	}
	return nil
}

// MarkFailed records the terminal failure reason.
func (r *ReportRepository) MarkFailed(ctx context.Context, id, reason string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE report_jobs SET status = $1, error_text = $2, updated_at = NOW() WHERE id = $3",
		models.ReportJobFailed, reason, id); err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	return nil
}
