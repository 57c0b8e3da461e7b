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

// TaskRepository provides persistence for tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new pending task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.Status = models.TaskStatusPending
	task.CreatedAt = now
	task.UpdatedAt = now

	const query = `INSERT INTO tasks (id, thesis_id, faculty_id, title, description, due_date, status, created_at, updated_at)
VALUES (:id, :thesis_id, :faculty_id, :title, :description, :due_date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// FindByID returns a task by identifier.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	const query = `SELECT id, thesis_id, faculty_id, title, description, due_date, status, created_at, updated_at
FROM tasks WHERE id = $1`
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByThesis returns the tasks of a thesis, newest first.
func (r *TaskRepository) ListByThesis(ctx context.Context, thesisID string) ([]models.Task, error) {
	const query = `SELECT id, thesis_id, faculty_id, title, description, due_date, status, created_at, updated_at
FROM tasks WHERE thesis_id = $1
ORDER BY created_at DESC`
	tasks := []models.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, thesisID); err != nil {
		return nil, fmt.Errorf("list tasks by thesis: %w", err)
	}
	return tasks, nil
}

// Update persists editable task fields.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks
SET title = :title, description = :description, due_date = :due_date, status = :status, updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, task)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCascade removes a task and its submissions in one transaction.
func (r *TaskRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete task: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM submissions WHERE task_id = $1", id); err != nil {
		return fmt.Errorf("delete task submissions: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete task: %w", err)
	}
	return nil
}

// Stats aggregates task counts for a thesis.
func (r *TaskRepository) Stats(ctx context.Context, thesisID string) (*models.TaskStats, error) {
	const query = `SELECT COUNT(*) AS total_tasks,
       COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed_tasks,
       COUNT(*) FILTER (WHERE status = 'PENDING') AS pending_tasks
FROM tasks WHERE thesis_id = $1`
	var stats models.TaskStats
	if err := r.db.GetContext(ctx, &stats, query, thesisID); err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	return &stats, nil
}
