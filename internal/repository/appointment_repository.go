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

// AppointmentRepository provides persistence for meeting requests.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates the repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create inserts a new pending appointment.
func (r *AppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appointment.Status = models.AppointmentStatusPending
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	const query = `INSERT INTO appointments (id, thesis_id, faculty_id, message, status, time, created_at, updated_at)
VALUES (:id, :thesis_id, :faculty_id, :message, :status, :time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appointment); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindByID returns an appointment by identifier.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	const query = `SELECT id, thesis_id, faculty_id, message, status, time, created_at, updated_at
FROM appointments WHERE id = $1`
	var appointment models.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, err
	}
	return &appointment, nil
}

// ListByThesis returns a thesis's appointments, newest first.
func (r *AppointmentRepository) ListByThesis(ctx context.Context, thesisID string) ([]models.Appointment, error) {
	const query = `SELECT id, thesis_id, faculty_id, message, status, time, created_at, updated_at
FROM appointments WHERE thesis_id = $1
ORDER BY created_at DESC`
	appointments := []models.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, thesisID); err != nil {
		return nil, fmt.Errorf("list appointments by thesis: %w", err)
	}
	return appointments, nil
}

// ListByFaculty returns the appointments addressed to a supervisor.
func (r *AppointmentRepository) ListByFaculty(ctx context.Context, facultyID string) ([]models.Appointment, error) {
	const query = `SELECT id, thesis_id, faculty_id, message, status, time, created_at, updated_at
FROM appointments WHERE faculty_id = $1
ORDER BY created_at DESC`
	appointments := []models.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, facultyID); err != nil {
		return nil, fmt.Errorf("list appointments by faculty: %w", err)
	}
	return appointments, nil
}

// Update persists a decision or reschedule.
func (r *AppointmentRepository) Update(ctx context.Context, appointment *models.Appointment) error {
	appointment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointments
SET message = :message, status = :status, time = :time, updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, appointment)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update appointment rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an appointment.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM appointments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete appointment rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
