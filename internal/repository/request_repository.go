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

// RequestRepository provides persistence for supervision requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new pending request.
func (r *RequestRepository) Create(ctx context.Context, request *models.SupervisorRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	request.Status = models.RequestStatusPending
	request.CreatedAt = now
	request.UpdatedAt = now

	const query = `INSERT INTO supervisor_requests (id, thesis_id, student_id, faculty_id, message, status, created_at, updated_at)
VALUES (:id, :thesis_id, :student_id, :faculty_id, :message, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create supervisor request: %w", err)
	}
	return nil
}

// FindByID returns a request by identifier.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.SupervisorRequest, error) {
	const query = `SELECT id, thesis_id, student_id, faculty_id, message, status, created_at, updated_at
FROM supervisor_requests WHERE id = $1`
	var request models.SupervisorRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// ExistsPending reports whether a pending request already links the thesis
// and faculty member.
func (r *RequestRepository) ExistsPending(ctx context.Context, thesisID, facultyID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM supervisor_requests WHERE thesis_id = $1 AND faculty_id = $2 AND status = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, thesisID, facultyID, models.RequestStatusPending); err != nil {
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return exists, nil
}

// ListByThesis returns the requests of a thesis, newest first. DELETED
// requests are withdrawn and hidden from every listing.
func (r *RequestRepository) ListByThesis(ctx context.Context, thesisID string) ([]models.SupervisorRequestDetail, error) {
	const query = `SELECT r.id, r.thesis_id, r.student_id, r.faculty_id, r.message, r.status, r.created_at, r.updated_at,
       t.title AS thesis_title, t.code AS thesis_code,
       s.full_name AS student_name, f.full_name AS faculty_name
FROM supervisor_requests r
JOIN theses t ON t.id = r.thesis_id
JOIN students s ON s.id = r.student_id
JOIN faculties f ON f.id = r.faculty_id
WHERE r.thesis_id = $1 AND r.status <> $2
ORDER BY r.created_at DESC`
	requests := []models.SupervisorRequestDetail{}
	if err := r.db.SelectContext(ctx, &requests, query, thesisID, models.RequestStatusDeleted); err != nil {
		return nil, fmt.Errorf("list requests by thesis: %w", err)
	}
	return requests, nil
}

// ListPendingByFaculty returns the open requests addressed to a faculty
// member, oldest first so the inbox reads in arrival order.
func (r *RequestRepository) ListPendingByFaculty(ctx context.Context, facultyID string) ([]models.SupervisorRequestDetail, error) {
	const query = `SELECT r.id, r.thesis_id, r.student_id, r.faculty_id, r.message, r.status, r.created_at, r.updated_at,
       t.title AS thesis_title, t.code AS thesis_code,
       s.full_name AS student_name, f.full_name AS faculty_name
FROM supervisor_requests r
JOIN theses t ON t.id = r.thesis_id
JOIN students s ON s.id = r.student_id
JOIN faculties f ON f.id = r.faculty_id
WHERE r.faculty_id = $1 AND r.status = $2
ORDER BY r.created_at ASC`
	requests := []models.SupervisorRequestDetail{}
	if err := r.db.SelectContext(ctx, &requests, query, facultyID, models.RequestStatusPending); err != nil {
		return nil, fmt.Errorf("list pending requests by faculty: %w", err)
	}
	return requests, nil
}

// Accept runs the supervisor assignment as one transaction: the request
// becomes ACCEPTED, the thesis gains the supervisor and turns ACTIVE, and
// every sibling pending request on the same thesis is rejected. Either all
// of it happens or none of it does.
func (r *RequestRepository) Accept(ctx context.Context, requestID, thesisID, facultyID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accept request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		"UPDATE supervisor_requests SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.RequestStatusAccepted, requestID, models.RequestStatusPending)
	if err != nil {
		return fmt.Errorf("accept request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("accept request rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE theses SET supervisor_id = $1, status = $2, updated_at = NOW() WHERE id = $3",
		facultyID, models.ThesisStatusActive, thesisID); err != nil {
		return fmt.Errorf("assign supervisor: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE supervisor_requests SET status = $1, updated_at = NOW() WHERE thesis_id = $2 AND status = $3 AND id <> $4",
		models.RequestStatusRejected, thesisID, models.RequestStatusPending, requestID); err != nil {
		return fmt.Errorf("reject sibling requests: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accept request: %w", err)
	}
	return nil
}

// UpdateStatus moves a request between states. The expected status guards
// against double decisions.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE supervisor_requests SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		to, id, from)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
