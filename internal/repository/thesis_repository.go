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

// ThesisRepository provides persistence for theses and their memberships.
type ThesisRepository struct {
	db *sqlx.DB
}

// NewThesisRepository creates the repository.
func NewThesisRepository(db *sqlx.DB) *ThesisRepository {
	return &ThesisRepository{db: db}
}

// CreateWithCreator inserts the thesis and its creator membership atomically.
// A thesis never exists without exactly one creator member.
func (r *ThesisRepository) CreateWithCreator(ctx context.Context, thesis *models.Thesis, studentID string) error {
	if thesis.ID == "" {
		thesis.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	thesis.CreatedAt = now
	thesis.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create thesis: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const thesisQuery = `INSERT INTO theses (id, title, description, code, join_password, status, research_tags, supervisor_id, created_at, updated_at)
VALUES (:id, :title, :description, :code, :join_password, :status, :research_tags, :supervisor_id, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, thesisQuery, thesis); err != nil {
		return fmt.Errorf("create thesis: %w", err)
	}

	const memberQuery = `INSERT INTO thesis_members (id, thesis_id, student_id, creator, joined_at)
VALUES ($1, $2, $3, TRUE, $4)`
	if _, err := tx.ExecContext(ctx, memberQuery, uuid.NewString(), thesis.ID, studentID, now); err != nil {
		return fmt.Errorf("create thesis creator member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create thesis: %w", err)
	}
	return nil
}

// FindByID returns a thesis by identifier.
func (r *ThesisRepository) FindByID(ctx context.Context, id string) (*models.Thesis, error) {
	const query = `SELECT id, title, description, code, join_password, status, research_tags, supervisor_id, created_at, updated_at
FROM theses WHERE id = $1`
	var thesis models.Thesis
	if err := r.db.GetContext(ctx, &thesis, query, id); err != nil {
		return nil, err
	}
	return &thesis, nil
}

// FindByCode returns a thesis by its public join code.
func (r *ThesisRepository) FindByCode(ctx context.Context, code string) (*models.Thesis, error) {
	const query = `SELECT id, title, description, code, join_password, status, research_tags, supervisor_id, created_at, updated_at
FROM theses WHERE code = $1`
	var thesis models.Thesis
	if err := r.db.GetContext(ctx, &thesis, query, code); err != nil {
		return nil, err
	}
	return &thesis, nil
}

// FindDetailByID returns a thesis with the supervisor profile joined in.
func (r *ThesisRepository) FindDetailByID(ctx context.Context, id string) (*models.ThesisDetail, error) {
	const query = `SELECT t.id, t.title, t.description, t.code, t.join_password, t.status, t.research_tags, t.supervisor_id, t.created_at, t.updated_at,
       f.full_name AS supervisor_name, f.department AS supervisor_department
FROM theses t
LEFT JOIN faculties f ON f.id = t.supervisor_id
WHERE t.id = $1`
	var detail models.ThesisDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByStudent returns every thesis the student is a member of, newest first.
func (r *ThesisRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ThesisDetail, error) {
	const query = `SELECT t.id, t.title, t.description, t.code, t.join_password, t.status, t.research_tags, t.supervisor_id, t.created_at, t.updated_at,
       f.full_name AS supervisor_name, f.department AS supervisor_department
FROM theses t
JOIN thesis_members m ON m.thesis_id = t.id
LEFT JOIN faculties f ON f.id = t.supervisor_id
WHERE m.student_id = $1
ORDER BY t.created_at DESC`
	theses := []models.ThesisDetail{}
	if err := r.db.SelectContext(ctx, &theses, query, studentID); err != nil {
		return nil, fmt.Errorf("list theses by student: %w", err)
	}
	return theses, nil
}

// ListBySupervisor returns every thesis a faculty member supervises.
func (r *ThesisRepository) ListBySupervisor(ctx context.Context, facultyID string) ([]models.ThesisDetail, error) {
	const query = `SELECT t.id, t.title, t.description, t.code, t.join_password, t.status, t.research_tags, t.supervisor_id, t.created_at, t.updated_at,
       f.full_name AS supervisor_name, f.department AS supervisor_department
FROM theses t
LEFT JOIN faculties f ON f.id = t.supervisor_id
WHERE t.supervisor_id = $1
ORDER BY t.created_at DESC`
	theses := []models.ThesisDetail{}
	if err := r.db.SelectContext(ctx, &theses, query, facultyID); err != nil {
		return nil, fmt.Errorf("list theses by supervisor: %w", err)
	}
	return theses, nil
}

// Update persists editable thesis fields.
func (r *ThesisRepository) Update(ctx context.Context, thesis *models.Thesis) error {
	thesis.UpdatedAt = time.Now().UTC()
	const query = `UPDATE theses
SET title = :title, description = :description, research_tags = :research_tags, updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, thesis)
	if err != nil {
		return fmt.Errorf("update thesis: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update thesis rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus flips the lifecycle status.
func (r *ThesisRepository) UpdateStatus(ctx context.Context, id string, status models.ThesisStatus) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE theses SET status = $1, updated_at = NOW() WHERE id = $2", status, id); err != nil {
		return fmt.Errorf("update thesis status: %w", err)
	}
	return nil
}

// UpdateJoinPassword rotates the join secret.
func (r *ThesisRepository) UpdateJoinPassword(ctx context.Context, id, joinPassword string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE theses SET join_password = $1, updated_at = NOW() WHERE id = $2", joinPassword, id); err != nil {
		return fmt.Errorf("update thesis join password: %w", err)
	}
	return nil
}

// DeleteCascade removes a thesis together with its memberships and supervision
// requests in one transaction. Callers enforce the deletable-state policy.
func (r *ThesisRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete thesis: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM supervisor_requests WHERE thesis_id = $1", id); err != nil {
		return fmt.Errorf("delete thesis requests: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM thesis_members WHERE thesis_id = $1", id); err != nil {
		return fmt.Errorf("delete thesis members: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM theses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete thesis: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete thesis rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete thesis: %w", err)
	}
	return nil
}

// AddMember enrolls a student into the thesis team.
func (r *ThesisRepository) AddMember(ctx context.Context, thesisID, studentID string) (*models.ThesisMember, error) {
	member := &models.ThesisMember{
		ID:        uuid.NewString(),
		ThesisID:  thesisID,
		StudentID: studentID,
		Creator:   false,
		JoinedAt:  time.Now().UTC(),
	}
	const query = `INSERT INTO thesis_members (id, thesis_id, student_id, creator, joined_at)
VALUES (:id, :thesis_id, :student_id, :creator, :joined_at)`
	if _, err := r.db.NamedExecContext(ctx, query, member); err != nil {
		return nil, fmt.Errorf("add thesis member: %w", err)
	}
	return member, nil
}

// RemoveMember drops a non-creator member from the team.
func (r *ThesisRepository) RemoveMember(ctx context.Context, thesisID, studentID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM thesis_members WHERE thesis_id = $1 AND student_id = $2 AND creator = FALSE", thesisID, studentID)
	if err != nil {
		return fmt.Errorf("remove thesis member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove thesis member rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListMembers returns the members of a thesis with their profiles.
func (r *ThesisRepository) ListMembers(ctx context.Context, thesisID string) ([]models.ThesisMemberDetail, error) {
	const query = `SELECT m.id, m.thesis_id, m.student_id, m.creator, m.joined_at,
       s.user_id, s.full_name, u.email, s.department
FROM thesis_members m
JOIN students s ON s.id = m.student_id
JOIN users u ON u.id = s.user_id
WHERE m.thesis_id = $1
ORDER BY m.creator DESC, m.joined_at ASC`
	members := []models.ThesisMemberDetail{}
	if err := r.db.SelectContext(ctx, &members, query, thesisID); err != nil {
		return nil, fmt.Errorf("list thesis members: %w", err)
	}
	return members, nil
}

// FindMembership returns the membership row for a student, or sql.ErrNoRows.
func (r *ThesisRepository) FindMembership(ctx context.Context, thesisID, studentID string) (*models.ThesisMember, error) {
	const query = `SELECT id, thesis_id, student_id, creator, joined_at
FROM thesis_members WHERE thesis_id = $1 AND student_id = $2`
	var member models.ThesisMember
	if err := r.db.GetContext(ctx, &member, query, thesisID, studentID); err != nil {
		return nil, err
	}
	return &member, nil
}

// CodeExists reports whether the join code is already taken.
func (r *ThesisRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM theses WHERE code = $1)", code); err != nil {
		return false, fmt.Errorf("check thesis code: %w", err)
	}
	return exists, nil
}
