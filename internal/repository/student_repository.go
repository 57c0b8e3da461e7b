package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradhub/thesis-api/internal/models"
)

// StudentRepository provides persistence for student profiles and their
// contributions.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student profile by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, user_id, full_name, department, bio, profile_image, created_at, updated_at
FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByUserID returns the profile owned by a user account.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	const query = `SELECT id, user_id, full_name, department, bio, profile_image, created_at, updated_at
FROM students WHERE user_id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByEmail resolves a student through the email on the owning account.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	const query = `SELECT s.id, s.user_id, s.full_name, s.department, s.bio, s.profile_image, s.created_at, s.updated_at
FROM students s
JOIN users u ON u.id = s.user_id
WHERE u.email = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		return nil, err
	}
	return &student, nil
}

// Update persists editable profile fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students
SET full_name = :full_name, department = :department, bio = :bio, profile_image = :profile_image, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// CreateContribution adds a publication entry to the profile.
func (r *StudentRepository) CreateContribution(ctx context.Context, c *models.Contribution) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	const query = `INSERT INTO contributions (id, student_id, title, venue, year, link, created_at, updated_at)
VALUES (:id, :student_id, :title, :venue, :year, :link, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create contribution: %w", err)
	}
	return nil
}

// ListContributions returns a student's contributions, newest year first.
func (r *StudentRepository) ListContributions(ctx context.Context, studentID string) ([]models.Contribution, error) {
	const query = `SELECT id, student_id, title, venue, year, link, created_at, updated_at
FROM contributions WHERE student_id = $1
ORDER BY year DESC, created_at DESC`
	contributions := []models.Contribution{}
	if err := r.db.SelectContext(ctx, &contributions, query, studentID); err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	return contributions, nil
}

// FindContribution returns a contribution only when the student owns it.
func (r *StudentRepository) FindContribution(ctx context.Context, id, studentID string) (*models.Contribution, error) {
	const query = `SELECT id, student_id, title, venue, year, link, created_at, updated_at
FROM contributions WHERE id = $1 AND student_id = $2`
	var contribution models.Contribution
	if err := r.db.GetContext(ctx, &contribution, query, id, studentID); err != nil {
		return nil, err
	}
	return &contribution, nil
}

// UpdateContribution persists edits to a publication entry.
func (r *StudentRepository) UpdateContribution(ctx context.Context, c *models.Contribution) error {
	c.UpdatedAt = time.Now().UTC()
	const query = `UPDATE contributions
SET title = :title, venue = :venue, year = :year, link = :link, updated_at = :updated_at
WHERE id = :id AND student_id = :student_id`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("update contribution: %w", err)
	}
	return nil
}

// DeleteContribution removes a contribution owned by the student.
func (r *StudentRepository) DeleteContribution(ctx context.Context, id, studentID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM contributions WHERE id = $1 AND student_id = $2", id, studentID)
	if err != nil {
		return false, fmt.Errorf("delete contribution: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete contribution rows: %w", err)
	}
	return rows > 0, nil
}
