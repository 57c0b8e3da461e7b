package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gradhub/thesis-api/internal/models"
)

// FacultyRepository provides persistence for faculty profiles and the
// public directory.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates the repository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// FindByID returns a faculty profile by identifier.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	const query = `SELECT id, user_id, full_name, department, bio, profile_image, created_at, updated_at
FROM faculties WHERE id = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// FindByUserID returns the profile owned by a user account.
func (r *FacultyRepository) FindByUserID(ctx context.Context, userID string) (*models.Faculty, error) {
	const query = `SELECT id, user_id, full_name, department, bio, profile_image, created_at, updated_at
FROM faculties WHERE user_id = $1`
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, userID); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// Update persists editable profile fields.
func (r *FacultyRepository) Update(ctx context.Context, faculty *models.Faculty) error {
	faculty.UpdatedAt = time.Now().UTC()
	const query = `UPDATE faculties
SET full_name = :full_name, department = :department, bio = :bio, profile_image = :profile_image, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, faculty); err != nil {
		return fmt.Errorf("update faculty: %w", err)
	}
	return nil
}

// List returns directory entries matching the filter together with the
// total row count for pagination. Supervision load counts are joined in so
// students can judge availability.
func (r *FacultyRepository) List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(f.full_name ILIKE $%d OR f.department ILIKE $%d)", idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("f.department = $%d", idx))
		args = append(args, filter.Department)
		idx++
	}
	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM faculties f WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count faculties: %w", err)
	}

	listQuery := fmt.Sprintf(`SELECT f.id, f.user_id, f.full_name, f.department, f.bio, f.profile_image, f.created_at, f.updated_at,
       COUNT(t.id) FILTER (WHERE t.status = 'ACTIVE') AS active_theses,
       COUNT(t.id) FILTER (WHERE t.status = 'INACTIVE') AS completed_theses
FROM faculties f
LEFT JOIN theses t ON t.supervisor_id = f.id
WHERE %s
GROUP BY f.id
ORDER BY f.full_name ASC
LIMIT $%d OFFSET $%d`, where, idx, idx+1)
	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)

	faculties := []models.FacultyDetail{}
	if err := r.db.SelectContext(ctx, &faculties, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list faculties: %w", err)
	}
	return faculties, total, nil
}

// FindDetailByID returns one directory entry with its load counts.
func (r *FacultyRepository) FindDetailByID(ctx context.Context, id string) (*models.FacultyDetail, error) {
	const query = `SELECT f.id, f.user_id, f.full_name, f.department, f.bio, f.profile_image, f.created_at, f.updated_at,
       COUNT(t.id) FILTER (WHERE t.status = 'ACTIVE') AS active_theses,
       COUNT(t.id) FILTER (WHERE t.status = 'INACTIVE') AS completed_theses
FROM faculties f
LEFT JOIN theses t ON t.supervisor_id = f.id
WHERE f.id = $1
GROUP BY f.id`
	var detail models.FacultyDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}
