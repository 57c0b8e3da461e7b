package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradhub/thesis-api/internal/models"
)

// NotificationRepository provides append-only persistence for workflow
// notifications. Rows are inserted and read, never updated or deleted.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create appends a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO notifications (id, user_id, thesis_id, faculty_id, type, title, message, related_id, created_at)
VALUES (:id, :user_id, :thesis_id, :faculty_id, :type, :title, :message, :related_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByUser returns a page of a user's notifications, newest first, with
// the total count for pagination.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications WHERE user_id = $1", userID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	const query = `SELECT id, user_id, thesis_id, faculty_id, type, title, message, related_id, created_at
FROM notifications WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	notifications := []models.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID, pageSize, (page-1)*pageSize); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, total, nil
}
