package models

import "time"

// NotificationType categorises workflow events.
type NotificationType string

const (
	NotificationSupervisorRequest  NotificationType = "SUPERVISOR_REQUEST"
	NotificationTaskAssigned       NotificationType = "TASK_ASSIGNED"
	NotificationSubmissionFeedback NotificationType = "SUBMISSION_FEEDBACK"
	NotificationAppointment        NotificationType = "APPOINTMENT"
	NotificationThesisStatus       NotificationType = "THESIS_STATUS"
)

// Notification is an append-only record of a workflow event targeted at a
// user. Rows are never mutated after insertion.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	ThesisID  *string          `db:"thesis_id" json:"thesis_id,omitempty"`
	FacultyID *string          `db:"faculty_id" json:"faculty_id,omitempty"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	RelatedID *string          `db:"related_id" json:"related_id,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
