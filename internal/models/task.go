package models

import "time"

// TaskStatus is the stored state of a task. OVERDUE is never stored; it is
// derived at read time from the due date.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusCompleted TaskStatus = "COMPLETED"
)

// Task is a unit of work assigned by the supervising faculty to the members
// of a thesis.
type Task struct {
	ID          string     `db:"id" json:"id"`
	ThesisID    string     `db:"thesis_id" json:"thesis_id"`
	FacultyID   string     `db:"faculty_id" json:"faculty_id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	Status      TaskStatus `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Overdue reports whether the task is past its due date and still pending.
func (t *Task) Overdue(now time.Time) bool {
	return t.Status == TaskStatusPending && t.DueDate != nil && t.DueDate.Before(now)
}

// TaskDetail is a task with its submissions and a derived overdue flag.
type TaskDetail struct {
	Task
	Overdue     bool         `json:"overdue"`
	Submissions []Submission `json:"submissions,omitempty"`
}

// TaskStats summarises progress for a thesis.
type TaskStats struct {
	TotalTasks     int `db:"total_tasks" json:"totalTasks"`
	CompletedTasks int `db:"completed_tasks" json:"completedTasks"`
	PendingTasks   int `db:"pending_tasks" json:"pendingTasks"`
}
