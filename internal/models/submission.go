package models

import "time"

// Submission is a student's response to a task. At least one of Content and
// FileURL is always present. Feedback and Grade are set once by the assigning
// faculty.
type Submission struct {
	ID        string    `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Content   *string   `db:"content" json:"content,omitempty"`
	FileURL   *string   `db:"file_url" json:"file_url,omitempty"`
	Feedback  *string   `db:"feedback" json:"feedback,omitempty"`
	Grade     *int      `db:"grade" json:"grade,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubmissionDetail joins the submitting student and owning task for views.
type SubmissionDetail struct {
	Submission
	StudentName string `db:"student_name" json:"student_name"`
	TaskTitle   string `db:"task_title" json:"task_title"`
}
