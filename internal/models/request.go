package models

import "time"

// RequestStatus is the state of a supervision request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusAccepted RequestStatus = "ACCEPTED"
	RequestStatusRejected RequestStatus = "REJECTED"
	RequestStatusDeleted  RequestStatus = "DELETED"
)

// SupervisorRequest is a proposal from a thesis's students to a faculty
// member to supervise the thesis.
type SupervisorRequest struct {
	ID        string        `db:"id" json:"id"`
	ThesisID  string        `db:"thesis_id" json:"thesis_id"`
	StudentID string        `db:"student_id" json:"student_id"`
	FacultyID string        `db:"faculty_id" json:"faculty_id"`
	Message   *string       `db:"message" json:"message,omitempty"`
	Status    RequestStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// SupervisorRequestDetail joins the thesis and party names for list views.
type SupervisorRequestDetail struct {
	SupervisorRequest
	ThesisTitle string `db:"thesis_title" json:"thesis_title"`
	ThesisCode  string `db:"thesis_code" json:"thesis_code"`
	StudentName string `db:"student_name" json:"student_name"`
	FacultyName string `db:"faculty_name" json:"faculty_name"`
}
