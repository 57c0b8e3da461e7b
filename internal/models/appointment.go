package models

import "time"

// AppointmentStatus is the state of a meeting request.
type AppointmentStatus string

const (
	AppointmentStatusPending  AppointmentStatus = "PENDING"
	AppointmentStatusAccepted AppointmentStatus = "ACCEPTED"
	AppointmentStatusRejected AppointmentStatus = "REJECTED"
)

// Appointment is a meeting requested by thesis members with the supervisor.
type Appointment struct {
	ID        string            `db:"id" json:"id"`
	ThesisID  string            `db:"thesis_id" json:"thesis_id"`
	FacultyID string            `db:"faculty_id" json:"faculty_id"`
	Message   string            `db:"message" json:"message"`
	Status    AppointmentStatus `db:"status" json:"status"`
	Time      *time.Time        `db:"time" json:"time,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}
