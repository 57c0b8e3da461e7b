package models

import (
	"time"

	"github.com/lib/pq"
)

// ThesisStatus is the lifecycle state of a thesis.
type ThesisStatus string

const (
	ThesisStatusPendingSupervisor ThesisStatus = "PENDING_SUPERVISOR"
	ThesisStatusActive            ThesisStatus = "ACTIVE"
	ThesisStatusInactive          ThesisStatus = "INACTIVE"
)

// Thesis is a research project owned by one or more students and optionally
// supervised by one faculty member.
//
// Invariant: SupervisorID is non-nil exactly when Status is ACTIVE or INACTIVE.
type Thesis struct {
	ID           string         `db:"id" json:"id"`
	Title        string         `db:"title" json:"title"`
	Description  *string        `db:"description" json:"description,omitempty"`
	Code         string         `db:"code" json:"code"`
	JoinPassword string         `db:"join_password" json:"-"`
	Status       ThesisStatus   `db:"status" json:"status"`
	ResearchTags pq.StringArray `db:"research_tags" json:"research_tags"`
	SupervisorID *string        `db:"supervisor_id" json:"supervisor_id,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// ThesisMember links a student to a thesis. Exactly one member per thesis
// carries the creator flag.
type ThesisMember struct {
	ID        string    `db:"id" json:"id"`
	ThesisID  string    `db:"thesis_id" json:"thesis_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Creator   bool      `db:"creator" json:"creator"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

// ThesisMemberDetail carries the student profile alongside the membership row.
type ThesisMemberDetail struct {
	ThesisMember
	UserID     string `db:"user_id" json:"user_id"`
	FullName   string `db:"full_name" json:"full_name"`
	Email      string `db:"email" json:"email"`
	Department string `db:"department" json:"department"`
}

// ThesisDetail is a thesis with its supervisor's public profile joined in.
type ThesisDetail struct {
	Thesis
	SupervisorName       *string `db:"supervisor_name" json:"supervisor_name,omitempty"`
	SupervisorDepartment *string `db:"supervisor_department" json:"supervisor_department,omitempty"`
}

// ThesisPublic is the redacted view exposed to non-members.
type ThesisPublic struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  *string        `json:"description,omitempty"`
	Status       ThesisStatus   `json:"status"`
	ResearchTags pq.StringArray `json:"research_tags"`
}

// Public strips the fields non-members must not see.
func (t *Thesis) Public() ThesisPublic {
	return ThesisPublic{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		ResearchTags: t.ResearchTags,
	}
}
