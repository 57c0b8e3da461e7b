package models

import "time"

// Faculty is the supervisor profile attached to a FACULTY user.
type Faculty struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Department   string    `db:"department" json:"department"`
	Bio          string    `db:"bio" json:"bio,omitempty"`
	ProfileImage *string   `db:"profile_image" json:"profile_image,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FacultyFilter captures search criteria for the faculty directory.
type FacultyFilter struct {
	Search     string
	Department string
	Page       int
	PageSize   int
}

// FacultyDetail is a directory entry with supervision load counts.
type FacultyDetail struct {
	Faculty
	ActiveTheses    int `db:"active_theses" json:"active_theses"`
	CompletedTheses int `db:"completed_theses" json:"completed_theses"`
}
