package models

import "time"

// Student is the learner profile attached to a STUDENT user.
type Student struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Department   string    `db:"department" json:"department"`
	Bio          string    `db:"bio" json:"bio,omitempty"`
	ProfileImage *string   `db:"profile_image" json:"profile_image,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Contribution is a publication or artifact listed on a student's profile.
type Contribution struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Title     string    `db:"title" json:"title"`
	Venue     string    `db:"venue" json:"venue,omitempty"`
	Year      int       `db:"year" json:"year,omitempty"`
	Link      string    `db:"link" json:"link,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
