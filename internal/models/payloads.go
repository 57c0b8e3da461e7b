package models

import "time"

// CreateThesisRequest starts a new thesis owned by the calling student.
type CreateThesisRequest struct {
	Title        string   `json:"title" validate:"required,max=200"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=4000"`
	ResearchTags []string `json:"research_tags" validate:"max=10,dive,max=60"`
}

// UpdateThesisRequest edits thesis metadata.
type UpdateThesisRequest struct {
	Title        *string  `json:"title,omitempty" validate:"omitempty,max=200"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=4000"`
	ResearchTags []string `json:"research_tags,omitempty" validate:"omitempty,max=10,dive,max=60"`
}

// JoinThesisRequest enrolls the calling student using the thesis code and
// join password.
type JoinThesisRequest struct {
	Code         string `json:"code" validate:"required"`
	JoinPassword string `json:"join_password" validate:"required"`
}

// AddThesisMemberRequest lets the creator enroll a student directly by
// email, without the join password.
type AddThesisMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UpdateThesisStatusRequest closes an active thesis.
type UpdateThesisStatusRequest struct {
	Status ThesisStatus `json:"status" validate:"required,oneof=INACTIVE"`
}

// CreateSupervisorRequestPayload proposes a faculty member as supervisor.
type CreateSupervisorRequestPayload struct {
	ThesisID  string  `json:"thesis_id" validate:"required,uuid"`
	FacultyID string  `json:"faculty_id" validate:"required,uuid"`
	Message   *string `json:"message,omitempty" validate:"omitempty,max=2000"`
}

// DecideRequestPayload accepts or rejects a supervision request.
type DecideRequestPayload struct {
	Status RequestStatus `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
}

// CreateTaskRequest assigns a new task to a thesis.
type CreateTaskRequest struct {
	ThesisID    string     `json:"thesis_id" validate:"required,uuid"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=4000"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// UpdateTaskRequest edits a task. Setting the status by hand lets the
// assigner reopen a task or mark it done without a submission.
type UpdateTaskRequest struct {
	Title       *string     `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=4000"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	Status      *TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=PENDING COMPLETED"`
}

// CreateSubmissionRequest answers a task with text content, a file, or both.
// The file itself travels as multipart form data next to this payload.
type CreateSubmissionRequest struct {
	Content *string `json:"content,omitempty" form:"content" validate:"omitempty,max=8000"`
}

// FeedbackRequest records the reviewer's feedback and/or grade on a
// submission. At least one of the two must be present.
type FeedbackRequest struct {
	Feedback string `json:"feedback,omitempty" validate:"omitempty,max=4000"`
	Grade    *int   `json:"grade,omitempty" validate:"omitempty,min=0,max=100"`
}

// CreateAppointmentRequest asks the supervisor for a meeting.
type CreateAppointmentRequest struct {
	ThesisID string     `json:"thesis_id" validate:"required,uuid"`
	Message  string     `json:"message" validate:"required,max=2000"`
	Time     *time.Time `json:"time,omitempty"`
}

// UpdateAppointmentRequest decides or reschedules an appointment.
type UpdateAppointmentRequest struct {
	Status  *AppointmentStatus `json:"status,omitempty" validate:"omitempty,oneof=ACCEPTED REJECTED"`
	Message *string            `json:"message,omitempty" validate:"omitempty,max=2000"`
	Time    *time.Time         `json:"time,omitempty"`
}

// UpdateProfileRequest edits the caller's student or faculty profile.
type UpdateProfileRequest struct {
	FullName   *string `json:"full_name,omitempty" validate:"omitempty,max=120"`
	Department *string `json:"department,omitempty" validate:"omitempty,max=120"`
	Bio        *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
}

// CreateContributionRequest adds a publication to a student profile.
type CreateContributionRequest struct {
	Title string `json:"title" validate:"required,max=300"`
	Venue string `json:"venue,omitempty" validate:"omitempty,max=200"`
	Year  int    `json:"year,omitempty" validate:"omitempty,min=1900,max=2100"`
	Link  string `json:"link,omitempty" validate:"omitempty,url,max=500"`
}

// UpdateContributionRequest edits a publication on a student profile.
type UpdateContributionRequest struct {
	Title *string `json:"title,omitempty" validate:"omitempty,max=300"`
	Venue *string `json:"venue,omitempty" validate:"omitempty,max=200"`
	Year  *int    `json:"year,omitempty" validate:"omitempty,min=1900,max=2100"`
	Link  *string `json:"link,omitempty" validate:"omitempty,url,max=500"`
}

// CreateReportRequest queues a progress report export.
type CreateReportRequest struct {
	Format ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ReportJobResponse describes a queued or finished export job.
type ReportJobResponse struct {
	Job         ReportJob  `json:"job"`
	DownloadURL *string    `json:"download_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
