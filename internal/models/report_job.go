package models

import "time"

// ReportJobStatus tracks the lifecycle of an export job.
type ReportJobStatus string

const (
	ReportJobPending    ReportJobStatus = "PENDING"
	ReportJobProcessing ReportJobStatus = "PROCESSING"
	ReportJobCompleted  ReportJobStatus = "COMPLETED"
	ReportJobFailed     ReportJobStatus = "FAILED"
)

// ReportFormat selects the export renderer.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportJob is a queued progress report export for a thesis.
type ReportJob struct {
	ID          string          `db:"id" json:"id"`
	ThesisID    string          `db:"thesis_id" json:"thesis_id"`
	RequestedBy string          `db:"requested_by" json:"requested_by"`
	Format      ReportFormat    `db:"format" json:"format"`
	Status      ReportJobStatus `db:"status" json:"status"`
	FilePath    *string         `db:"file_path" json:"-"`
	ErrorText   *string         `db:"error_text" json:"error,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}
