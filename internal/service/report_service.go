package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gradhub/thesis-api/internal/authz"
	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
	"github.com/gradhub/thesis-api/pkg/export"
	"github.com/gradhub/thesis-api/pkg/jobs"
	"github.com/gradhub/thesis-api/pkg/storage"
)

type reportRepository interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type reportTaskStore interface {
	ListByThesis(ctx context.Context, thesisID string) ([]models.Task, error)
	Stats(ctx context.Context, thesisID string) (*models.TaskStats, error)
}

type reportSubmissionStore interface {
	ListByThesis(ctx context.Context, thesisID string) ([]models.SubmissionDetail, error)
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type reportMetrics interface {
	RecordReportJob(status string)
}

// ReportService renders asynchronous progress report exports. Requests are
// queued; workers aggregate the thesis's tasks and submissions, render CSV
// or PDF, and store the file. Downloads go through signed expiring tokens.
type ReportService struct {
	repo        reportRepository
	theses      requestThesisStore
	tasks       reportTaskStore
	submissions reportSubmissionStore
	students    studentDirectory
	faculties   facultyDirectory
	store       reportStorage
	signer      *storage.SignedURLSigner
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	metrics     reportMetrics
	retention   time.Duration
	queue       *jobs.Queue
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewReportService constructs the service and its worker queue. Rendered
// files older than retention are swept periodically; zero disables the sweep.
func NewReportService(repo reportRepository, theses requestThesisStore, tasks reportTaskStore, submissions reportSubmissionStore, students studentDirectory, faculties facultyDirectory, store reportStorage, signer *storage.SignedURLSigner, metrics reportMetrics, retention time.Duration, validate *validator.Validate, logger *zap.Logger, cfg jobs.QueueConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &ReportService{
		repo:        repo,
		theses:      theses,
		tasks:       tasks,
		submissions: submissions,
		students:    students,
		faculties:   faculties,
		store:       store,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		metrics:     metrics,
		retention:   retention,
		validator:   validate,
		logger:      logger,
	}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("reports", s.handleJob, cfg)
	return s
}

// Start begins queue consumption and the retention sweep.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.retention > 0 {
		go s.sweep(ctx)
	}
}

// sweep removes rendered report files past their retention window.
func (s *ReportService) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.store.CleanupOlderThan(s.retention)
			if err != nil {
				s.logger.Warn("report retention sweep failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("expired report files removed", zap.Int("count", len(deleted)))
			}
		}
	}
}

// Stop drains the queue workers.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// Request queues a progress report export for a thesis the caller may view.
func (s *ReportService) Request(ctx context.Context, actor *models.JWTClaims, thesisID string, req models.CreateReportRequest) (*models.ReportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	thesis, err := s.theses.FindByID(ctx, thesisID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}
	if err := authz.Can(actor.Role, authz.ActionThesisView, s.viewFacts(ctx, actor, thesis)); err != nil {
		return nil, err
	}

	job := &models.ReportJob{
		ThesisID:    thesis.ID,
		RequestedBy: actor.UserID,
		Format:      req.Format,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "report", Payload: job.ID}); err != nil {
		s.logger.Error("failed to enqueue report job", zap.String("job_id", job.ID), zap.Error(err))
		if markErr := s.repo.MarkFailed(ctx, job.ID, "queue unavailable"); markErr != nil {
			s.logger.Error("failed to mark report job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report job")
	}
	return job, nil
}

// Get returns the job state for its requester, with a signed download link
// once completed.
func (s *ReportService) Get(ctx context.Context, actor *models.JWTClaims, jobID string) (*models.ReportJobResponse, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.RequestedBy != actor.UserID && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report belongs to another user")
	}

	resp := &models.ReportJobResponse{Job: *job}
	if job.Status == models.ReportJobCompleted && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
		}
		url := "/api/v1/reports/download/" + token
		resp.DownloadURL = &url
		resp.ExpiresAt = &expiresAt
	}
	return resp, nil
}

// Resolve validates a signed download token and returns the absolute file
// path to stream.
func (s *ReportService) Resolve(ctx context.Context, token string) (string, *models.ReportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.Status != models.ReportJobCompleted || job.FilePath == nil || *job.FilePath != relPath {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "report file not available")
	}
	return s.store.Path(relPath), job, nil
}

func (s *ReportService) handleJob(ctx context.Context, job jobs.Job) error {
	jobID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected report payload type %T", job.Payload)
	}

	if err := s.repo.MarkProcessing(ctx, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already claimed or terminal.
			return nil
		}
		return fmt.Errorf("claim report job: %w", err)
	}

	report, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load report job: %w", err)
	}

	filePath, err := s.render(ctx, report)
	if err != nil {
		s.logger.Error("report render failed", zap.String("job_id", jobID), zap.Error(err))
		if markErr := s.repo.MarkFailed(ctx, jobID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark report job failed", zap.String("job_id", jobID), zap.Error(markErr))
		}
		if s.metrics != nil {
			s.metrics.RecordReportJob(string(models.ReportJobFailed))
		}
		return nil
	}

	if err := s.repo.MarkCompleted(ctx, jobID, filePath); err != nil {
		return fmt.Errorf("complete report job: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordReportJob(string(models.ReportJobCompleted))
	}
	s.logger.Info("report rendered", zap.String("job_id", jobID), zap.String("file", filePath))
	return nil
}

func (s *ReportService) render(ctx context.Context, report *models.ReportJob) (string, error) {
	thesis, err := s.theses.FindByID(ctx, report.ThesisID)
	if err != nil {
		return "", fmt.Errorf("load thesis: %w", err)
	}
	tasks, err := s.tasks.ListByThesis(ctx, report.ThesisID)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	submissions, err := s.submissions.ListByThesis(ctx, report.ThesisID)
	if err != nil {
		return "", fmt.Errorf("list submissions: %w", err)
	}
	stats, err := s.tasks.Stats(ctx, report.ThesisID)
	if err != nil {
		return "", fmt.Errorf("aggregate stats: %w", err)
	}

	dataset := buildProgressDataset(tasks, submissions)

	var data []byte
	var ext string
	switch report.Format {
	case models.ReportFormatPDF:
		title := fmt.Sprintf("%s (%d/%d tasks done)", thesis.Title, stats.CompletedTasks, stats.TotalTasks)
		data, err = s.pdf.Render(dataset, title)
		ext = "pdf"
	default:
		data, err = s.csv.Render(dataset)
		ext = "csv"
	}
	if err != nil {
		return "", fmt.Errorf("render %s: %w", report.Format, err)
	}

	filename := fmt.Sprintf("reports/%s.%s", report.ID, ext)
	if _, err := s.store.Save(filename, data); err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}
	return filename, nil
}

func buildProgressDataset(tasks []models.Task, submissions []models.SubmissionDetail) export.Dataset {
	byTask := make(map[string][]models.SubmissionDetail, len(submissions))
	for _, sub := range submissions {
		byTask[sub.TaskID] = append(byTask[sub.TaskID], sub)
	}

	dataset := export.Dataset{
		Headers: []string{"Task", "Status", "Due", "Submitted By", "Submitted At", "Grade", "Feedback"},
	}
	for _, task := range tasks {
		due := ""
		if task.DueDate != nil {
			due = task.DueDate.Format("2006-01-02")
		}
		subs := byTask[task.ID]
		if len(subs) == 0 {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Task":   task.Title,
				"Status": string(task.Status),
				"Due":    due,
			})
			continue
		}
		for _, sub := range subs {
			row := map[string]string{
				"Task":         task.Title,
				"Status":       string(task.Status),
				"Due":          due,
				"Submitted By": sub.StudentName,
				"Submitted At": sub.CreatedAt.Format("2006-01-02 15:04"),
			}
			if sub.Grade != nil {
				row["Grade"] = fmt.Sprintf("%d", *sub.Grade)
			}
			if sub.Feedback != nil {
				row["Feedback"] = *sub.Feedback
			}
			dataset.Rows = append(dataset.Rows, row)
		}
	}
	return dataset
}

func (s *ReportService) viewFacts(ctx context.Context, actor *models.JWTClaims, thesis *models.Thesis) authz.Facts {
	facts := authz.Facts{ThesisStatus: thesis.Status, HasSupervisor: thesis.SupervisorID != nil}
	switch actor.Role {
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return facts
		}
		if _, err := s.theses.FindMembership(ctx, thesis.ID, student.ID); err == nil {
			facts.IsMember = true
		}
	case models.RoleFaculty:
		faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return facts
		}
		facts.IsSupervisor = thesis.SupervisorID != nil && *thesis.SupervisorID == faculty.ID
	}
	return facts
}
