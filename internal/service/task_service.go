package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gradhub/thesis-api/internal/authz"
	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
)

type taskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id string) (*models.Task, error)
	ListByThesis(ctx context.Context, thesisID string) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	DeleteCascade(ctx context.Context, id string) error
	Stats(ctx context.Context, thesisID string) (*models.TaskStats, error)
}

type submissionRepository interface {
	CreateAndCompleteTask(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	ListByTask(ctx context.Context, taskID string) ([]models.Submission, error)
	UpdateFeedback(ctx context.Context, id string, feedback string, grade *int) error
}

type taskStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type documentStore interface {
	SaveUpload(header *multipart.FileHeader) (string, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// TaskService owns task assignment, submissions, feedback, and progress
// aggregates.
type TaskService struct {
	tasks       taskRepository
	submissions submissionRepository
	theses      requestThesisStore
	students    taskStudentStore
	faculties   requestFacultyStore
	documents   documentStore
	cache       statsCache
	cacheTTL    time.Duration
	notifier    notifier
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTaskService constructs a TaskService.
func NewTaskService(tasks taskRepository, submissions submissionRepository, theses requestThesisStore, students taskStudentStore, faculties requestFacultyStore, documents documentStore, cache statsCache, cacheTTL time.Duration, n notifier, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &TaskService{
		tasks:       tasks,
		submissions: submissions,
		theses:      theses,
		students:    students,
		faculties:   faculties,
		documents:   documents,
		cache:       cache,
		cacheTTL:    cacheTTL,
		notifier:    n,
		validator:   validate,
		logger:      logger,
	}
}

// Create assigns a new task to a thesis and notifies every member.
func (s *TaskService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	thesis, faculty, err := s.supervisedThesis(ctx, actor, req.ThesisID)
	if err != nil {
		return nil, err
	}
	facts := authz.Facts{
		IsSupervisor:  faculty != nil && thesis.SupervisorID != nil && *thesis.SupervisorID == faculty.ID,
		ThesisStatus:  thesis.Status,
		HasSupervisor: thesis.SupervisorID != nil,
	}
	if err := authz.Can(actor.Role, authz.ActionTaskCreate, facts); err != nil {
		return nil, err
	}

	task := &models.Task{
		ThesisID:    thesis.ID,
		FacultyID:   faculty.ID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}

	s.invalidateStats(ctx, thesis.ID)
	s.notifyMembers(ctx, thesis, models.Notification{
		ThesisID:  &thesis.ID,
		FacultyID: &faculty.ID,
		Type:      models.NotificationTaskAssigned,
		Title:     "New task assigned",
		Message:   fmt.Sprintf("Task %q was assigned on thesis %q.", task.Title, thesis.Title),
		RelatedID: &task.ID,
	})
	return task, nil
}

// ListByThesis returns tasks with their submissions and the derived overdue
// flag for members, the supervisor, and admins.
func (s *TaskService) ListByThesis(ctx context.Context, actor *models.JWTClaims, thesisID string) ([]models.TaskDetail, error) {
	thesis, err := s.viewableThesis(ctx, actor, thesisID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListByThesis(ctx, thesis.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}

	now := time.Now().UTC()
	details := make([]models.TaskDetail, 0, len(tasks))
	for i := range tasks {
		task := tasks[i]
		submissions, err := s.submissions.ListByTask(ctx, task.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
		}
		details = append(details, models.TaskDetail{
			Task:        task,
			Overdue:     task.Overdue(now),
			Submissions: submissions,
		})
	}
	return details, nil
}

// Update edits a task's metadata and, when the assigner sets it, the status.
func (s *TaskService) Update(ctx context.Context, actor *models.JWTClaims, taskID string, req models.UpdateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	thesis, faculty, err := s.supervisedThesis(ctx, actor, task.ThesisID)
	if err != nil {
		return nil, err
	}
	facts := authz.Facts{
		IsSupervisor:  faculty != nil && thesis.SupervisorID != nil && *thesis.SupervisorID == faculty.ID,
		ThesisStatus:  thesis.Status,
		HasSupervisor: thesis.SupervisorID != nil,
	}
	if err := authz.Can(actor.Role, authz.ActionTaskEdit, facts); err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = req.Description
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	statusChanged := req.Status != nil && *req.Status != task.Status
	if statusChanged {
		task.Status = *req.Status
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}
	if statusChanged {
		s.invalidateStats(ctx, task.ThesisID)
	}
	return task, nil
}

// Delete removes a task together with its submissions. Only the assigning
// faculty may delete.
func (s *TaskService) Delete(ctx context.Context, actor *models.JWTClaims, taskID string) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	var isAssigner bool
	if actor.Role == models.RoleFaculty {
		faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty profile")
		}
		isAssigner = faculty != nil && faculty.ID == task.FacultyID
	}
	if err := authz.Can(actor.Role, authz.ActionTaskDelete, authz.Facts{IsAssigner: isAssigner}); err != nil {
		return err
	}

	if err := s.tasks.DeleteCascade(ctx, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	s.invalidateStats(ctx, task.ThesisID)
	return nil
}

// Submit answers a task with text content, an uploaded document, or both,
// and flips the task to COMPLETED in the same transaction.
func (s *TaskService) Submit(ctx context.Context, actor *models.JWTClaims, taskID string, req models.CreateSubmissionRequest, file *multipart.FileHeader) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	hasContent := req.Content != nil && *req.Content != ""
	if !hasContent && file == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a submission needs text content or a file")
	}

	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	thesis, err := s.theses.FindByID(ctx, task.ThesisID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}
	if thesis.Status == models.ThesisStatusInactive {
		return nil, appErrors.ErrThesisClosed
	}

	var student *models.Student
	var isMember bool
	if actor.Role == models.RoleStudent {
		student, err = s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
		}
		if _, err := s.theses.FindMembership(ctx, thesis.ID, student.ID); err == nil {
			isMember = true
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
		}
	}
	if err := authz.Can(actor.Role, authz.ActionSubmissionCreate, authz.Facts{IsMember: isMember}); err != nil {
		return nil, err
	}

	submission := &models.Submission{
		TaskID:    task.ID,
		StudentID: student.ID,
	}
	if hasContent {
		submission.Content = req.Content
	}
	if file != nil {
		stored, err := s.documents.SaveUpload(file)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
		}
		submission.FileURL = &stored
	}

	if err := s.submissions.CreateAndCompleteTask(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}
	s.invalidateStats(ctx, thesis.ID)

	if s.notifier != nil {
		if assigner, err := s.faculties.FindByID(ctx, task.FacultyID); err == nil {
			s.notifier.Notify(models.Notification{
				UserID:    assigner.UserID,
				ThesisID:  &thesis.ID,
				FacultyID: &assigner.ID,
				Type:      models.NotificationSubmissionFeedback,
				Title:     "New submission received",
				Message:   fmt.Sprintf("A submission was added to task %q on thesis %q.", task.Title, thesis.Title),
				RelatedID: &submission.ID,
			})
		} else {
			s.logger.Warn("failed to load assigner for submission notification", zap.String("task_id", task.ID), zap.Error(err))
		}
	}
	return submission, nil
}

// Feedback records the assigning faculty's feedback on a submission and
// notifies the submitting student.
func (s *TaskService) Feedback(ctx context.Context, actor *models.JWTClaims, submissionID string, req models.FeedbackRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	if req.Feedback == "" && req.Grade == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a review needs feedback text or a grade")
	}

	submission, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	task, err := s.loadTask(ctx, submission.TaskID)
	if err != nil {
		return nil, err
	}

	var isAssigner bool
	if actor.Role == models.RoleFaculty {
		faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty profile")
		}
		isAssigner = faculty != nil && faculty.ID == task.FacultyID
	}
	if err := authz.Can(actor.Role, authz.ActionSubmissionReview, authz.Facts{IsAssigner: isAssigner}); err != nil {
		return nil, err
	}

	if err := s.submissions.UpdateFeedback(ctx, submission.ID, req.Feedback, req.Grade); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record feedback")
	}
	if req.Feedback != "" {
		submission.Feedback = &req.Feedback
	}
	if req.Grade != nil {
		submission.Grade = req.Grade
	}

	if s.notifier != nil {
		if student, err := s.students.FindByID(ctx, submission.StudentID); err == nil {
			s.notifier.Notify(models.Notification{
				UserID:    student.UserID,
				ThesisID:  &task.ThesisID,
				Type:      models.NotificationSubmissionFeedback,
				Title:     "Submission reviewed",
				Message:   fmt.Sprintf("Your submission for task %q received feedback.", task.Title),
				RelatedID: &submission.ID,
			})
		} else {
			s.logger.Warn("failed to load student for feedback notification", zap.Error(err))
		}
	}
	return submission, nil
}

// Stats returns the task progress aggregate for a thesis, served from
// Redis when fresh.
func (s *TaskService) Stats(ctx context.Context, actor *models.JWTClaims, thesisID string) (*models.TaskStats, error) {
	thesis, err := s.viewableThesis(ctx, actor, thesisID)
	if err != nil {
		return nil, err
	}

	key := statsCacheKey(thesis.ID)
	if s.cache != nil {
		var cached models.TaskStats
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("task stats cache read failed", zap.Error(err))
		}
	}

	stats, err := s.tasks.Stats(ctx, thesis.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate task stats")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
			s.logger.Warn("task stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

func (s *TaskService) loadTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return task, nil
}

// supervisedThesis loads the thesis and, for faculty callers, their profile.
func (s *TaskService) supervisedThesis(ctx context.Context, actor *models.JWTClaims, thesisID string) (*models.Thesis, *models.Faculty, error) {
	thesis, err := s.theses.FindByID(ctx, thesisID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}
	var faculty *models.Faculty
	if actor.Role == models.RoleFaculty {
		faculty, err = s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty profile")
		}
	}
	return thesis, faculty, nil
}

// viewableThesis authorizes read access to thesis task data.
func (s *TaskService) viewableThesis(ctx context.Context, actor *models.JWTClaims, thesisID string) (*models.Thesis, error) {
	thesis, err := s.theses.FindByID(ctx, thesisID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}

	facts := authz.Facts{ThesisStatus: thesis.Status, HasSupervisor: thesis.SupervisorID != nil}
	switch actor.Role {
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
			}
		} else if _, err := s.theses.FindMembership(ctx, thesis.ID, student.ID); err == nil {
			facts.IsMember = true
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
		}
	case models.RoleFaculty:
		faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty profile")
		}
		facts.IsSupervisor = faculty != nil && thesis.SupervisorID != nil && *thesis.SupervisorID == faculty.ID
	}
	if err := authz.Can(actor.Role, authz.ActionThesisView, facts); err != nil {
		return nil, err
	}
	return thesis, nil
}

func (s *TaskService) invalidateStats(ctx context.Context, thesisID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, statsCacheKey(thesisID)); err != nil {
		s.logger.Warn("failed to invalidate task stats cache", zap.String("thesis_id", thesisID), zap.Error(err))
	}
}

func (s *TaskService) notifyMembers(ctx context.Context, thesis *models.Thesis, template models.Notification) {
	if s.notifier == nil {
		return
	}
	members, err := s.theses.ListMembers(ctx, thesis.ID)
	if err != nil {
		s.logger.Warn("failed to list members for notification", zap.String("thesis_id", thesis.ID), zap.Error(err))
		return
	}
	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	s.notifier.NotifyAll(userIDs, template)
}

func statsCacheKey(thesisID string) string {
	return "thesis:stats:" + thesisID
}
