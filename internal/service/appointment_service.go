package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gradhub/thesis-api/internal/authz"
	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
)

type appointmentRepository interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	ListByThesis(ctx context.Context, thesisID string) ([]models.Appointment, error)
	ListByFaculty(ctx context.Context, facultyID string) ([]models.Appointment, error)
	Update(ctx context.Context, appointment *models.Appointment) error
	Delete(ctx context.Context, id string) error
}

// AppointmentService owns meeting requests between thesis members and the
// supervisor.
type AppointmentService struct {
	repo      appointmentRepository
	theses    requestThesisStore
	students  studentDirectory
	faculties requestFacultyStore
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAppointmentService constructs an AppointmentService.
func NewAppointmentService(repo appointmentRepository, theses requestThesisStore, students studentDirectory, faculties requestFacultyStore, n notifier, validate *validator.Validate, logger *zap.Logger) *AppointmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AppointmentService{repo: repo, theses: theses, students: students, faculties: faculties, notifier: n, validator: validate, logger: logger}
}

// Create requests a meeting with the thesis supervisor. The thesis must be
// active and supervised; the appointment is addressed to the supervisor.
func (s *AppointmentService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}

	thesis, err := s.theses.FindByID(ctx, req.ThesisID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}

	facts := authz.Facts{ThesisStatus: thesis.Status, HasSupervisor: thesis.SupervisorID != nil}
	if actor.Role == models.RoleStudent {
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
		}
		if _, err := s.theses.FindMembership(ctx, thesis.ID, student.ID); err == nil {
			facts.IsMember = true
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
		}
	}
	if err := authz.Can(actor.Role, authz.ActionAppointmentCreate, facts); err != nil {
		return nil, err
	}

	appointment := &models.Appointment{
		ThesisID:  thesis.ID,
		FacultyID: *thesis.SupervisorID,
		Message:   req.Message,
		Time:      req.Time,
	}
	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}

	if s.notifier != nil {
		if faculty, err := s.faculties.FindByID(ctx, appointment.FacultyID); err == nil {
			s.notifier.Notify(models.Notification{
				UserID:    faculty.UserID,
				ThesisID:  &thesis.ID,
				FacultyID: &faculty.ID,
				Type:      models.NotificationAppointment,
				Title:     "New appointment request",
				Message:   fmt.Sprintf("Thesis %q requested a meeting.", thesis.Title),
				RelatedID: &appointment.ID,
			})
		} else {
			s.logger.Warn("failed to load faculty for appointment notification", zap.Error(err))
		}
	}
	return appointment, nil
}

// ListByThesis returns a thesis's appointments for its members and
// supervisor.
func (s *AppointmentService) ListByThesis(ctx context.Context, actor *models.JWTClaims, thesisID string) ([]models.Appointment, error) {
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

	appointments, err := s.repo.ListByThesis(ctx, thesisID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appointments, nil
}

// ListInbox returns the appointments addressed to the calling supervisor.
func (s *AppointmentService) ListInbox(ctx context.Context, actor *models.JWTClaims) ([]models.Appointment, error) {
	if actor.Role != models.RoleFaculty {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only faculty have an appointment inbox")
	}
	faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty profile")
	}
	appointments, err := s.repo.ListByFaculty(ctx, faculty.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appointments, nil
}

// Update lets the supervisor decide a pending appointment or adjust the
// meeting time. Decisions apply once.
func (s *AppointmentService) Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}

	appointment, err := s.loadAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	thesis, err := s.theses.FindByID(ctx, appointment.ThesisID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}

	var isSupervisor bool
	if actor.Role == models.RoleFaculty {
		faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty profile")
		}
		isSupervisor = faculty != nil && faculty.ID == appointment.FacultyID
	}
	if err := authz.Can(actor.Role, authz.ActionAppointmentDecide, authz.Facts{IsSupervisor: isSupervisor}); err != nil {
		return nil, err
	}

	if req.Status != nil {
		if appointment.Status != models.AppointmentStatusPending {
			return nil, appErrors.Clone(appErrors.ErrConflict, "appointment was already decided")
		}
		appointment.Status = *req.Status
	}
	if req.Message != nil {
		appointment.Message = *req.Message
	}
	if req.Time != nil {
		appointment.Time = req.Time
	}

	if err := s.repo.Update(ctx, appointment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment")
	}

	if req.Status != nil {
		s.notifyMembers(ctx, thesis, models.Notification{
			ThesisID:  &thesis.ID,
			FacultyID: &appointment.FacultyID,
			Type:      models.NotificationAppointment,
			Title:     "Appointment " + string(appointment.Status),
			Message:   fmt.Sprintf("Your appointment request on %q was %s.", thesis.Title, appointment.Status),
			RelatedID: &appointment.ID,
		})
	}
	return appointment, nil
}

// Delete removes an appointment. Members and the supervisor may delete.
func (s *AppointmentService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	appointment, err := s.loadAppointment(ctx, id)
	if err != nil {
		return err
	}
	thesis, err := s.theses.FindByID(ctx, appointment.ThesisID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}

	if err := authz.Can(actor.Role, authz.ActionAppointmentDelete, s.viewFacts(ctx, actor, thesis)); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete appointment")
	}
	return nil
}

func (s *AppointmentService) loadAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	appointment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return appointment, nil
}

// viewFacts resolves membership and supervision facts, swallowing lookup
// misses: absent profiles simply yield no access.
func (s *AppointmentService) viewFacts(ctx context.Context, actor *models.JWTClaims, thesis *models.Thesis) authz.Facts {
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

func (s *AppointmentService) notifyMembers(ctx context.Context, thesis *models.Thesis, template models.Notification) {
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
