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

type requestRepository interface {
	Create(ctx context.Context, request *models.SupervisorRequest) error
	FindByID(ctx context.Context, id string) (*models.SupervisorRequest, error)
	ExistsPending(ctx context.Context, thesisID, facultyID string) (bool, error)
	ListByThesis(ctx context.Context, thesisID string) ([]models.SupervisorRequestDetail, error)
	ListPendingByFaculty(ctx context.Context, facultyID string) ([]models.SupervisorRequestDetail, error)
	Accept(ctx context.Context, requestID, thesisID, facultyID string) error
	UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) error
}

type requestThesisStore interface {
	FindByID(ctx context.Context, id string) (*models.Thesis, error)
	FindMembership(ctx context.Context, thesisID, studentID string) (*models.ThesisMember, error)
	ListMembers(ctx context.Context, thesisID string) ([]models.ThesisMemberDetail, error)
}

type requestFacultyStore interface {
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
	FindByUserID(ctx context.Context, userID string) (*models.Faculty, error)
}

// RequestService owns the supervision request workflow: proposing a
// supervisor, deciding, and withdrawing.
type RequestService struct {
	repo      requestRepository
	theses    requestThesisStore
	students  studentDirectory
	faculties requestFacultyStore
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequestService constructs a RequestService.
func NewRequestService(repo requestRepository, theses requestThesisStore, students studentDirectory, faculties requestFacultyStore, n notifier, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RequestService{repo: repo, theses: theses, students: students, faculties: faculties, notifier: n, validator: validate, logger: logger}
}

// Create proposes a faculty member as supervisor for a thesis the caller
// belongs to. Duplicate pending proposals to the same faculty are rejected.
func (s *RequestService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateSupervisorRequestPayload) (*models.SupervisorRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	thesis, err := s.theses.FindByID(ctx, req.ThesisID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}

	student, member, err := s.membership(ctx, actor, thesis.ID)
	if err != nil {
		return nil, err
	}

	facts := authz.Facts{
		IsMember:      member != nil,
		IsCreator:     member != nil && member.Creator,
		ThesisStatus:  thesis.Status,
		HasSupervisor: thesis.SupervisorID != nil,
	}
	if err := authz.Can(actor.Role, authz.ActionRequestCreate, facts); err != nil {
		return nil, err
	}

	faculty, err := s.faculties.FindByID(ctx, req.FacultyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}

	exists, err := s.repo.ExistsPending(ctx, thesis.ID, faculty.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if exists {
		return nil, appErrors.ErrDuplicateRequest
	}

	request := &models.SupervisorRequest{
		ThesisID:  thesis.ID,
		StudentID: student.ID,
		FacultyID: faculty.ID,
		Message:   req.Message,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	if s.notifier != nil {
		s.notifier.Notify(models.Notification{
			UserID:    faculty.UserID,
			ThesisID:  &thesis.ID,
			FacultyID: &faculty.ID,
			Type:      models.NotificationSupervisorRequest,
			Title:     "New supervision request",
			Message:   fmt.Sprintf("Thesis %q requests your supervision.", thesis.Title),
			RelatedID: &request.ID,
		})
	}
	return request, nil
}

// Decide accepts or rejects a pending request. Accepting assigns the
// supervisor, activates the thesis, and rejects every sibling pending
// request atomically.
func (s *RequestService) Decide(ctx context.Context, actor *models.JWTClaims, requestID string, req models.DecideRequestPayload) (*models.SupervisorRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var isAddressee bool
	if actor.Role == models.RoleFaculty {
		faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty profile")
		}
		isAddressee = faculty != nil && faculty.ID == request.FacultyID
	}
	if err := authz.Can(actor.Role, authz.ActionRequestDecide, authz.Facts{IsAddressee: isAddressee}); err != nil {
		return nil, err
	}

	if request.Status != models.RequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request was already decided")
	}

	thesis, err := s.theses.FindByID(ctx, request.ThesisID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}

	switch req.Status {
	case models.RequestStatusAccepted:
		if thesis.SupervisorID != nil {
			return nil, appErrors.ErrSupervisorAssigned
		}
		if err := s.repo.Accept(ctx, request.ID, request.ThesisID, request.FacultyID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "request was already decided")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept request")
		}
		request.Status = models.RequestStatusAccepted
		s.notifyMembers(ctx, thesis, models.Notification{
			ThesisID:  &thesis.ID,
			FacultyID: &request.FacultyID,
			Type:      models.NotificationSupervisorRequest,
			Title:     "Supervision request accepted",
			Message:   fmt.Sprintf("Your supervision request for %q was accepted.", thesis.Title),
			RelatedID: &request.ID,
		})
	case models.RequestStatusRejected:
		if err := s.repo.UpdateStatus(ctx, request.ID, models.RequestStatusPending, models.RequestStatusRejected); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "request was already decided")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject request")
		}
		request.Status = models.RequestStatusRejected
		s.notifyMembers(ctx, thesis, models.Notification{
			ThesisID:  &thesis.ID,
			FacultyID: &request.FacultyID,
			Type:      models.NotificationSupervisorRequest,
			Title:     "Supervision request rejected",
			Message:   fmt.Sprintf("Your supervision request for %q was rejected.", thesis.Title),
			RelatedID: &request.ID,
		})
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be ACCEPTED or REJECTED")
	}
	return request, nil
}

// Withdraw soft-deletes a pending request. The row keeps its history but
// disappears from every listing.
func (s *RequestService) Withdraw(ctx context.Context, actor *models.JWTClaims, requestID string) error {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}

	_, member, err := s.membership(ctx, actor, request.ThesisID)
	if err != nil {
		return err
	}
	facts := authz.Facts{
		IsMember:  member != nil,
		IsCreator: member != nil && member.Creator,
	}
	if err := authz.Can(actor.Role, authz.ActionRequestWithdraw, facts); err != nil {
		return err
	}

	if request.Status != models.RequestStatusPending {
		return appErrors.Clone(appErrors.ErrConflict, "only pending requests can be withdrawn")
	}
	if err := s.repo.UpdateStatus(ctx, request.ID, models.RequestStatusPending, models.RequestStatusDeleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "request was already decided")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw request")
	}
	return nil
}

// ListByThesis returns a thesis's requests for its members and supervisor.
func (s *RequestService) ListByThesis(ctx context.Context, actor *models.JWTClaims, thesisID string) ([]models.SupervisorRequestDetail, error) {
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
		_, member, err := s.membership(ctx, actor, thesisID)
		if err != nil {
			return nil, err
		}
		facts.IsMember = member != nil
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

	requests, err := s.repo.ListByThesis(ctx, thesisID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

// ListInbox returns the pending requests addressed to the calling faculty.
func (s *RequestService) ListInbox(ctx context.Context, actor *models.JWTClaims) ([]models.SupervisorRequestDetail, error) {
	if actor.Role != models.RoleFaculty {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only faculty have a request inbox")
	}
	faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty profile")
	}
	requests, err := s.repo.ListPendingByFaculty(ctx, faculty.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

func (s *RequestService) loadRequest(ctx context.Context, id string) (*models.SupervisorRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

// membership resolves the caller's student profile and membership row for a
// thesis. A nil membership means the caller is not on the team.
func (s *RequestService) membership(ctx context.Context, actor *models.JWTClaims, thesisID string) (*models.Student, *models.ThesisMember, error) {
	if actor.Role != models.RoleStudent {
		return nil, nil, nil
	}
	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "student profile missing")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	member, err := s.theses.FindMembership(ctx, thesisID, student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student, nil, nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	return student, member, nil
}

func (s *RequestService) notifyMembers(ctx context.Context, thesis *models.Thesis, template models.Notification) {
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
