package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gradhub/thesis-api/internal/authz"
	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
)

type thesisRepository interface {
	CreateWithCreator(ctx context.Context, thesis *models.Thesis, studentID string) error
	FindByID(ctx context.Context, id string) (*models.Thesis, error)
	FindByCode(ctx context.Context, code string) (*models.Thesis, error)
	FindDetailByID(ctx context.Context, id string) (*models.ThesisDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ThesisDetail, error)
	ListBySupervisor(ctx context.Context, facultyID string) ([]models.ThesisDetail, error)
	Update(ctx context.Context, thesis *models.Thesis) error
	UpdateStatus(ctx context.Context, id string, status models.ThesisStatus) error
	UpdateJoinPassword(ctx context.Context, id, joinPassword string) error
	DeleteCascade(ctx context.Context, id string) error
	AddMember(ctx context.Context, thesisID, studentID string) (*models.ThesisMember, error)
	RemoveMember(ctx context.Context, thesisID, studentID string) error
	ListMembers(ctx context.Context, thesisID string) ([]models.ThesisMemberDetail, error)
	FindMembership(ctx context.Context, thesisID, studentID string) (*models.ThesisMember, error)
	CodeExists(ctx context.Context, code string) (bool, error)
}

type studentDirectory interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type thesisStudentStore interface {
	studentDirectory
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
}

type facultyDirectory interface {
	FindByUserID(ctx context.Context, userID string) (*models.Faculty, error)
}

type notifier interface {
	Notify(n models.Notification)
	NotifyAll(userIDs []string, template models.Notification)
}

const (
	joinPasswordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	joinPasswordLength   = 8
	codeAttempts         = 5
)

// ThesisService owns the thesis lifecycle: creation, team membership, edits,
// closing, and deletion.
type ThesisService struct {
	repo      thesisRepository
	students  thesisStudentStore
	faculties facultyDirectory
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewThesisService constructs a ThesisService.
func NewThesisService(repo thesisRepository, students thesisStudentStore, faculties facultyDirectory, n notifier, validate *validator.Validate, logger *zap.Logger) *ThesisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ThesisService{repo: repo, students: students, faculties: faculties, notifier: n, validator: validate, logger: logger}
}

// Create registers a new thesis with the caller as creator member. The join
// code is derived from the title initials and guaranteed unique; the join
// password is a generated shared secret returned only here and on rotation.
func (s *ThesisService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateThesisRequest) (*models.Thesis, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid thesis payload")
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students create theses")
	}

	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	code, err := s.uniqueCode(ctx, req.Title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate thesis code")
	}
	password, err := generateJoinPassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate join password")
	}

	thesis := &models.Thesis{
		Title:        req.Title,
		Description:  req.Description,
		Code:         code,
		JoinPassword: password,
		Status:       models.ThesisStatusPendingSupervisor,
		ResearchTags: pq.StringArray(req.ResearchTags),
	}
	if thesis.ResearchTags == nil {
		thesis.ResearchTags = pq.StringArray{}
	}
	if err := s.repo.CreateWithCreator(ctx, thesis, student.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create thesis")
	}

	s.logger.Info("thesis created", zap.String("thesis_id", thesis.ID), zap.String("code", thesis.Code))
	return thesis, nil
}

// Join enrolls the caller into the thesis matching the code, guarded by the
// join password. The password comparison is constant time.
func (s *ThesisService) Join(ctx context.Context, actor *models.JWTClaims, req models.JoinThesisRequest) (*models.ThesisMember, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students join theses")
	}

	thesis, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}

	if subtle.ConstantTimeCompare([]byte(thesis.JoinPassword), []byte(req.JoinPassword)) != 1 {
		return nil, appErrors.ErrInvalidJoinCode
	}
	if thesis.Status == models.ThesisStatusInactive {
		return nil, appErrors.ErrThesisClosed
	}

	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	if _, err := s.repo.FindMembership(ctx, thesis.ID, student.ID); err == nil {
		return nil, appErrors.ErrAlreadyMember
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}

	member, err := s.repo.AddMember(ctx, thesis.ID, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join thesis")
	}
	return member, nil
}

// ListMine returns the theses visible to the caller: memberships for
// students, supervised theses for faculty.
func (s *ThesisService) ListMine(ctx context.Context, actor *models.JWTClaims) ([]models.ThesisDetail, error) {
	switch actor.Role {
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
		}
		theses, err := s.repo.ListByStudent(ctx, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list theses")
		}
		return theses, nil
	case models.RoleFaculty:
		faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty profile")
		}
		theses, err := s.repo.ListBySupervisor(ctx, faculty.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list theses")
		}
		return theses, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no thesis list for this role")
	}
}

// Get returns the full thesis detail with members for actors allowed to view
// it. Non-members get ErrForbidden; callers fall back to GetPublic then.
func (s *ThesisService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.ThesisDetail, []models.ThesisMemberDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}

	facts, err := s.loadFacts(ctx, actor, &detail.Thesis)
	if err != nil {
		return nil, nil, err
	}
	if err := authz.Can(actor.Role, authz.ActionThesisView, facts); err != nil {
		return nil, nil, err
	}

	members, err := s.repo.ListMembers(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list members")
	}
	return detail, members, nil
}

// GetPublic returns the redacted view any authenticated user may see.
func (s *ThesisService) GetPublic(ctx context.Context, id string) (*models.ThesisPublic, error) {
	thesis, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}
	public := thesis.Public()
	return &public, nil
}

// Update edits thesis metadata.
func (s *ThesisService) Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateThesisRequest) (*models.Thesis, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid thesis payload")
	}

	thesis, err := s.loadThesis(ctx, id)
	if err != nil {
		return nil, err
	}
	facts, err := s.loadFacts(ctx, actor, thesis)
	if err != nil {
		return nil, err
	}
	if err := authz.Can(actor.Role, authz.ActionThesisEdit, facts); err != nil {
		return nil, err
	}

	if req.Title != nil {
		thesis.Title = *req.Title
	}
	if req.Description != nil {
		thesis.Description = req.Description
	}
	if req.ResearchTags != nil {
		thesis.ResearchTags = pq.StringArray(req.ResearchTags)
	}

	if err := s.repo.Update(ctx, thesis); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update thesis")
	}
	return thesis, nil
}

// RotateJoinPassword replaces the join secret and returns the new value.
func (s *ThesisService) RotateJoinPassword(ctx context.Context, actor *models.JWTClaims, id string) (string, error) {
	thesis, err := s.loadThesis(ctx, id)
	if err != nil {
		return "", err
	}
	facts, err := s.loadFacts(ctx, actor, thesis)
	if err != nil {
		return "", err
	}
	if err := authz.Can(actor.Role, authz.ActionThesisRotateSecret, facts); err != nil {
		return "", err
	}

	password, err := generateJoinPassword()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate join password")
	}
	if err := s.repo.UpdateJoinPassword(ctx, id, password); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate join password")
	}
	return password, nil
}

// Close moves an active thesis to INACTIVE and informs the members. No
// other status transition is reachable through this operation.
func (s *ThesisService) Close(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateThesisStatusRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	thesis, err := s.loadThesis(ctx, id)
	if err != nil {
		return err
	}
	facts, err := s.loadFacts(ctx, actor, thesis)
	if err != nil {
		return err
	}
	if err := authz.Can(actor.Role, authz.ActionThesisClose, facts); err != nil {
		return err
	}
	if thesis.Status != models.ThesisStatusActive {
		return appErrors.Clone(appErrors.ErrConflict, "only active theses can be completed")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.ThesisStatusInactive); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}

	s.notifyMembers(ctx, thesis, models.Notification{
		ThesisID: &thesis.ID,
		Type:     models.NotificationThesisStatus,
		Title:    "Thesis completed",
		Message:  fmt.Sprintf("Thesis %q was marked as completed by the supervisor.", thesis.Title),
	})
	return nil
}

// Delete removes a thesis that never gained a supervisor, cascading its
// memberships and requests.
func (s *ThesisService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	thesis, err := s.loadThesis(ctx, id)
	if err != nil {
		return err
	}
	facts, err := s.loadFacts(ctx, actor, thesis)
	if err != nil {
		return err
	}
	if err := authz.Can(actor.Role, authz.ActionThesisDelete, facts); err != nil {
		return err
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete thesis")
	}
	s.logger.Info("thesis deleted", zap.String("thesis_id", id), zap.String("actor", actor.UserID))
	return nil
}

// AddMember enrolls a student by email on the creator's behalf. The join
// password is not required on this path.
func (s *ThesisService) AddMember(ctx context.Context, actor *models.JWTClaims, thesisID string, req models.AddThesisMemberRequest) (*models.ThesisMember, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}

	thesis, err := s.loadThesis(ctx, thesisID)
	if err != nil {
		return nil, err
	}
	facts, err := s.loadFacts(ctx, actor, thesis)
	if err != nil {
		return nil, err
	}
	if err := authz.Can(actor.Role, authz.ActionThesisManageMembers, facts); err != nil {
		return nil, err
	}
	if thesis.Status == models.ThesisStatusInactive {
		return nil, appErrors.ErrThesisClosed
	}

	student, err := s.students.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no student account matches this email")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up student")
	}

	if _, err := s.repo.FindMembership(ctx, thesisID, student.ID); err == nil {
		return nil, appErrors.ErrAlreadyMember
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}

	member, err := s.repo.AddMember(ctx, thesisID, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add member")
	}

	if s.notifier != nil {
		s.notifier.Notify(models.Notification{
			UserID:   student.UserID,
			ThesisID: &thesis.ID,
			Type:     models.NotificationThesisStatus,
			Title:    "Added to thesis",
			Message:  fmt.Sprintf("You were added to the thesis %q.", thesis.Title),
		})
	}
	return member, nil
}

// RemoveMember drops a non-creator member from the team.
func (s *ThesisService) RemoveMember(ctx context.Context, actor *models.JWTClaims, thesisID, studentID string) error {
	thesis, err := s.loadThesis(ctx, thesisID)
	if err != nil {
		return err
	}
	facts, err := s.loadFacts(ctx, actor, thesis)
	if err != nil {
		return err
	}
	if err := authz.Can(actor.Role, authz.ActionThesisManageMembers, facts); err != nil {
		return err
	}

	if err := s.repo.RemoveMember(ctx, thesisID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "removable member not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove member")
	}
	return nil
}

// LoadFactsFor exposes fact loading to sibling services that authorize
// actions against a thesis they fetched themselves.
func (s *ThesisService) LoadFactsFor(ctx context.Context, actor *models.JWTClaims, thesis *models.Thesis) (authz.Facts, error) {
	return s.loadFacts(ctx, actor, thesis)
}

func (s *ThesisService) loadThesis(ctx context.Context, id string) (*models.Thesis, error) {
	thesis, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "thesis not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load thesis")
	}
	return thesis, nil
}

func (s *ThesisService) loadFacts(ctx context.Context, actor *models.JWTClaims, thesis *models.Thesis) (authz.Facts, error) {
	facts := authz.Facts{
		ThesisStatus:  thesis.Status,
		HasSupervisor: thesis.SupervisorID != nil,
	}

	switch actor.Role {
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return facts, nil
			}
			return facts, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
		}
		member, err := s.repo.FindMembership(ctx, thesis.ID, student.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return facts, nil
			}
			return facts, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
		}
		facts.IsMember = true
		facts.IsCreator = member.Creator
	case models.RoleFaculty:
		faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return facts, nil
			}
			return facts, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty profile")
		}
		facts.IsSupervisor = thesis.SupervisorID != nil && *thesis.SupervisorID == faculty.ID
	}
	return facts, nil
}

func (s *ThesisService) notifyMembers(ctx context.Context, thesis *models.Thesis, template models.Notification) {
	if s.notifier == nil {
		return
	}
	members, err := s.repo.ListMembers(ctx, thesis.ID)
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

func (s *ThesisService) uniqueCode(ctx context.Context, title string) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := generateThesisCode(title)
		if err != nil {
			return "", err
		}
		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique code after %d attempts", codeAttempts)
}

// generateThesisCode derives a short code from the title initials plus four
// random digits, e.g. "GNN-4821".
func generateThesisCode(title string) (string, error) {
	initials := strings.Builder{}
	for _, word := range strings.Fields(title) {
		for _, r := range word {
			if unicode.IsLetter(r) {
				initials.WriteRune(unicode.ToUpper(r))
				break
			}
		}
		if initials.Len() >= 3 {
			break
		}
	}
	prefix := initials.String()
	if prefix == "" {
		prefix = "THS"
	}

	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", prefix, n.Int64()), nil
}

func generateJoinPassword() (string, error) {
	out := make([]byte, joinPasswordLength)
	max := big.NewInt(int64(len(joinPasswordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = joinPasswordAlphabet[n.Int64()]
	}
	return string(out), nil
}
