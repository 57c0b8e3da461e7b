package service

import (
	"context"
	"database/sql"
	"errors"
	"mime/multipart"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
)

type profileStudentRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
	CreateContribution(ctx context.Context, c *models.Contribution) error
	ListContributions(ctx context.Context, studentID string) ([]models.Contribution, error)
	FindContribution(ctx context.Context, id, studentID string) (*models.Contribution, error)
	UpdateContribution(ctx context.Context, c *models.Contribution) error
	DeleteContribution(ctx context.Context, id, studentID string) (bool, error)
}

type profileFacultyRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Faculty, error)
	Update(ctx context.Context, faculty *models.Faculty) error
}

type directoryInvalidator interface {
	InvalidateDirectory(ctx context.Context)
}

// Profile is the role-shaped profile returned to the caller.
type Profile struct {
	User          models.UserInfo       `json:"user"`
	Student       *models.Student       `json:"student,omitempty"`
	Faculty       *models.Faculty       `json:"faculty,omitempty"`
	Contributions []models.Contribution `json:"contributions,omitempty"`
}

// ProfileService manages the caller's own student or faculty profile,
// including contributions and profile images.
type ProfileService struct {
	students  profileStudentRepository
	faculties profileFacultyRepository
	images    documentStore
	directory directoryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(students profileStudentRepository, faculties profileFacultyRepository, images documentStore, directory directoryInvalidator, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{students: students, faculties: faculties, images: images, directory: directory, validator: validate, logger: logger}
}

// Get returns the caller's profile with role data attached.
func (s *ProfileService) Get(ctx context.Context, actor *models.JWTClaims) (*Profile, error) {
	profile := &Profile{
		User: models.UserInfo{ID: actor.UserID, Email: actor.Email, FullName: actor.FullName, Role: actor.Role},
	}

	switch actor.Role {
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
		}
		profile.Student = student
		contributions, err := s.students.ListContributions(ctx, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contributions")
		}
		profile.Contributions = contributions
	case models.RoleFaculty:
		faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty profile not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
		}
		profile.Faculty = faculty
	}
	return profile, nil
}

// Update edits the caller's profile fields.
func (s *ProfileService) Update(ctx context.Context, actor *models.JWTClaims, req models.UpdateProfileRequest) (*Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	switch actor.Role {
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
		}
		applyProfileEdit(&student.FullName, &student.Department, &student.Bio, req)
		if err := s.students.Update(ctx, student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
		}
	case models.RoleFaculty:
		faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
		}
		applyProfileEdit(&faculty.FullName, &faculty.Department, &faculty.Bio, req)
		if err := s.faculties.Update(ctx, faculty); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
		}
		if s.directory != nil {
			s.directory.InvalidateDirectory(ctx)
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no editable profile for this role")
	}
	return s.Get(ctx, actor)
}

// UploadImage stores a profile image and records its reference.
func (s *ProfileService) UploadImage(ctx context.Context, actor *models.JWTClaims, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "an image file is required")
	}
	stored, err := s.images.SaveUpload(file)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store image")
	}

	switch actor.Role {
	case models.RoleStudent:
		student, err := s.students.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
		}
		student.ProfileImage = &stored
		if err := s.students.Update(ctx, student); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
		}
	case models.RoleFaculty:
		faculty, err := s.faculties.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
		}
		faculty.ProfileImage = &stored
		if err := s.faculties.Update(ctx, faculty); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
		}
		if s.directory != nil {
			s.directory.InvalidateDirectory(ctx)
		}
	default:
		return "", appErrors.Clone(appErrors.ErrForbidden, "no profile image for this role")
	}
	return stored, nil
}

// AddContribution records a publication on the caller's student profile.
func (s *ProfileService) AddContribution(ctx context.Context, actor *models.JWTClaims, req models.CreateContributionRequest) (*models.Contribution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contribution payload")
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students list contributions")
	}

	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	contribution := &models.Contribution{
		StudentID: student.ID,
		Title:     req.Title,
		Venue:     req.Venue,
		Year:      req.Year,
		Link:      req.Link,
	}
	if err := s.students.CreateContribution(ctx, contribution); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contribution")
	}
	return contribution, nil
}

// UpdateContribution edits a contribution owned by the caller.
func (s *ProfileService) UpdateContribution(ctx context.Context, actor *models.JWTClaims, contributionID string, req models.UpdateContributionRequest) (*models.Contribution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contribution payload")
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students list contributions")
	}

	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	contribution, err := s.students.FindContribution(ctx, contributionID, student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contribution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contribution")
	}

	if req.Title != nil {
		contribution.Title = *req.Title
	}
	if req.Venue != nil {
		contribution.Venue = *req.Venue
	}
	if req.Year != nil {
		contribution.Year = *req.Year
	}
	if req.Link != nil {
		contribution.Link = *req.Link
	}
	if err := s.students.UpdateContribution(ctx, contribution); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contribution")
	}
	return contribution, nil
}

// RemoveContribution deletes a contribution owned by the caller.
func (s *ProfileService) RemoveContribution(ctx context.Context, actor *models.JWTClaims, contributionID string) error {
	if actor.Role != models.RoleStudent {
		return appErrors.Clone(appErrors.ErrForbidden, "only students list contributions")
	}
	student, err := s.students.FindByUserID(ctx, actor.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	removed, err := s.students.DeleteContribution(ctx, contributionID, student.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete contribution")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "contribution not found")
	}
	return nil
}

func applyProfileEdit(fullName, department, bio *string, req models.UpdateProfileRequest) {
	if req.FullName != nil {
		*fullName = *req.FullName
	}
	if req.Department != nil {
		*department = *req.Department
	}
	if req.Bio != nil {
		*bio = *req.Bio
	}
}
