package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
)

type facultyListRepository interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.FacultyDetail, error)
}

type directoryPage struct {
	Items      []models.FacultyDetail `json:"items"`
	Pagination models.Pagination      `json:"pagination"`
}

// FacultyService serves the browsable supervisor directory. Directory pages
// are cached in Redis keyed by the full filter.
type FacultyService struct {
	repo     facultyListRepository
	cache    statsCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewFacultyService constructs a FacultyService.
func NewFacultyService(repo facultyListRepository, cache statsCache, cacheTTL time.Duration, logger *zap.Logger) *FacultyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &FacultyService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// List returns a directory page matching the filter.
func (s *FacultyService) List(ctx context.Context, filter models.FacultyFilter) ([]models.FacultyDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	key := directoryCacheKey(filter)
	if s.cache != nil {
		var cached directoryPage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached.Items, &cached.Pagination, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("faculty directory cache read failed", zap.Error(err))
		}
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty")
	}
	pagination := models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, directoryPage{Items: items, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("faculty directory cache write failed", zap.Error(err))
		}
	}
	return items, &pagination, nil
}

// Get returns one directory entry with supervision load counts.
func (s *FacultyService) Get(ctx context.Context, id string) (*models.FacultyDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return detail, nil
}

// InvalidateDirectory drops every cached directory page. Profile services
// call this after a faculty profile edit.
func (s *FacultyService) InvalidateDirectory(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "faculty:directory:*"); err != nil {
		s.logger.Warn("failed to invalidate faculty directory cache", zap.Error(err))
	}
}

func directoryCacheKey(filter models.FacultyFilter) string {
	return fmt.Sprintf("faculty:directory:%s:%s:%d:%d", filter.Search, filter.Department, filter.Page, filter.PageSize)
}
