package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/report-card-api/internal/grading"
	"github.com/noah-isme/report-card-api/internal/models"
	appErrors "github.com/noah-isme/report-card-api/pkg/errors"
)

const gradingSnapshotCacheKey = "grading:snapshot"

type gradeBoundaryStore interface {
	List(ctx context.Context) ([]models.GradeBoundary, error)
	FindByID(ctx context.Context, id string) (*models.GradeBoundary, error)
	Create(ctx context.Context, boundary *models.GradeBoundary) error
	Update(ctx context.Context, boundary *models.GradeBoundary) error
	Delete(ctx context.Context, id string) error
}

type commentTemplateStore interface {
	List(ctx context.Context) ([]models.CommentTemplate, error)
	FindByID(ctx context.Context, id string) (*models.CommentTemplate, error)
	Create(ctx context.Context, template *models.CommentTemplate) error
	Update(ctx context.Context, template *models.CommentTemplate) error
	Delete(ctx context.Context, id string) error
}

// GradeBoundaryRequest carries create/update payload for a boundary.
type GradeBoundaryRequest struct {
	Grade    string  `json:"grade" validate:"required"`
	MinScore float64 `json:"min_score" validate:"min=0,max=100"`
	MaxScore float64 `json:"max_score" validate:"min=0,max=100"`
}

// CommentTemplateRequest carries create/update payload for a comment template.
type CommentTemplateRequest struct {
	MinPercentage       int    `json:"min_percentage" validate:"min=0,max=100"`
	MaxPercentage       int    `json:"max_percentage" validate:"min=0,max=100"`
	ClassTeacherComment string `json:"class_teacher_comment" validate:"required"`
	HeadteacherComment  string `json:"headteacher_comment" validate:"required"`
}

// GradingConfigService manages the admin-configured grading state: grade
// boundaries and comment templates. Writes revalidate the full boundary set
// so overlap can never be introduced, and invalidate the cached snapshot.
type GradingConfigService struct {
	boundaries gradeBoundaryStore
	templates  commentTemplateStore
	cache      *CacheService
	cacheTTL   time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradingConfigService constructs the service.
func NewGradingConfigService(boundaries gradeBoundaryStore, templates commentTemplateStore, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *GradingConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingConfigService{
		boundaries: boundaries,
		templates:  templates,
		cache:      cache,
		cacheTTL:   cacheTTL,
		validator:  validate,
		logger:     logger,
	}
}

// ListBoundaries returns all grade boundaries ordered by min score.
func (s *GradingConfigService) ListBoundaries(ctx context.Context) ([]models.GradeBoundary, error) {
	boundaries, err := s.boundaries.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade boundaries")
	}
	return boundaries, nil
}

// CreateBoundary inserts a boundary after validating the prospective full set.
func (s *GradingConfigService) CreateBoundary(ctx context.Context, req GradeBoundaryRequest) (*models.GradeBoundary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade boundary payload")
	}
	existing, err := s.boundaries.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade boundaries")
	}
	boundary := &models.GradeBoundary{Grade: req.Grade, MinScore: req.MinScore, MaxScore: req.MaxScore}
	if err := grading.ValidateBoundaries(append(existing, *boundary)); err != nil {
		return nil, err
	}
	if err := s.boundaries.Create(ctx, boundary); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade boundary")
	}
	s.invalidateSnapshot(ctx)
	return boundary, nil
}

// UpdateBoundary modifies a boundary, revalidating against its siblings.
func (s *GradingConfigService) UpdateBoundary(ctx context.Context, id string, req GradeBoundaryRequest) (*models.GradeBoundary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade boundary payload")
	}
	boundary, err := s.boundaries.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade boundary not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade boundary")
	}
	boundary.Grade = req.Grade
	boundary.MinScore = req.MinScore
	boundary.MaxScore = req.MaxScore

	existing, err := s.boundaries.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade boundaries")
	}
	prospective := make([]models.GradeBoundary, 0, len(existing))
	for _, b := range existing {
		if b.ID == id {
			prospective = append(prospective, *boundary)
			continue
		}
		prospective = append(prospective, b)
	}
	if err := grading.ValidateBoundaries(prospective); err != nil {
		return nil, err
	}
	if err := s.boundaries.Update(ctx, boundary); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade boundary")
	}
	s.invalidateSnapshot(ctx)
	return boundary, nil
}

// DeleteBoundary removes a boundary. Percentages the remaining set no longer
// covers resolve to the fallback grade.
func (s *GradingConfigService) DeleteBoundary(ctx context.Context, id string) error {
	if err := s.boundaries.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "grade boundary not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade boundary")
	}
	s.invalidateSnapshot(ctx)
	return nil
}

// ListTemplates returns all comment templates in matching order.
func (s *GradingConfigService) ListTemplates(ctx context.Context) ([]models.CommentTemplate, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comment templates")
	}
	return templates, nil
}

// CreateTemplate inserts a comment template. Overlapping ranges are allowed;
// matching resolves ties deterministically.
func (s *GradingConfigService) CreateTemplate(ctx context.Context, req CommentTemplateRequest) (*models.CommentTemplate, error) {
	if err := s.validateTemplate(req); err != nil {
		return nil, err
	}
	template := &models.CommentTemplate{
		MinPercentage:       req.MinPercentage,
		MaxPercentage:       req.MaxPercentage,
		ClassTeacherComment: req.ClassTeacherComment,
		HeadteacherComment:  req.HeadteacherComment,
	}
	if err := s.templates.Create(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment template")
	}
	s.invalidateSnapshot(ctx)
	return template, nil
}

// UpdateTemplate modifies an existing comment template.
func (s *GradingConfigService) UpdateTemplate(ctx context.Context, id string, req CommentTemplateRequest) (*models.CommentTemplate, error) {
	if err := s.validateTemplate(req); err != nil {
		return nil, err
	}
	template, err := s.templates.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment template")
	}
	template.MinPercentage = req.MinPercentage
	template.MaxPercentage = req.MaxPercentage
	template.ClassTeacherComment = req.ClassTeacherComment
	template.HeadteacherComment = req.HeadteacherComment
	if err := s.templates.Update(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update comment template")
	}
	s.invalidateSnapshot(ctx)
	return template, nil
}

// DeleteTemplate removes a comment template. Cards already carrying its
// comments keep the copied text.
func (s *GradingConfigService) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.templates.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "comment template not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment template")
	}
	s.invalidateSnapshot(ctx)
	return nil
}

// Snapshot returns the current grading configuration as one immutable value,
// served from cache when possible. Callers capture it once per batch so every
// student grades against the same configuration.
func (s *GradingConfigService) Snapshot(ctx context.Context) (*models.GradingSnapshot, error) {
	var snapshot models.GradingSnapshot
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, gradingSnapshotCacheKey, &snapshot)
		if err == nil && hit {
			return &snapshot, nil
		}
	}

	boundaries, err := s.boundaries.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade boundaries")
	}
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment templates")
	}
	snapshot = models.GradingSnapshot{Boundaries: boundaries, Templates: templates}

	if s.cache != nil {
		if err := s.cache.Set(ctx, gradingSnapshotCacheKey, snapshot, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache grading snapshot", zap.Error(err))
		}
	}
	return &snapshot, nil
}

func (s *GradingConfigService) validateTemplate(req CommentTemplateRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment template payload")
	}
	if req.MinPercentage > req.MaxPercentage {
		return appErrors.Clone(appErrors.ErrValidation, "template min percentage must not exceed max")
	}
	return nil
}

func (s *GradingConfigService) invalidateSnapshot(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, gradingSnapshotCacheKey); err != nil {
		s.logger.Warn("failed to invalidate grading snapshot cache", zap.Error(err))
	}
}
