package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/internal/repository"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type sectionStore interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error)
	Create(ctx context.Context, section *models.Section) error
}

// SectionService manages the section catalogue. Seat counts are only changed
// by the enrollment lifecycle.
type SectionService struct {
	repo      sectionStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs the service.
func NewSectionService(repo sectionStore, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, validator: validate, logger: logger}
}

// Create opens a section with zero enrolled seats.
func (s *SectionService) Create(ctx context.Context, req models.CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	section := &models.Section{
		Code:       strings.ToUpper(strings.TrimSpace(req.Code)),
		CourseCode: strings.ToUpper(strings.TrimSpace(req.CourseCode)),
		Title:      strings.TrimSpace(req.Title),
		Term:       strings.TrimSpace(req.Term),
		Capacity:   req.Capacity,
	}
	if err := s.repo.Create(ctx, section); err != nil {
		if errors.Is(err, repository.ErrDuplicateSectionCode) {
			return nil, appErrors.Clone(appErrors.ErrSectionCodeTaken, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	s.logger.Info("section created", zap.String("section_id", section.ID), zap.String("code", section.Code), zap.Int("capacity", section.Capacity))
	return section, nil
}

// Get returns a section with its current seat count.
func (s *SectionService) Get(ctx context.Context, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrSectionNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// List returns a page of sections with pagination metadata.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}
