package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-records-api/pkg/observability"
)

type componentStore interface {
	Add(ctx context.Context, component *models.GradeComponent, admit func(currentTotal float64) error) (float64, error)
	UpdateScore(ctx context.Context, id string, score *float64, at time.Time) (*models.GradeComponent, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.GradeComponent, error)
}

type finalGradePoster interface {
	PostFinalGrade(ctx context.Context, enrollmentID string, letter models.GradeLetter) (*models.EnrollmentResult, error)
}

// GradeService accumulates weighted components per enrollment and posts the
// final letter once the weights reach 100.
type GradeService struct {
	components componentStore
	poster     finalGradePoster
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewGradeService constructs the service.
func NewGradeService(components componentStore, poster finalGradePoster, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		components: components,
		poster:     poster,
		validator:  validate,
		metrics:    metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// AddComponent stores a component unless it would push the enrollment's
// weights past 100. Reaching exactly 100 triggers finalization.
func (s *GradeService) AddComponent(ctx context.Context, req models.AddComponentRequest) (*models.ComponentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade component payload")
	}

	component := &models.GradeComponent{
		EnrollmentID: req.EnrollmentID,
		Label:        req.Label,
		Score:        req.Score,
		MaxScore:     req.MaxScore,
		Weight:       req.Weight,
	}
	admit := func(current float64) error {
		if models.WeightsExceed(current + req.Weight) {
			return appErrors.Clone(appErrors.ErrWeightExceeded,
				fmt.Sprintf("component weights would total %.2f, the limit is %.0f", current+req.Weight, models.WeightCeiling))
		}
		return nil
	}

	total, err := s.components.Add(ctx, component, admit)
	if err != nil {
		var appErr *appErrors.Error
		switch {
		case errors.As(err, &appErr):
			return nil, appErr
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, s.internal(ctx, err, "add component")
	}

	result := &models.ComponentResult{
		Outcome:     models.OutcomeComponentAdded,
		Component:   component,
		TotalWeight: total,
	}
	if !models.WeightsComplete(total) {
		return result, nil
	}

	finalized, err := s.finalize(ctx, req.EnrollmentID)
	if err != nil {
		return nil, err
	}
	result.Finalized = finalized
	return result, nil
}

// finalize computes the weighted percentage over graded components and posts
// the letter. With no graded component nothing is posted.
func (s *GradeService) finalize(ctx context.Context, enrollmentID string) (*models.FinalGradeEvent, error) {
	components, err := s.components.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, s.internal(ctx, err, "list components for finalization")
	}

	percentage, graded := models.FinalPercentage(components)
	if graded == 0 {
		s.logger.Info("weights complete but no graded components, final grade not posted", zap.String("enrollment_id", enrollmentID))
		return nil, nil
	}

	letter := models.LetterFor(percentage)
	if _, err := s.poster.PostFinalGrade(ctx, enrollmentID, letter); err != nil {
		s.logger.Error("component stored but final grade not posted",
			zap.String("enrollment_id", enrollmentID), zap.String("letter", string(letter)), zap.Error(err))
		return nil, err
	}
	s.metrics.RecordFinalization(string(letter))
	return &models.FinalGradeEvent{Percentage: percentage, Letter: letter, Graded: graded}, nil
}

// UpdateScore changes a component's score in place. It never finalizes.
func (s *GradeService) UpdateScore(ctx context.Context, componentID string, req models.UpdateScoreRequest) (*models.ComponentResult, error) {
	if componentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "component id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}

	component, err := s.components.UpdateScore(ctx, componentID, req.Score, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade component not found")
		}
		return nil, s.internal(ctx, err, "update score")
	}
	return &models.ComponentResult{Outcome: models.OutcomeScoreUpdated, Component: component}, nil
}

// ListComponents returns an enrollment's components with their weight total.
func (s *GradeService) ListComponents(ctx context.Context, enrollmentID string) (*models.GradeBook, error) {
	if enrollmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id is required")
	}
	components, err := s.components.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, s.internal(ctx, err, "list components")
	}
	book := &models.GradeBook{EnrollmentID: enrollmentID, Components: components}
	for _, c := range components {
		book.TotalWeight += c.Weight
	}
	if book.Components == nil {
		book.Components = []models.GradeComponent{}
	}
	return book, nil
}

func (s *GradeService) internal(ctx context.Context, err error, step string) error {
	reqID := requestid.FromContext(ctx)
	s.logger.Error("grade storage failure", zap.String("step", step), zap.String("request_id", reqID), zap.Error(err))
	observability.CaptureErr(err, map[string]string{"component": "grades", "step": step, "request_id": reqID})
	return appErrors.As(appErrors.ErrInternal, err)
}
