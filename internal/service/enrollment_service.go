package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/internal/repository"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/events"
	"github.com/noah-isme/campus-records-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-records-api/pkg/observability"
)

type enrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindCurrent(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Enroll(ctx context.Context, enrollment *models.Enrollment) error
	Drop(ctx context.Context, id string, at time.Time) (bool, error)
	PostFinalGrade(ctx context.Context, id string, letter models.GradeLetter, at time.Time) (*models.Enrollment, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

// EnrollmentService owns the enrollment lifecycle: ENROLLED moves to DROPPED
// or COMPLETED and neither terminal state is ever left. Seat accounting is
// delegated to the section ledger inside the store's transactions.
type EnrollmentService struct {
	enrollments enrollmentStore
	sections    sectionReader
	publisher   events.Publisher
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(enrollments enrollmentStore, sections sectionReader, publisher events.Publisher, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &EnrollmentService{
		enrollments: enrollments,
		sections:    sections,
		publisher:   publisher,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Enroll registers a student in a section. The read-time seat check only
// produces SECTION_FULL early; the ledger's conditional increment decides,
// and losing it there yields CAPACITY_RACE_LOST.
func (s *EnrollmentService) Enroll(ctx context.Context, req models.EnrollRequest) (*models.EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	current, err := s.enrollments.FindCurrent(ctx, req.StudentID, req.SectionID)
	switch {
	case err == nil && current.Status != models.EnrollmentStatusDropped:
		return nil, s.fail("enroll", appErrors.ErrAlreadyEnrolled)
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, s.internal(ctx, "enroll", err, "find current enrollment")
	}

	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.fail("enroll", appErrors.ErrSectionNotFound)
		}
		return nil, s.internal(ctx, "enroll", err, "load section")
	}
	if section.EnrolledCount >= section.Capacity {
		return nil, s.fail("enroll", appErrors.ErrSectionFull)
	}

	enrollment := &models.Enrollment{
		StudentID:  req.StudentID,
		SectionID:  req.SectionID,
		EnrolledAt: s.now(),
	}
	if err := s.enrollments.Enroll(ctx, enrollment); err != nil {
		switch {
		case errors.Is(err, repository.ErrSectionFull):
			s.logger.Info("lost last seat to concurrent enrollment",
				zap.String("section_id", req.SectionID), zap.String("student_id", req.StudentID))
			return nil, s.fail("enroll", appErrors.ErrCapacityRaceLost)
		case errors.Is(err, repository.ErrSectionNotFound):
			return nil, s.fail("enroll", appErrors.ErrSectionNotFound)
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			return nil, s.fail("enroll", appErrors.ErrAlreadyEnrolled)
		}
		return nil, s.internal(ctx, "enroll", err, "create enrollment")
	}

	s.metrics.RecordEnrollmentOutcome("enroll", string(models.OutcomeEnrolled))
	s.publish(ctx, events.TypeEnrollmentCreated, enrollment)
	return &models.EnrollmentResult{Outcome: models.OutcomeEnrolled, Enrollment: enrollment}, nil
}

// Drop releases the student's seat. Only an ENROLLED enrollment can be dropped.
func (s *EnrollmentService) Drop(ctx context.Context, req models.DropRequest) (*models.EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid drop payload")
	}

	current, err := s.enrollments.FindCurrent(ctx, req.StudentID, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.fail("drop", appErrors.ErrNotEnrolled)
		}
		return nil, s.internal(ctx, "drop", err, "find current enrollment")
	}
	if current.Status != models.EnrollmentStatusEnrolled {
		return nil, s.fail("drop", appErrors.ErrInvalidState)
	}

	at := s.now()
	floored, err := s.enrollments.Drop(ctx, current.ID, at)
	if err != nil {
		if errors.Is(err, repository.ErrEnrollmentStateChanged) {
			return nil, s.fail("drop", appErrors.ErrInvalidState)
		}
		return nil, s.internal(ctx, "drop", err, "drop enrollment")
	}
	if floored {
		s.logger.Warn("section ledger already at zero on drop",
			zap.String("section_id", current.SectionID), zap.String("enrollment_id", current.ID))
	}

	current.Status = models.EnrollmentStatusDropped
	current.DroppedAt = &at
	current.UpdatedAt = at

	s.metrics.RecordEnrollmentOutcome("drop", string(models.OutcomeDropped))
	s.publish(ctx, events.TypeEnrollmentDropped, current)
	return &models.EnrollmentResult{Outcome: models.OutcomeDropped, Enrollment: current}, nil
}

// PostFinalGrade records the letter. An ENROLLED enrollment becomes COMPLETED;
// DROPPED and COMPLETED ones keep their status and only the grade is written.
func (s *EnrollmentService) PostFinalGrade(ctx context.Context, enrollmentID string, letter models.GradeLetter) (*models.EnrollmentResult, error) {
	if enrollmentID == "" || !letter.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "enrollment id and a letter A-F are required")
	}

	enrollment, err := s.enrollments.PostFinalGrade(ctx, enrollmentID, letter, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, s.internal(ctx, "post_final_grade", err, "post final grade")
	}

	if enrollment.Status == models.EnrollmentStatusCompleted {
		s.publish(ctx, events.TypeEnrollmentCompleted, enrollment)
	}
	return &models.EnrollmentResult{Outcome: models.OutcomeFinalGradePosted, Enrollment: enrollment}, nil
}

// Get returns an enrollment by id.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// ListByStudent returns every enrollment of a student with section details.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	items, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return items, nil
}

func (s *EnrollmentService) fail(operation string, template *appErrors.Error) error {
	s.metrics.RecordEnrollmentOutcome(operation, template.Code)
	return appErrors.Clone(template, "")
}

func (s *EnrollmentService) internal(ctx context.Context, operation string, err error, step string) error {
	reqID := requestid.FromContext(ctx)
	s.logger.Error("enrollment storage failure",
		zap.String("operation", operation),
		zap.String("step", step),
		zap.String("request_id", reqID),
		zap.Error(err),
	)
	observability.CaptureErr(err, map[string]string{"component": "enrollment", "operation": operation, "request_id": reqID})
	s.metrics.RecordEnrollmentOutcome(operation, appErrors.ErrInternal.Code)
	return appErrors.As(appErrors.ErrInternal, err)
}

func (s *EnrollmentService) publish(ctx context.Context, eventType string, enrollment *models.Enrollment) {
	if err := s.publisher.Publish(ctx, events.New(eventType, *enrollment)); err != nil {
		s.metrics.RecordEventFailure()
		s.logger.Warn("failed to publish enrollment event", zap.String("type", eventType), zap.Error(err))
	}
}
