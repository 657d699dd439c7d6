package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/export"
)

type enrollmentHistory interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

// ExportedFile is a rendered transcript ready to stream.
type ExportedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// TranscriptService assembles and renders a student's enrollment history.
type TranscriptService struct {
	history enrollmentHistory
	logger  *zap.Logger
	now     func() time.Time
}

// NewTranscriptService constructs the service.
func NewTranscriptService(history enrollmentHistory, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptService{history: history, logger: logger, now: time.Now}
}

// Build returns every enrollment of the student, dropped ones included.
func (s *TranscriptService) Build(ctx context.Context, studentID string) (*models.Transcript, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	entries, err := s.history.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}
	if entries == nil {
		entries = []models.EnrollmentDetail{}
	}
	return &models.Transcript{StudentID: studentID, GeneratedAt: s.now().UTC(), Entries: entries}, nil
}

// Export renders the transcript as CSV or PDF.
func (s *TranscriptService) Export(ctx context.Context, studentID, rawFormat string) (*ExportedFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}
	transcript, err := s.Build(ctx, studentID)
	if err != nil {
		return nil, err
	}

	body, err := export.Render(format, transcriptDocument(transcript))
	if err != nil {
		s.logger.Error("failed to render transcript", zap.String("student_id", studentID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}
	return &ExportedFile{
		Filename:    fmt.Sprintf("transcript-%s.%s", transcript.StudentID, format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func transcriptDocument(t *models.Transcript) export.Document {
	rows := make([][]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		grade := "-"
		if e.FinalGrade != nil {
			grade = string(*e.FinalGrade)
		}
		rows = append(rows, []string{
			e.Term,
			e.CourseCode,
			e.SectionCode,
			e.SectionTitle,
			string(e.Status),
			grade,
		})
	}
	return export.Document{
		Title: "Academic Transcript",
		Meta: []string{
			"Student: " + t.StudentID,
			"Generated: " + t.GeneratedAt.Format(time.RFC3339),
		},
		Headers: []string{"Term", "Course", "Section", "Title", "Status", "Grade"},
		Rows:    rows,
	}
}
