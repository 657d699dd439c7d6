package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

func newTranscriptFixture(t *testing.T) *TranscriptService {
	t.Helper()
	enrollments, _, _ := newEnrollmentFixture(5)
	ctx := context.Background()

	res, err := enrollments.Enroll(ctx, models.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)
	_, err = enrollments.PostFinalGrade(ctx, res.Enrollment.ID, models.GradeB)
	require.NoError(t, err)

	svc := NewTranscriptService(enrollments.enrollments, nil)
	svc.now = func() time.Time { return time.Date(2026, 12, 20, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestTranscriptServiceBuild(t *testing.T) {
	svc := newTranscriptFixture(t)

	transcript, err := svc.Build(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, transcript.Entries, 1)
	entry := transcript.Entries[0]
	assert.Equal(t, "CS101-A", entry.SectionCode)
	assert.Equal(t, models.EnrollmentStatusCompleted, entry.Status)
	require.NotNil(t, entry.FinalGrade)
	assert.Equal(t, models.GradeB, *entry.FinalGrade)

	empty, err := svc.Build(context.Background(), "stu-2")
	require.NoError(t, err)
	assert.NotNil(t, empty.Entries)
	assert.Empty(t, empty.Entries)

	_, err = svc.Build(context.Background(), " ")
	requireCode(t, err, appErrors.ErrValidation)
}

func TestTranscriptServiceExportCSV(t *testing.T) {
	svc := newTranscriptFixture(t)

	file, err := svc.Export(context.Background(), "stu-1", "CSV")
	require.NoError(t, err)
	assert.Equal(t, "transcript-stu-1.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Term,Course,Section,Title,Status,Grade", lines[0])
	assert.Equal(t, "2026F,CS101,CS101-A,,COMPLETED,B", lines[1])
}

func TestTranscriptServiceExportPDF(t *testing.T) {
	svc := newTranscriptFixture(t)

	file, err := svc.Export(context.Background(), "stu-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF")))
}

func TestTranscriptServiceExportRejectsFormat(t *testing.T) {
	svc := newTranscriptFixture(t)

	_, err := svc.Export(context.Background(), "stu-1", "xlsx")
	requireCode(t, err, appErrors.ErrValidation)
}
