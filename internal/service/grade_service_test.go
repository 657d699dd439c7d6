package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type countingPoster struct {
	inner   finalGradePoster
	calls   int
	letters []models.GradeLetter
	err     error
}

func (p *countingPoster) PostFinalGrade(ctx context.Context, enrollmentID string, letter models.GradeLetter) (*models.EnrollmentResult, error) {
	p.calls++
	p.letters = append(p.letters, letter)
	if p.err != nil {
		return nil, p.err
	}
	return p.inner.PostFinalGrade(ctx, enrollmentID, letter)
}

func newGradeFixture(t *testing.T) (*GradeService, *fakeAcademicDB, *countingPoster, string) {
	t.Helper()
	enrollments, db, _ := newEnrollmentFixture(10)
	res, err := enrollments.Enroll(context.Background(), models.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)

	poster := &countingPoster{inner: enrollments}
	svc := NewGradeService(fakeComponentStore{db: db}, poster, nil, nil, nil)
	return svc, db, poster, res.Enrollment.ID
}

func score(v float64) *float64 { return &v }

func TestGradeServiceWeightCeiling(t *testing.T) {
	svc, db, poster, enrollmentID := newGradeFixture(t)
	ctx := context.Background()

	for _, label := range []string{"Midterm", "Project"} {
		_, err := svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: enrollmentID, Label: label, MaxScore: 100, Weight: 40})
		require.NoError(t, err)
	}

	_, err := svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: enrollmentID, Label: "Final", MaxScore: 100, Weight: 30})
	requireCode(t, err, appErrors.ErrWeightExceeded)
	assert.InDelta(t, 80.0, db.totalWeight(enrollmentID), 1e-9)
	assert.Zero(t, poster.calls)
}

func TestGradeServiceFinalizesOnceAtHundred(t *testing.T) {
	svc, _, poster, enrollmentID := newGradeFixture(t)
	ctx := context.Background()

	first, err := svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: enrollmentID, Label: "Coursework", Score: score(90), MaxScore: 100, Weight: 50})
	require.NoError(t, err)
	assert.Nil(t, first.Finalized)
	assert.Zero(t, poster.calls)

	res, err := svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: enrollmentID, Label: "Exam", Score: score(82), MaxScore: 100, Weight: 50})
	require.NoError(t, err)
	require.NotNil(t, res.Finalized)
	assert.InDelta(t, 86.0, res.Finalized.Percentage, 1e-9)
	assert.Equal(t, models.GradeB, res.Finalized.Letter)
	assert.Equal(t, 1, poster.calls)

	enrollment, err := poster.inner.(*EnrollmentService).Get(ctx, enrollmentID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollment.Status)
	require.NotNil(t, enrollment.FinalGrade)
	assert.Equal(t, models.GradeB, *enrollment.FinalGrade)
}

func TestGradeServiceToleratesFloatingWeights(t *testing.T) {
	svc, _, poster, enrollmentID := newGradeFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: enrollmentID, Label: "Part", Score: score(1), MaxScore: 1, Weight: 33.33333})
		require.NoError(t, err)
	}
	res, err := svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: enrollmentID, Label: "Part", Score: score(1), MaxScore: 1, Weight: 33.33336})
	require.NoError(t, err)
	require.NotNil(t, res.Finalized)
	assert.Equal(t, models.GradeA, res.Finalized.Letter)
	assert.Equal(t, 1, poster.calls)
}

func TestGradeServiceSkipsUngradedComponents(t *testing.T) {
	svc, _, poster, enrollmentID := newGradeFixture(t)
	ctx := context.Background()

	_, err := svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: enrollmentID, Label: "Quiz", Score: score(18), MaxScore: 20, Weight: 60})
	require.NoError(t, err)
	res, err := svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: enrollmentID, Label: "Final", MaxScore: 100, Weight: 40})
	require.NoError(t, err)

	require.NotNil(t, res.Finalized)
	assert.InDelta(t, 54.0, res.Finalized.Percentage, 1e-9)
	assert.Equal(t, 1, res.Finalized.Graded)
	assert.Equal(t, []models.GradeLetter{models.GradeF}, poster.letters)
}

func TestGradeServiceNoGradedComponentsPostsNothing(t *testing.T) {
	svc, _, poster, enrollmentID := newGradeFixture(t)

	res, err := svc.AddComponent(context.Background(), models.AddComponentRequest{EnrollmentID: enrollmentID, Label: "All", MaxScore: 100, Weight: 100})
	require.NoError(t, err)
	assert.Nil(t, res.Finalized)
	assert.InDelta(t, 100.0, res.TotalWeight, 1e-9)
	assert.Zero(t, poster.calls)
}

func TestGradeServiceUpdateScoreNeverFinalizes(t *testing.T) {
	svc, _, poster, enrollmentID := newGradeFixture(t)
	ctx := context.Background()

	added, err := svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: enrollmentID, Label: "All", MaxScore: 100, Weight: 100})
	require.NoError(t, err)

	res, err := svc.UpdateScore(ctx, added.Component.ID, models.UpdateScoreRequest{Score: score(95)})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeScoreUpdated, res.Outcome)
	assert.InDelta(t, 95.0, *res.Component.Score, 1e-9)
	assert.Zero(t, poster.calls)

	_, err = svc.UpdateScore(ctx, "gc-404", models.UpdateScoreRequest{Score: nil})
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestGradeServicePostFailureSurfaces(t *testing.T) {
	svc, _, poster, enrollmentID := newGradeFixture(t)
	poster.err = appErrors.As(appErrors.ErrInternal, errors.New("connection reset"))

	_, err := svc.AddComponent(context.Background(), models.AddComponentRequest{EnrollmentID: enrollmentID, Label: "All", Score: score(70), MaxScore: 100, Weight: 100})
	requireCode(t, err, appErrors.ErrInternal)
	assert.Equal(t, 1, poster.calls)
}

func TestGradeServiceValidationAndMissingEnrollment(t *testing.T) {
	svc, _, _, _ := newGradeFixture(t)
	ctx := context.Background()

	_, err := svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: "enr-x", Label: "Bad", MaxScore: 0, Weight: 10})
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: "enr-404", Label: "Quiz", MaxScore: 10, Weight: 10})
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestGradeServiceListComponents(t *testing.T) {
	svc, _, _, enrollmentID := newGradeFixture(t)
	ctx := context.Background()
	_, err := svc.AddComponent(ctx, models.AddComponentRequest{EnrollmentID: enrollmentID, Label: "Quiz", MaxScore: 10, Weight: 15})
	require.NoError(t, err)

	book, err := svc.ListComponents(ctx, enrollmentID)
	require.NoError(t, err)
	assert.Len(t, book.Components, 1)
	assert.InDelta(t, 15.0, book.TotalWeight, 1e-9)
}
