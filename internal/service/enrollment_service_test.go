package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/events"
	"github.com/noah-isme/campus-records-api/pkg/middleware/requestid"
)

func newEnrollmentFixture(capacity int) (*EnrollmentService, *fakeAcademicDB, *capturePublisher) {
	db := newFakeAcademicDB(&models.Section{ID: "sec-1", Code: "CS101-A", CourseCode: "CS101", Term: "2026F", Capacity: capacity})
	pub := &capturePublisher{}
	svc := NewEnrollmentService(fakeEnrollmentStore{db}, fakeSectionStore{db}, pub, nil, nil, nil)
	return svc, db, pub
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	svc, db, pub := newEnrollmentFixture(2)

	res, err := svc.Enroll(context.Background(), models.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEnrolled, res.Outcome)
	assert.Equal(t, models.EnrollmentStatusEnrolled, res.Enrollment.Status)
	assert.NotEmpty(t, res.Enrollment.ID)
	assert.Equal(t, 1, db.enrolledCount("sec-1"))
	assert.Equal(t, []string{events.TypeEnrollmentCreated}, pub.types())
}

func TestEnrollmentServiceRejectsDuplicate(t *testing.T) {
	svc, db, _ := newEnrollmentFixture(5)
	req := models.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"}

	_, err := svc.Enroll(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), req)
	requireCode(t, err, appErrors.ErrAlreadyEnrolled)
	assert.Equal(t, 1, db.enrolledCount("sec-1"))
}

func TestEnrollmentServiceUnknownSection(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(1)
	_, err := svc.Enroll(context.Background(), models.EnrollRequest{StudentID: "stu-1", SectionID: "sec-404"})
	requireCode(t, err, appErrors.ErrSectionNotFound)
}

func TestEnrollmentServiceFullSection(t *testing.T) {
	svc, db, _ := newEnrollmentFixture(1)
	_, err := svc.Enroll(context.Background(), models.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), models.EnrollRequest{StudentID: "stu-2", SectionID: "sec-1"})
	requireCode(t, err, appErrors.ErrSectionFull)
	assert.Equal(t, 1, db.enrolledCount("sec-1"))
}

func TestEnrollmentServiceValidation(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(1)
	_, err := svc.Enroll(context.Background(), models.EnrollRequest{StudentID: "", SectionID: "sec-1"})
	requireCode(t, err, appErrors.ErrValidation)
}

func TestEnrollmentServiceStorageFailureIsInternal(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	db := newFakeAcademicDB(&models.Section{ID: "sec-1", Code: "CS101-A", CourseCode: "CS101", Term: "2026F", Capacity: 1})
	svc := NewEnrollmentService(fakeEnrollmentStore{db}, fakeSectionStore{db}, &capturePublisher{}, nil, nil, zap.New(core))
	db.enrollErr = errors.New("pq: could not serialize access")

	ctx := requestid.WithID(context.Background(), "req-42")
	_, err := svc.Enroll(ctx, models.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	requireCode(t, err, appErrors.ErrInternal)
	assert.Equal(t, 0, db.enrolledCount("sec-1"))

	entries := logs.FilterMessage("enrollment storage failure").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])
}

func TestEnrollmentServiceConcurrentEnrollNeverOversells(t *testing.T) {
	const capacity, callers = 7, 40
	svc, db, _ := newEnrollmentFixture(capacity)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[string]int{}
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := svc.Enroll(context.Background(), models.EnrollRequest{StudentID: fmt.Sprintf("stu-%d", i), SectionID: "sec-1"})
			code := string(models.OutcomeEnrolled)
			if err != nil {
				code = appErrors.FromError(err).Code
			}
			mu.Lock()
			outcomes[code]++
			mu.Unlock()
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, capacity, outcomes[string(models.OutcomeEnrolled)])
	assert.Equal(t, callers-capacity, outcomes[appErrors.ErrSectionFull.Code]+outcomes[appErrors.ErrCapacityRaceLost.Code])
	assert.Equal(t, capacity, db.enrolledCount("sec-1"))
}

func TestEnrollmentServiceDrop(t *testing.T) {
	svc, db, pub := newEnrollmentFixture(3)
	req := models.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"}
	_, err := svc.Enroll(context.Background(), req)
	require.NoError(t, err)

	res, err := svc.Drop(context.Background(), models.DropRequest(req))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDropped, res.Outcome)
	assert.Equal(t, models.EnrollmentStatusDropped, res.Enrollment.Status)
	assert.NotNil(t, res.Enrollment.DroppedAt)
	assert.Equal(t, 0, db.enrolledCount("sec-1"))

	_, err = svc.Drop(context.Background(), models.DropRequest(req))
	requireCode(t, err, appErrors.ErrInvalidState)
	assert.Equal(t, 0, db.enrolledCount("sec-1"))
	assert.Equal(t, []string{events.TypeEnrollmentCreated, events.TypeEnrollmentDropped}, pub.types())

	_, err = svc.Enroll(context.Background(), req)
	require.NoError(t, err, "a dropped pair can enroll again")
	assert.Equal(t, 1, db.enrolledCount("sec-1"))
}

func TestEnrollmentServiceDropWithoutEnrollment(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(3)
	_, err := svc.Drop(context.Background(), models.DropRequest{StudentID: "stu-1", SectionID: "sec-1"})
	requireCode(t, err, appErrors.ErrNotEnrolled)
}

func TestEnrollmentServiceDropCompleted(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(3)
	res, err := svc.Enroll(context.Background(), models.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)
	_, err = svc.PostFinalGrade(context.Background(), res.Enrollment.ID, models.GradeA)
	require.NoError(t, err)

	_, err = svc.Drop(context.Background(), models.DropRequest{StudentID: "stu-1", SectionID: "sec-1"})
	requireCode(t, err, appErrors.ErrInvalidState)
}

func TestEnrollmentServicePostFinalGradeLeavesTerminalStatus(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(3)
	req := models.EnrollRequest{StudentID: "stu-1", SectionID: "sec-1"}
	res, err := svc.Enroll(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Drop(context.Background(), models.DropRequest(req))
	require.NoError(t, err)

	posted, err := svc.PostFinalGrade(context.Background(), res.Enrollment.ID, models.GradeF)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDropped, posted.Enrollment.Status)
	require.NotNil(t, posted.Enrollment.FinalGrade)
	assert.Equal(t, models.GradeF, *posted.Enrollment.FinalGrade)
}

func TestEnrollmentServicePostFinalGradeValidation(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(3)
	_, err := svc.PostFinalGrade(context.Background(), "enr-1", models.GradeLetter("E"))
	requireCode(t, err, appErrors.ErrValidation)

	_, err = svc.PostFinalGrade(context.Background(), "enr-404", models.GradeA)
	requireCode(t, err, appErrors.ErrNotFound)
}
