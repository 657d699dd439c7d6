package service

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/internal/repository"
)

// fakeAcademicDB keeps sections, enrollments and components behind one mutex.
// Each method is atomic like the SQL it stands in for, and reads return copies
// so callers can observe stale state between calls.
type fakeAcademicDB struct {
	mu          sync.Mutex
	seq         int
	sections    map[string]*models.Section
	enrollments map[string]*models.Enrollment
	components  map[string]*models.GradeComponent
	posts       []models.GradeLetter
	findErr     error
	enrollErr   error
}

func newFakeAcademicDB(sections ...*models.Section) *fakeAcademicDB {
	db := &fakeAcademicDB{
		sections:    map[string]*models.Section{},
		enrollments: map[string]*models.Enrollment{},
		components:  map[string]*models.GradeComponent{},
	}
	for _, s := range sections {
		db.sections[s.ID] = s
	}
	return db
}

func (db *fakeAcademicDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *fakeAcademicDB) enrolledCount(sectionID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.sections[sectionID].EnrolledCount
}

type fakeSectionStore struct{ db *fakeAcademicDB }

func (f fakeSectionStore) FindByID(_ context.Context, id string) (*models.Section, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (f fakeSectionStore) List(_ context.Context, filter models.SectionFilter) ([]models.Section, int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.Section
	for _, s := range f.db.sections {
		if filter.Term != "" && s.Term != filter.Term {
			continue
		}
		if filter.CourseCode != "" && s.CourseCode != filter.CourseCode {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, len(out), nil
}

func (f fakeSectionStore) Create(_ context.Context, section *models.Section) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, s := range f.db.sections {
		if s.Code == section.Code {
			return repository.ErrDuplicateSectionCode
		}
	}
	section.ID = f.db.nextID("sec")
	clone := *section
	f.db.sections[section.ID] = &clone
	return nil
}

type fakeEnrollmentStore struct{ db *fakeAcademicDB }

func (f fakeEnrollmentStore) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *e
	return &clone, nil
}

func (f fakeEnrollmentStore) FindCurrent(_ context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.findErr != nil {
		return nil, f.db.findErr
	}
	var best *models.Enrollment
	for _, e := range f.db.enrollments {
		if e.StudentID != studentID || e.SectionID != sectionID {
			continue
		}
		if best == nil || (best.Status == models.EnrollmentStatusDropped && e.Status != models.EnrollmentStatusDropped) ||
			((best.Status == models.EnrollmentStatusDropped) == (e.Status == models.EnrollmentStatusDropped) && e.EnrolledAt.After(best.EnrolledAt)) {
			best = e
		}
	}
	if best == nil {
		return nil, sql.ErrNoRows
	}
	clone := *best
	return &clone, nil
}

func (f fakeEnrollmentStore) ListByStudent(_ context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.EnrollmentDetail
	for _, e := range f.db.enrollments {
		if e.StudentID != studentID {
			continue
		}
		s := f.db.sections[e.SectionID]
		out = append(out, models.EnrollmentDetail{
			Enrollment:   *e,
			SectionCode:  s.Code,
			CourseCode:   s.CourseCode,
			SectionTitle: s.Title,
			Term:         s.Term,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionCode < out[j].SectionCode })
	return out, nil
}

func (f fakeEnrollmentStore) Enroll(_ context.Context, enrollment *models.Enrollment) error {
	// Widen the window between the service's seat check and this write.
	runtime.Gosched()

	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.enrollErr != nil {
		return f.db.enrollErr
	}
	for _, e := range f.db.enrollments {
		if e.StudentID == enrollment.StudentID && e.SectionID == enrollment.SectionID && e.Status != models.EnrollmentStatusDropped {
			return repository.ErrDuplicateEnrollment
		}
	}
	s, ok := f.db.sections[enrollment.SectionID]
	if !ok {
		return repository.ErrSectionNotFound
	}
	if s.EnrolledCount >= s.Capacity {
		return repository.ErrSectionFull
	}
	s.EnrolledCount++
	enrollment.ID = f.db.nextID("enr")
	enrollment.Status = models.EnrollmentStatusEnrolled
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now()
	}
	clone := *enrollment
	f.db.enrollments[enrollment.ID] = &clone
	return nil
}

func (f fakeEnrollmentStore) Drop(_ context.Context, id string, at time.Time) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.enrollments[id]
	if !ok || e.Status != models.EnrollmentStatusEnrolled {
		return false, repository.ErrEnrollmentStateChanged
	}
	e.Status = models.EnrollmentStatusDropped
	e.DroppedAt = &at
	s := f.db.sections[e.SectionID]
	if s.EnrolledCount == 0 {
		return true, nil
	}
	s.EnrolledCount--
	return false, nil
}

func (f fakeEnrollmentStore) PostFinalGrade(_ context.Context, id string, letter models.GradeLetter, at time.Time) (*models.Enrollment, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	e.FinalGrade = &letter
	if e.Status == models.EnrollmentStatusEnrolled {
		e.Status = models.EnrollmentStatusCompleted
	}
	e.UpdatedAt = at
	f.db.posts = append(f.db.posts, letter)
	clone := *e
	return &clone, nil
}

type fakeComponentStore struct {
	db     *fakeAcademicDB
	addErr error
}

func (f fakeComponentStore) Add(_ context.Context, component *models.GradeComponent, admit func(float64) error) (float64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.addErr != nil {
		return 0, f.addErr
	}
	if _, ok := f.db.enrollments[component.EnrollmentID]; !ok {
		return 0, sql.ErrNoRows
	}
	total := f.db.weightLocked(component.EnrollmentID)
	if err := admit(total); err != nil {
		return 0, err
	}
	component.ID = f.db.nextID("gc")
	component.CreatedAt = time.Now().Add(time.Duration(f.db.seq))
	clone := *component
	f.db.components[component.ID] = &clone
	return total + component.Weight, nil
}

func (f fakeComponentStore) UpdateScore(_ context.Context, id string, score *float64, at time.Time) (*models.GradeComponent, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.components[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c.Score = score
	c.UpdatedAt = at
	clone := *c
	return &clone, nil
}

func (f fakeComponentStore) ListByEnrollment(_ context.Context, enrollmentID string) ([]models.GradeComponent, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []models.GradeComponent
	for _, c := range f.db.components {
		if c.EnrollmentID == enrollmentID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (db *fakeAcademicDB) weightLocked(enrollmentID string) float64 {
	var total float64
	for _, c := range db.components {
		if c.EnrollmentID == enrollmentID {
			total += c.Weight
		}
	}
	return total
}

func (db *fakeAcademicDB) totalWeight(enrollmentID string) float64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.weightLocked(enrollmentID)
}
