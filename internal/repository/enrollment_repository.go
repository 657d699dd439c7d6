package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-records-api/internal/models"
)

const enrollmentColumns = `id, student_id, section_id, status, enrolled_at, dropped_at, final_grade, updated_at`

// EnrollmentRepository handles persistence of enrollments and composes the
// section ledger inside its transactions.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &enrollment, nil
}

// FindCurrent returns the enrollment that governs the student/section pair:
// the non-DROPPED row if one exists, otherwise the most recent DROPPED row.
func (r *EnrollmentRepository) FindCurrent(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments
WHERE student_id = $1 AND section_id = $2
ORDER BY (status <> 'DROPPED') DESC, enrolled_at DESC
LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find current enrollment: %w", err)
	}
	return &enrollment, nil
}

// ListByStudent returns a student's enrollments joined with section details.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.status, e.enrolled_at, e.dropped_at, e.final_grade, e.updated_at,
	s.code AS section_code, s.course_code, s.title AS section_title, s.term
FROM enrollments e
JOIN sections s ON s.id = e.section_id
WHERE e.student_id = $1
ORDER BY s.term ASC, s.code ASC, e.enrolled_at ASC`
	var items []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return items, nil
}

// Enroll inserts an ENROLLED row and takes a seat from the section ledger in
// one transaction. A failed increment rolls the insert back.
func (r *EnrollmentRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) (err error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	enrollment.Status = models.EnrollmentStatusEnrolled
	enrollment.UpdatedAt = enrollment.EnrolledAt

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO enrollments (id, student_id, section_id, status, enrolled_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, insertQuery, enrollment.ID, enrollment.StudentID, enrollment.SectionID,
		enrollment.Status, enrollment.EnrolledAt, enrollment.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateEnrollment
			return err
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}

	if err = tryIncrement(ctx, tx, enrollment.SectionID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// Drop marks an ENROLLED row DROPPED and releases its seat in one transaction.
// floored reports that the ledger was already at zero; the drop still commits.
func (r *EnrollmentRepository) Drop(ctx context.Context, id string, at time.Time) (floored bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin drop transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const dropQuery = `UPDATE enrollments SET status = $2, dropped_at = $3, updated_at = $3
WHERE id = $1 AND status = $4
RETURNING section_id`
	var sectionID string
	if err = tx.GetContext(ctx, &sectionID, dropQuery, id, models.EnrollmentStatusDropped, at, models.EnrollmentStatusEnrolled); err != nil {
		if err == sql.ErrNoRows {
			err = ErrEnrollmentStateChanged
			return false, err
		}
		return false, fmt.Errorf("mark enrollment dropped: %w", err)
	}

	// Only the ledger floor keeps the drop; any other decrement failure rolls
	// the status back with it.
	if err = decrement(ctx, tx, sectionID); err != nil {
		if !errors.Is(err, ErrLedgerFloor) {
			return false, err
		}
		floored = true
		err = nil
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit drop: %w", err)
	}
	return floored, nil
}

// PostFinalGrade records the letter and completes an ENROLLED row. Rows in any
// other status keep their status.
func (r *EnrollmentRepository) PostFinalGrade(ctx context.Context, id string, letter models.GradeLetter, at time.Time) (*models.Enrollment, error) {
	const query = `UPDATE enrollments SET
	final_grade = $2,
	status = CASE WHEN status = $3 THEN $4 ELSE status END,
	updated_at = $5
WHERE id = $1
RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id, letter,
		models.EnrollmentStatusEnrolled, models.EnrollmentStatusCompleted, at); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("post final grade: %w", err)
	}
	return &enrollment, nil
}
