package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-records-api/internal/models"
)

const gradeComponentColumns = `id, enrollment_id, label, score, max_score, weight, created_at, updated_at`

// GradeComponentRepository persists weighted grade components.
type GradeComponentRepository struct {
	db *sqlx.DB
}

// NewGradeComponentRepository constructs the repository.
func NewGradeComponentRepository(db *sqlx.DB) *GradeComponentRepository {
	return &GradeComponentRepository{db: db}
}

// Add inserts a component after admit accepts the enrollment's current weight
// total. The enrollment row stays locked for the whole check-and-insert, so
// concurrent adds for one enrollment are serialized. It returns the new total.
func (r *GradeComponentRepository) Add(ctx context.Context, component *models.GradeComponent, admit func(currentTotal float64) error) (total float64, err error) {
	if component.ID == "" {
		component.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	component.CreatedAt = now
	component.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin grade component transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var enrollmentID string
	if err = tx.GetContext(ctx, &enrollmentID, `SELECT id FROM enrollments WHERE id = $1 FOR UPDATE`, component.EnrollmentID); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("lock enrollment: %w", err)
	}

	if err = tx.GetContext(ctx, &total, `SELECT COALESCE(SUM(weight), 0) FROM grade_components WHERE enrollment_id = $1`, enrollmentID); err != nil {
		return 0, fmt.Errorf("sum component weights: %w", err)
	}
	if admit != nil {
		if err = admit(total); err != nil {
			return 0, err
		}
	}

	const insertQuery = `INSERT INTO grade_components (id, enrollment_id, label, score, max_score, weight, created_at, updated_at)
VALUES (:id, :enrollment_id, :label, :score, :max_score, :weight, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, component); err != nil {
		return 0, fmt.Errorf("insert grade component: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit grade component: %w", err)
	}
	return total + component.Weight, nil
}

// UpdateScore sets or clears a component's score and returns the stored row.
func (r *GradeComponentRepository) UpdateScore(ctx context.Context, id string, score *float64, at time.Time) (*models.GradeComponent, error) {
	const query = `UPDATE grade_components SET score = $2, updated_at = $3 WHERE id = $1 RETURNING ` + gradeComponentColumns
	var component models.GradeComponent
	if err := r.db.GetContext(ctx, &component, query, id, score, at); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update component score: %w", err)
	}
	return &component, nil
}

// ListByEnrollment returns the components of an enrollment in insertion order.
func (r *GradeComponentRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.GradeComponent, error) {
	const query = `SELECT ` + gradeComponentColumns + ` FROM grade_components WHERE enrollment_id = $1 ORDER BY created_at ASC, id ASC`
	var components []models.GradeComponent
	if err := r.db.SelectContext(ctx, &components, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list grade components: %w", err)
	}
	return components, nil
}
