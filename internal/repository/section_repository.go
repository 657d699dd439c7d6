package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-records-api/internal/models"
)

const sectionColumns = `id, code, course_code, title, term, capacity, enrolled_count, created_at, updated_at`

// SectionRepository owns sections and their capacity ledger. enrolled_count is
// only ever changed through TryIncrement and Decrement.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// TryIncrement takes one seat if one is free at the moment of the update.
func (r *SectionRepository) TryIncrement(ctx context.Context, sectionID string) error {
	return tryIncrement(ctx, r.db, sectionID)
}

// Decrement releases one seat, floored at zero.
func (r *SectionRepository) Decrement(ctx context.Context, sectionID string) error {
	return decrement(ctx, r.db, sectionID)
}

func tryIncrement(ctx context.Context, ext sqlx.ExtContext, sectionID string) error {
	const query = `UPDATE sections SET enrolled_count = enrolled_count + 1, updated_at = NOW() WHERE id = $1 AND enrolled_count < capacity`
	res, err := ext.ExecContext(ctx, query, sectionID)
	if err != nil {
		return fmt.Errorf("increment section enrollment: %w", err)
	}
	return ledgerOutcome(ctx, ext, res, sectionID, ErrSectionFull)
}

func decrement(ctx context.Context, ext sqlx.ExtContext, sectionID string) error {
	const query = `UPDATE sections SET enrolled_count = enrolled_count - 1, updated_at = NOW() WHERE id = $1 AND enrolled_count > 0`
	res, err := ext.ExecContext(ctx, query, sectionID)
	if err != nil {
		return fmt.Errorf("decrement section enrollment: %w", err)
	}
	return ledgerOutcome(ctx, ext, res, sectionID, ErrLedgerFloor)
}

// ledgerOutcome tells a missing section apart from an unmet condition when the
// conditional update touched no row.
func ledgerOutcome(ctx context.Context, ext sqlx.ExtContext, res sql.Result, sectionID string, unmet error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	exists, err := sectionExists(ctx, ext, sectionID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrSectionNotFound
	}
	return unmet
}

func sectionExists(ctx context.Context, q sqlx.QueryerContext, sectionID string) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS (SELECT 1 FROM sections WHERE id = $1)`, sectionID); err != nil {
		return false, fmt.Errorf("check section exists: %w", err)
	}
	return exists, nil
}

// FindByID returns a section by its ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT ` + sectionColumns + ` FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find section: %w", err)
	}
	return &section, nil
}

// List returns sections filtered by term and course with the total count.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error) {
	base := `FROM sections`
	var conditions []string
	var args []interface{}

	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if filter.CourseCode != "" {
		conditions = append(conditions, fmt.Sprintf("course_code = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.CourseCode))
	}
	if len(conditions) > 0 {
		base += " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY code ASC LIMIT %d OFFSET %d", sectionColumns, base, size, offset)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// Create persists a new section with an empty ledger.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	section.EnrolledCount = 0

	const query = `INSERT INTO sections (id, code, course_code, title, term, capacity, enrolled_count, created_at, updated_at)
VALUES (:id, :code, :course_code, :title, :term, :capacity, :enrolled_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSectionCode
		}
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}
