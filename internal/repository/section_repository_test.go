package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
)

const (
	incrementPattern = `UPDATE sections SET enrolled_count = enrolled_count \+ 1, updated_at = NOW\(\) WHERE id = \$1 AND enrolled_count < capacity`
	decrementPattern = `UPDATE sections SET enrolled_count = enrolled_count - 1, updated_at = NOW\(\) WHERE id = \$1 AND enrolled_count > 0`
	existsPattern    = `SELECT EXISTS \(SELECT 1 FROM sections WHERE id = \$1\)`
)

func TestSectionRepositoryTryIncrement(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		exists   *bool
		want     error
	}{
		{name: "seat taken", affected: 1},
		{name: "full", affected: 0, exists: boolPtr(true), want: ErrSectionFull},
		{name: "missing", affected: 0, exists: boolPtr(false), want: ErrSectionNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, cleanup := newSQLMock(t)
			defer cleanup()
			repo := NewSectionRepository(db)

			mock.ExpectExec(incrementPattern).WithArgs("sec-1").WillReturnResult(sqlmock.NewResult(0, tc.affected))
			if tc.exists != nil {
				mock.ExpectQuery(existsPattern).WithArgs("sec-1").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(*tc.exists))
			}

			err := repo.TryIncrement(context.Background(), "sec-1")
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSectionRepositoryDecrementFloor(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectExec(decrementPattern).WithArgs("sec-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(existsPattern).WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.Decrement(context.Background(), "sec-1")
	assert.ErrorIs(t, err, ErrLedgerFloor)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryIncrementPropagatesDriverError(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	boom := errors.New("connection reset")
	mock.ExpectExec(incrementPattern).WillReturnError(boom)

	err := repo.TryIncrement(context.Background(), "sec-1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrSectionFull)
}

func TestSectionRepositoryList(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "course_code", "title", "term", "capacity", "enrolled_count", "created_at", "updated_at"}).
		AddRow("sec-1", "CS101-A", "CS101", "Intro", "2026F", 30, 12, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM sections WHERE term = $1 ORDER BY code ASC LIMIT 20 OFFSET 0")).
		WithArgs("2026F").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sections WHERE term = $1")).
		WithArgs("2026F").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sections, total, err := repo.List(context.Background(), models.SectionFilter{Term: "2026F"})
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, 18, sections[0].AvailableSeats())
}

func boolPtr(v bool) *bool { return &v }
