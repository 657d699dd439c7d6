package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors returned by the academic repositories. Services translate
// them into outcome codes.
var (
	ErrSectionNotFound        = errors.New("section not found")
	ErrSectionFull            = errors.New("section capacity reached")
	ErrLedgerFloor            = errors.New("section enrolled count already at zero")
	ErrDuplicateEnrollment    = errors.New("active enrollment already exists for student and section")
	ErrEnrollmentStateChanged = errors.New("enrollment is no longer enrolled")
	ErrDuplicateUsername      = errors.New("username already taken")
	ErrDuplicateSectionCode   = errors.New("section code already exists")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
