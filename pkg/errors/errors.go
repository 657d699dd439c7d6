package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness. Code is the outcome
// code callers switch on; Message is safe to show to end users.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so callers can use errors.Is against the predefined values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Generic errors.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrRateLimited  = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")
)

// Authentication outcomes.
var (
	ErrInvalidCredentials   = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrAccountLocked        = New("ACCOUNT_LOCKED", http.StatusLocked, "account is locked")
	ErrInactiveAccount      = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrAuth                 = New("AUTH_ERROR", http.StatusInternalServerError, "authentication is temporarily unavailable")
	ErrWrongCurrentPassword = New("WRONG_CURRENT_PASSWORD", http.StatusForbidden, "current password does not match")
	ErrUsernameTaken        = New("USERNAME_TAKEN", http.StatusConflict, "username already taken")
)

// Enrollment lifecycle outcomes.
var (
	ErrAlreadyEnrolled  = New("ALREADY_ENROLLED", http.StatusConflict, "student already enrolled in section")
	ErrSectionNotFound  = New("SECTION_NOT_FOUND", http.StatusNotFound, "section not found")
	ErrSectionFull      = New("SECTION_FULL", http.StatusConflict, "section has no available seats")
	ErrCapacityRaceLost = New("CAPACITY_RACE_LOST", http.StatusConflict, "last seat was taken by a concurrent enrollment")
	ErrNotEnrolled      = New("NOT_ENROLLED", http.StatusNotFound, "student is not enrolled in section")
	ErrInvalidState     = New("INVALID_STATE", http.StatusConflict, "enrollment is not in a droppable state")
	ErrSectionCodeTaken = New("SECTION_CODE_TAKEN", http.StatusConflict, "section code already exists")
)

// Grade aggregation outcomes.
var (
	ErrWeightExceeded = New("WEIGHT_EXCEEDED", http.StatusUnprocessableEntity, "component weights would exceed 100")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// As wraps an underlying cause into a copy of a predefined error, keeping its message.
func As(template *Error, cause error) *Error {
	if template == nil {
		return nil
	}
	return Wrap(cause, template.Code, template.Status, template.Message)
}
