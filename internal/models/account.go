package models

import "time"

// AccountStatus is the authentication state of an account.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
	AccountStatusLocked   AccountStatus = "LOCKED"
)

// Account is a row of the accounts database.
type Account struct {
	ID             string        `db:"id" json:"id"`
	Username       string        `db:"username" json:"username"`
	PasswordHash   string        `db:"password_hash" json:"-"`
	FullName       string        `db:"full_name" json:"full_name"`
	Role           Role          `db:"role" json:"role"`
	Status         AccountStatus `db:"status" json:"status"`
	FailedAttempts int           `db:"failed_attempts" json:"failed_attempts"`
	LastLogin      *time.Time    `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// LockoutState is the result of recording an authentication failure.
type LockoutState struct {
	FailedAttempts int           `db:"failed_attempts" json:"failed_attempts"`
	Status         AccountStatus `db:"status" json:"status"`
	// Locked is true only when this failure moved the account from ACTIVE to LOCKED.
	Locked bool `db:"locked" json:"locked"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
