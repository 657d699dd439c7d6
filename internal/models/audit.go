package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit actions recorded by the authentication flows.
const (
	AuditActionLogin             = "LOGIN"
	AuditActionLoginFailed       = "LOGIN_FAILED"
	AuditActionAccountLocked     = "ACCOUNT_LOCKED"
	AuditActionAccountUnlock     = "ACCOUNT_UNLOCK"
	AuditActionAccountCreate     = "ACCOUNT_CREATE"
	AuditActionPasswordChange    = "PASSWORD_CHANGE"
	AuditActionAccountDeactivate = "ACCOUNT_DEACTIVATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string         `db:"id" json:"id"`
	AccountID  *string        `db:"account_id" json:"account_id,omitempty"`
	Action     string         `db:"action" json:"action"`
	Resource   string         `db:"resource" json:"resource"`
	ResourceID *string        `db:"resource_id" json:"resource_id,omitempty"`
	Details    types.JSONText `db:"details" json:"details,omitempty"`
	IPAddress  string         `db:"ip_address" json:"ip_address"`
	UserAgent  string         `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
