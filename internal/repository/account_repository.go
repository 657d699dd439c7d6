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

const accountColumns = `id, username, password_hash, full_name, role, status, failed_attempts, last_login, created_at, updated_at`

// AccountRepository is the gateway to the accounts database.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByUsername returns an account by username.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1 LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account by username: %w", err)
	}
	return &account, nil
}

// FindByID returns an account by identifier.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return &account, nil
}

// RecordFailure increments the failed-attempt counter and locks an ACTIVE
// account once the counter reaches maxAttempts, in a single statement.
// INACTIVE accounts are returned unchanged.
func (r *AccountRepository) RecordFailure(ctx context.Context, id string, maxAttempts int, at time.Time) (*models.LockoutState, error) {
	const query = `WITH prev AS (
	SELECT id, status FROM accounts WHERE id = $1 FOR UPDATE
)
UPDATE accounts a SET
	failed_attempts = CASE WHEN a.status = 'INACTIVE' THEN a.failed_attempts ELSE a.failed_attempts + 1 END,
	status = CASE WHEN a.status = 'ACTIVE' AND a.failed_attempts + 1 >= $2 THEN 'LOCKED' ELSE a.status END,
	updated_at = $3
FROM prev
WHERE a.id = prev.id
RETURNING a.failed_attempts, a.status, (prev.status = 'ACTIVE' AND a.status = 'LOCKED') AS locked`

	var state models.LockoutState
	if err := r.db.GetContext(ctx, &state, query, id, maxAttempts, at); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("record failed attempt: %w", err)
	}
	return &state, nil
}

// RecordSuccess resets the failed-attempt counter and stamps last_login together.
func (r *AccountRepository) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET failed_attempts = 0, last_login = $2, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("record successful login: %w", err)
	}
	return requireRow(res)
}

// Unlock sets the account ACTIVE with a zero counter whatever its current status.
func (r *AccountRepository) Unlock(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET status = 'ACTIVE', failed_attempts = 0, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("unlock account: %w", err)
	}
	return requireRow(res)
}

// Deactivate marks the account INACTIVE. The lockout machine takes no action
// on inactive accounts.
func (r *AccountRepository) Deactivate(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET status = 'INACTIVE', updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}
	return requireRow(res)
}

// UpdatePassword updates the stored password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	const query = `UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, passwordHash, at)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res)
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	if account.Status == "" {
		account.Status = models.AccountStatusActive
	}

	const query = `INSERT INTO accounts (id, username, password_hash, full_name, role, status, failed_attempts, created_at, updated_at)
VALUES (:id, :username, :password_hash, :full_name, :role, :status, :failed_attempts, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// CreateAuditLog inserts an audit log record.
func (r *AccountRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if len(log.Details) == 0 {
		log.Details = []byte(`{}`)
	}
	const query = `INSERT INTO audit_logs (id, account_id, action, resource, resource_id, details, ip_address, user_agent, created_at)
VALUES (:id, :account_id, :action, :resource, :resource_id, :details, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
