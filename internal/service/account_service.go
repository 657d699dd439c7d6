package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/internal/repository"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type accountAdminStore interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Deactivate(ctx context.Context, id string, at time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type accountUnlocker interface {
	Unlock(ctx context.Context, accountID string) error
}

// AccountService covers administrative account operations.
type AccountService struct {
	store     accountAdminStore
	lockout   accountUnlocker
	hasher    PasswordHasher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAccountService constructs the service.
func NewAccountService(store accountAdminStore, lockout accountUnlocker, hasher PasswordHasher, validate *validator.Validate, logger *zap.Logger) *AccountService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &AccountService{store: store, lockout: lockout, hasher: hasher, validator: validate, logger: logger}
}

// Register creates an ACTIVE account with a hashed password.
func (s *AccountService) Register(ctx context.Context, actorID string, req models.RegisterAccountRequest) (*models.Account, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	account := &models.Account{
		Username:     strings.ToLower(strings.TrimSpace(req.Username)),
		PasswordHash: digest,
		FullName:     req.FullName,
		Role:         req.Role,
		Status:       models.AccountStatusActive,
	}
	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, appErrors.Clone(appErrors.ErrUsernameTaken, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	s.audit(ctx, actorID, account.ID, models.AuditActionAccountCreate)
	return account, nil
}

// Get returns an account by id.
func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}
	return account, nil
}

// Unlock reactivates a locked account through the lockout machine.
func (s *AccountService) Unlock(ctx context.Context, actorID, accountID string) (models.Outcome, error) {
	if err := s.lockout.Unlock(ctx, accountID); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return "", appErr
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlock account")
	}
	s.audit(ctx, actorID, accountID, models.AuditActionAccountUnlock)
	return models.OutcomeUnlocked, nil
}

// Deactivate moves an account to INACTIVE.
func (s *AccountService) Deactivate(ctx context.Context, actorID, accountID string) error {
	if err := s.store.Deactivate(ctx, accountID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate account")
	}
	s.audit(ctx, actorID, accountID, models.AuditActionAccountDeactivate)
	return nil
}

func (s *AccountService) audit(ctx context.Context, actorID, accountID, action string) {
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	if err := s.store.CreateAuditLog(ctx, &models.AuditLog{
		AccountID:  actor,
		Action:     action,
		Resource:   "account",
		ResourceID: &accountID,
	}); err != nil {
		s.logger.Warn("failed to record account audit log", zap.String("action", action), zap.Error(err))
	}
}
