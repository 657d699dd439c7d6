package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/events"
)

// DefaultMaxAttempts is the failure count that locks an account.
const DefaultMaxAttempts = 5

type lockoutRepository interface {
	RecordFailure(ctx context.Context, id string, maxAttempts int, at time.Time) (*models.LockoutState, error)
	RecordSuccess(ctx context.Context, id string, at time.Time) error
	Unlock(ctx context.Context, id string, at time.Time) error
}

// LockoutService tracks failed authentications per account. It never moves a
// LOCKED account back to ACTIVE on its own; only Unlock does.
type LockoutService struct {
	repo        lockoutRepository
	maxAttempts int
	publisher   events.Publisher
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewLockoutService constructs the lockout state machine. A non-positive
// maxAttempts falls back to DefaultMaxAttempts.
func NewLockoutService(repo lockoutRepository, maxAttempts int, publisher events.Publisher, metrics *MetricsService, logger *zap.Logger) *LockoutService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockoutService{
		repo:        repo,
		maxAttempts: maxAttempts,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// MaxAttempts returns the configured lock threshold.
func (s *LockoutService) MaxAttempts() int { return s.maxAttempts }

// RecordFailure counts one failed attempt and reports whether this call locked
// the account.
func (s *LockoutService) RecordFailure(ctx context.Context, accountID string) (*models.LockoutState, error) {
	state, err := s.repo.RecordFailure(ctx, accountID, s.maxAttempts, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, err
	}
	if state.Locked {
		s.metrics.RecordLockout()
		s.logger.Warn("account locked after repeated failures",
			zap.String("account_id", accountID), zap.Int("failed_attempts", state.FailedAttempts))
		s.publish(ctx, events.TypeAccountLocked, accountID, state.FailedAttempts)
	}
	return state, nil
}

// RecordSuccess resets the counter and stamps the login time.
func (s *LockoutService) RecordSuccess(ctx context.Context, accountID string) error {
	if err := s.repo.RecordSuccess(ctx, accountID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return err
	}
	return nil
}

// Unlock reactivates the account and clears its counter. Calling it on an
// ACTIVE account is a no-op apart from the reset.
func (s *LockoutService) Unlock(ctx context.Context, accountID string) error {
	if err := s.repo.Unlock(ctx, accountID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return err
	}
	s.publish(ctx, events.TypeAccountUnlocked, accountID, 0)
	return nil
}

func (s *LockoutService) publish(ctx context.Context, eventType, accountID string, attempts int) {
	payload := map[string]interface{}{"account_id": accountID, "failed_attempts": attempts}
	if err := s.publisher.Publish(ctx, events.New(eventType, payload)); err != nil {
		s.metrics.RecordEventFailure()
		s.logger.Warn("failed to publish account event", zap.String("type", eventType), zap.Error(err))
	}
}
