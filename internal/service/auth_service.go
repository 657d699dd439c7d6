package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-records-api/pkg/observability"
)

type credentialStore interface {
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type lockoutMachine interface {
	RecordFailure(ctx context.Context, accountID string) (*models.LockoutState, error)
	RecordSuccess(ctx context.Context, accountID string) error
}

// AuthConfig defines configuration for access tokens.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService composes the credential store and the lockout state machine into
// the authenticate and change-password operations.
type AuthService struct {
	store     credentialStore
	lockout   lockoutMachine
	hasher    PasswordHasher
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(store credentialStore, lockout lockoutMachine, hasher PasswordHasher, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 8 * time.Hour
	}
	return &AuthService{
		store:     store,
		lockout:   lockout,
		hasher:    hasher,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate checks a username and password. Failures are reported with one
// of INVALID_CREDENTIALS, ACCOUNT_LOCKED, ACCOUNT_INACTIVE or AUTH_ERROR; the
// caller can never tell an unknown username from a wrong password.
func (s *AuthService) Authenticate(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	account, err := s.store.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.burnVerification(req.Password)
			s.audit(ctx, nil, models.AuditActionLoginFailed, req, map[string]interface{}{"reason": "unknown_username"})
			return nil, s.reject(appErrors.ErrInvalidCredentials)
		}
		return nil, s.internal(ctx, err, "lookup account")
	}

	switch account.Status {
	case models.AccountStatusLocked:
		s.audit(ctx, &account.ID, models.AuditActionLoginFailed, req, map[string]interface{}{"reason": "locked"})
		return nil, s.reject(appErrors.ErrAccountLocked)
	case models.AccountStatusInactive:
		s.audit(ctx, &account.ID, models.AuditActionLoginFailed, req, map[string]interface{}{"reason": "inactive"})
		return nil, s.reject(appErrors.ErrInactiveAccount)
	}

	ok, err := s.hasher.Verify(req.Password, account.PasswordHash)
	if err != nil {
		return nil, s.internal(ctx, err, "verify password")
	}

	if !ok {
		state, err := s.lockout.RecordFailure(ctx, account.ID)
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				return nil, s.reject(appErrors.ErrInvalidCredentials)
			}
			return nil, s.internal(ctx, err, "record failed attempt")
		}
		details := map[string]interface{}{"reason": "bad_password", "failed_attempts": state.FailedAttempts}
		if state.Locked {
			s.audit(ctx, &account.ID, models.AuditActionAccountLocked, req, details)
			return nil, s.reject(appErrors.ErrAccountLocked)
		}
		s.audit(ctx, &account.ID, models.AuditActionLoginFailed, req, details)
		return nil, s.reject(appErrors.ErrInvalidCredentials)
	}

	if err := s.lockout.RecordSuccess(ctx, account.ID); err != nil {
		return nil, s.internal(ctx, err, "record successful login")
	}

	issuedAt := s.now()
	token, err := s.generateAccessToken(account, issuedAt)
	if err != nil {
		return nil, s.internal(ctx, err, "sign access token")
	}

	s.audit(ctx, &account.ID, models.AuditActionLogin, req, map[string]interface{}{"status": "success"})
	s.metrics.RecordAuthOutcome(string(models.OutcomeAuthenticated))

	return &models.LoginResponse{
		Outcome:     models.OutcomeAuthenticated,
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Account: models.AccountInfo{
			ID:        account.ID,
			Username:  account.Username,
			FullName:  account.FullName,
			Role:      account.Role,
			LastLogin: &issuedAt,
		},
	}, nil
}

// ChangePassword re-verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, accountID string, req models.ChangePasswordRequest) (models.Outcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return "", s.internal(ctx, err, "load account")
	}

	ok, err := s.hasher.Verify(req.CurrentPassword, account.PasswordHash)
	if err != nil {
		return "", s.internal(ctx, err, "verify current password")
	}
	if !ok {
		return "", appErrors.Clone(appErrors.ErrWrongCurrentPassword, "")
	}

	digest, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return "", s.internal(ctx, err, "hash new password")
	}
	if err := s.store.UpdatePassword(ctx, accountID, digest, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return "", s.internal(ctx, err, "store new password")
	}

	s.audit(ctx, &accountID, models.AuditActionPasswordChange, models.LoginRequest{}, map[string]interface{}{"status": "changed"})
	return models.OutcomePasswordChanged, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(account *models.Account, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		AccountID: account.ID,
		Role:      account.Role,
		Username:  account.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   account.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}

// burnVerification spends one hash comparison for unknown usernames.
func (s *AuthService) burnVerification(password string) {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("campus-records-dummy-password")
		if err != nil {
			s.logger.Warn("failed to prepare dummy digest", zap.Error(err))
			return
		}
		s.dummyDigest = digest
	})
	if s.dummyDigest != "" {
		_, _ = s.hasher.Verify(password, s.dummyDigest)
	}
}

func (s *AuthService) reject(template *appErrors.Error) error {
	s.metrics.RecordAuthOutcome(template.Code)
	return appErrors.Clone(template, "")
}

func (s *AuthService) internal(ctx context.Context, err error, step string) error {
	reqID := requestid.FromContext(ctx)
	s.logger.Error("authentication storage failure", zap.String("step", step), zap.String("request_id", reqID), zap.Error(err))
	observability.CaptureErr(err, map[string]string{"component": "auth", "step": step, "request_id": reqID})
	s.metrics.RecordAuthOutcome(appErrors.ErrAuth.Code)
	return appErrors.As(appErrors.ErrAuth, err)
}

func (s *AuthService) audit(ctx context.Context, accountID *string, action string, req models.LoginRequest, details map[string]interface{}) {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte(`{}`)
	}
	log := &models.AuditLog{
		AccountID:  accountID,
		Action:     action,
		Resource:   "auth",
		ResourceID: accountID,
		Details:    payload,
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}
	if err := s.store.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
