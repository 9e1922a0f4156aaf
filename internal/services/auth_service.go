package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/keystone/internal/auth"
	"github.com/BradenHooton/keystone/internal/models"
	pkgauth "github.com/BradenHooton/keystone/pkg/auth"
	pkglogger "github.com/BradenHooton/keystone/pkg/logger"
)

const (
	// MaxLoginAttempts is the failure count at which the store locks an account.
	MaxLoginAttempts = 5
	// LockoutMinutes is the fixed lockout window reported when a failure locks the account.
	LockoutMinutes = 15

	// SessionExpiry and RememberMeSessionExpiry stamp the success audit row.
	// They must stay in step with the token lifetimes in config.
	SessionExpiry           = 2 * time.Hour
	RememberMeSessionExpiry = 30 * 24 * time.Hour

	// notifyTimeout bounds one lockout email send.
	notifyTimeout = 10 * time.Second
)

// CredentialStore is the stored-routine contract of the credential database
type CredentialStore interface {
	GetAccountByEmail(ctx context.Context, email string) (*models.CredentialRecord, error)
	RecordLoginFailure(ctx context.Context, emailAttempted, ipAddress, userAgent string) (string, error)
	RecordLoginSuccess(ctx context.Context, accountID int64, ipAddress, userAgent, token string, expiresAt time.Time) (string, error)
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(payload models.UserPayload, rememberMe bool) (string, time.Time, error)
}

// AuthService handles authentication business logic
type AuthService struct {
	store       CredentialStore
	tokens      TokenIssuer
	timing      *auth.TimingDelay
	notifier    LockoutNotifier
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time

	notifications sync.WaitGroup
}

// NewAuthService creates a new AuthService. timing and notifier may be nil.
func NewAuthService(store CredentialStore, tokens TokenIssuer, timing *auth.TimingDelay, notifier LockoutNotifier, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	if notifier == nil {
		notifier = NoopLockoutNotifier{}
	}
	return &AuthService{
		store:       store,
		tokens:      tokens,
		timing:      timing,
		notifier:    notifier,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// SessionExpiryFor returns the audit expiry duration for a login.
func SessionExpiryFor(rememberMe bool) time.Duration {
	if rememberMe {
		return RememberMeSessionExpiry
	}
	return SessionExpiry
}

// Authenticate runs one login attempt. Expected rejections come back as an
// Outcome; a non-nil error always means the store or the signer failed.
//
// The failed-attempt counter is read here and incremented by the store in a
// separate call, so two concurrent failures for the same account can both see
// the same count.
func (s *AuthService) Authenticate(ctx context.Context, attempt models.LoginAttempt) (*models.Outcome, error) {
	start := time.Now()

	outcome, err := s.authenticate(ctx, attempt)
	if err != nil {
		return nil, err
	}

	s.timing.PadFrom(ctx, start, outcome.Kind == models.OutcomeSuccess)
	return outcome, nil
}

func (s *AuthService) authenticate(ctx context.Context, attempt models.LoginAttempt) (*models.Outcome, error) {
	now := s.now()

	account, err := s.store.GetAccountByEmail(ctx, attempt.Email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to look up account", slog.Any("error", err))
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if account == nil || !account.Active {
		if err := s.recordFailure(ctx, attempt, 0, "unknown_or_inactive_account"); err != nil {
			return nil, err
		}
		return models.InvalidCredentials(), nil
	}

	if account.IsLockedAt(now) {
		minutes := lockoutMinutesRemaining(*account.LockedUntil, now)
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     "login_blocked",
			AccountID:     account.ID,
			Email:         attempt.Email,
			IPAddress:     attempt.IPAddress,
			UserAgent:     attempt.UserAgent,
			FailureReason: "account_locked",
		})
		return models.AccountLocked(minutes), nil
	}

	if !pkgauth.VerifyPassword(attempt.Password, account.PasswordHash) {
		if err := s.recordFailure(ctx, attempt, account.ID, "invalid_password"); err != nil {
			return nil, err
		}

		attemptsLeft := (MaxLoginAttempts - 1) - account.FailedLoginAttempts
		if attemptsLeft <= 0 {
			s.logger.Warn("account locked after repeated failures",
				slog.Int64("account_id", account.ID),
				slog.Int("failed_attempts", account.FailedLoginAttempts+1))
			s.notifyLockout(ctx, account)
			return models.AccountLocked(LockoutMinutes), nil
		}
		return models.InvalidCredentials(), nil
	}

	payload := account.Payload()

	token, _, err := s.tokens.Issue(payload, attempt.RememberMe)
	if err != nil {
		s.logger.Error("failed to issue session token", slog.Int64("account_id", account.ID), slog.Any("error", err))
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	expiresAt := now.Add(SessionExpiryFor(attempt.RememberMe))
	eventID, err := s.store.RecordLoginSuccess(ctx, account.ID, attempt.IPAddress, attempt.UserAgent, token, expiresAt)
	if err != nil {
		s.logger.Error("failed to record login success", slog.Int64("account_id", account.ID), slog.Any("error", err))
		return nil, err
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "login_success",
		EventID:   eventID,
		AccountID: account.ID,
		IPAddress: attempt.IPAddress,
		UserAgent: attempt.UserAgent,
		Success:   true,
		Metadata:  map[string]string{"remember_me": fmt.Sprint(attempt.RememberMe)},
	})

	return models.Success(token, payload), nil
}

// notifyLockout emails the owner in the background so the send does not delay
// or depend on the request that triggered the lock.
func (s *AuthService) notifyLockout(ctx context.Context, account *models.CredentialRecord) {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		defer cancel()

		if err := s.notifier.NotifyLockout(notifyCtx, account.Email, account.Name, LockoutMinutes); err != nil {
			s.logger.Error("failed to send lockout notification",
				slog.Int64("account_id", account.ID),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until pending lockout notifications have finished.
func (s *AuthService) Wait() {
	s.notifications.Wait()
}

// recordFailure writes the failure event for the submitted email as typed.
func (s *AuthService) recordFailure(ctx context.Context, attempt models.LoginAttempt, accountID int64, reason string) error {
	eventID, err := s.store.RecordLoginFailure(ctx, attempt.Email, attempt.IPAddress, attempt.UserAgent)
	if err != nil {
		s.logger.Error("failed to record login failure", slog.Any("error", err))
		return err
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     "login_failed",
		EventID:       eventID,
		AccountID:     accountID,
		Email:         attempt.Email,
		IPAddress:     attempt.IPAddress,
		UserAgent:     attempt.UserAgent,
		FailureReason: reason,
	})
	return nil
}

// lockoutMinutesRemaining rounds the open lock window up to whole minutes, minimum 1.
func lockoutMinutesRemaining(lockedUntil, now time.Time) int {
	remaining := lockedUntil.Sub(now)
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
