package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/keystone/internal/models"
	pkgauth "github.com/BradenHooton/keystone/pkg/auth"
	pkglogger "github.com/BradenHooton/keystone/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// FailureCall captures one RecordLoginFailure invocation
type FailureCall struct {
	EmailAttempted string
	IPAddress      string
	UserAgent      string
}

// SuccessCall captures one RecordLoginSuccess invocation
type SuccessCall struct {
	AccountID int64
	IPAddress string
	UserAgent string
	Token     string
	ExpiresAt time.Time
}

// MockCredentialStore implements CredentialStore for testing
type MockCredentialStore struct {
	GetAccountByEmailFunc  func(ctx context.Context, email string) (*models.CredentialRecord, error)
	RecordLoginFailureFunc func(ctx context.Context, emailAttempted, ipAddress, userAgent string) (string, error)
	RecordLoginSuccessFunc func(ctx context.Context, accountID int64, ipAddress, userAgent, token string, expiresAt time.Time) (string, error)

	mu        sync.Mutex
	Failures  []FailureCall
	Successes []SuccessCall
}

func (m *MockCredentialStore) GetAccountByEmail(ctx context.Context, email string) (*models.CredentialRecord, error) {
	if m.GetAccountByEmailFunc != nil {
		return m.GetAccountByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockCredentialStore) RecordLoginFailure(ctx context.Context, emailAttempted, ipAddress, userAgent string) (string, error) {
	m.mu.Lock()
	m.Failures = append(m.Failures, FailureCall{emailAttempted, ipAddress, userAgent})
	n := len(m.Failures)
	m.mu.Unlock()

	if m.RecordLoginFailureFunc != nil {
		return m.RecordLoginFailureFunc(ctx, emailAttempted, ipAddress, userAgent)
	}
	return fmt.Sprintf("failure-%d", n), nil
}

func (m *MockCredentialStore) RecordLoginSuccess(ctx context.Context, accountID int64, ipAddress, userAgent, token string, expiresAt time.Time) (string, error) {
	m.mu.Lock()
	m.Successes = append(m.Successes, SuccessCall{accountID, ipAddress, userAgent, token, expiresAt})
	n := len(m.Successes)
	m.mu.Unlock()

	if m.RecordLoginSuccessFunc != nil {
		return m.RecordLoginSuccessFunc(ctx, accountID, ipAddress, userAgent, token, expiresAt)
	}
	return fmt.Sprintf("success-%d", n), nil
}

// AccountStore returns a store that resolves exactly one account by email
func AccountStore(account *models.CredentialRecord) *MockCredentialStore {
	return &MockCredentialStore{
		GetAccountByEmailFunc: func(ctx context.Context, email string) (*models.CredentialRecord, error) {
			if account != nil && email == account.Email {
				return account, nil
			}
			return nil, models.ErrNotFound
		},
	}
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	IssueFunc func(payload models.UserPayload, rememberMe bool) (string, time.Time, error)
}

func (m *MockTokenIssuer) Issue(payload models.UserPayload, rememberMe bool) (string, time.Time, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(payload, rememberMe)
	}
	return "mock-token", time.Now().Add(SessionExpiryFor(rememberMe)), nil
}

// MockLockoutNotifier records lockout notifications. Sends run in the
// background, so call AuthService.Wait before reading Calls.
type MockLockoutNotifier struct {
	NotifyFunc func(ctx context.Context, email, name string, minutes int) error
	Err        error

	mu    sync.Mutex
	Calls []string
}

func (m *MockLockoutNotifier) NotifyLockout(ctx context.Context, email, name string, minutes int) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, fmt.Sprintf("%s:%d", email, minutes))
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, email, name, minutes)
	}
	return m.Err
}

// NewTestAccount returns an active account whose password is "CorrectHorse1!"
func NewTestAccount(id int64, email, name string) *models.CredentialRecord {
	hash, err := pkgauth.HashPasswordWithCost("CorrectHorse1!", bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return &models.CredentialRecord{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
}

// newTestAuthService builds an AuthService with a pinned clock and discarded logs
func newTestAuthService(store CredentialStore, tokens TokenIssuer, notifier LockoutNotifier, now time.Time) *AuthService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewAuthService(store, tokens, nil, notifier, logger, pkglogger.NewAuditLogger(logger))
	svc.now = func() time.Time { return now }
	return svc
}
