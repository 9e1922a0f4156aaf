package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/keystone/internal/database"
	"github.com/BradenHooton/keystone/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialRepository talks to the credential store exclusively through the
// security.sp_* routines for the login path.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

func NewCredentialRepository(db *database.DB) *CredentialRepository {
	return &CredentialRepository{pool: db.Pool}
}

// rowScanner lets scanCredentialRow accept pgx.Row or pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCredentialRow(scanner rowScanner) (*models.CredentialRecord, error) {
	var rec models.CredentialRecord
	var lockedUntil *time.Time

	err := scanner.Scan(
		&rec.ID, &rec.Name, &rec.Email, &rec.PasswordHash,
		&rec.Active, &rec.FailedLoginAttempts, &lockedUntil,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	rec.LockedUntil = lockedUntil
	return &rec, nil
}

// GetAccountByEmail returns models.ErrNotFound when no account matches.
// Matching is case-insensitive.
func (r *CredentialRepository) GetAccountByEmail(ctx context.Context, email string) (*models.CredentialRecord, error) {
	query := `
		SELECT id_user_account, name, email, password_hash, active, failed_login_attempts, locked_until
		FROM security.sp_user_account_get_by_email($1)
	`

	rec, err := scanCredentialRow(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// RecordLoginFailure writes a failure audit row for the attempted email, which
// need not belong to any account. Returns the audit event id.
func (r *CredentialRepository) RecordLoginFailure(ctx context.Context, emailAttempted, ipAddress, userAgent string) (string, error) {
	id := uuid.New().String()

	_, err := r.pool.Exec(ctx, `CALL security.sp_login_failure($1, $2, $3, $4)`,
		emailAttempted, ipAddress, userAgent, id,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record login failure: %w", database.MapPostgresError(err))
	}

	return id, nil
}

// RecordLoginSuccess writes a session audit row and clears the account's
// failure counter and lock. Returns the audit event id.
func (r *CredentialRepository) RecordLoginSuccess(ctx context.Context, accountID int64, ipAddress, userAgent, token string, expiresAt time.Time) (string, error) {
	id := uuid.New().String()

	_, err := r.pool.Exec(ctx, `CALL security.sp_login_success($1, $2, $3, $4, $5, $6)`,
		accountID, ipAddress, userAgent, token, expiresAt, id,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record login success: %w", database.MapPostgresError(err))
	}

	return id, nil
}

// CreateAccount inserts an account with an already-hashed password.
func (r *CredentialRepository) CreateAccount(ctx context.Context, name, email, passwordHash string, active bool) (int64, error) {
	query := `
		INSERT INTO security.user_account (name, email, password_hash, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id_user_account
	`

	var id int64
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(name), strings.TrimSpace(email), passwordHash, active).Scan(&id)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return id, nil
}

// DeleteExpiredSessions removes session audit rows whose expiry has passed.
func (r *CredentialRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM security.user_session WHERE expires_at < $1`, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

// DeleteLoginFailuresBefore removes failure audit rows older than cutoff.
func (r *CredentialRepository) DeleteLoginFailuresBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM security.login_failure WHERE attempted_at < $1`, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
