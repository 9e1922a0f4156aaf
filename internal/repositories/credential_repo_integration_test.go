//go:build integration

package repositories_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/BradenHooton/keystone/internal/database"
	"github.com/BradenHooton/keystone/internal/models"
	"github.com/BradenHooton/keystone/internal/repositories"
	pkgauth "github.com/BradenHooton/keystone/pkg/auth"
)

// setupTestDatabase starts a PostgreSQL container and applies the migrations.
func setupTestDatabase(t *testing.T) (*database.DB, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("keystone"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := database.NewFromPool(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, db.Migrate(ctx))

	return db, pool
}

func createAccount(t *testing.T, repo *repositories.CredentialRepository, email string, active bool) int64 {
	t.Helper()
	hash, err := pkgauth.HashPasswordWithCost("CorrectHorse1!", bcrypt.MinCost)
	require.NoError(t, err)

	id, err := repo.CreateAccount(context.Background(), "Test User", email, hash, active)
	require.NoError(t, err)
	return id
}

func countRows(t *testing.T, pool *pgxpool.Pool, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func TestCredentialRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, pool := setupTestDatabase(t)
	repo := repositories.NewCredentialRepository(db)
	ctx := context.Background()

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		id := createAccount(t, repo, "Mixed.Case@Example.com", true)

		rec, err := repo.GetAccountByEmail(ctx, "mixed.case@example.COM")
		require.NoError(t, err)
		assert.Equal(t, id, rec.ID)
		assert.True(t, rec.Active)
		assert.Equal(t, 0, rec.FailedLoginAttempts)
		assert.Nil(t, rec.LockedUntil)
	})

	t.Run("unknown email returns not found", func(t *testing.T) {
		_, err := repo.GetAccountByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("failure for unknown email is recorded against the literal email", func(t *testing.T) {
		eventID, err := repo.RecordLoginFailure(ctx, "Ghost@Example.com", "203.0.113.1", "curl/8.0")
		require.NoError(t, err)
		assert.NotEmpty(t, eventID)

		n := countRows(t, pool,
			`SELECT COUNT(*) FROM security.login_failure WHERE email_attempt = $1 AND id_user_account IS NULL`,
			"Ghost@Example.com")
		assert.Equal(t, 1, n)
	})

	t.Run("fifth failure locks the account for 15 minutes", func(t *testing.T) {
		createAccount(t, repo, "lockme@example.com", true)

		for i := 1; i <= 4; i++ {
			_, err := repo.RecordLoginFailure(ctx, "lockme@example.com", "203.0.113.2", "ua")
			require.NoError(t, err)

			rec, err := repo.GetAccountByEmail(ctx, "lockme@example.com")
			require.NoError(t, err)
			assert.Equal(t, i, rec.FailedLoginAttempts)
			assert.Nil(t, rec.LockedUntil)
		}

		_, err := repo.RecordLoginFailure(ctx, "lockme@example.com", "203.0.113.2", "ua")
		require.NoError(t, err)

		rec, err := repo.GetAccountByEmail(ctx, "lockme@example.com")
		require.NoError(t, err)
		assert.Equal(t, 5, rec.FailedLoginAttempts)
		require.NotNil(t, rec.LockedUntil)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), *rec.LockedUntil, time.Minute)
	})

	t.Run("inactive account counter is untouched", func(t *testing.T) {
		createAccount(t, repo, "inactive@example.com", false)

		_, err := repo.RecordLoginFailure(ctx, "inactive@example.com", "203.0.113.3", "ua")
		require.NoError(t, err)

		rec, err := repo.GetAccountByEmail(ctx, "inactive@example.com")
		require.NoError(t, err)
		assert.False(t, rec.Active)
		assert.Equal(t, 0, rec.FailedLoginAttempts)
	})

	t.Run("success resets the counter and stores the session", func(t *testing.T) {
		id := createAccount(t, repo, "success@example.com", true)
		for i := 0; i < 3; i++ {
			_, err := repo.RecordLoginFailure(ctx, "success@example.com", "203.0.113.4", "ua")
			require.NoError(t, err)
		}

		expiresAt := time.Now().Add(2 * time.Hour)
		_, err := repo.RecordLoginSuccess(ctx, id, "203.0.113.4", "ua", "signed.token.value", expiresAt)
		require.NoError(t, err)

		rec, err := repo.GetAccountByEmail(ctx, "success@example.com")
		require.NoError(t, err)
		assert.Equal(t, 0, rec.FailedLoginAttempts)
		assert.Nil(t, rec.LockedUntil)

		n := countRows(t, pool,
			`SELECT COUNT(*) FROM security.user_session WHERE id_user_account = $1 AND token = $2`,
			id, "signed.token.value")
		assert.Equal(t, 1, n)
	})

	t.Run("duplicate email conflicts regardless of case", func(t *testing.T) {
		createAccount(t, repo, "dupe@example.com", true)

		_, err := repo.CreateAccount(ctx, "Other", "DUPE@example.com", "hash", true)
		assert.ErrorIs(t, err, models.ErrConflict)
		assert.Contains(t, err.Error(), "ux_user_account_email")
	})

	t.Run("cleanup removes expired sessions and old failures", func(t *testing.T) {
		id := createAccount(t, repo, "cleanup@example.com", true)
		_, err := repo.RecordLoginSuccess(ctx, id, "ip", "ua", "expired.token", time.Now().Add(-time.Minute))
		require.NoError(t, err)

		deleted, err := repo.DeleteExpiredSessions(ctx, time.Now())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, deleted, int64(1))

		deleted, err = repo.DeleteLoginFailuresBefore(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, deleted, int64(1))
		assert.Equal(t, 0, countRows(t, pool, `SELECT COUNT(*) FROM security.login_failure`))
	})
}
