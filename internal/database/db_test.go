package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/BradenHooton/keystone/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPostgresError(t *testing.T) {
	other := errors.New("connection reset")
	duplicateEmail := &pgconn.PgError{Code: "23505", ConstraintName: "ux_user_account_email"}
	badAccount := &pgconn.PgError{Code: "23503"}
	negativeCounter := &pgconn.PgError{Code: "23514", ConstraintName: "ck_user_account_failed_attempts"}
	deadlock := &pgconn.PgError{Code: "40P01"}

	tests := []struct {
		name        string
		in          error
		want        error
		wantMessage string
	}{
		{"nil", nil, nil, ""},
		{"no rows", pgx.ErrNoRows, models.ErrNotFound, ""},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), models.ErrNotFound, ""},
		{"duplicate email", duplicateEmail, models.ErrConflict, "ux_user_account_email"},
		{"wrapped duplicate email", fmt.Errorf("insert: %w", duplicateEmail), models.ErrConflict, ""},
		{"foreign key violation", badAccount, models.ErrBadRequest, ""},
		{"not null violation", &pgconn.PgError{Code: "23502"}, models.ErrBadRequest, ""},
		{"check violation", negativeCounter, models.ErrBadRequest, "ck_user_account_failed_attempts"},
		{"unmapped sqlstate passes through", deadlock, deadlock, ""},
		{"passthrough", other, other, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPostgresError(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
			if tt.wantMessage != "" {
				assert.Contains(t, got.Error(), tt.wantMessage)
			}
		})
	}
}

func TestMapPostgresError_KeepsDriverError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_user_account_email"}

	got := MapPostgresError(pgErr)

	var unwrapped *pgconn.PgError
	assert.True(t, errors.As(got, &unwrapped), "driver error should stay in the chain")
	assert.Equal(t, "23505", unwrapped.Code)
	assert.ErrorIs(t, got, models.ErrConflict)
}
