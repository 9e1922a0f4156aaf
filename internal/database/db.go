package database

import (
	"errors"
	"fmt"

	"github.com/BradenHooton/keystone/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the credential routines can raise.
const (
	sqlStateNotNullViolation    = "23502"
	sqlStateForeignKeyViolation = "23503"
	sqlStateUniqueViolation     = "23505"
	sqlStateCheckViolation      = "23514"
)

// MapPostgresError classifies a store error against the model sentinels. The
// driver error stays in the chain, and constraint errors name the constraint so
// a duplicate email is distinguishable from other conflicts in logs.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	var sentinel error
	switch pgErr.Code {
	case sqlStateUniqueViolation:
		sentinel = models.ErrConflict
	case sqlStateForeignKeyViolation, sqlStateNotNullViolation, sqlStateCheckViolation:
		sentinel = models.ErrBadRequest
	default:
		return err
	}

	if pgErr.ConstraintName != "" {
		return fmt.Errorf("%w (%s): %w", sentinel, pgErr.ConstraintName, err)
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
