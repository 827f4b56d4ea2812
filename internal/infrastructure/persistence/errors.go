package persistence

import (
	"errors"

	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL error codes the sales repositories react to
const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// classify maps a driver error to a domain error kind. Lock timeouts,
// deadlocks and serialization failures are retryable conflicts; everything
// else is a persistence failure of op.
func classify(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgDeadlockDetected, pgSerializationFailure:
			return shared.NewConcurrencyConflict(resource, err)
		}
	}
	return shared.NewPersistenceError(op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgCheckViolation
	}
	return errors.Is(err, gorm.ErrCheckConstraintViolated)
}

// isDomainError reports whether err already carries a domain error code
func isDomainError(err error) bool {
	var de *shared.DomainError
	return errors.As(err, &de)
}
