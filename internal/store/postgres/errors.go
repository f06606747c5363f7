package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wolfeidau/backoffice/internal/store"
)

// constraintErrors maps named constraints to the sentinel error reported when they are violated.
var constraintErrors = map[string]error{
	"users_pkey":                   store.ErrUserAlreadyExists,
	"users_email_key":              store.ErrUserAlreadyExists,
	"users_external_auth_id_key":   store.ErrUserAlreadyExists,
	"tenants_pkey":                 store.ErrTenantAlreadyExists,
	"tenants_slug_key":             store.ErrSlugTaken,
	"invitations_pkey":             store.ErrInvitationAlreadyExists,
	"memberships_user_id_fkey":     store.ErrUserNotFound,
	"memberships_tenant_id_fkey":   store.ErrTenantNotFound,
	"invitations_tenant_id_fkey":   store.ErrTenantNotFound,
	"subscriptions_tenant_id_fkey": store.ErrTenantNotFound,
}

// mapPostgresError maps PostgreSQL-specific errors to sentinel errors.
// Returns the original error if it's not a PostgreSQL error or doesn't match known patterns.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	// Check if it's a PostgreSQL error
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation, pgerrcode.ForeignKeyViolation:
		if sentinel, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return sentinel
		}
		return fmt.Errorf("constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.CheckViolation:
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		// Retryable transaction errors
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, err)
	}
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// isSentinel reports whether err is one of the store sentinel errors produced by mapPostgresError.
func isSentinel(err error) bool {
	for _, sentinel := range constraintErrors {
		if err == sentinel {
			return true
		}
	}
	return false
}
