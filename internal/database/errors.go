package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/penmark-app/penmark-backend/internal/apperr"
)

const (
	pgUniqueViolation = "23505"
	pgConnectionClass = "08"
)

// MapError converts a storage error into the domain taxonomy. Unique
// violations are distinguished by the violated constraint's name.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var already *apperr.Error
	if errors.As(err, &already) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUniqueViolation {
			return conflictFor(pgErr.ConstraintName, err)
		}
		if strings.HasPrefix(pgErr.Code, pgConnectionClass) {
			return apperr.Unavailable(err)
		}
		return apperr.Internal(err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("record not found")
	}

	// Driver-agnostic fallback, used by the sqlite-backed test harness.
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return conflictFor(err.Error(), err)
	}

	return apperr.Internal(err)
}

// IsEmailConflict reports whether err is a unique violation on an email
// column, as opposed to username or provider identity.
func IsEmailConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && strings.Contains(pgErr.ConstraintName, "email")
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") && strings.Contains(err.Error(), "email")
}

func conflictFor(constraint string, cause error) error {
	switch {
	case strings.Contains(constraint, "email"):
		return apperr.Wrap(apperr.KindConflict, "email is not available", cause)
	case strings.Contains(constraint, "username"):
		return apperr.Wrap(apperr.KindConflict, "username is not available", cause)
	case strings.Contains(constraint, "provider"):
		return apperr.Wrap(apperr.KindConflict, "account is already linked", cause)
	default:
		return apperr.Wrap(apperr.KindConflict, "resource already exists", cause)
	}
}
