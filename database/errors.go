package database

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/kbukum/streambot/errors"
)

// Substrings of driver errors. Postgres reports network trouble through
// lib/pq; sqlite only ever reports locking.
var (
	connectionPatterns = []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"driver: bad connection",
	}
	contentionPatterns = []string{
		"deadlock",
		"lock timeout",
		"database is locked",
		"too many connections",
	}
)

func matchesAny(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsConnectionError reports a failure to reach the database server.
func IsConnectionError(err error) bool { return matchesAny(err, connectionPatterns) }

// IsRetryableError reports a failure that may succeed on a second attempt.
func IsRetryableError(err error) bool {
	return IsConnectionError(err) || matchesAny(err, contentionPatterns)
}

// IsNotFoundError reports whether err is a missing row.
func IsNotFoundError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// FromDatabase classifies a store error for callers that log or serve it.
func FromDatabase(err error, resource string) *apperrors.AppError {
	switch {
	case err == nil:
		return nil
	case IsNotFoundError(err):
		return apperrors.NotFound(resource, "")
	case IsRetryableError(err):
		return (&apperrors.AppError{
			Code:       apperrors.ErrCodeDatabaseError,
			Message:    "database temporarily unavailable: " + resource,
			HTTPStatus: http.StatusServiceUnavailable,
			Retryable:  true,
		}).WithCause(err)
	default:
		return apperrors.DatabaseError(err)
	}
}

// storeErr is FromDatabase with a nil error interface for success.
func storeErr(err error, resource string) error {
	if err == nil {
		return nil
	}
	return FromDatabase(err, resource)
}
