package store

import (
	"errors"
	"strings"
)

// Sentinel errors for repository operations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a unique constraint was violated.
	ErrConflict = errors.New("unique constraint violated")

	// ErrUnknownField indicates a predicate or field set referenced a column
	// the entity does not have. This is a caller configuration error.
	ErrUnknownField = errors.New("unknown field")
)

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
