package postgres

import (
	"strings"
)

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// PostgreSQL error code 23505 is unique_violation
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}

// isInvalidUUID checks for invalid_text_representation, raised when a
// non-UUID string is compared against the id column.
func isInvalidUUID(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "22P02")
}
