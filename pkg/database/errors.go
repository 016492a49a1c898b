package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// Postgres error code for unique_violation
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. Get-or-create callers classify this narrowly: a violation means a
// concurrent writer won the insert, so the caller re-reads and returns the
// winner's row. Any other database error propagates unmodified.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}

// IsNoRows reports whether err is sql.ErrNoRows (possibly wrapped).
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
