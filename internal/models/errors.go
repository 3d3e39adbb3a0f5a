package models

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error taxonomy surfaced to handlers. Storage failures inside transactions
// are rolled back before they propagate, so callers never observe a
// partially-applied state.
var (
	// ErrInvalidArgument means the request was rejected before any mutation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound means a referenced teacher/student/session/backup does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the operation lost to an earlier state transition,
	// e.g. finalizing a session that is already completed.
	ErrConflict = errors.New("conflict")
)

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
