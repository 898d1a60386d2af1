package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Closed error taxonomy for the persistence layer. Callers branch with
// errors.Is against these sentinels instead of inspecting driver codes.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("record conflicts with existing data")
	// ErrTransient indicates an infrastructure failure (connection loss,
	// timeout) that may succeed on retry.
	ErrTransient = errors.New("transient storage failure")
)

// Domain-specific sentinels layered on the taxonomy above.
var (
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrUsernameTaken     = fmt.Errorf("username %w", ErrConflict)
	ErrSessionNotFound   = fmt.Errorf("session %w", ErrNotFound)
	ErrAPITokenNotFound  = fmt.Errorf("api token %w", ErrNotFound)
	ErrResetTokenNotFound = fmt.Errorf("password reset token %w", ErrNotFound)
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// translateError maps a pgx error onto the closed taxonomy. Unique
// violations become conflict, everything else is treated as transient.
// The translation happens once, here, so no caller ever sniffs SQLSTATEs.
func translateError(err error, conflict error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if conflict != nil {
			return conflict
		}
		return ErrConflict
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
