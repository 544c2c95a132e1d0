/*
errors.go - Centralized error types for the fund core

PURPOSE:
  All error types in one place. Mutating operations fail with exactly one
  of the sentinels below; callers branch with errors.Is/errors.As and the
  HTTP layer maps them to status codes.

ERROR CATEGORIES:
  1. Input errors     - malformed amounts, unknown beneficiaries
  2. Ceiling errors   - a grant or edit would overspend the remainder
  3. Missing rows     - the referenced allocation vanished

Degraded upstream data (an optional table absent on a partially migrated
database) is NOT an error: the store reports those sources as empty and the
calculator treats them as contributing zero.
*/
package fund

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed or out-of-range amounts and
	// unknown beneficiary references. Never corrupts state.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced allocation no longer exists.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientRemainder is returned when a grant exceeds the
	// currently available remainder.
	ErrInsufficientRemainder = errors.New("insufficient remainder")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientRemainderError reports both figures so the operator can retry
// with a smaller amount.
type InsufficientRemainderError struct {
	Attempted int64
	Available int64
}

func (e *InsufficientRemainderError) Error() string {
	return fmt.Sprintf("insufficient remainder: attempted %d, available %d", e.Attempted, e.Available)
}

func (e *InsufficientRemainderError) Unwrap() error {
	return ErrInsufficientRemainder
}

// NotFoundError names the missing row.
type NotFoundError struct {
	Kind string // "allocation", "beneficiary", "dinner"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid operator input
// rather than infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInsufficientRemainder) ||
		errors.Is(err, ErrNotFound)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
