/*
errors.go - Error taxonomy for the leave engine

CATEGORIES:
  1. Not-found errors  - missing employee email, request id, activity id
  2. Validation errors - rejected before any mutation happens
  3. Store errors      - persistence failures, wrapped with %w

Validation always runs before the first write, so a ValidationError
guarantees no side effects. Not-found in the middle of a multi-step
ledger operation aborts the remaining steps without compensating the
ones already applied; overtime wraps that case in PartialError so the
caller can see exactly which participants were touched.
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when no employee record matches
	// the given email.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrRequestNotFound is returned when no leave request matches the
	// given id.
	ErrRequestNotFound = errors.New("leave request not found")

	// ErrActivityNotFound is returned when no overtime activity matches
	// the given id.
	ErrActivityNotFound = errors.New("overtime activity not found")

	// ErrInvalidCategory is returned when a leave type does not map to
	// a known balance field.
	ErrInvalidCategory = errors.New("invalid leave category")

	// ErrDuplicateEmail is returned when appending an employee whose
	// email is already taken. Email is the unique key of the employee
	// table.
	ErrDuplicateEmail = errors.New("email already registered")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports a rejected input. It is always returned
// before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
