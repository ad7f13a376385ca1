/*
errors.go - Centralized error types for the finance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Engine packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Not-found errors - Referenced records that don't exist
  2. Policy errors - Lifecycle rules (already confirmed, etc.)
  3. Validation errors - Invalid user input, rejected before any record
     is created

WHAT IS NOT AN ERROR:
  - A missing economic indicator month: fail-soft fallback, by contract.
  - Double-settling or re-running ConfirmAll: idempotent no-op.
    "Nothing to do" is distinguished from "failure" throughout.

USAGE:
  if errors.Is(err, engine.ErrAlreadyConfirmed) {
      // the month already has its instance; surface as a conflict
  }

  var verr *engine.FieldError
  if errors.As(err, &verr) {
      // verr.Field names the offending input
  }

SEE ALSO:
  - recurrence/: returns AlreadyConfirmedError from Confirm
  - factory/: returns FieldError for invalid JSON input
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTemplateNotFound is returned when a referenced template doesn't exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrObligationNotFound is returned when a referenced obligation doesn't exist.
	ErrObligationNotFound = errors.New("obligation not found")

	// ErrInstrumentNotFound is returned when a referenced instrument doesn't exist.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrBudgetNotFound is returned when a referenced budget doesn't exist.
	ErrBudgetNotFound = errors.New("budget not found")

	// ErrAlreadyConfirmed is returned when confirming a (template, month)
	// pair that already has its instance. ConfirmAll silently skips these;
	// a direct Confirm surfaces the conflict.
	ErrAlreadyConfirmed = errors.New("instance already confirmed for month")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidMonthKey is returned for strings that are not YYYY-MM.
	ErrInvalidMonthKey = errors.New("invalid month key")

	// ErrInvalidInput wraps all field-level validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AlreadyConfirmedError reports which (template, month) pair already has an
// instance.
type AlreadyConfirmedError struct {
	TemplateID ObligationID
	Month      MonthKey
}

func (e *AlreadyConfirmedError) Error() string {
	return fmt.Sprintf("template %s already confirmed for %s", e.TemplateID, e.Month)
}

func (e *AlreadyConfirmedError) Unwrap() error { return ErrAlreadyConfirmed }

// FieldError reports an invalid user-supplied value. The engine never
// silently clamps monetary input; it rejects with the offending field named.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// NewFieldError builds a FieldError.
func NewFieldError(field, reason string) *FieldError {
	return &FieldError{Field: field, Reason: reason}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrObligationNotFound) ||
		errors.Is(err, ErrInstrumentNotFound) ||
		errors.Is(err, ErrBudgetNotFound)
}

// IsClientError returns true if the error is due to invalid client input or
// a lifecycle conflict, as opposed to an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrAlreadyConfirmed) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidMonthKey)
}
