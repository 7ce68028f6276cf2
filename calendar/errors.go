/*
errors.go - Error types for the calendar engine

ERROR CATEGORIES:
  1. Programmer errors - a unit the operation does not support
     (ErrUnsupportedField, ErrUnsupportedUnit). Fail fast, never approximate.
  2. Policy violations - exact-only rounding on a quotient with a remainder
     (ErrInexactDifference). The caller can retry with another policy.
  3. Field range errors - strict Values reject out-of-range field writes
     (ErrFieldOutOfRange).

Nothing in this package logs or swallows errors. Callers at the edges
(api, cmd/calctl) translate them into user-facing messages.

USAGE:
  n, err := calendar.Difference(a, b, calendar.Month, calendar.Unnecessary)
  if errors.Is(err, calendar.ErrInexactDifference) {
      n, err = calendar.Difference(a, b, calendar.Month, calendar.HalfEven)
  }
*/
package calendar

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnsupportedField is returned when an operation does not accept the
	// requested field.
	ErrUnsupportedField = errors.New("unsupported field")

	// ErrUnsupportedUnit is returned by MillisecondsPerUnit for fields without
	// a fixed length (year, month, week fields).
	ErrUnsupportedUnit = errors.New("unsupported unit: no fixed length")

	// ErrInexactDifference is returned when Unnecessary rounding is requested
	// and the quotient has a non-zero remainder.
	ErrInexactDifference = errors.New("inexact difference")

	// ErrFieldOutOfRange is returned when a strict Value receives a field
	// value outside its legal range.
	ErrFieldOutOfRange = errors.New("field value out of range")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError reports an operation that rejected a field.
type FieldError struct {
	Op    string // e.g. "difference", "truncate", "same", "units", "set"
	Field Field
	Name  string // raw name, when the field could not be parsed
	Value int    // offending value for ErrFieldOutOfRange
	Err   error
}

func (e *FieldError) Error() string {
	name := e.Name
	if name == "" {
		name = e.Field.String()
	}
	if errors.Is(e.Err, ErrFieldOutOfRange) {
		return fmt.Sprintf("%s %s=%d: %v", e.Op, name, e.Value, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, name, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// InexactError provides details about a non-exact quotient under
// Unnecessary rounding.
type InexactError struct {
	Field    Field
	Integer  int64 // truncated magnitude of the quotient
	Inner    int64 // milliseconds past the lower unit boundary
	Outer    int64 // milliseconds short of the next unit boundary, 0 if not computed
	Rounding Rounding
}

func (e *InexactError) Error() string {
	return fmt.Sprintf("inexact difference: %d %s and %dms remain under %s rounding",
		e.Integer, e.Field, e.Inner, e.Rounding)
}

func (e *InexactError) Unwrap() error {
	return ErrInexactDifference
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnsupportedField) ||
		errors.Is(err, ErrUnsupportedUnit) ||
		errors.Is(err, ErrFieldOutOfRange)
}

// IsPolicyViolation returns true if a different rounding policy would succeed.
func IsPolicyViolation(err error) bool {
	return errors.Is(err, ErrInexactDifference)
}

func unsupported(op string, f Field) error {
	return &FieldError{Op: op, Field: f, Err: ErrUnsupportedField}
}
