package services

import (
	"errors"
	"fmt"
)

// The core never panics on bad input: validators and store methods
// return one of these typed errors so callers can show the reason
// directly and pick the right HTTP status.

// ValidationError reports a field- or record-level validation failure
// detected before any database call.
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

func validationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError reports a folio uniqueness conflict, whether detected
// against the local snapshot or surfaced from the database constraint.
// Both paths produce the same message shape.
type ConflictError struct {
	Folio string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a case with folio %s already exists", e.Folio)
}

// NotFoundError reports an operation referencing an id absent from the
// current snapshot. No database call is attempted.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("case %s not found", e.ID)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a uniqueness conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a missing-record error.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
