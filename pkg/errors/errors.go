// Package errors defines the error taxonomy shared by the memory manager and
// the supervisor router, plus the retry helper used on store I/O.
package errors

import (
	"errors"
	"fmt"
)

/*
ValidationError rejects a malformed write payload before any store is touched.
*/
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a single offending field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

/*
TransientStoreError wraps an I/O failure against the vector store or the
persistence gateway. Callers retry these before degrading.
*/
type TransientStoreError struct {
	Store string // "vector" or "relational"
	Op    string // operation that failed, e.g. "search", "insert"
	Err   error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Store, e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// NewTransientStoreError wraps err as a retryable store failure.
func NewTransientStoreError(store, op string, err error) *TransientStoreError {
	return &TransientStoreError{Store: store, Op: op, Err: err}
}

/*
SpecialistFailure records a specialist node returning an error state. The
router translates it into a terminal transition, never a crash.
*/
type SpecialistFailure struct {
	Agent string
	Err   error
}

func (e *SpecialistFailure) Error() string {
	return fmt.Sprintf("specialist %q failed: %v", e.Agent, e.Err)
}

func (e *SpecialistFailure) Unwrap() error { return e.Err }

// NewSpecialistFailure wraps err as a failure attributed to the named agent.
func NewSpecialistFailure(agent string, err error) *SpecialistFailure {
	return &SpecialistFailure{Agent: agent, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsTransient reports whether err is (or wraps) a TransientStoreError.
func IsTransient(err error) bool {
	var t *TransientStoreError
	return errors.As(err, &t)
}
