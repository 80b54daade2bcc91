// Package apperr defines the error taxonomy shared by the import, scheduling
// and workflow pipelines and mapped to HTTP statuses by the api package.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrForbidden is returned when the caller's role lacks a capability.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports malformed input: a row, a range, a date.
type ValidationError struct {
	Field   string
	Message string
	// Details carries per-item messages, e.g. one per failing spreadsheet row.
	Details []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation: ")
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		fmt.Fprintf(&b, " (%d issue(s))", len(e.Details))
	}
	return b.String()
}

// Validation builds a ValidationError for field.
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a uniqueness or state conflict: duplicate email,
// candidate already has an open interview, illegal status transition.
type ConflictError struct {
	Message string
	Details []string
}

func (e *ConflictError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("conflict: %s (%d issue(s))", e.Message, len(e.Details))
	}
	return "conflict: " + e.Message
}

// Conflict builds a ConflictError.
func Conflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a storage failure. The surrounding transaction has
// been rolled back when it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError unless it already belongs to
// the taxonomy, in which case it is returned unchanged.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTyped(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsTyped reports whether err is one of the taxonomy errors.
func IsTyped(err error) bool {
	var ve *ValidationError
	var ce *ConflictError
	var pe *PersistenceError
	return errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &pe) ||
		errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound)
}
