// Package dErrors provides code-carrying domain errors.
//
// Domain logic returns these so callers can branch on the class of failure
// without string matching. Construction-time invariant failures use
// CodeInvariantViolation, aggregate state-machine refusals use
// CodeInvalidState, and trust-boundary parse failures use CodeInvalidInput.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeInvariantViolation marks a construction-time invariant failure.
	// Fatal to the construction; never retried.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInvalidState marks an aggregate state-precondition violation,
	// e.g. mutating a finalized invoice. Fatal to the call, recoverable
	// by choosing a different operation.
	CodeInvalidState Code = "invalid_state"

	// CodeInvalidInput marks rejected external input at a trust boundary.
	CodeInvalidInput Code = "invalid_input"

	// CodeNotFound marks a missing entity.
	CodeNotFound Code = "not_found"

	// CodeConflict marks a uniqueness or concurrency conflict.
	CodeConflict Code = "conflict"

	// CodeValidation marks a data-quality failure reported by the
	// validation pipeline when it must be surfaced as an error.
	CodeValidation Code = "validation"

	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a domain error with a classification code.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is a domain Error with the same code, so
// errors.Is works across wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New constructs a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause stays
// reachable via errors.Unwrap.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
