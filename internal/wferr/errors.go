// Package wferr defines the discriminated error taxonomy for the order
// workflow core. Every failure a caller is expected to react to carries a
// Code; plain infrastructure failures are wrapped with fmt.Errorf as usual.
package wferr

import (
	"errors"
	"fmt"
)

// Code classifies a workflow error.
type Code string

const (
	// CodeConfiguration marks an internally inconsistent stage catalog or
	// policy. Fatal to the operation; surfaced to administrators only.
	CodeConfiguration Code = "configuration"

	// CodeValidation marks caller input that violates a documented
	// precondition (e.g. an empty rejection reason).
	CodeValidation Code = "validation"

	// CodeApprovalRequired marks an actor lacking authority for the
	// requested transition.
	CodeApprovalRequired Code = "approval_required"

	// CodeInvalidTransition marks a target stage that is not reachable from
	// the current stage.
	CodeInvalidTransition Code = "invalid_transition"

	// CodeConflict marks a concurrent mutation detected by the optimistic
	// version check. Recoverable by re-reading state and retrying.
	CodeConflict Code = "conflict"

	// CodeNotFound marks a referenced order, stage, or policy that does not
	// exist.
	CodeNotFound Code = "not_found"
)

// Error is a workflow error with a machine-readable code.
type Error struct {
	Code    Code
	Message string
	Err     error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with the given code around a cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// Configuration creates a configuration error.
func Configuration(format string, args ...any) *Error {
	return New(CodeConfiguration, format, args...)
}

// Validation creates a validation error.
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, format, args...)
}

// ApprovalRequired creates an approval-required error.
func ApprovalRequired(format string, args ...any) *Error {
	return New(CodeApprovalRequired, format, args...)
}

// InvalidTransition creates an invalid-transition error.
func InvalidTransition(format string, args ...any) *Error {
	return New(CodeInvalidTransition, format, args...)
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *Error {
	return New(CodeConflict, format, args...)
}

// NotFound creates a not-found error for a named resource.
func NotFound(resource, id string) *Error {
	return New(CodeNotFound, "%s %q not found", resource, id)
}

// CodeOf returns the code carried by err, or an empty Code when err is not a
// workflow error.
func CodeOf(err error) Code {
	var wfe *Error
	if errors.As(err, &wfe) {
		return wfe.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
