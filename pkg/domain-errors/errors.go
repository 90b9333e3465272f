// Package domainerrors provides coded errors for the service layer.
//
// Services wrap infrastructure failures and validation outcomes with a Code
// so transports can translate them uniformly (see pkg/platform/httputil)
// and callers can branch with HasCode instead of string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
	CodeUnavailable        Code = "unavailable"
	CodeInvariantViolation Code = "invariant_violation"

	// Visitor lifecycle outcomes. These are part of the public error
	// taxonomy: transports map them onto dedicated statuses.

	// CodeValidation marks a check-in rejected for missing required fields.
	CodeValidation Code = "validation_failed"
	// CodeBanned marks a check-in refused by the banned-visitor screener.
	// This is an explicit outcome, not an internal failure: the attempt is
	// still logged and alerted.
	CodeBanned Code = "banned"
	// CodeInvalidTransition marks an illegal lifecycle transition, e.g. a
	// second check-out on the same visit.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeBadgeAllocation marks badge issuance exhausting its retry budget.
	CodeBadgeAllocation Code = "badge_allocation_failed"
)

// Error is a coded error with an operator-facing message.
type Error struct {
	Code    Code
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal if
// the error carries no code.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf returns the message of the outermost coded error, or "" if the
// error carries no code. Transports use it to decide what to expose.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
