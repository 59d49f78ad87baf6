// Package domainerrors provides coded errors shared by services and transports.
//
// Services return these (optionally wrapping an underlying cause) so that callers
// can branch on the code without string matching, and transports can map codes
// to status codes in one place.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers.
type Code string

const (
	// CodeBadRequest marks missing or invalid input rejected before any I/O.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks a lookup with no result.
	CodeNotFound Code = "not_found"
	// CodeUnavailable marks a transient infrastructure failure. Callers may retry.
	CodeUnavailable Code = "unavailable"
	// CodeInvalidConfig marks stored configuration that cannot be used as-is
	// (malformed parameter values, unevaluable rules).
	CodeInvalidConfig Code = "invalid_config"
	// CodeUnprocessable marks a well-formed request that no option can satisfy.
	CodeUnprocessable Code = "unprocessable"
	// CodeInternal marks anything else.
	CodeInternal Code = "internal"
)

// Error carries a code, a safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err. Wrapping nil returns nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// GetCode returns the outermost code in err's chain, or CodeInternal.
func GetCode(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
