package shell

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes shell errors.
type ErrorCode string

const (
	// ErrCodeIllegalState indicates an operation called in the wrong
	// lifecycle phase, such as SetProperty after Start.
	ErrCodeIllegalState ErrorCode = "ILLEGAL_STATE"

	// ErrCodeInvalidArgument indicates a rejected input, such as an empty
	// property key.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeResource indicates a staged resource that is unreadable or has
	// an invalid target path.
	ErrCodeResource ErrorCode = "RESOURCE"

	// ErrCodeStartup indicates the backend failed to launch or connect.
	ErrCodeStartup ErrorCode = "STARTUP"

	// ErrCodeExecution indicates a statement failed at the backend.
	ErrCodeExecution ErrorCode = "EXECUTION"
)

// Error is returned by every shell and session operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that failed, e.g. "SetProperty".
	Op string

	// Message is a human-readable description.
	Message string

	// Index is the zero-based position of the failed statement in its
	// script. Only meaningful for ErrCodeExecution.
	Index int

	// Statement is the failed statement (ErrCodeExecution only).
	Statement string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
	if e.Code == ErrCodeExecution {
		msg = fmt.Sprintf("%s (statement %d: %q)", msg, e.Index+1, e.Statement)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsIllegalState reports whether err is a lifecycle-phase violation.
func IsIllegalState(err error) bool { return hasCode(err, ErrCodeIllegalState) }

// IsInvalidArgument reports whether err is a rejected input.
func IsInvalidArgument(err error) bool { return hasCode(err, ErrCodeInvalidArgument) }

// IsResourceError reports whether err is a resource staging failure.
func IsResourceError(err error) bool { return hasCode(err, ErrCodeResource) }

// IsStartupError reports whether err is a backend launch failure.
func IsStartupError(err error) bool { return hasCode(err, ErrCodeStartup) }

// IsExecutionError reports whether err is a failed statement.
func IsExecutionError(err error) bool { return hasCode(err, ErrCodeExecution) }

func illegalState(op, message string) *Error {
	return &Error{Code: ErrCodeIllegalState, Op: op, Message: message}
}

func newError(code ErrorCode, op, message string, err error) *Error {
	return &Error{Code: code, Op: op, Message: message, Err: err}
}

func executionError(op string, index int, statement string, err error) *Error {
	return &Error{
		Code:      ErrCodeExecution,
		Op:        op,
		Message:   "statement failed",
		Index:     index,
		Statement: statement,
		Err:       err,
	}
}
