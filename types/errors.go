package types

import (
	"errors"
	"fmt"
	"time"
)

// Error codes attached to the engine's internal errors
const (
	CodeInvalidException = "ERR_KATA_INVALID_EXCEPTION"
	CodeUnsupported      = "ERR_KATA_UNSUPPORTED"
	CodeFatal            = "ERR_KATA_FATAL"
	CodeMultipleDone     = "ERR_KATA_MULTIPLE_DONE"
	CodeTimeout          = "ERR_KATA_TIMEOUT"
)

// InvalidExceptionError wraps a value that was raised but is not an error
type InvalidExceptionError struct {
	Message string
	Value   any
}

func (e *InvalidExceptionError) Error() string {
	return e.Message
}

// NewInvalidExceptionError coerces a non-error panic value into an error
func NewInvalidExceptionError(v any) *InvalidExceptionError {
	if v == nil {
		return &InvalidExceptionError{
			Message: "caught nil exception which would otherwise be uncaught; no stack trace found",
		}
	}
	return &InvalidExceptionError{
		Message: fmt.Sprintf("the %T value %v was thrown, throw an error instead", v, v),
		Value:   v,
	}
}

// UnsupportedError represents an operation that is not allowed in the current context
type UnsupportedError struct {
	Message string
}

func (e *UnsupportedError) Error() string {
	return e.Message
}

// NewUnsupportedError creates a new UnsupportedError
func NewUnsupportedError(msg string) *UnsupportedError {
	return &UnsupportedError{Message: msg}
}

// FatalError signals an internal-consistency violation that must terminate the run
type FatalError struct {
	Message string
	Cause   error
}

func (e *FatalError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

// Unwrap implements the errors.Unwrap interface
func (e *FatalError) Unwrap() error {
	return e.Cause
}

// NewFatalError creates a new FatalError
func NewFatalError(msg string, cause error) *FatalError {
	return &FatalError{Message: msg, Cause: cause}
}

// MultipleDoneError is reported when a runnable signals completion more than once
type MultipleDoneError struct {
	Title string
	Cause error
}

func (e *MultipleDoneError) Error() string {
	msg := fmt.Sprintf("done() called multiple times in %q", e.Title)
	if e.Cause != nil {
		msg += fmt.Sprintf("; in addition, done() received error: %v", e.Cause)
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface
func (e *MultipleDoneError) Unwrap() error {
	return e.Cause
}

// NewMultipleDoneError creates a new MultipleDoneError for the given runnable
func NewMultipleDoneError(r *Runnable, cause error) *MultipleDoneError {
	title := "<unknown>"
	if r != nil {
		title = r.FullTitle()
	}
	return &MultipleDoneError{Title: title, Cause: cause}
}

// TimeoutError is the completion error of a runnable whose timeout expired
type TimeoutError struct {
	Title   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout of %s exceeded in %q; for async tests and hooks, ensure done is called or the returned channel yields",
		e.Timeout, e.Title)
}

// Pending is the conditional-skip signal. It is never a failure by itself.
type Pending struct {
	Message string
}

func (p *Pending) Error() string {
	if p.Message == "" {
		return "skipped"
	}
	return p.Message
}

// Skip returns the conditional-skip signal for bodies that report completion
// through Done or a channel instead of calling Context.Skip.
func Skip(msg string) error {
	return &Pending{Message: msg}
}

// ErrorCode returns the engine error code of err, or "" for ordinary errors
func ErrorCode(err error) string {
	var (
		invalid     *InvalidExceptionError
		unsupported *UnsupportedError
		fatal       *FatalError
		multiple    *MultipleDoneError
		timeout     *TimeoutError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &multiple):
		return CodeMultipleDone
	case errors.As(err, &fatal):
		return CodeFatal
	case errors.As(err, &unsupported):
		return CodeUnsupported
	case errors.As(err, &invalid):
		return CodeInvalidException
	case errors.As(err, &timeout):
		return CodeTimeout
	}
	return ""
}

// IsInternal checks if the error is or wraps one of the engine's internal errors
func IsInternal(err error) bool {
	switch ErrorCode(err) {
	case CodeInvalidException, CodeUnsupported, CodeFatal, CodeMultipleDone:
		return true
	}
	return false
}

// IsFatal checks if the error must halt the whole run rather than be recorded
// as an ordinary failure.
func IsFatal(err error) bool {
	switch ErrorCode(err) {
	case CodeUnsupported, CodeFatal, CodeMultipleDone:
		return true
	}
	return false
}

// IsPending checks if the error is or wraps the conditional-skip signal
func IsPending(err error) bool {
	var p *Pending
	return err != nil && errors.As(err, &p)
}
