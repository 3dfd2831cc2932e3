package types

import (
	"runtime/debug"
)

// ResultKind tags the normalized completion of a runnable
type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultError
	ResultSkip
	ResultFault
)

// String implements the Stringer interface for ResultKind
func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultError:
		return "error"
	case ResultSkip:
		return "skip"
	case ResultFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Result is the single completion signal every body calling convention is
// normalized into before the scheduler branches on it.
type Result struct {
	Kind ResultKind
	Err  error
}

// Classify tags a completion error
func Classify(err error) Result {
	switch {
	case err == nil:
		return Result{Kind: ResultOK}
	case IsPending(err):
		return Result{Kind: ResultSkip, Err: err}
	case IsFatal(err):
		return Result{Kind: ResultFault, Err: err}
	default:
		return Result{Kind: ResultError, Err: err}
	}
}

// StackTracer is implemented by errors that carry the stack of the goroutine
// that raised them.
type StackTracer interface {
	StackTrace() string
}

// PanicError is an error value recovered from a panicking body
type PanicError struct {
	Err   error
	Stack string
}

func (e *PanicError) Error() string {
	return e.Err.Error()
}

// Unwrap implements the errors.Unwrap interface
func (e *PanicError) Unwrap() error {
	return e.Err
}

// StackTrace implements StackTracer
func (e *PanicError) StackTrace() string {
	return e.Stack
}

// FromPanic converts a recovered panic value into an error. Skip signals are
// returned as-is so they classify as skips.
func FromPanic(v any) error {
	if p, ok := v.(*Pending); ok {
		return p
	}
	stack := string(debug.Stack())
	if err, ok := v.(error); ok {
		return &PanicError{Err: err, Stack: stack}
	}
	return &PanicError{Err: NewInvalidExceptionError(v), Stack: stack}
}
