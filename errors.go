package kata

import (
	"errors"
	"fmt"
)

// RuntimeError means kata-runner could not produce a trustworthy verdict for
// the submission: the host was misconfigured, a selection did not resolve, or
// the engine halted on a fatal fault. It maps to exit code 2. RunID is set
// when the fault happened inside a run.
type RuntimeError struct {
	RunID string
	Err   error
}

func (e *RuntimeError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("runtime error in run %s: %v", e.RunID, e.Err)
	}
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError wraps a host or engine fault that happened outside a run
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// NewRunError wraps a fault that halted the run identified by runID
func NewRunError(runID string, err error) *RuntimeError {
	return &RuntimeError{RunID: runID, Err: err}
}

// IsRuntimeError reports whether err stands for an unusable verdict
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError reports a run that completed with failing tests (exit code 1)
type TestFailureError struct {
	RunID    string
	Failures int
	Total    int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %d failing of %d tests (run %s)", e.Failures, e.Total, e.RunID)
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(runID string, failures, total int) *TestFailureError {
	return &TestFailureError{RunID: runID, Failures: failures, Total: total}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
