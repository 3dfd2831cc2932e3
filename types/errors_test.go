package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassifier(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     string
		internal bool
		fatal    bool
		kind     ResultKind
	}{
		{"nil", nil, "", false, false, ResultOK},
		{"ordinary", errors.New("assertion failed"), "", false, false, ResultError},
		{"invalid exception", NewInvalidExceptionError(42), CodeInvalidException, true, false, ResultError},
		{"unsupported", NewUnsupportedError("skip forbidden"), CodeUnsupported, true, true, ResultFault},
		{"fatal", NewFatalError("boom", nil), CodeFatal, true, true, ResultFault},
		{"multiple done", NewMultipleDoneError(nil, nil), CodeMultipleDone, true, true, ResultFault},
		{"wrapped fatal", fmt.Errorf("context: %w", NewFatalError("boom", nil)), CodeFatal, true, true, ResultFault},
		{"timeout", &TimeoutError{Title: "t"}, CodeTimeout, false, false, ResultError},
		{"pending", Skip("later"), "", false, false, ResultSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorCode(tt.err))
			assert.Equal(t, tt.internal, IsInternal(tt.err))
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
			assert.Equal(t, tt.kind, Classify(tt.err).Kind)
		})
	}
}

func TestFatalErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewFatalError("test failed after root suite execution completed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "test failed after root suite execution completed: root cause", err.Error())
}

func TestNewInvalidExceptionError(t *testing.T) {
	assert.Contains(t, NewInvalidExceptionError(nil).Error(), "nil exception")
	assert.Contains(t, NewInvalidExceptionError("oops").Error(), "string value oops")
}

func TestFromPanicKeepsSkipSignal(t *testing.T) {
	p := &Pending{Message: "skip"}
	assert.Same(t, p, FromPanic(p))
}
