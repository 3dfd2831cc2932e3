package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/katalab/kata-runner/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordError(t *testing.T) {
	// just test that it doesn't panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("RecordError panic'd")
		}
	}()

	RecordError("test_error")
	RecordErrorDetails("test", nil)
	RecordErrorDetails("test", errors.New("sample error"))
}

func TestRecordTest(t *testing.T) {
	before := testutil.ToFloat64(testsTotal.WithLabelValues("Math", "passed"))
	RecordTest("Math", types.StatePassed, time.Millisecond)
	RecordTest("Math", types.StateUnrun, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(testsTotal.WithLabelValues("Math", "passed")))
}

func TestRecordHookAndRetry(t *testing.T) {
	RecordHook(types.KindBeforeEach, true)
	assert.Equal(t, float64(1), testutil.ToFloat64(hooksTotal.WithLabelValues("before each", "failed")))

	RecordRetry("flaky")
	RecordRetry("flaky")
	assert.Equal(t, float64(2), testutil.ToFloat64(retriesTotal.WithLabelValues("flaky")))

	RecordLeak("leakedVar")
	assert.Equal(t, float64(1), testutil.ToFloat64(leaksTotal.WithLabelValues("leakedVar")))
}

func TestRecordRun(t *testing.T) {
	RecordRun("two-fer", "run1", 3, 0, time.Second)
	RecordRun("two-fer", "run2", 3, 2, time.Second)
	assert.Equal(t, float64(1), testutil.ToFloat64(runResults.WithLabelValues("two-fer", "run2", "fail")))
	assert.Equal(t, float64(2), testutil.ToFloat64(runTestFailed.WithLabelValues("two-fer", "run2")))
}

func TestRecordSuiteResult(t *testing.T) {
	RecordSuiteResult("leap", 4, 1, 1)
	RecordSuiteResult("leap", 5, 0, 1)
	assert.Equal(t, float64(5), testutil.ToFloat64(suiteResults.WithLabelValues("leap", "passed")))
	assert.Equal(t, float64(0), testutil.ToFloat64(suiteResults.WithLabelValues("leap", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(suiteResults.WithLabelValues("leap", "pending")))
}
