package kata

import (
	"bytes"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalab/kata-runner/reporting"
	"github.com/katalab/kata-runner/types"
)

// createSampleReport builds a report with one suite of three tests
func createSampleReport() *reporting.Report {
	suite := &reporting.SuiteNode{
		Title: "leap",
		Tests: []*reporting.TestRecord{
			{Title: "divisible by 4", FullTitle: "leap divisible by 4", State: types.StatePassed, Duration: 5 * time.Millisecond},
			{Title: "divisible by 100", FullTitle: "leap divisible by 100", State: types.StateFailed, Err: errBoom},
			{Title: "later", FullTitle: "leap later", State: types.StatePending},
		},
	}
	root := &reporting.SuiteNode{Suites: []*reporting.SuiteNode{suite}}
	suite.Parent = root
	return &reporting.Report{
		RunID: "run-1",
		Root:  root,
		Stats: reporting.Stats{
			Suites: 1, Tests: 3, Passes: 1, Failed: 1, Pending: 1, Failures: 1,
			Duration: 1500 * time.Millisecond,
		},
		Failures: []*reporting.Failure{{Title: "leap divisible by 100", Err: errBoom}},
	}
}

func TestConsoleResultFormatter_FormatResults(t *testing.T) {
	var out, logs bytes.Buffer
	logger := log.NewLogger(log.NewTerminalHandler(&logs, false))

	formatter, err := NewConsoleResultFormatter(logger, &out, reporting.FormatSpec, reporting.DefaultSlow)
	require.NoError(t, err)
	require.Len(t, formatter.Reporters(), 1)

	require.NoError(t, formatter.FormatResults(createSampleReport()))
	assert.Equal(t, "✗ FAIL: 1 passing, 1 pending, 1 failing (1.5s, run run-1)\n", out.String())
	assert.Contains(t, logs.String(), "Run summary")
	assert.Contains(t, logs.String(), "run_id=run-1")
}

func TestConsoleResultFormatter_JSONLeavesOutputAlone(t *testing.T) {
	var out bytes.Buffer
	formatter, err := NewConsoleResultFormatter(testLogger(), &out, reporting.FormatJSON, 0)
	require.NoError(t, err)

	require.NoError(t, formatter.FormatResults(createSampleReport()))
	assert.Empty(t, out.String())
}

func TestNewConsoleResultFormatter_UnknownFormat(t *testing.T) {
	_, err := NewConsoleResultFormatter(testLogger(), &bytes.Buffer{}, "xml", 0)
	assert.ErrorContains(t, err, "unknown reporter")
}

func TestResultString(t *testing.T) {
	report := createSampleReport()
	assert.Equal(t, "✗ fail", resultString(report))

	report.Stats.Failures = 0
	assert.Equal(t, "✓ pass", resultString(report))

	report.Stats.Passes = 0
	assert.Equal(t, "- pending", resultString(report))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0.0s", formatDuration(0))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "62.0s", formatDuration(62*time.Second))
}

func TestSelectionLabel(t *testing.T) {
	assert.Equal(t, "all", selectionLabel(nil, nil))
	assert.Equal(t, "leap", selectionLabel([]string{"leap"}, nil))
	assert.Equal(t, "track:basics,clock", selectionLabel([]string{"clock"}, []string{"basics"}))
}
