package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/katalab/kata-runner/types"
)

// JSONReport is the document written by the JSON reporter
type JSONReport struct {
	RunID    string     `json:"runId"`
	Stats    JSONStats  `json:"stats"`
	Tests    []JSONTest `json:"tests"`
	Passes   []JSONTest `json:"passes"`
	Pending  []JSONTest `json:"pending"`
	Failures []JSONTest `json:"failures"`
	Hooks    []JSONTest `json:"hookFailures,omitempty"`
}

// JSONStats mirrors Stats with wire-friendly names
type JSONStats struct {
	Suites   int       `json:"suites"`
	Tests    int       `json:"tests"`
	Passes   int       `json:"passes"`
	Pending  int       `json:"pending"`
	Failures int       `json:"failures"`
	Retries  int       `json:"retries"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	// Duration is in milliseconds
	Duration int64 `json:"duration"`
}

// JSONTest is one test or failed hook
type JSONTest struct {
	Title     string     `json:"title"`
	FullTitle string     `json:"fullTitle"`
	State     string     `json:"state,omitempty"`
	Duration  int64      `json:"duration"`
	Retries   int        `json:"currentRetry"`
	Err       *JSONError `json:"err,omitempty"`
}

// JSONError is a serialized failure reason
type JSONError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// JSONReporter writes the report as a single JSON document
type JSONReporter struct {
	indent bool
}

// NewJSONReporter creates a JSON reporter
func NewJSONReporter(indent bool) *JSONReporter {
	return &JSONReporter{indent: indent}
}

// Render implements Reporter
func (j *JSONReporter) Render(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	if j.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(BuildJSON(report)); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

// BuildJSON converts a report into its JSON document
func BuildJSON(report *Report) *JSONReport {
	st := report.Stats
	out := &JSONReport{
		RunID: report.RunID,
		Stats: JSONStats{
			Suites:   st.Suites,
			Tests:    st.Tests,
			Passes:   st.Passes,
			Pending:  st.Pending,
			Failures: st.Failures,
			Retries:  st.Retries,
			Start:    st.Start,
			End:      st.End,
			Duration: st.Duration.Milliseconds(),
		},
		Tests:    []JSONTest{},
		Passes:   []JSONTest{},
		Pending:  []JSONTest{},
		Failures: []JSONTest{},
	}

	if report.Root != nil {
		report.Root.Walk(func(n *SuiteNode, _ int) {
			for _, t := range n.Tests {
				jt := jsonTest(t)
				out.Tests = append(out.Tests, jt)
				switch t.State {
				case types.StatePassed:
					out.Passes = append(out.Passes, jt)
				case types.StatePending:
					out.Pending = append(out.Pending, jt)
				case types.StateFailed:
					out.Failures = append(out.Failures, jt)
				}
			}
		})
	}
	for _, f := range report.Failures {
		if f.Hook {
			out.Hooks = append(out.Hooks, JSONTest{
				Title:     f.Title,
				FullTitle: f.Title,
				State:     stateString(types.StateFailed),
				Err:       jsonError(f.Err, f.Stack),
			})
		}
	}
	return out
}

func jsonTest(t *TestRecord) JSONTest {
	return JSONTest{
		Title:     t.Title,
		FullTitle: t.FullTitle,
		State:     stateString(t.State),
		Duration:  t.Duration.Milliseconds(),
		Retries:   t.Retries,
		Err:       jsonError(t.Err, t.Stack),
	}
}

func jsonError(err error, stack string) *JSONError {
	if err == nil {
		return nil
	}
	return &JSONError{
		Message: stripansi.Strip(err.Error()),
		Code:    types.ErrorCode(err),
		Stack:   stripansi.Strip(stack),
	}
}
