package reporting

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/katalab/kata-runner/types"
	"github.com/katalab/kata-runner/ui"
)

// DefaultSlow is the duration above which a passing test shows its timing
const DefaultSlow = 75 * time.Millisecond

// SpecReporter renders the run as a tree of suites and tests followed by a
// numbered list of failures.
type SpecReporter struct {
	slow time.Duration
}

// NewSpecReporter creates a tree reporter. Passing tests slower than half of
// slow get their duration printed.
func NewSpecReporter(slow time.Duration) *SpecReporter {
	return &SpecReporter{slow: slow}
}

// treeItem is one line of the rendered tree
type treeItem struct {
	suite *SuiteNode
	test  *TestRecord
	hook  *Failure
}

// Render implements Reporter
func (s *SpecReporter) Render(w io.Writer, report *Report) error {
	bw := bufio.NewWriter(w)
	failureIndex := make(map[*Failure]int, len(report.Failures))
	for i, f := range report.Failures {
		failureIndex[f] = i + 1
	}

	if root := report.Root; root != nil {
		if root.Title != "" {
			fmt.Fprintln(bw, root.Title)
		}
		s.writeChildren(bw, root, report, failureIndex, 1, nil)
	}
	s.writeEpilogue(bw, report)
	return bw.Flush()
}

func (s *SpecReporter) writeChildren(w io.Writer, n *SuiteNode, report *Report, failures map[*Failure]int, depth int, parentIsLast []bool) {
	items := children(n)
	for i, item := range items {
		isLast := i == len(items)-1
		prefix := ui.BuildTreePrefix(depth, isLast, parentIsLast)
		detail := ui.BuildDetailPrefix(depth, isLast, parentIsLast)

		switch {
		case item.suite != nil:
			fmt.Fprintf(w, "%s%s\n", prefix, item.suite.Title)
			s.writeChildren(w, item.suite, report, failures, depth+1, append(append([]bool(nil), parentIsLast...), isLast))
		case item.hook != nil:
			fmt.Fprintf(w, "%s%d) %s\n", prefix, failures[item.hook], item.hook.Title)
		default:
			fmt.Fprintf(w, "%s%s\n", prefix, s.testLine(item.test, report, failures))
			if item.test.State == types.StateFailed && item.test.Err != nil {
				fmt.Fprintf(w, "%s%s\n", detail, firstLine(item.test.Err))
			}
		}
	}
}

func (s *SpecReporter) testLine(t *TestRecord, report *Report, failures map[*Failure]int) string {
	var line string
	switch t.State {
	case types.StatePassed:
		line = fmt.Sprintf("%s %s", ui.MarkPass, t.Title)
		if s.slow > 0 && t.Duration > s.slow/2 {
			line += fmt.Sprintf(" (%s)", formatDuration(t.Duration))
		}
	case types.StateFailed:
		line = fmt.Sprintf("%s %s", ui.MarkFail, t.Title)
		if n := failureNumber(t, report, failures); n > 0 {
			line = fmt.Sprintf("%d) %s", n, t.Title)
		}
	case types.StatePending:
		line = fmt.Sprintf("%s %s", ui.MarkPending, t.Title)
	default:
		line = fmt.Sprintf("  %s", t.Title)
	}
	if t.Retries > 0 {
		line += fmt.Sprintf(" %s%d", ui.MarkRetry, t.Retries)
	}
	return line
}

// failureNumber finds the number of the last failure recorded for t
func failureNumber(t *TestRecord, report *Report, failures map[*Failure]int) int {
	for i := len(report.Failures) - 1; i >= 0; i-- {
		f := report.Failures[i]
		if !f.Hook && f.Title == t.FullTitle {
			return failures[f]
		}
	}
	return 0
}

func (s *SpecReporter) writeEpilogue(w io.Writer, report *Report) {
	st := report.Stats
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %d passing (%s)\n", st.Passes, formatDuration(st.Duration))
	if st.Pending > 0 {
		fmt.Fprintf(w, "  %d pending\n", st.Pending)
	}
	if st.Failures > 0 {
		fmt.Fprintf(w, "  %d failing\n", st.Failures)
	}
	if len(report.Failures) == 0 {
		fmt.Fprintln(w)
		return
	}

	for i, f := range report.Failures {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %d) %s:\n", i+1, f.Title)
		if f.Err != nil {
			for _, line := range strings.Split(f.Err.Error(), "\n") {
				fmt.Fprintf(w, "     %s\n", line)
			}
		}
		if f.Stack != "" {
			for _, line := range strings.Split(strings.TrimRight(f.Stack, "\n"), "\n") {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}
	fmt.Fprintln(w)
}

// children orders a suite's lines: failed hooks, tests, then child suites
func children(n *SuiteNode) []treeItem {
	items := make([]treeItem, 0, len(n.Hooks)+len(n.Tests)+len(n.Suites))
	for _, h := range n.Hooks {
		items = append(items, treeItem{hook: h})
	}
	for _, t := range n.Tests {
		items = append(items, treeItem{test: t})
	}
	for _, child := range n.Suites {
		items = append(items, treeItem{suite: child})
	}
	return items
}
