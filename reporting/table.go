package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/katalab/kata-runner/types"
	"github.com/katalab/kata-runner/ui"
)

// TableReporter renders the run as a go-pretty table with one row per suite,
// test and failed hook.
type TableReporter struct {
	title string
}

// NewTableReporter creates a table reporter with the given title
func NewTableReporter(title string) *TableReporter {
	return &TableReporter{title: title}
}

// Render implements Reporter
func (tr *TableReporter) Render(w io.Writer, report *Report) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s (%s)", tr.title, formatDuration(report.Stats.Duration)))

	t.AppendHeader(table.Row{"TYPE", "ID", "DURATION", "TESTS", "PASSED", "FAILED", "PENDING", "STATUS", "ERROR"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "TYPE", AutoMerge: true},
		{Name: "ID", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "DURATION", Align: text.AlignRight},
		{Name: "TESTS", Align: text.AlignRight},
		{Name: "PASSED", Align: text.AlignRight},
		{Name: "FAILED", Align: text.AlignRight},
		{Name: "PENDING", Align: text.AlignRight},
		{Name: "ERROR", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	if report.Root != nil {
		tr.appendChildren(t, report.Root, 0, nil)
	}

	switch {
	case !report.Passed():
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case report.Stats.Passes == 0 && report.Stats.Pending > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	st := report.Stats
	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(st.Duration),
		st.Tests,
		st.Passes,
		st.Failures,
		st.Pending,
		overallStatus(report),
		"",
	})

	t.Render()
	return nil
}

func (tr *TableReporter) appendChildren(t table.Writer, n *SuiteNode, depth int, parentIsLast []bool) {
	items := children(n)
	for i, item := range items {
		isLast := i == len(items)-1
		prefix := ui.BuildTreePrefix(depth, isLast, parentIsLast)

		switch {
		case item.suite != nil:
			s := item.suite
			passed, failed, pending := s.Counts()
			t.AppendRow(table.Row{
				"Suite",
				prefix + s.Title,
				formatDuration(s.Duration),
				passed + failed + pending,
				passed,
				failed,
				pending,
				strings.ToUpper(suiteStatus(failed+len(s.Hooks), passed)),
				"",
			})
			tr.appendChildren(t, s, depth+1, append(append([]bool(nil), parentIsLast...), isLast))
		case item.hook != nil:
			t.AppendRow(table.Row{
				"Hook",
				prefix + item.hook.Title,
				"",
				"-",
				"-",
				"-",
				"-",
				strings.ToUpper(stateString(types.StateFailed)),
				firstLine(item.hook.Err),
			})
		default:
			rec := item.test
			t.AppendRow(table.Row{
				"Test",
				prefix + rec.Title,
				formatDuration(rec.Duration),
				1,
				boolToInt(rec.State == types.StatePassed),
				boolToInt(rec.State == types.StateFailed),
				boolToInt(rec.State == types.StatePending),
				strings.ToUpper(stateString(rec.State)),
				firstLine(rec.Err),
			})
		}
	}
}

func suiteStatus(failed, passed int) string {
	switch {
	case failed > 0:
		return "fail"
	case passed > 0:
		return "pass"
	default:
		return "pending"
	}
}

func overallStatus(report *Report) string {
	if !report.Passed() {
		return "FAIL"
	}
	if report.Stats.Passes == 0 && report.Stats.Pending > 0 {
		return "PENDING"
	}
	return "PASS"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
