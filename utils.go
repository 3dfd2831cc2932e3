package kata

import (
	"fmt"
	"strings"
	"time"

	"github.com/katalab/kata-runner/reporting"
)

// resultString returns a symbol-prefixed outcome for a finished run
func resultString(report *reporting.Report) string {
	switch {
	case !report.Passed():
		return "✗ fail"
	case report.Stats.Tests > 0 && report.Stats.Passes == 0:
		return "- pending"
	default:
		return "✓ pass"
	}
}

// summaryLine condenses a report into a single line
func summaryLine(report *reporting.Report) string {
	s := report.Stats
	return fmt.Sprintf("%s: %d passing, %d pending, %d failing (%s, run %s)",
		strings.ToUpper(resultString(report)), s.Passes, s.Pending, s.Failures, formatDuration(s.Duration), report.RunID)
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// selectionLabel names what a run validates, for logs and metrics
func selectionLabel(exercises, tracks []string) string {
	var parts []string
	for _, t := range tracks {
		parts = append(parts, "track:"+t)
	}
	parts = append(parts, exercises...)
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, ",")
}
