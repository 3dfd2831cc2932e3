package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/katalab/kata-runner/reporting"
	"github.com/katalab/kata-runner/types"
)

// AllLogsFileSink writes every test attempt to a single "all.log" file
type AllLogsFileSink struct {
	logger *FileLogger
}

// Consume appends a boxed entry for the attempt to all.log
func (s *AllLogsFileSink) Consume(result *TestResult, runID string) error {
	writer, err := s.logger.getAsyncWriter(s.logger.GetAllLogsFile())
	if err != nil {
		return err
	}

	var content strings.Builder
	fmt.Fprintf(&content, "\n")
	fmt.Fprintf(&content, "┌─────────────────────────────────────────────────────────────────────┐\n")
	fmt.Fprintf(&content, "│ TEST: %-61s │\n", truncateString(result.FullTitle, 61))
	fmt.Fprintf(&content, "├─────────────────────────────────────────────────────────────────────┤\n")
	fmt.Fprintf(&content, "│ State:    %-57s │\n", stateLabel(result))
	fmt.Fprintf(&content, "│ Suite:    %-57s │\n", truncateString(result.Suite, 57))
	fmt.Fprintf(&content, "│ Attempt:  %-57d │\n", result.Attempt+1)
	fmt.Fprintf(&content, "│ Duration: %-57s │\n", formatDuration(result.Duration))
	fmt.Fprintf(&content, "│ Run:      %-57s │\n", truncateString(runID, 57))
	fmt.Fprintf(&content, "└─────────────────────────────────────────────────────────────────────┘\n\n")

	writeErrorSections(&content, result)
	fmt.Fprintf(&content, "\n")
	return writer.Write([]byte(content.String()))
}

// Complete is a no-op for AllLogsFileSink
func (s *AllLogsFileSink) Complete(*reporting.Report) error {
	return nil
}

// PerTestFileSink creates a dedicated log file for each attempt in the
// passed or failed directory
type PerTestFileSink struct {
	logger    *FileLogger
	mu        sync.Mutex
	processed map[string]bool
}

// Consume writes one attempt to its own file. Only failed attempts go to failed/.
func (s *PerTestFileSink) Consume(result *TestResult, runID string) error {
	dir := s.logger.GetPassedDir()
	if result.State == types.StateFailed {
		dir = s.logger.GetFailedDir()
	}
	path := filepath.Join(dir, testFilename(result)+".log")

	s.mu.Lock()
	if s.processed[path] {
		s.mu.Unlock()
		return nil
	}
	s.processed[path] = true
	s.mu.Unlock()

	var content strings.Builder
	if result.State == types.StateFailed {
		fmt.Fprintf(&content, "%s\n", strings.Repeat("=", 80))
		if result.TimedOut {
			fmt.Fprintf(&content, "TIMEOUT: %s\n", result.FullTitle)
		} else {
			fmt.Fprintf(&content, "FAILED: %s\n", result.FullTitle)
		}
		fmt.Fprintf(&content, "%s\n\n", strings.Repeat("=", 80))
	}
	fmt.Fprintf(&content, "Test:      %s\n", result.FullTitle)
	fmt.Fprintf(&content, "Suite:     %s\n", result.Suite)
	fmt.Fprintf(&content, "State:     %s\n", stateLabel(result))
	fmt.Fprintf(&content, "Attempt:   %d\n", result.Attempt+1)
	fmt.Fprintf(&content, "Duration:  %s\n", formatDuration(result.Duration))
	fmt.Fprintf(&content, "Run:       %s\n\n", runID)
	writeErrorSections(&content, result)

	if err := os.WriteFile(path, []byte(content.String()), 0644); err != nil {
		return fmt.Errorf("failed to write test log %s: %w", path, err)
	}
	return nil
}

// Complete is a no-op for PerTestFileSink
func (s *PerTestFileSink) Complete(*reporting.Report) error {
	return nil
}

// SummarySink renders the tree summary into summary.log once the run ends
type SummarySink struct {
	logger *FileLogger
}

// Consume is a no-op; the summary is built from the final report
func (s *SummarySink) Consume(*TestResult, string) error {
	return nil
}

// Complete writes summary.log
func (s *SummarySink) Complete(report *reporting.Report) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Run ID: %s\n", report.RunID)
	fmt.Fprintf(&buf, "Started: %s\n", report.Stats.Start.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Duration: %s\n\n", formatDuration(report.Stats.Duration))
	if err := reporting.NewSpecReporter(reporting.DefaultSlow).Render(&buf, report); err != nil {
		return fmt.Errorf("failed to format summary: %w", err)
	}
	if err := os.WriteFile(s.logger.GetSummaryFile(), []byte(stripansi.Strip(buf.String())), 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

// ResultsJSONSink writes the JSON results document once the run ends
type ResultsJSONSink struct {
	logger *FileLogger
}

// Consume is a no-op; the document is built from the final report
func (s *ResultsJSONSink) Consume(*TestResult, string) error {
	return nil
}

// Complete writes results.json
func (s *ResultsJSONSink) Complete(report *reporting.Report) error {
	var buf bytes.Buffer
	if err := reporting.NewJSONReporter(true).Render(&buf, report); err != nil {
		return err
	}
	if err := os.WriteFile(s.logger.GetResultsFile(), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

func writeErrorSections(content *strings.Builder, result *TestResult) {
	if result.Err != nil {
		fmt.Fprintf(content, "ERROR:\n")
		fmt.Fprintf(content, "~~~~~~\n")
		fmt.Fprintf(content, "%s\n\n", stripansi.Strip(result.Err.Error()))
	}
	if result.Stack != "" {
		fmt.Fprintf(content, "STACK:\n")
		fmt.Fprintf(content, "~~~~~~\n")
		fmt.Fprintf(content, "%s\n", indentText(stripansi.Strip(result.Stack), "  "))
	}
}

func stateLabel(result *TestResult) string {
	label := result.State.String()
	if result.Retried {
		label += " (retried)"
	}
	return label
}

// indentText adds indentation to each non-empty line
func indentText(text, indent string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

// truncateString truncates a string to maxLen, adding an ellipsis if needed
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
