package kata

import (
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/katalab/kata-runner/reporting"
)

// ResultFormatter is responsible for formatting and displaying run results
type ResultFormatter interface {
	// Reporters render the full report as soon as a run ends
	Reporters() []reporting.Reporter
	// FormatResults prints the closing summary of a run
	FormatResults(report *reporting.Report) error
}

// ConsoleResultFormatter implements the ResultFormatter interface
type ConsoleResultFormatter struct {
	logger   log.Logger
	out      io.Writer
	format   string
	reporter reporting.Reporter
}

// NewConsoleResultFormatter creates a formatter for the named reporter
func NewConsoleResultFormatter(logger log.Logger, out io.Writer, format string, slow time.Duration) (*ConsoleResultFormatter, error) {
	var reporter reporting.Reporter
	if format == reporting.FormatSpec {
		reporter = reporting.NewSpecReporter(slow)
	} else {
		var err error
		if reporter, err = reporting.New(format); err != nil {
			return nil, err
		}
	}
	return &ConsoleResultFormatter{
		logger:   logger,
		out:      out,
		format:   format,
		reporter: reporter,
	}, nil
}

// Reporters returns the reporter selected for the console
func (f *ConsoleResultFormatter) Reporters() []reporting.Reporter {
	return []reporting.Reporter{f.reporter}
}

// FormatResults logs the run summary. Human-readable formats also get the
// summary line on the console; JSON output is left untouched.
func (f *ConsoleResultFormatter) FormatResults(report *reporting.Report) error {
	f.logger.Info("Run summary",
		"run_id", report.RunID,
		"result", resultString(report),
		"passing", report.Stats.Passes,
		"pending", report.Stats.Pending,
		"failing", report.Stats.Failures,
		"retries", report.Stats.Retries,
		"duration", formatDuration(report.Stats.Duration))

	if f.format == reporting.FormatJSON {
		return nil
	}
	if _, err := fmt.Fprintln(f.out, summaryLine(report)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
