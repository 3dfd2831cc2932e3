package kata

import (
	"github.com/katalab/kata-runner/metrics"
	"github.com/katalab/kata-runner/reporting"
)

// MetricsReporter is responsible for reporting metrics from run results
type MetricsReporter interface {
	ReportResults(report *reporting.Report)
}

// DefaultMetricsReporter implements the MetricsReporter interface
type DefaultMetricsReporter struct{}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter
func NewDefaultMetricsReporter() *DefaultMetricsReporter {
	return &DefaultMetricsReporter{}
}

// ReportResults publishes per-suite outcome counts for the top level of the
// tree. Run-wide totals are recorded by the runner itself.
func (r *DefaultMetricsReporter) ReportResults(report *reporting.Report) {
	if report == nil || report.Root == nil {
		return
	}
	for _, suite := range report.Root.Suites {
		passed, failed, pending := suite.Counts()
		metrics.RecordSuiteResult(suite.Title, passed, failed, pending)
	}
}
