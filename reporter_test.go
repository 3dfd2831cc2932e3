package kata

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalab/kata-runner/reporting"
)

func gaugeValue(t *testing.T, suite, result string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "kata_suite_results" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["suite"] == suite && labels["result"] == result {
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("no suite_results sample for %s/%s", suite, result)
	return 0
}

func TestDefaultMetricsReporter_ReportResults(t *testing.T) {
	reporter := NewDefaultMetricsReporter()
	reporter.ReportResults(createSampleReport())

	assert.Equal(t, float64(1), gaugeValue(t, "leap", "passed"))
	assert.Equal(t, float64(1), gaugeValue(t, "leap", "failed"))
	assert.Equal(t, float64(1), gaugeValue(t, "leap", "pending"))
}

func TestDefaultMetricsReporter_IgnoresEmptyReport(t *testing.T) {
	reporter := NewDefaultMetricsReporter()
	assert.NotPanics(t, func() {
		reporter.ReportResults(nil)
		reporter.ReportResults(&reporting.Report{})
	})
}
