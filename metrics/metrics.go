package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/katalab/kata-runner/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "kata"
)

var (
	Debug                bool = true
	validResults              = []types.State{types.StatePassed, types.StateFailed, types.StatePending}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_total",
		Help:      "Count of settled test attempts",
	}, []string{
		"suite",
		"result",
	})

	testDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "test_duration_seconds",
		Help:      "Duration of test bodies",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{
		"result",
	})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "retries_total",
		Help:      "Count of retried test attempts",
	}, []string{
		"suite",
	})

	hooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "hooks_total",
		Help:      "Count of executed hooks",
	}, []string{
		"kind",
		"result",
	})

	leaksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "global_leaks_total",
		Help:      "Count of leaked ambient names",
	}, []string{
		"name",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of exercise runs",
	}, []string{
		"exercise",
		"run_id",
		"result",
	})

	runTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_total",
		Help:      "Total number of tests selected for a run",
	}, []string{
		"exercise",
		"run_id",
	})

	runTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_failed",
		Help:      "Number of failures reported by a run",
	}, []string{
		"exercise",
		"run_id",
	})

	suiteResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "suite_results",
		Help:      "Test counts per top-level suite of the last run",
	}, []string{
		"suite",
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration",
		Help:      "Duration of exercise runs",
	}, []string{
		"exercise",
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordTest counts one settled test attempt
func RecordTest(suite string, result types.State, duration time.Duration) {
	if !isValidResult(result) {
		log.Error("RecordTest - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tests_total",
			"suite", suite,
			"result", result)
	}
	testsTotal.WithLabelValues(suite, string(result)).Inc()
	testDuration.WithLabelValues(string(result)).Observe(duration.Seconds())
}

func RecordRetry(suite string) {
	retriesTotal.WithLabelValues(suite).Inc()
}

func RecordHook(kind types.Kind, failed bool) {
	result := "passed"
	if failed {
		result = "failed"
	}
	hooksTotal.WithLabelValues(string(kind), result).Inc()
}

func RecordLeak(name string) {
	if Debug {
		log.Debug("metric inc", "m", "global_leaks_total", "name", name)
	}
	leaksTotal.WithLabelValues(name).Inc()
}

// RecordRun publishes the outcome of one complete run
func RecordRun(
	exercise string,
	runID string,
	total int,
	failures int,
	duration time.Duration,
) {
	result := "pass"
	if failures > 0 {
		result = "fail"
	}
	runResults.WithLabelValues(exercise, runID, result).Set(1)
	runTestTotal.WithLabelValues(exercise, runID).Add(float64(total))
	runTestFailed.WithLabelValues(exercise, runID).Add(float64(failures))
	runDuration.WithLabelValues(exercise, runID).Set(duration.Seconds())
}

// RecordSuiteResult publishes the outcome counts of one top-level suite
func RecordSuiteResult(suite string, passed, failed, pending int) {
	suiteResults.WithLabelValues(suite, string(types.StatePassed)).Set(float64(passed))
	suiteResults.WithLabelValues(suite, string(types.StateFailed)).Set(float64(failed))
	suiteResults.WithLabelValues(suite, string(types.StatePending)).Set(float64(pending))
}

func isValidResult(result types.State) bool {
	return slices.Contains(validResults, result)
}
