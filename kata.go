package kata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/katalab/kata-runner/exercises"
	"github.com/katalab/kata-runner/exitcodes"
	"github.com/katalab/kata-runner/registry"
	"github.com/katalab/kata-runner/reporting"
	"github.com/katalab/kata-runner/service"
)

// kata implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &kata{}

// kata validates exercises, once or periodically.
type kata struct {
	config    *Config
	version   string
	registry  *registry.Registry
	executor  Executor
	formatter ResultFormatter
	metrics   MetricsReporter
	scheduler RunScheduler
	service   *service.Service

	mu     sync.Mutex
	report *reporting.Report

	serving          atomic.Bool
	shutdownCallback func(error) // Callback to signal application shutdown
}

// New wires the registry, executor and scheduler for config. Console output
// goes to stdout.
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*kata, error) {
	return newWithOutput(config, version, os.Stdout, shutdownCallback)
}

func newWithOutput(config *Config, version string, out io.Writer, shutdownCallback func(error)) (*kata, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating kata runner with config",
		"exercises", config.Exercises,
		"tracks", config.Tracks,
		"tracksFile", config.TracksFile,
		"reporter", config.Reporter,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	reg, err := registry.NewRegistry(registry.Config{
		Log:        config.Log,
		TracksFile: config.TracksFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	if err := exercises.Register(reg); err != nil {
		return nil, err
	}
	if err := validateSelection(reg, config); err != nil {
		return nil, err
	}

	formatter, err := NewConsoleResultFormatter(config.Log, out, config.Reporter, config.Slow)
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}
	executor := NewDefaultExecutor(reg, config, out, formatter.Reporters()...)
	scheduler := NewDefaultRunScheduler(config.RunInterval, config.RunOnce, config.Log)

	k := newKata(config, version, executor, formatter, scheduler, shutdownCallback)
	k.registry = reg
	config.Log.Info("kata.New: created registry and executor", "exercises", len(reg.GetExercises()), "tracks", len(reg.GetTracks()))
	return k, nil
}

func newKata(config *Config, version string, executor Executor, formatter ResultFormatter, scheduler RunScheduler, shutdownCallback func(error)) *kata {
	k := &kata{
		config:           config,
		version:          version,
		executor:         executor,
		formatter:        formatter,
		metrics:          NewDefaultMetricsReporter(),
		scheduler:        scheduler,
		service:          service.New(config.Service, config.Log),
		shutdownCallback: shutdownCallback,
	}
	scheduler.RegisterCallback(k.runValidation)
	return k
}

// validateSelection fails early on unknown exercise or track names
func validateSelection(reg *registry.Registry, config *Config) error {
	for _, id := range config.Exercises {
		if _, ok := reg.GetExercise(id); !ok {
			return fmt.Errorf("unknown exercise %s", id)
		}
	}
	for _, id := range config.Tracks {
		if _, err := reg.GetExercisesByTrack(id); err != nil {
			return err
		}
	}
	return nil
}

// Start runs the first validation immediately. In run-once mode the
// application is shut down afterwards; otherwise runs repeat at the
// configured interval.
// Start implements the cliapp.Lifecycle interface.
func (k *kata) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			k.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	if k.config.RunOnce {
		k.config.Log.Info("Starting kata-runner in run-once mode", "version", k.version)
	} else {
		k.config.Log.Info("Starting kata-runner in continuous mode", "version", k.version, "interval", k.config.RunInterval)
	}

	if !k.config.RunOnce || k.config.MetricsEnabled {
		k.service.Start(ctx)
		k.serving.Store(true)
	}

	if err := k.scheduler.Start(ctx); err != nil {
		if IsTestFailureError(err) {
			k.config.Log.Warn("Run-once validation completed with failures, returning exit code 1")
			return err
		}
		k.config.Log.Error("Runtime error running exercises", "error", err)
		return err
	}

	if k.config.RunOnce {
		k.config.Log.Info("Validation completed, exiting (run-once mode)")
		go func() {
			k.shutdownCallback(nil)
		}()
		return nil
	}

	k.config.Log.Debug("kata-runner started successfully")
	return nil
}

// runValidation performs one run and processes its report
func (k *kata) runValidation(ctx context.Context) error {
	report, err := k.executor.Execute(ctx)
	if report != nil {
		k.mu.Lock()
		k.report = report
		k.mu.Unlock()

		k.metrics.ReportResults(report)
		if ferr := k.formatter.FormatResults(report); ferr != nil {
			k.config.Log.Error("Failed to format results", "error", ferr)
		}
	}
	if err != nil {
		if report != nil {
			return NewRunError(report.RunID, err)
		}
		return NewRuntimeError(err)
	}

	if !report.Passed() {
		if k.config.RunOnce {
			return NewTestFailureError(report.RunID, report.Stats.Failures, report.Stats.Tests)
		}
		k.config.Log.Warn("Validation run failed", "run_id", report.RunID, "failures", report.Stats.Failures)
	}
	return nil
}

// LastReport returns the report of the most recent run, or nil
func (k *kata) LastReport() *reporting.Report {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.report
}

// Stop stops the kata-runner service.
// Stop implements the cliapp.Lifecycle interface.
func (k *kata) Stop(ctx context.Context) error {
	k.config.Log.Info("Stopping kata-runner")

	if err := k.scheduler.Stop(); err != nil {
		return err
	}
	if k.serving.Swap(false) {
		k.service.Shutdown()
	}

	k.config.Log.Info("kata-runner stopped successfully")
	return nil
}

// Stopped returns true if the kata-runner service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (k *kata) Stopped() bool {
	return k.scheduler.Stopped()
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (k *kata) WaitForShutdown(ctx context.Context) error {
	return k.scheduler.WaitForShutdown(ctx)
}
