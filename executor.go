package kata

import (
	"context"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/log"

	"github.com/katalab/kata-runner/logging"
	"github.com/katalab/kata-runner/registry"
	"github.com/katalab/kata-runner/reporting"
	"github.com/katalab/kata-runner/runner"
	"github.com/katalab/kata-runner/types"
)

// Executor performs one validation run
type Executor interface {
	Execute(ctx context.Context) (*reporting.Report, error)
}

// DefaultExecutor builds a fresh suite tree from the registry for every run
// and drives it through a runner with the configured reporters attached.
type DefaultExecutor struct {
	registry  *registry.Registry
	config    *Config
	out       io.Writer
	reporters []reporting.Reporter
	logger    log.Logger
}

// NewDefaultExecutor creates a new DefaultExecutor
func NewDefaultExecutor(reg *registry.Registry, cfg *Config, out io.Writer, reporters ...reporting.Reporter) *DefaultExecutor {
	return &DefaultExecutor{
		registry:  reg,
		config:    cfg,
		out:       out,
		reporters: reporters,
		logger:    cfg.Log,
	}
}

// Execute runs the selected exercises once. The report is returned whenever
// the run started, even when a fatal error ended it early.
func (e *DefaultExecutor) Execute(ctx context.Context) (*reporting.Report, error) {
	root, err := e.registry.Build(e.config.Exercises, e.config.Tracks)
	if err != nil {
		return nil, fmt.Errorf("failed to build suite tree: %w", err)
	}
	if e.config.Bail {
		setBail(root)
	}

	run := runner.New(root, runner.Options{
		DryRun:        e.config.DryRun,
		FailZero:      e.config.FailZero,
		Retries:       e.config.Retries,
		Timeout:       e.config.Timeout,
		CheckLeaks:    e.config.CheckLeaks,
		Globals:       e.config.Globals,
		AsyncOnly:     e.config.AsyncOnly,
		ForbidOnly:    e.config.ForbidOnly,
		ForbidPending: e.config.ForbidPending,
		FullTrace:     e.config.FullTrace,
		Exercise:      selectionLabel(e.config.Exercises, e.config.Tracks),
		Log:           e.logger,
	})
	if e.config.Grep != "" {
		run.GrepString(e.config.Grep, e.config.Invert)
	}

	collector := reporting.Stream(run.Events(), e.out, func(err error) {
		e.logger.Error("Failed to render results", "error", err)
	}, e.reporters...)

	if e.config.ShowProgress {
		reporting.NewProgress(e.logger, e.config.ProgressInterval).Attach(run.Events())
	}

	var fileLogger *logging.FileLogger
	if e.config.LogDir != "" {
		fileLogger, err = logging.NewFileLogger(e.config.LogDir, run.RunID())
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		fileLogger.Attach(run.Events())
	}

	e.logger.Info("Running exercises...", "run_id", run.RunID(), "selection", selectionLabel(e.config.Exercises, e.config.Tracks), "total", run.Total())
	failures, runErr := run.Run(ctx)

	select {
	case <-collector.Done():
	default:
		// the run never started
		return nil, runErr
	}

	if fileLogger != nil {
		if err := fileLogger.Wait(); err != nil {
			e.logger.Warn("Some run logs could not be written", "dir", fileLogger.GetDirectory(), "error", err)
		} else {
			e.logger.Info("Run logs written", "dir", fileLogger.GetDirectory())
		}
	}

	report := collector.Report()
	e.logger.Info("Run completed", "run_id", report.RunID, "failures", failures, "duration", report.Stats.Duration)
	return report, runErr
}

func setBail(s *types.Suite) {
	s.Bail = true
	for _, child := range s.Suites {
		setBail(child)
	}
}
