package kata

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	oprpc "github.com/ethereum-optimism/optimism/op-service/rpc"

	"github.com/katalab/kata-runner/config"
	"github.com/katalab/kata-runner/flags"
	"github.com/katalab/kata-runner/reporting"
	"github.com/katalab/kata-runner/service"
)

// Config holds the application configuration
type Config struct {
	ConfigFile       string        // Run-options file that was applied, if any
	Exercises        []string      // Exercises to validate directly
	Tracks           []string      // Tracks to validate
	TracksFile       string        // Track manifest; empty uses the bundled tracks
	Grep             string        // Only run tests whose full title contains this
	Invert           bool          // Invert the grep match
	Bail             bool          // Stop at the first failure
	Retries          int           // Default retry budget for failed tests
	Timeout          time.Duration // Default runnable timeout, 0 = engine default, negative disables
	Slow             time.Duration // Threshold above which test durations are reported
	Reporter         string        // Result format
	LogDir           string        // Directory for per-run logs, empty disables file logging
	RunInterval      time.Duration // Interval between runs
	RunOnce          bool          // Exit after one run
	ForbidOnly       bool
	ForbidPending    bool
	CheckLeaks       bool
	Globals          []string
	FullTrace        bool
	DryRun           bool
	FailZero         bool
	AsyncOnly        bool
	ShowProgress     bool          // Whether to log periodic progress updates during a run
	ProgressInterval time.Duration // Interval between progress updates when ShowProgress is 'true'
	MetricsEnabled   bool          // Serve metrics even in run-once mode
	Service          service.Config
	Log              log.Logger
}

// NewConfig creates a new Config from cli context. Values from the
// run-options file apply to every flag the user did not set.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	rc, rcPath, err := config.Resolve(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", rcPath, err)
	}
	if err := rc.Apply(ctx); err != nil {
		return nil, err
	}

	reporter := ctx.String(flags.Reporter.Name)
	if _, err := reporting.New(reporter); err != nil {
		return nil, err
	}

	tracksFile := ctx.String(flags.TracksFile.Name)
	if tracksFile != "" {
		tracksFile, err = filepath.Abs(tracksFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for tracks file '%s': %w", tracksFile, err)
		}
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir != "" {
		logDir, err = filepath.Abs(logDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
		}
	}

	retries := ctx.Int(flags.Retries.Name)
	if retries < 0 {
		return nil, fmt.Errorf("retries must not be negative, got %d", retries)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	if runInterval < 0 {
		return nil, fmt.Errorf("run interval must not be negative, got %s", runInterval)
	}

	rpcCfg := oprpc.ReadCLIConfig(ctx)
	metricsCfg := opmetrics.ReadCLIConfig(ctx)

	return &Config{
		ConfigFile:       rcPath,
		Exercises:        ctx.StringSlice(flags.Exercises.Name),
		Tracks:           ctx.StringSlice(flags.Tracks.Name),
		TracksFile:       tracksFile,
		Grep:             ctx.String(flags.Grep.Name),
		Invert:           ctx.Bool(flags.Invert.Name),
		Bail:             ctx.Bool(flags.Bail.Name),
		Retries:          retries,
		Timeout:          ctx.Duration(flags.Timeout.Name),
		Slow:             ctx.Duration(flags.Slow.Name),
		Reporter:         reporter,
		LogDir:           logDir,
		RunInterval:      runInterval,
		RunOnce:          runInterval == 0,
		ForbidOnly:       ctx.Bool(flags.ForbidOnly.Name),
		ForbidPending:    ctx.Bool(flags.ForbidPending.Name),
		CheckLeaks:       ctx.Bool(flags.CheckLeaks.Name),
		Globals:          ctx.StringSlice(flags.Globals.Name),
		FullTrace:        ctx.Bool(flags.FullTrace.Name),
		DryRun:           ctx.Bool(flags.DryRun.Name),
		FailZero:         ctx.Bool(flags.FailZero.Name),
		AsyncOnly:        ctx.Bool(flags.AsyncOnly.Name),
		ShowProgress:     ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval: ctx.Duration(flags.ProgressInterval.Name),
		MetricsEnabled:   metricsCfg.Enabled,
		Service: service.Config{
			HealthzAddr: net.JoinHostPort(rpcCfg.ListenAddr, strconv.Itoa(rpcCfg.ListenPort)),
			MetricsAddr: net.JoinHostPort(metricsCfg.ListenAddr, strconv.Itoa(metricsCfg.ListenPort)),
		},
		Log: log,
	}, nil
}
