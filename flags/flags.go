package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	oprpc "github.com/ethereum-optimism/optimism/op-service/rpc"

	"github.com/katalab/kata-runner/reporting"
)

const EnvVarPrefix = "KATA_RUNNER"

// DefaultConfigFile is read when --config is not given and the file exists
const DefaultConfigFile = ".katarc.yaml"

var (
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to a run-options file (defaults to '" + DefaultConfigFile + "' when present)",
	}
	Exercises = &cli.StringSliceFlag{
		Name:    "exercise",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EXERCISE"),
		Usage:   "Exercise to validate, may be repeated. Omit with no --track to validate every exercise.",
	}
	Tracks = &cli.StringSliceFlag{
		Name:    "track",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TRACK"),
		Usage:   "Track from the tracks file to validate, may be repeated",
	}
	TracksFile = &cli.StringFlag{
		Name:    "tracks",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TRACKS"),
		Usage:   "Path to the track manifest (eg. 'tracks.yaml'). Defaults to the bundled tracks.",
	}
	Grep = &cli.StringFlag{
		Name:    "grep",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "GREP"),
		Usage:   "Only run tests whose full title contains this string",
	}
	Invert = &cli.BoolFlag{
		Name:    "invert",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INVERT"),
		Usage:   "Invert the --grep match",
	}
	Bail = &cli.BoolFlag{
		Name:    "bail",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BAIL"),
		Usage:   "Stop the run after the first failure",
	}
	Retries = &cli.IntFlag{
		Name:    "retries",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RETRIES"),
		Usage:   "Number of times to retry a failed test",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TIMEOUT"),
		Usage:   "Default timeout for tests and hooks. 0 uses the 2s default, a negative value disables timeouts.",
	}
	Slow = &cli.DurationFlag{
		Name:    "slow",
		Value:   reporting.DefaultSlow,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SLOW"),
		Usage:   "Tests slower than this are reported with their duration",
	}
	Reporter = &cli.StringFlag{
		Name:    "reporter",
		Value:   reporting.FormatSpec,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORTER"),
		Usage:   fmt.Sprintf("Result format, one of: %v", reporting.Formats()),
		Action: func(_ *cli.Context, v string) error {
			return validateReporter(v)
		},
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory to store per-run logs. Set to empty to disable file logging.",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	ForbidOnly = &cli.BoolFlag{
		Name:    "forbid-only",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FORBID_ONLY"),
		Usage:   "Fail the run when any test or suite is marked exclusive",
	}
	ForbidPending = &cli.BoolFlag{
		Name:    "forbid-pending",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FORBID_PENDING"),
		Usage:   "Treat pending tests as failures",
	}
	CheckLeaks = &cli.BoolFlag{
		Name:    "check-leaks",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CHECK_LEAKS"),
		Usage:   "Fail runnables that introduce new environment variables",
	}
	Globals = &cli.StringSliceFlag{
		Name:    "globals",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "GLOBALS"),
		Usage:   "Names allowed to appear during a run when --check-leaks is set. A trailing '*' matches a prefix.",
	}
	FullTrace = &cli.BoolFlag{
		Name:    "full-trace",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FULL_TRACE"),
		Usage:   "Report full stack traces instead of trimmed ones",
	}
	DryRun = &cli.BoolFlag{
		Name:    "dry-run",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DRY_RUN"),
		Usage:   "Report every test as passed without running hooks or bodies",
	}
	FailZero = &cli.BoolFlag{
		Name:    "fail-zero",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "FAIL_ZERO"),
		Usage:   "Fail the run when no test matched",
	}
	AsyncOnly = &cli.BoolFlag{
		Name:    "async-only",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ASYNC_ONLY"),
		Usage:   "Reject test bodies that complete synchronously",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "show-progress",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHOW_PROGRESS"),
		Usage:   "Log periodic progress updates during a run",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   reporting.DefaultProgressInterval,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS_INTERVAL"),
		Usage:   "Interval between progress updates when --show-progress is set",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	ConfigFile,
	Exercises,
	Tracks,
	TracksFile,
	Grep,
	Invert,
	Bail,
	Retries,
	Timeout,
	Slow,
	Reporter,
	LogDir,
	RunInterval,
	ForbidOnly,
	ForbidPending,
	CheckLeaks,
	Globals,
	FullTrace,
	DryRun,
	FailZero,
	AsyncOnly,
	ShowProgress,
	ProgressInterval,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oprpc.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func validateReporter(v string) error {
	if _, err := reporting.New(v); err != nil {
		return fmt.Errorf("reporter must be one of %v, got %q", reporting.Formats(), v)
	}
	return nil
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
