package runner

import "time"

const (
	// DefaultTimeout applies to runnables that neither set nor inherit a timeout
	DefaultTimeout = 2 * time.Second

	// benignPrefix marks ambient names owned by the runner itself
	benignPrefix = "KATA_RUNNER_"

	uncaughtTitle = "Uncaught error outside test suite"

	tracerName = "kata runner"
)
