package runner

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/katalab/kata-runner/events"
)

// Options holds the policy for one run
type Options struct {
	// Delay holds the run until Release is called
	Delay bool
	// DryRun skips hook and body execution and only emits structural events
	DryRun bool
	// CleanReferencesAfterRun drops bodies of each suite once it ends
	CleanReferencesAfterRun bool
	// FailZero reports one failure when no test matched the filters
	FailZero bool
	// Retries is the default retry budget for tests that do not inherit one
	Retries int
	// Timeout is the default runnable timeout; zero means DefaultTimeout and
	// a negative value disables timeouts
	Timeout time.Duration

	CheckLeaks      bool
	Globals         []string        // allow-list, entries may end with '*'
	GlobalsProvider GlobalsProvider // defaults to EnvironmentNames

	AsyncOnly     bool
	ForbidOnly    bool
	ForbidPending bool
	FullTrace     bool

	// Exercise labels run metrics
	Exercise string

	Log log.Logger
	Bus *events.Bus
}

func (o Options) defaultTimeout() time.Duration {
	switch {
	case o.Timeout == 0:
		return DefaultTimeout
	case o.Timeout < 0:
		return 0
	default:
		return o.Timeout
	}
}
