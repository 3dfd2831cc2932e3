package runner

import (
	"context"
	"fmt"

	"github.com/katalab/kata-runner/events"
	"github.com/katalab/kata-runner/metrics"
	"github.com/katalab/kata-runner/types"
)

type hookOutcome int

const (
	hooksPassed hookOutcome = iota
	hooksFailed
	// hooksSkipped means a before-each hook raised a conditional skip
	hooksSkipped
)

// runHooks runs the hooks of one kind declared on suite. Before hooks stop at
// the first failure; after hooks always run to the end of the list.
func (r *Runner) runHooks(ctx context.Context, suite *types.Suite, kind types.Kind, test *types.Runnable) hookOutcome {
	if r.opts.DryRun || suite.IsPending() {
		return hooksPassed
	}
	stopOnFailure := kind == types.KindBeforeAll || kind == types.KindBeforeEach

	outcome := hooksPassed
	for _, h := range suite.Hooks(kind) {
		r.drainFaults()
		if r.aborted.Load() {
			break
		}
		switch r.runHook(ctx, h, test) {
		case hooksSkipped:
			return hooksSkipped
		case hooksFailed:
			outcome = hooksFailed
			if stopOnFailure {
				return outcome
			}
		}
	}
	return outcome
}

func (r *Runner) runHook(ctx context.Context, h *types.Runnable, test *types.Runnable) hookOutcome {
	h.State, h.Err = types.StateUnrun, nil
	h.SetCurrentTest(test)
	defer h.SetCurrentTest(nil)

	r.current = h
	r.emit(events.Event{Name: events.HookBegin, Suite: h.Parent, Runnable: h})

	outcome := hooksPassed
	res := r.execute(ctx, h)
	switch res.Kind {
	case types.ResultOK:
		h.State = types.StatePassed
	case types.ResultSkip:
		if h.Kind.SupportsSkip() {
			// one-shot: the state is reset the next time the hook runs
			h.State = types.StatePending
			outcome = hooksSkipped
			break
		}
		err := types.NewUnsupportedError(fmt.Sprintf("skip is not supported in a %q hook", string(h.Kind)))
		r.fail(h, err, false)
		outcome = hooksFailed
	default:
		r.fail(h, res.Err, false)
		outcome = hooksFailed
	}

	metrics.RecordHook(h.Kind, outcome == hooksFailed)
	r.checkLeaks(h)
	r.emit(events.Event{Name: events.HookEnd, Suite: h.Parent, Runnable: h, Err: h.Err})
	return outcome
}

// hookDown runs before-each hooks from the outermost ancestor of suite down to
// suite. On failure or skip it returns the suite whose hook stopped the chain.
func (r *Runner) hookDown(ctx context.Context, suite *types.Suite, test *types.Runnable) (*types.Suite, hookOutcome) {
	chain := suite.Ancestors()
	for i := len(chain) - 1; i >= 0; i-- {
		if out := r.runHooks(ctx, chain[i], types.KindBeforeEach, test); out != hooksPassed {
			return chain[i], out
		}
	}
	return nil, hooksPassed
}

// hookUp runs after-each hooks from suite up to the root. Every level runs even
// after a failure; the outermost failing suite is returned.
func (r *Runner) hookUp(ctx context.Context, suite *types.Suite, test *types.Runnable) *types.Suite {
	var errSuite *types.Suite
	for _, s := range suite.Ancestors() {
		if r.aborted.Load() {
			break
		}
		if r.runHooks(ctx, s, types.KindAfterEach, test) == hooksFailed {
			errSuite = s
		}
	}
	return errSuite
}
