package runner

import (
	"context"
	"fmt"
	"slices"

	"github.com/katalab/kata-runner/events"
	"github.com/katalab/kata-runner/metrics"
	"github.com/katalab/kata-runner/types"
	"go.opentelemetry.io/otel/attribute"
)

// runTests runs the tests declared directly on suite. It returns the suite
// whose each-hook failed, in which case the rest of that suite is skipped.
func (r *Runner) runTests(ctx context.Context, suite *types.Suite) *types.Suite {
	queue := slices.Clone(suite.Tests)
	for {
		r.drainFaults()
		if r.bailed.Load() {
			queue = nil
		}
		if r.aborted.Load() || len(queue) == 0 {
			return nil
		}

		test := queue[0]
		queue = queue[1:]

		if !r.matches(test) {
			continue
		}

		// static skip, no hooks are executed
		if test.IsPending() {
			r.pending(test)
			r.testEnd(test)
			continue
		}

		retry, errSuite := r.runAttempt(ctx, suite, test)
		if retry != nil {
			queue = append([]*types.Runnable{retry}, queue...)
		}
		if errSuite != nil {
			return errSuite
		}
	}
}

// runAttempt runs one attempt of test with its each-hooks. It returns the
// next attempt when the test is retried, and the suite whose each-hook failed.
func (r *Runner) runAttempt(ctx context.Context, suite *types.Suite, test *types.Runnable) (*types.Runnable, *types.Suite) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("test %s", test.FullTitle()))
	defer span.End()
	span.SetAttributes(attribute.Int("retry", test.CurrentRetry()))

	r.current = test
	r.emit(events.Event{Name: events.TestBegin, Suite: suite, Runnable: test})

	failedAt, outcome := r.hookDown(ctx, suite, test)
	switch outcome {
	case hooksSkipped:
		r.pending(test)
		r.testEnd(test)
		return nil, r.hookUp(ctx, failedAt, test)
	case hooksFailed:
		r.testEnd(test)
		if errSuite := r.hookUp(ctx, failedAt, test); errSuite != nil {
			return nil, errSuite
		}
		return nil, failedAt
	}
	if r.aborted.Load() {
		r.testEnd(test)
		return nil, nil
	}

	r.current = test
	res := types.Result{Kind: types.ResultOK}
	if !r.opts.DryRun {
		res = r.execute(ctx, test)
	}

	switch res.Kind {
	case types.ResultSkip:
		r.pending(test)
	case types.ResultError, types.ResultFault:
		if res.Kind == types.ResultError && test.CurrentRetry() < r.retriesFor(test) {
			test.State, test.Err = types.StateFailed, res.Err
			r.emit(events.Event{Name: events.TestRetry, Suite: suite, Runnable: test, Err: res.Err})
			metrics.RecordRetry(suiteLabel(suite))
			r.testEnd(test)
			return test.Clone(), r.hookUp(ctx, suite, test)
		}
		r.fail(test, res.Err, false)
	default:
		test.State = types.StatePassed
		r.emit(events.Event{Name: events.TestPass, Suite: suite, Runnable: test})
	}
	span.SetAttributes(attribute.String("state", test.State.String()))

	r.testEnd(test)
	return nil, r.hookUp(ctx, suite, test)
}

// pending settles test as skipped, or as failed when pending tests are forbidden
func (r *Runner) pending(test *types.Runnable) {
	if r.opts.ForbidPending {
		r.fail(test, errPendingForbidden, true)
		return
	}
	test.State = types.StatePending
	r.emit(events.Event{Name: events.TestPend, Suite: test.Parent, Runnable: test})
}

// testEnd closes an attempt. A retried attempt takes over the slot of the
// attempt it was cloned from.
func (r *Runner) testEnd(test *types.Runnable) {
	if prev := test.RetriedFrom(); prev != nil && test.Parent != nil {
		test.Parent.ReplaceTest(prev, test)
	}
	r.checkLeaks(test)
	if test.State != types.StateUnrun {
		metrics.RecordTest(suiteLabel(test.Parent), test.State, test.Duration)
	}
	r.emit(events.Event{Name: events.TestEnd, Suite: test.Parent, Runnable: test, Err: test.Err})
}
