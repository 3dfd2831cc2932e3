package runner

import (
	"context"
	"fmt"

	"github.com/katalab/kata-runner/events"
	"github.com/katalab/kata-runner/types"
	"go.opentelemetry.io/otel/attribute"
)

// runSuite runs suite and its descendants. It returns the ancestor suite whose
// each-hook failed, when traversal must unwind past suite; nil otherwise.
func (r *Runner) runSuite(ctx context.Context, suite *types.Suite) *types.Suite {
	if r.aborted.Load() {
		return nil
	}
	total := r.grepTotal(suite)
	if total == 0 || r.bailed.Load() {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("suite %s", suiteLabel(suite)))
	defer span.End()
	span.SetAttributes(attribute.Int("total", total))

	r.suite = suite
	r.emit(events.Event{Name: events.SuiteBegin, Suite: suite})

	errSuite := r.runSuiteBody(ctx, suite)

	r.suite = suite
	if !r.aborted.Load() {
		r.runHooks(ctx, suite, types.KindAfterAll, lastTest(suite))
	}
	r.drainFaults()
	r.emit(events.Event{Name: events.SuiteEnd, Suite: suite})
	if r.opts.CleanReferencesAfterRun {
		suite.CleanReferences()
	}
	if suite.Parent != nil {
		r.suite = suite.Parent
	}
	return errSuite
}

func (r *Runner) runSuiteBody(ctx context.Context, suite *types.Suite) *types.Suite {
	if r.runHooks(ctx, suite, types.KindBeforeAll, firstTest(suite)) == hooksFailed {
		r.beforeAllFailed(suite)
		return nil
	}

	if errSuite := r.runTests(ctx, suite); errSuite != nil {
		if errSuite == suite {
			return nil
		}
		return errSuite
	}

	for _, child := range suite.Suites {
		r.drainFaults()
		if r.aborted.Load() {
			return nil
		}
		if errSuite := r.runSuite(ctx, child); errSuite != nil {
			if errSuite == suite {
				return nil
			}
			return errSuite
		}
	}
	return nil
}

// beforeAllFailed turns every selected test under suite into a pending
// outcome. Child suites are flagged pending and never entered.
func (r *Runner) beforeAllFailed(suite *types.Suite) {
	suite.MarkPending()
	suite.EachTest(func(t *types.Runnable) {
		if !r.matches(t) {
			return
		}
		t.State = types.StatePending
		r.emit(events.Event{Name: events.TestPend, Suite: t.Parent, Runnable: t})
		r.testEnd(t)
	})
}

func firstTest(s *types.Suite) *types.Runnable {
	if len(s.Tests) == 0 {
		return nil
	}
	return s.Tests[0]
}

func lastTest(s *types.Suite) *types.Runnable {
	if len(s.Tests) == 0 {
		return nil
	}
	return s.Tests[len(s.Tests)-1]
}
