package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/katalab/kata-runner/events"
	"github.com/katalab/kata-runner/metrics"
	"github.com/katalab/kata-runner/types"
)

// fault is an error raised outside the scheduler goroutine. A fault with a
// runnable is a late completion error reported by that runnable; one without
// is an uncaught fault.
type fault struct {
	err      error
	runnable *types.Runnable
}

// mailbox queues faults for the scheduler and wakes it while it waits on a
// completion.
type mailbox struct {
	mu    sync.Mutex
	queue []fault
	wake  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

func (m *mailbox) push(f fault) {
	m.mu.Lock()
	m.queue = append(m.queue, f)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() []fault {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}

// execute runs rn and blocks until it completes. Uncaught faults arriving
// meanwhile are delivered to rn as its completion error.
func (r *Runner) execute(ctx context.Context, rn *types.Runnable) types.Result {
	done := make(chan types.Result, 1)
	rn.Run(ctx, types.RunOptions{
		Timeout:   r.timeoutFor(rn),
		AsyncOnly: r.opts.AsyncOnly,
		OnError:   func(err error) { r.late(rn, err) },
	}, func(res types.Result) { done <- res })

	for {
		select {
		case res := <-done:
			return res
		case <-r.faults.wake:
			for _, f := range r.faults.take() {
				if f.runnable == nil && rn.Deliver(f.err) {
					continue
				}
				r.deferred = append(r.deferred, f)
			}
		}
	}
}

// late queues an error a runnable reported after it completed
func (r *Runner) late(rn *types.Runnable, err error) {
	r.faults.push(fault{err: err, runnable: rn})
}

// drainFaults handles every queued fault against settled state. It runs on
// the scheduler goroutine at traversal boundaries.
func (r *Runner) drainFaults() {
	queued := append(r.deferred, r.faults.take()...)
	r.deferred = nil
	for _, f := range queued {
		var err error
		if f.runnable != nil {
			err = r.fail(f.runnable, f.err, false)
		} else {
			err = r.uncaught(f.err)
		}
		if err != nil {
			r.log.Error("Fault reported after the run completed", "run_id", r.runID, "err", err)
			r.setFatal(err)
		}
	}
}

// Uncaught reports a fault raised outside any body's own completion path, such
// as a panic recovered by a goroutine the body started. It is safe to call
// from any goroutine. The returned error is non-nil only when the run has
// already stopped.
func (r *Runner) Uncaught(v any) error {
	err := toError(v)
	if types.IsPending(err) {
		return nil
	}
	metrics.RecordErrorDetails("uncaught", err)

	switch r.State() {
	case StateStopped:
		return types.NewFatalError("uncaught error after root suite execution completed", err)
	case StateRunning:
		r.faults.push(fault{err: err})
		return nil
	}

	// no run in progress: report the fault inside a synthetic run
	placeholder := r.placeholder(r.root)
	r.emit(events.Event{Name: events.RunBegin, Suite: r.root})
	r.fail(placeholder, err, false)
	r.emit(events.Event{Name: events.RunEnd, Suite: r.root, Failures: r.Failures()})
	return nil
}

func toError(v any) error {
	switch e := v.(type) {
	case nil:
		return types.NewInvalidExceptionError(nil)
	case error:
		return e
	default:
		return types.NewInvalidExceptionError(v)
	}
}

func (r *Runner) placeholder(parent *types.Suite) *types.Runnable {
	p := types.NewTest(uncaughtTitle, types.Func(func() error { return nil }))
	p.Parent = parent
	return p
}

// uncaught applies an uncaught fault to the runnable it is attributed to
func (r *Runner) uncaught(err error) error {
	rn := r.current
	if rn == nil {
		return r.fail(r.placeholder(r.suite), err, false)
	}
	switch {
	case rn.IsFailed():
		r.log.Debug("Ignoring fault for failed runnable", "runnable", rn.FullTitle(), "err", err)
		return nil
	case rn.IsPending():
		return r.fail(rn, err, true)
	case rn.IsPassed():
		// no safe continuation after a runnable that already passed
		ferr := r.fail(rn, err, false)
		r.Abort()
		return ferr
	}
	if rn.Deliver(err) {
		return nil
	}
	return r.fail(rn, err, false)
}

// fail records a failure of rn. Pending runnables are ignored unless force is
// set. Once the run has stopped the failure is returned as a fatal error.
func (r *Runner) fail(rn *types.Runnable, err error, force bool) error {
	if rn.IsPending() && !force {
		return nil
	}
	if r.State() == StateStopped {
		var multiple *types.MultipleDoneError
		if errors.As(err, &multiple) {
			return err
		}
		return types.NewFatalError("test failed after root suite execution completed", err)
	}
	if err == nil {
		err = types.NewInvalidExceptionError(nil)
	}

	r.failures.Add(1)
	rn.State = types.StateFailed
	rn.Err = err
	if underBail(rn) && !r.bailed.Swap(true) {
		r.log.Debug("Bailing out", "run_id", r.runID, "runnable", rn.DisplayTitle())
	}

	r.log.Debug("Runnable failed", "run_id", r.runID, "runnable", rn.DisplayTitle(), "err", err)
	r.emit(events.Event{
		Name:     events.TestFail,
		Suite:    rn.Parent,
		Runnable: rn,
		Err:      err,
		Stack:    r.stackOf(err),
	})

	if types.IsFatal(err) {
		metrics.RecordErrorDetails("fatal", err)
		r.setFatal(err)
		r.Abort()
	}
	return nil
}

// checkLeaks reports ambient names rn introduced as an additional failure
func (r *Runner) checkLeaks(rn *types.Runnable) {
	if !r.opts.CheckLeaks {
		return
	}
	leaks := r.leaks.check(rn.AllowedGlobals)
	if len(leaks) == 0 {
		return
	}
	quoted := make([]string, len(leaks))
	for i, name := range leaks {
		metrics.RecordLeak(name)
		quoted[i] = fmt.Sprintf("'%s'", name)
	}
	r.fail(rn, fmt.Errorf("global leak(s) detected: %s", strings.Join(quoted, ", ")), false)
}

// underBail reports whether rn belongs to a suite that has bail set
func underBail(rn *types.Runnable) bool {
	for s := rn.Parent; s != nil; s = s.Parent {
		if s.Bail {
			return true
		}
	}
	return false
}
