package runner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/katalab/kata-runner/events"
	"github.com/katalab/kata-runner/metrics"
	"github.com/katalab/kata-runner/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// State is the lifecycle state of a Runner
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

var (
	// ErrOnlyForbidden is returned by Run when exclusive markers exist and
	// ForbidOnly is set
	ErrOnlyForbidden = errors.New("exclusive tests or suites are forbidden")
	// ErrAlreadyRun is returned when Run is called more than once
	ErrAlreadyRun = errors.New("runner has already been started")

	errPendingForbidden = errors.New("pending test forbidden")
)

// Runner executes a suite tree. It is single-use: build a new Runner for
// every run. A tree may be run again by a new Runner; Run resets the outcome
// of the previous run before it starts.
type Runner struct {
	root   *types.Suite
	opts   Options
	log    log.Logger
	bus    *events.Bus
	tracer trace.Tracer
	leaks  *leakDetector
	runID  string

	grep   *regexp.Regexp
	invert bool
	total  int

	mu    sync.Mutex
	state State
	fatal error

	started  atomic.Bool
	aborted  atomic.Bool
	bailed   atomic.Bool
	failures atomic.Int64

	release     chan struct{}
	releaseOnce sync.Once

	faults   *mailbox
	deferred []fault

	// owned by the scheduler goroutine
	current *types.Runnable
	suite   *types.Suite
}

// New creates a runner for the tree rooted at root
func New(root *types.Suite, opts Options) *Runner {
	if opts.Log == nil {
		opts.Log = log.New()
		opts.Log.Error("No logger provided, using default")
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.GlobalsProvider == nil {
		opts.GlobalsProvider = EnvironmentNames
	}

	r := &Runner{
		root:    root,
		opts:    opts,
		log:     opts.Log,
		bus:     opts.Bus,
		tracer:  otel.Tracer(tracerName),
		leaks:   newLeakDetector(opts.GlobalsProvider, opts.Globals),
		runID:   uuid.New().String(),
		state:   StateIdle,
		release: make(chan struct{}),
		faults:  newMailbox(),
		suite:   root,
	}
	r.total = r.grepTotal(root)
	return r
}

// Grep installs a title filter. Tests whose full title does not match (or
// matches, when invert is set) are skipped silently. The total is recomputed.
func (r *Runner) Grep(re *regexp.Regexp, invert bool) *Runner {
	r.grep = re
	r.invert = invert
	r.total = r.grepTotal(r.root)
	r.log.Debug("Grep()", "pattern", re, "invert", invert, "total", r.total)
	return r
}

// GrepString installs a filter matching s literally
func (r *Runner) GrepString(s string, invert bool) *Runner {
	return r.Grep(regexp.MustCompile(regexp.QuoteMeta(s)), invert)
}

// Events returns the bus the lifecycle events are published on
func (r *Runner) Events() *events.Bus {
	return r.bus
}

// RunID returns the unique identifier of this run
func (r *Runner) RunID() string {
	return r.runID
}

// Total returns the number of tests selected by the filters
func (r *Runner) Total() int {
	return r.total
}

// Failures returns the number of failures recorded so far
func (r *Runner) Failures() int {
	return int(r.failures.Load())
}

// State returns the lifecycle state
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the first fatal error raised during or after the run
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}

// Release starts a run that is held by the Delay option
func (r *Runner) Release() {
	r.releaseOnce.Do(func() { close(r.release) })
}

// Abort stops the run at the next boundary. In-flight work is not interrupted.
func (r *Runner) Abort() {
	if !r.aborted.Swap(true) {
		r.log.Debug("Abort()", "run_id", r.runID)
	}
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *Runner) setFatal(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fatal == nil {
		r.fatal = err
	}
}

// Run executes the tree and returns the failure count. The returned error is
// the fatal error that terminated the run, if any. Cancelling ctx aborts the
// run at the next boundary.
func (r *Runner) Run(ctx context.Context) (int, error) {
	if !r.started.CompareAndSwap(false, true) {
		return 0, ErrAlreadyRun
	}
	if r.opts.ForbidOnly && r.root.HasOnly() {
		return 0, ErrOnlyForbidden
	}
	r.root.Reset()

	ctx, span := r.tracer.Start(ctx, "run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", r.runID))

	stop := context.AfterFunc(ctx, r.Abort)
	defer stop()

	if r.opts.CheckLeaks {
		r.leaks.baseline()
	}

	if r.opts.Delay {
		r.emit(events.Event{Name: events.DelayBegin, Suite: r.root})
		select {
		case <-r.release:
		case <-ctx.Done():
		}
	}

	r.prepare()
	start := time.Now()
	r.log.Info("Starting run", "run_id", r.runID, "total", r.total)
	r.emit(events.Event{Name: events.RunBegin, Suite: r.root, Total: r.total})

	r.runSuite(ctx, r.root)
	r.drainFaults()

	if r.total == 0 && r.opts.FailZero {
		r.failures.Store(1)
	}
	failures := r.Failures()
	r.emit(events.Event{Name: events.RunEnd, Suite: r.root, Total: r.total, Failures: failures})
	r.setState(StateStopped)
	r.drainFaults()

	duration := time.Since(start)
	metrics.RecordRun(r.opts.Exercise, r.runID, r.total, failures, duration)
	r.log.Info("Run completed", "run_id", r.runID, "failures", failures, "duration", duration)
	span.SetAttributes(attribute.Int("failures", failures))
	return failures, r.Err()
}

func (r *Runner) prepare() {
	if r.root.HasOnly() {
		r.root.FilterOnly()
		r.total = r.grepTotal(r.root)
	}
	r.setState(StateRunning)
	if r.opts.Delay {
		r.emit(events.Event{Name: events.DelayEnd, Suite: r.root})
	}
}

func (r *Runner) emit(e events.Event) {
	e.RunID = r.runID
	r.bus.Publish(e)
}

// timeoutFor resolves the effective timeout of rn, walking up its suite chain
func (r *Runner) timeoutFor(rn *types.Runnable) time.Duration {
	d := rn.Timeout
	for s := rn.Parent; d == 0 && s != nil; s = s.Parent {
		d = s.Timeout
	}
	if d == 0 {
		return r.opts.defaultTimeout()
	}
	if d < 0 {
		return 0
	}
	return d
}

// retriesFor resolves the retry budget of t, walking up its suite chain
func (r *Runner) retriesFor(t *types.Runnable) int {
	if t.Retries >= 0 {
		return t.Retries
	}
	for s := t.Parent; s != nil; s = s.Parent {
		if s.Retries >= 0 {
			return s.Retries
		}
	}
	return r.opts.Retries
}

func suiteLabel(s *types.Suite) string {
	if s == nil {
		return ""
	}
	if title := s.FullTitle(); title != "" {
		return title
	}
	return "{root}"
}

func (r *Runner) String() string {
	return fmt.Sprintf("Runner(%s, %s)", r.runID, r.State())
}
