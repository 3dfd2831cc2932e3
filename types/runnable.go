package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InheritRetries marks a runnable whose retry budget comes from its suite chain
const InheritRetries = -1

var errAsyncOnly = errors.New("async-only mode is in use without declaring done or returning a channel")

// Runnable is one executable unit: a test or one of the four hook kinds
type Runnable struct {
	ID     string
	Title  string
	Kind   Kind
	Parent *Suite
	Body   Body

	// Timeout of zero inherits from the suite chain; negative disables it
	Timeout        time.Duration
	Retries        int
	AllowedGlobals []string

	// Pending marks a statically skipped test
	Pending bool

	State    State
	Err      error
	Duration time.Duration

	currentRetry int
	retriedFrom  *Runnable
	current      *Runnable // test a hook currently runs for

	mu        sync.Mutex
	cancel    context.CancelFunc
	started   time.Time
	timeout   time.Duration
	timer     *time.Timer
	finished  bool
	timedOut  bool
	multiple  bool
	callback  func(Result)
	onError   func(error)
	asyncOnly bool
}

// RunOptions carries the settings the scheduler resolved for one execution
type RunOptions struct {
	Timeout   time.Duration
	AsyncOnly bool
	// OnError receives errors raised after completion, such as a second Done
	OnError func(error)
}

func newRunnable(kind Kind, title string, body Body) *Runnable {
	return &Runnable{
		ID:      uuid.New().String(),
		Title:   title,
		Kind:    kind,
		Body:    body,
		Retries: InheritRetries,
	}
}

// NewTest creates a detached test. A test without a body is statically pending.
func NewTest(title string, body Body) *Runnable {
	t := newRunnable(KindTest, title, body)
	t.Pending = body.IsZero()
	return t
}

// NewHook creates a detached hook of the given kind
func NewHook(kind Kind, title string, body Body) *Runnable {
	return newRunnable(kind, title, body)
}

// CurrentRetry returns the zero-based attempt number of this runnable
func (r *Runnable) CurrentRetry() int {
	return r.currentRetry
}

// RetriedFrom returns the attempt this one was cloned from, if any
func (r *Runnable) RetriedFrom() *Runnable {
	return r.retriedFrom
}

// Original returns the first attempt of a chain of retried clones
func (r *Runnable) Original() *Runnable {
	o := r
	for o.retriedFrom != nil {
		o = o.retriedFrom
	}
	return o
}

// Clone produces the next attempt of a test: same title, body, suite and
// settings, fresh state, retry counter incremented.
func (r *Runnable) Clone() *Runnable {
	c := newRunnable(r.Kind, r.Title, r.Body)
	c.Parent = r.Parent
	c.Timeout = r.Timeout
	c.Retries = r.Retries
	c.AllowedGlobals = append([]string(nil), r.AllowedGlobals...)
	c.currentRetry = r.currentRetry + 1
	c.retriedFrom = r
	return c
}

// IsPending reports whether the runnable is statically or conditionally
// skipped. A failed state takes precedence over a static skip.
func (r *Runnable) IsPending() bool {
	if r.State == StateFailed {
		return false
	}
	return r.Pending || r.State == StatePending || (r.Parent != nil && r.Parent.IsPending())
}

// Reset clears the outcome of a previous execution
func (r *Runnable) Reset() {
	r.State, r.Err, r.Duration = StateUnrun, nil, 0
	r.current = nil
}

// IsFailed reports whether the runnable settled as failed
func (r *Runnable) IsFailed() bool {
	return !r.IsPending() && r.State == StateFailed
}

// IsPassed reports whether the runnable settled as passed
func (r *Runnable) IsPassed() bool {
	return !r.IsPending() && r.State == StatePassed
}

// TitlePath returns the titles from the outermost named suite down to this runnable
func (r *Runnable) TitlePath() []string {
	var path []string
	if r.Parent != nil {
		path = r.Parent.TitlePath()
	}
	return append(path, r.Title)
}

// FullTitle returns the space-joined title path
func (r *Runnable) FullTitle() string {
	return strings.Join(r.TitlePath(), " ")
}

// SetCurrentTest associates a hook with the test it is running for
func (r *Runnable) SetCurrentTest(t *Runnable) {
	r.current = t
}

// HookTitle returns the declared title of a hook, e.g. `"before each" hook: seed`
func (r *Runnable) HookTitle() string {
	base := fmt.Sprintf("%q hook", string(r.Kind))
	if r.Title != "" {
		base += ": " + r.Title
	}
	return base
}

// DisplayTitle returns the title for reporting. For hooks it is computed from
// the test or suite the hook is currently associated with.
func (r *Runnable) DisplayTitle() string {
	if !r.Kind.IsHook() {
		return r.Title
	}
	if r.current != nil && r.Kind.IsEach() {
		return fmt.Sprintf("%s for %q", r.HookTitle(), r.current.Title)
	}
	parent := ""
	if r.Parent != nil {
		parent = r.Parent.Title
		if parent == "" && r.Parent.Root {
			parent = "{root}"
		}
	}
	return fmt.Sprintf("%s in %q", r.HookTitle(), parent)
}

// Run executes the body and calls fn exactly once with the normalized result.
// Sync, callback and channel bodies all complete through the same path; the
// timeout, when positive, completes the runnable with a TimeoutError. fn may be
// called from another goroutine.
func (r *Runnable) Run(ctx context.Context, opts RunOptions, fn func(Result)) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.started = time.Now()
	r.finished, r.timedOut, r.multiple = false, false, false
	r.callback = fn
	r.onError = opts.OnError
	r.asyncOnly = opts.AsyncOnly
	r.timeout = opts.Timeout
	r.mu.Unlock()

	if r.Body.IsZero() {
		r.done(nil)
		return
	}
	if opts.AsyncOnly && !r.Body.IsAsync() {
		r.done(errAsyncOnly)
		return
	}

	r.mu.Lock()
	r.startTimerLocked()
	r.mu.Unlock()

	c := &Context{Context: ctx, runnable: r}
	go r.invoke(c)
}

func (r *Runnable) invoke(c *Context) {
	defer func() {
		if v := recover(); v != nil {
			r.done(FromPanic(v))
		}
	}()

	b := r.Body
	switch {
	case b.sync != nil:
		r.done(b.sync(c))
	case b.callback != nil:
		b.callback(c, r.done)
	case b.future != nil:
		ch := b.future(c)
		if ch == nil {
			if r.asyncOnly {
				r.done(errAsyncOnly)
			} else {
				r.done(nil)
			}
			return
		}
		r.done(<-ch)
	}
}

// done is the single completion signal. A second call after completion is
// reported as a MultipleDoneError; calls after a timeout are ignored.
func (r *Runnable) done(err error) {
	if r.finish(err) {
		return
	}
	r.mu.Lock()
	if r.timedOut || r.multiple {
		r.mu.Unlock()
		return
	}
	r.multiple = true
	onError := r.onError
	r.mu.Unlock()
	if onError != nil {
		onError(NewMultipleDoneError(r, err))
	}
}

// finish settles the execution unless it already settled or never started
func (r *Runnable) finish(err error) bool {
	r.mu.Lock()
	if r.finished || r.callback == nil {
		r.mu.Unlock()
		return false
	}
	r.finished = true
	r.stopTimerLocked()
	r.Duration = time.Since(r.started)
	fn := r.callback
	r.callback = nil
	cancel := r.takeCancelLocked()
	r.mu.Unlock()

	cancel()
	if fn != nil {
		fn(Classify(err))
	}
	return true
}

// Deliver completes an in-flight runnable with err, as if the body had
// reported it. It returns false when the runnable already completed.
func (r *Runnable) Deliver(err error) bool {
	return r.finish(err)
}

// TimedOut reports whether the last execution completed by timing out
func (r *Runnable) TimedOut() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timedOut
}

func (r *Runnable) resetTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeout = d
	if r.finished {
		return
	}
	r.stopTimerLocked()
	r.startTimerLocked()
}

func (r *Runnable) startTimerLocked() {
	d := r.timeout
	if d <= 0 {
		return
	}
	r.timer = time.AfterFunc(d, func() { r.expire(d) })
}

func (r *Runnable) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Runnable) expire(d time.Duration) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.timedOut = true
	r.timer = nil
	r.Duration = time.Since(r.started)
	fn := r.callback
	r.callback = nil
	cancel := r.takeCancelLocked()
	r.mu.Unlock()

	cancel()
	if fn != nil {
		fn(Classify(&TimeoutError{Title: r.FullTitle(), Timeout: d}))
	}
}

// takeCancelLocked detaches the cancel func of the body context. The body
// context is cancelled once the execution settles, including on timeout.
func (r *Runnable) takeCancelLocked() context.CancelFunc {
	cancel := r.cancel
	r.cancel = nil
	if cancel == nil {
		return func() {}
	}
	return cancel
}
