package reporting

import (
	"sync"
	"time"

	"github.com/katalab/kata-runner/events"
	"github.com/katalab/kata-runner/types"
)

// TestRecord is the settled outcome of one test. Retried attempts collapse
// into the record of the first attempt.
type TestRecord struct {
	ID        string
	Title     string
	FullTitle string
	State     types.State
	Duration  time.Duration
	Retries   int
	Err       error
	Stack     string
	// Order is the position in which the test first started or settled
	Order int
}

// Failure is one fail notification, of a test or of a hook
type Failure struct {
	Title string
	Hook  bool
	Err   error
	Stack string
}

// SuiteNode mirrors a suite the run entered
type SuiteNode struct {
	ID       string
	Title    string
	Parent   *SuiteNode
	Suites   []*SuiteNode
	Tests    []*TestRecord
	Hooks    []*Failure
	Duration time.Duration

	started time.Time
}

// Stats aggregates the run outcome
type Stats struct {
	Suites       int
	Planned      int
	Tests        int
	Passes       int
	Pending      int
	Failed       int
	Retries      int
	HookFailures int
	// Failures is the runner's failure count, hooks and leaks included
	Failures int
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Report is everything a reporter needs once the run has ended
type Report struct {
	RunID    string
	Root     *SuiteNode
	Stats    Stats
	Failures []*Failure
}

// Passed reports whether the run finished without failures
func (r *Report) Passed() bool {
	return r.Stats.Failures == 0
}

// Walk visits every suite node depth-first, parents before children
func (n *SuiteNode) Walk(fn func(node *SuiteNode, depth int)) {
	n.walk(fn, 0)
}

func (n *SuiteNode) walk(fn func(*SuiteNode, int), depth int) {
	fn(n, depth)
	for _, child := range n.Suites {
		child.walk(fn, depth+1)
	}
}

// Counts returns the passed, failed and pending tests of this subtree
func (n *SuiteNode) Counts() (passed, failed, pending int) {
	for _, t := range n.Tests {
		switch t.State {
		case types.StatePassed:
			passed++
		case types.StateFailed:
			failed++
		case types.StatePending:
			pending++
		}
	}
	for _, child := range n.Suites {
		p, f, s := child.Counts()
		passed, failed, pending = passed+p, failed+f, pending+s
	}
	return passed, failed, pending
}

// Collector consumes the lifecycle event stream and builds a Report. It is
// safe to subscribe it to a bus that publishes from several goroutines.
type Collector struct {
	mu     sync.Mutex
	report *Report
	suites map[*types.Suite]*SuiteNode
	tests  map[*types.Runnable]*TestRecord
	order  int
	done   chan struct{}
	ended  bool
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	c := &Collector{}
	c.reset()
	return c
}

// Attach subscribes the collector to every event on bus and returns the
// unsubscribe function.
func (c *Collector) Attach(bus *events.Bus) func() {
	return bus.SubscribeAll(c.Handle)
}

// Done is closed when the run-end event has been handled
func (c *Collector) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Report returns the report built so far. It is complete once Done is closed.
func (c *Collector) Report() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}

func (c *Collector) reset() {
	c.report = &Report{}
	c.suites = make(map[*types.Suite]*SuiteNode)
	c.tests = make(map[*types.Runnable]*TestRecord)
	c.order = 0
	c.done = make(chan struct{})
	c.ended = false
}

// Handle folds one event into the report
func (c *Collector) Handle(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.Name {
	case events.RunBegin:
		if c.ended {
			c.reset()
		}
		c.report.RunID = e.RunID
		c.report.Stats.Start = e.Time
		c.report.Stats.Planned = e.Total
		if e.Suite != nil {
			c.report.Root = c.node(e.Suite)
		}
	case events.SuiteBegin:
		n := c.node(e.Suite)
		n.started = e.Time
		if !e.Suite.Root {
			c.report.Stats.Suites++
		}
	case events.SuiteEnd:
		n := c.node(e.Suite)
		if !n.started.IsZero() {
			n.Duration = e.Time.Sub(n.started)
		}
	case events.TestBegin:
		c.record(e.Runnable)
	case events.TestPass:
		c.record(e.Runnable).State = types.StatePassed
	case events.TestPend:
		c.record(e.Runnable).State = types.StatePending
	case events.TestRetry:
		c.record(e.Runnable).Retries++
		c.report.Stats.Retries++
	case events.TestFail:
		c.fail(e)
	case events.TestEnd:
		rec := c.record(e.Runnable)
		rec.Duration = e.Runnable.Duration
		if e.Runnable.State != types.StateUnrun {
			rec.State = e.Runnable.State
		}
		rec.Err = e.Runnable.Err
		if rec.Err == nil {
			rec.Stack = ""
		}
	case events.RunEnd:
		c.finish(e)
	}
}

func (c *Collector) fail(e events.Event) {
	rn := e.Runnable
	f := &Failure{Err: e.Err, Stack: e.Stack}
	if rn.Kind.IsHook() {
		f.Hook = true
		f.Title = hookTitle(rn)
		c.node(rn.Parent).Hooks = append(c.node(rn.Parent).Hooks, f)
		c.report.Stats.HookFailures++
	} else {
		f.Title = rn.FullTitle()
		rec := c.record(rn)
		rec.State = types.StateFailed
		rec.Err, rec.Stack = e.Err, e.Stack
	}
	c.report.Failures = append(c.report.Failures, f)
}

func (c *Collector) finish(e events.Event) {
	s := &c.report.Stats
	s.End = e.Time
	if !s.Start.IsZero() {
		s.Duration = s.End.Sub(s.Start)
	}
	s.Failures = e.Failures
	s.Tests, s.Passes, s.Failed, s.Pending = 0, 0, 0, 0
	if c.report.Root != nil {
		s.Passes, s.Failed, s.Pending = c.report.Root.Counts()
		c.report.Root.Walk(func(n *SuiteNode, _ int) { s.Tests += len(n.Tests) })
	}
	if !c.ended {
		c.ended = true
		close(c.done)
	}
}

// node returns the mirror of suite, attaching it under its parent's mirror
func (c *Collector) node(suite *types.Suite) *SuiteNode {
	if suite == nil {
		if c.report.Root == nil {
			c.report.Root = &SuiteNode{}
		}
		return c.report.Root
	}
	if n, ok := c.suites[suite]; ok {
		return n
	}
	n := &SuiteNode{ID: suite.ID, Title: suite.Title}
	c.suites[suite] = n
	if suite.Parent != nil {
		parent := c.node(suite.Parent)
		n.Parent = parent
		parent.Suites = append(parent.Suites, n)
	}
	return n
}

// record returns the record for test, keyed by its first attempt
func (c *Collector) record(test *types.Runnable) *TestRecord {
	orig := test.Original()
	if rec, ok := c.tests[orig]; ok {
		return rec
	}
	c.order++
	rec := &TestRecord{
		ID:        orig.ID,
		Title:     test.Title,
		FullTitle: test.FullTitle(),
		Order:     c.order,
	}
	c.tests[orig] = rec
	n := c.node(test.Parent)
	n.Tests = append(n.Tests, rec)
	return rec
}

func hookTitle(h *types.Runnable) string {
	if h.Parent != nil {
		if path := h.Parent.FullTitle(); path != "" {
			return path + " " + h.DisplayTitle()
		}
	}
	return h.DisplayTitle()
}
