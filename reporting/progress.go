package reporting

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/katalab/kata-runner/events"
	"github.com/katalab/kata-runner/types"
)

// DefaultProgressInterval is used when no interval is configured
const DefaultProgressInterval = 30 * time.Second

// Progress logs periodic progress updates for a run fed from its event
// stream. The ticker starts with the run and stops at run end.
type Progress struct {
	logger   log.Logger
	interval time.Duration

	mu           sync.RWMutex
	ticker       *time.Ticker
	stopCh       chan struct{}
	currentSuite string
	currentTest  string
	retrying     *types.Runnable
	testStarted  time.Time
	completed    int
	total        int
	failures     int
	runStarted   time.Time
}

// NewProgress creates a progress logger
func NewProgress(logger log.Logger, interval time.Duration) *Progress {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Progress{logger: logger, interval: interval}
}

// Attach subscribes the progress logger to bus and returns the unsubscribe function
func (p *Progress) Attach(bus *events.Bus) func() {
	return bus.SubscribeAll(p.Handle)
}

// Handle updates the progress state from one event
func (p *Progress) Handle(e events.Event) {
	switch e.Name {
	case events.RunBegin:
		p.start(e)
	case events.SuiteBegin:
		p.mu.Lock()
		p.currentSuite = e.Suite.FullTitle()
		p.mu.Unlock()
		p.logger.Debug("Starting suite", "suite", e.Suite.FullTitle(), "suiteTests", e.Suite.Total())
	case events.TestBegin:
		p.mu.Lock()
		p.currentTest = e.Runnable.FullTitle()
		p.testStarted = e.Time
		p.mu.Unlock()
	case events.TestFail:
		p.mu.Lock()
		p.failures++
		p.mu.Unlock()
	case events.TestRetry:
		p.mu.Lock()
		p.retrying = e.Runnable
		p.mu.Unlock()
	case events.TestEnd:
		p.mu.Lock()
		// a retried attempt is not a completion
		if p.retrying != e.Runnable {
			p.completed++
		}
		p.retrying = nil
		p.currentTest = ""
		p.mu.Unlock()
	case events.RunEnd:
		p.stop(e)
	}
}

func (p *Progress) start(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = e.Total
	p.completed, p.failures = 0, 0
	p.runStarted = e.Time
	if p.ticker == nil {
		p.ticker = time.NewTicker(p.interval)
		p.stopCh = make(chan struct{})
		go p.loop(p.ticker, p.stopCh)
	}
	p.logger.Info("Starting run", "run_id", e.RunID, "totalTests", e.Total)
}

func (p *Progress) stop(e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ticker != nil {
		p.ticker.Stop()
		close(p.stopCh)
		p.ticker = nil
	}
	duration := e.Time.Sub(p.runStarted).Truncate(time.Millisecond)
	p.logger.Info("Completed run", "run_id", e.RunID, "completed", p.completed, "total", p.total,
		"failures", e.Failures, "duration", duration)
}

func (p *Progress) loop(ticker *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-ticker.C:
			p.report()
		case <-stop:
			return
		}
	}
}

func (p *Progress) report() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.logger.Info("Progress update", p.fields()...)
}

func (p *Progress) fields() []interface{} {
	var percent float64
	if p.total > 0 {
		percent = float64(p.completed) * 100.0 / float64(p.total)
	}
	running := ""
	if p.currentTest != "" {
		running = fmt.Sprintf("%s (%v)", p.currentTest, time.Since(p.testStarted).Truncate(time.Second))
	}
	return []interface{}{
		"suite", p.currentSuite,
		"completed", p.completed,
		"total", p.total,
		"percent", fmt.Sprintf("%.1f%%", percent),
		"failures", p.failures,
		"running", running,
	}
}

// Snapshot returns the completed and total test counts
func (p *Progress) Snapshot() (completed, total int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.completed, p.total
}
