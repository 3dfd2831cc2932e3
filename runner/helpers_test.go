package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/katalab/kata-runner/events"
	"github.com/katalab/kata-runner/types"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func pass() types.Body {
	return types.Func(func() error { return nil })
}

func failWith(err error) types.Body {
	return types.Func(func() error { return err })
}

// counting returns a passing body and a pointer to the number of times it ran
func counting() (types.Body, *int) {
	n := new(int)
	return types.Func(func() error {
		*n++
		return nil
	}), n
}

// recorder captures the event stream as "<event> <label>" lines
type recorder struct {
	mu     sync.Mutex
	lines  []string
	events []events.Event
}

func record(r *Runner) *recorder {
	rec := &recorder{}
	r.Events().SubscribeAll(func(e events.Event) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.lines = append(rec.lines, describe(e))
		rec.events = append(rec.events, e)
	})
	return rec
}

func label(rn *types.Runnable) string {
	if rn.Kind.IsHook() {
		return fmt.Sprintf("%s:%s", rn.Kind, suiteLabel(rn.Parent))
	}
	return rn.FullTitle()
}

func describe(e events.Event) string {
	switch {
	case e.Runnable != nil:
		return fmt.Sprintf("%s %s", e.Name, label(e.Runnable))
	case e.Name == events.SuiteBegin || e.Name == events.SuiteEnd:
		return fmt.Sprintf("%s %s", e.Name, suiteLabel(e.Suite))
	default:
		return string(e.Name)
	}
}

// only returns the recorded lines for the given event names
func (rec *recorder) only(names ...events.Name) []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []string
	for i, e := range rec.events {
		if slices.Contains(names, e.Name) {
			out = append(out, rec.lines[i])
		}
	}
	return out
}

func (rec *recorder) all() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return slices.Clone(rec.lines)
}

func (rec *recorder) count(line string) int {
	n := 0
	for _, l := range rec.all() {
		if l == line {
			n++
		}
	}
	return n
}

func (rec *recorder) errorsFor(name events.Name) []error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []error
	for _, e := range rec.events {
		if e.Name == name {
			out = append(out, e.Err)
		}
	}
	return out
}

func newRunner(root *types.Suite, opts Options) *Runner {
	if opts.Log == nil {
		opts.Log = log.NewLogger(log.DiscardHandler())
	}
	return New(root, opts)
}

// runTree runs root to completion and fails the test if it hangs
func runTree(t *testing.T, r *Runner) (int, error) {
	t.Helper()
	type outcome struct {
		failures int
		err      error
	}
	ch := make(chan outcome, 1)
	go func() {
		f, err := r.Run(context.Background())
		ch <- outcome{f, err}
	}()
	select {
	case o := <-ch:
		return o.failures, o.err
	case <-time.After(10 * time.Second):
		t.Fatal("run did not complete")
	}
	return 0, nil
}

func requireRun(t *testing.T, r *Runner) int {
	t.Helper()
	failures, err := runTree(t, r)
	require.NoError(t, err)
	return failures
}
