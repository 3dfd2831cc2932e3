package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/katalab/kata-runner/events"
	"github.com/katalab/kata-runner/types"
)

// Reporter renders a finished run
type Reporter interface {
	Render(w io.Writer, report *Report) error
}

// Reporter names accepted by New
const (
	FormatSpec  = "spec"
	FormatJSON  = "json"
	FormatTable = "table"
)

var reporters = map[string]func() Reporter{
	FormatSpec:  func() Reporter { return NewSpecReporter(DefaultSlow) },
	FormatJSON:  func() Reporter { return NewJSONReporter(true) },
	FormatTable: func() Reporter { return NewTableReporter("Kata Results") },
}

// New returns the reporter registered under name
func New(name string) (Reporter, error) {
	factory, ok := reporters[name]
	if !ok {
		return nil, fmt.Errorf("unknown reporter %q, must be one of: %s", name, strings.Join(Formats(), ", "))
	}
	return factory(), nil
}

// Formats lists the registered reporter names
func Formats() []string {
	names := make([]string, 0, len(reporters))
	for name := range reporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stream attaches a fresh collector to bus and renders the report to w with
// every reporter as soon as the run ends. Render errors are passed to onErr
// when it is not nil.
func Stream(bus *events.Bus, w io.Writer, onErr func(error), rs ...Reporter) *Collector {
	c := NewCollector()
	c.Attach(bus)
	bus.Subscribe(events.RunEnd, func(events.Event) {
		report := c.Report()
		for _, r := range rs {
			if err := r.Render(w, report); err != nil && onErr != nil {
				onErr(err)
			}
		}
	})
	return c
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// stateString returns a consistent lowercase outcome string
func stateString(s types.State) string {
	switch s {
	case types.StatePassed:
		return "pass"
	case types.StateFailed:
		return "fail"
	case types.StatePending:
		return "pending"
	default:
		return "skipped"
	}
}

// firstLine trims an error message to its first line
func firstLine(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.Index(msg, "\n"); idx != -1 {
		return msg[:idx]
	}
	return msg
}
