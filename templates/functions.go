package templates

import (
	"fmt"
	"html/template"
	"time"

	"github.com/katalab/kata-runner/reporting"
	"github.com/katalab/kata-runner/types"
)

// GetTemplateFunc returns the centralized template functions used across the application
func GetTemplateFunc() template.FuncMap {
	return template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			if d < time.Second {
				return fmt.Sprintf("%dms", d.Milliseconds())
			}
			return d.Truncate(time.Millisecond).String()
		},
		"getStateClass": func(state types.State) string {
			return getStateString(state)
		},
		"getStateText": func(state types.State) string {
			return getStateString(state)
		},
		"getIndentClass": func(depth int) string {
			return fmt.Sprintf("indent-%d", depth)
		},
		"multiply": func(a, b int) int {
			return a * b
		},
		"getOverallState": func(stats reporting.Stats) types.State {
			if stats.Failures > 0 {
				return types.StateFailed
			}
			if stats.Passes > 0 {
				return types.StatePassed
			}
			if stats.Pending > 0 {
				return types.StatePending
			}
			return types.StateUnrun
		},
	}
}

// getStateString returns a consistent lowercase state string
func getStateString(state types.State) string {
	switch state {
	case types.StatePassed:
		return "pass"
	case types.StateFailed:
		return "fail"
	case types.StatePending:
		return "pending"
	default:
		return "unrun"
	}
}
