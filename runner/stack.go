package runner

import (
	"errors"
	"strings"

	"github.com/katalab/kata-runner/types"
)

var internalFrames = []string{
	"runtime.",
	"runtime/",
	"panic(",
	"github.com/katalab/kata-runner/types.",
}

// stackOf returns the stack trace carried by err, trimmed of engine frames
// unless full traces were requested or err is an internal engine error.
func (r *Runner) stackOf(err error) string {
	var tracer types.StackTracer
	if !errors.As(err, &tracer) {
		return ""
	}
	stack := tracer.StackTrace()
	if r.opts.FullTrace || types.IsInternal(err) {
		return stack
	}
	return filterStack(stack)
}

// filterStack drops runtime and engine frames from a goroutine dump. Each
// frame is a function line followed by an indented file:line line.
func filterStack(stack string) string {
	lines := strings.Split(strings.TrimRight(stack, "\n"), "\n")
	if len(lines) < 2 {
		return stack
	}

	out := []string{lines[0]}
	for i := 1; i < len(lines); i++ {
		fn := lines[i]
		var file string
		if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "\t") {
			file = lines[i+1]
			i++
		}
		if isInternalFrame(fn) {
			continue
		}
		out = append(out, fn)
		if file != "" {
			out = append(out, file)
		}
	}
	return strings.Join(out, "\n")
}

func isInternalFrame(fn string) bool {
	fn = strings.TrimPrefix(fn, "created by ")
	for _, prefix := range internalFrames {
		if strings.HasPrefix(fn, prefix) {
			return true
		}
	}
	return false
}
