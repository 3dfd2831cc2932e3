package runner

import (
	"os"
	"slices"
	"strings"
	"unicode"
)

// GlobalsProvider lists the ambient names currently visible to runnables
type GlobalsProvider func() []string

// EnvironmentNames lists the names of the process environment variables
func EnvironmentNames() []string {
	env := os.Environ()
	names := make([]string, 0, len(env))
	for _, kv := range env {
		name, _, _ := strings.Cut(kv, "=")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// leakDetector diffs ambient-name snapshots against an accumulated baseline.
// It is only used from the scheduler goroutine.
type leakDetector struct {
	provider GlobalsProvider
	allowed  []string
	known    map[string]struct{}
}

func newLeakDetector(provider GlobalsProvider, allowed []string) *leakDetector {
	return &leakDetector{
		provider: provider,
		allowed:  slices.Clone(allowed),
		known:    make(map[string]struct{}),
	}
}

// baseline records every currently visible name as known
func (d *leakDetector) baseline() {
	for _, name := range d.provider() {
		d.known[name] = struct{}{}
	}
}

// check returns the sorted names that appeared since the last snapshot and are
// neither allowed nor benign. Every new name is folded into the baseline, so a
// name is reported at most once.
func (d *leakDetector) check(extra []string) []string {
	var leaks []string
	for _, name := range d.provider() {
		if _, ok := d.known[name]; ok {
			continue
		}
		d.known[name] = struct{}{}
		if isBenign(name) || allowedName(name, d.allowed) || allowedName(name, extra) {
			continue
		}
		leaks = append(leaks, name)
	}
	slices.Sort(leaks)
	return leaks
}

func isBenign(name string) bool {
	if name == "" {
		return true
	}
	if unicode.IsDigit(rune(name[0])) {
		return true
	}
	return strings.HasPrefix(name, benignPrefix)
}

// allowedName matches name against patterns; a trailing '*' matches by prefix
func allowedName(name string, patterns []string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(name, prefix) {
				return true
			}
			continue
		}
		if name == p {
			return true
		}
	}
	return false
}
