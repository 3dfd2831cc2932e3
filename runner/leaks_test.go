package runner

import (
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// nameSet is a GlobalsProvider backed by a mutable list
type nameSet struct {
	mu    sync.Mutex
	names []string
}

func (n *nameSet) add(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !slices.Contains(n.names, name) {
		n.names = append(n.names, name)
	}
}

func (n *nameSet) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.names)
}

func TestAllowedName(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		want     bool
	}{
		{"exact", []string{"FOO"}, true},
		{"prefix", []string{"FO*"}, true},
		{"star matches all", []string{"*"}, true},
		{"no match", []string{"BAR", "BA*"}, false},
		{"star only at end", []string{"F*O"}, false},
		{"empty list", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, allowedName("FOO", tt.patterns))
		})
	}
}

func TestLeakDetectorFoldsNewNames(t *testing.T) {
	names := &nameSet{names: []string{"PATH"}}
	d := newLeakDetector(names.list, []string{"OK_*"})
	d.baseline()

	assert.Empty(t, d.check(nil))

	names.add("zeta")
	names.add("alpha")
	names.add("OK_VALUE")
	names.add("0index")
	names.add(benignPrefix + "STATE")
	assert.Equal(t, []string{"alpha", "zeta"}, d.check(nil))
	assert.Empty(t, d.check(nil), "reported names are not reported again")
}

func TestEnvironmentNames(t *testing.T) {
	t.Setenv("KATA_TEST_ENV_NAME", "x=y")
	assert.Contains(t, EnvironmentNames(), "KATA_TEST_ENV_NAME")
}

func TestFilterStack(t *testing.T) {
	stack := strings.Join([]string{
		"goroutine 7 [running]:",
		"runtime/debug.Stack()",
		"\t/usr/local/go/src/runtime/debug/stack.go:26 +0x5e",
		"github.com/katalab/kata-runner/types.FromPanic({0x1, 0x2})",
		"\t/src/types/result.go:80 +0x25",
		"panic({0x1, 0x2})",
		"\t/usr/local/go/src/runtime/panic.go:785 +0x132",
		"example.com/solution.Reverse(...)",
		"\t/src/solution/reverse.go:12",
		"github.com/katalab/kata-runner/types.(*Runnable).invoke(0xc000)",
		"\t/src/types/runnable.go:200 +0x90",
		"created by github.com/katalab/kata-runner/types.(*Runnable).Run in goroutine 6",
		"\t/src/types/runnable.go:180 +0x1a5",
	}, "\n")

	assert.Equal(t, strings.Join([]string{
		"goroutine 7 [running]:",
		"example.com/solution.Reverse(...)",
		"\t/src/solution/reverse.go:12",
	}, "\n"), filterStack(stack))

	assert.Equal(t, "single line", filterStack("single line"))
}
