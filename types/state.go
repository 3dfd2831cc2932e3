// Package types contains the runnable model shared by the kata-runner engine:
// suites, tests, hooks, their states, and the engine's error taxonomy.
package types

// State represents the settled outcome of a runnable
type State string

const (
	StateUnrun   State = ""
	StatePassed  State = "passed"
	StateFailed  State = "failed"
	StatePending State = "pending"
)

// String implements the Stringer interface for State
func (s State) String() string {
	if s == StateUnrun {
		return "unrun"
	}
	return string(s)
}

// Kind discriminates tests from the four hook kinds
type Kind string

const (
	KindTest       Kind = "test"
	KindBeforeAll  Kind = "before all"
	KindAfterAll   Kind = "after all"
	KindBeforeEach Kind = "before each"
	KindAfterEach  Kind = "after each"
)

// String implements the Stringer interface for Kind
func (k Kind) String() string {
	return string(k)
}

// IsHook reports whether the kind is one of the hook kinds
func (k Kind) IsHook() bool {
	switch k {
	case KindBeforeAll, KindAfterAll, KindBeforeEach, KindAfterEach:
		return true
	}
	return false
}

// IsEach reports whether the kind runs once per test
func (k Kind) IsEach() bool {
	return k == KindBeforeEach || k == KindAfterEach
}

// SupportsSkip reports whether a conditional skip raised by a runnable of this
// kind can be honoured. Everywhere else it is an unsupported operation.
func (k Kind) SupportsSkip() bool {
	return k == KindTest || k == KindBeforeEach
}

// HookKinds lists hook kinds in declaration order
var HookKinds = []Kind{KindBeforeAll, KindBeforeEach, KindAfterEach, KindAfterAll}
