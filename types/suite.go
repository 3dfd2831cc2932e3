package types

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Suite is a named grouping node owning child suites, tests and hooks
type Suite struct {
	ID     string
	Title  string
	Parent *Suite
	Suites []*Suite
	Tests  []*Runnable

	Root    bool
	Pending bool
	// Bail stops the whole run at the first failure reached under this suite
	Bail bool

	// Defaults inherited by runnables that do not set their own
	Timeout time.Duration
	Retries int

	beforeAll  []*Runnable
	afterAll   []*Runnable
	beforeEach []*Runnable
	afterEach  []*Runnable

	onlyTests  []*Runnable
	onlySuites []*Suite

	// set for the current run when an ancestor's before-all hook failed
	skipped bool
}

// NewRootSuite creates the root of a suite tree
func NewRootSuite(title string) *Suite {
	return &Suite{
		ID:      uuid.New().String(),
		Title:   title,
		Root:    true,
		Retries: InheritRetries,
	}
}

// AddSuite creates a child suite. The child inherits the bail flag.
func (s *Suite) AddSuite(title string) *Suite {
	child := &Suite{
		ID:      uuid.New().String(),
		Title:   title,
		Parent:  s,
		Bail:    s.Bail,
		Retries: InheritRetries,
	}
	s.Suites = append(s.Suites, child)
	return child
}

// AddTest appends a test to the suite
func (s *Suite) AddTest(title string, body Body) *Runnable {
	t := NewTest(title, body)
	t.Parent = s
	s.Tests = append(s.Tests, t)
	return t
}

// AddHook appends a hook of the given kind. The title may be empty.
func (s *Suite) AddHook(kind Kind, title string, body Body) *Runnable {
	h := NewHook(kind, title, body)
	h.Parent = s
	switch kind {
	case KindBeforeAll:
		s.beforeAll = append(s.beforeAll, h)
	case KindAfterAll:
		s.afterAll = append(s.afterAll, h)
	case KindBeforeEach:
		s.beforeEach = append(s.beforeEach, h)
	case KindAfterEach:
		s.afterEach = append(s.afterEach, h)
	default:
		panic("types: AddHook called with kind " + string(kind))
	}
	return h
}

// Hooks returns the hooks of one kind in declaration order
func (s *Suite) Hooks(kind Kind) []*Runnable {
	switch kind {
	case KindBeforeAll:
		return s.beforeAll
	case KindAfterAll:
		return s.afterAll
	case KindBeforeEach:
		return s.beforeEach
	case KindAfterEach:
		return s.afterEach
	}
	return nil
}

// AppendOnlyTest marks a test of this suite as exclusive
func (s *Suite) AppendOnlyTest(t *Runnable) {
	s.onlyTests = append(s.onlyTests, t)
}

// AppendOnlySuite marks a child suite as exclusive
func (s *Suite) AppendOnlySuite(child *Suite) {
	s.onlySuites = append(s.onlySuites, child)
}

// IsPending reports whether this suite or any ancestor is skipped, either
// statically or for the current run
func (s *Suite) IsPending() bool {
	return s.Pending || s.skipped || (s.Parent != nil && s.Parent.IsPending())
}

// TitlePath returns the titles from the outermost named suite down to this one
func (s *Suite) TitlePath() []string {
	var path []string
	if s.Parent != nil {
		path = s.Parent.TitlePath()
	}
	if !s.Root && s.Title != "" {
		path = append(path, s.Title)
	}
	return path
}

// FullTitle returns the space-joined title path
func (s *Suite) FullTitle() string {
	return strings.Join(s.TitlePath(), " ")
}

// Ancestors returns this suite followed by its parents, innermost first
func (s *Suite) Ancestors() []*Suite {
	var chain []*Suite
	for p := s; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	return chain
}

// Total returns the number of tests under this suite
func (s *Suite) Total() int {
	total := len(s.Tests)
	for _, child := range s.Suites {
		total += child.Total()
	}
	return total
}

// EachTest visits every test depth-first: own tests before child suites
func (s *Suite) EachTest(fn func(t *Runnable)) {
	for _, t := range s.Tests {
		fn(t)
	}
	for _, child := range s.Suites {
		child.EachTest(fn)
	}
}

// HasOnly reports whether any exclusive marker exists in this subtree
func (s *Suite) HasOnly() bool {
	if len(s.onlyTests) > 0 || len(s.onlySuites) > 0 {
		return true
	}
	for _, child := range s.Suites {
		if child.HasOnly() {
			return true
		}
	}
	return false
}

// FilterOnly prunes the subtree down to exclusive branches. A suite with
// exclusive tests keeps only those and drops its children; otherwise it keeps
// exclusive child suites and children that contain exclusive markers. It
// reports whether anything is left to run.
func (s *Suite) FilterOnly() bool {
	if len(s.onlyTests) > 0 {
		s.Tests = slices.Clone(s.onlyTests)
		s.Suites = nil
	} else {
		s.Tests = nil
		for _, only := range s.onlySuites {
			if only.HasOnly() {
				only.FilterOnly()
			}
		}
		kept := s.Suites[:0]
		for _, child := range s.Suites {
			if slices.Contains(s.onlySuites, child) || child.FilterOnly() {
				kept = append(kept, child)
			}
		}
		s.Suites = kept
	}
	return len(s.Tests) > 0 || len(s.Suites) > 0
}

// ReplaceTest puts clone in the slot held by orig. It reports whether orig was found.
func (s *Suite) ReplaceTest(orig, clone *Runnable) bool {
	idx := slices.Index(s.Tests, orig)
	if idx < 0 {
		return false
	}
	s.Tests[idx] = clone
	return true
}

// MarkPending flags every test and child suite under this suite as pending
// for the current run. Reset clears the flags.
func (s *Suite) MarkPending() {
	for _, t := range s.Tests {
		t.State = StatePending
	}
	for _, child := range s.Suites {
		child.skipped = true
	}
}

// Reset returns the subtree to its declared state: retried clones give their
// slot back to the first attempt, and every test and hook forgets the outcome
// of the previous run.
func (s *Suite) Reset() {
	s.skipped = false
	for i, t := range s.Tests {
		orig := t.Original()
		orig.Reset()
		s.Tests[i] = orig
	}
	for _, kind := range HookKinds {
		for _, h := range s.Hooks(kind) {
			h.Reset()
		}
	}
	for _, child := range s.Suites {
		child.Reset()
	}
}

// CleanReferences drops the bodies of this suite's tests and hooks so a
// finished suite does not keep learner closures alive.
func (s *Suite) CleanReferences() {
	for _, kind := range HookKinds {
		for _, h := range s.Hooks(kind) {
			h.Body = Body{}
		}
	}
	for _, t := range s.Tests {
		t.Body = Body{}
	}
}
