package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() Body {
	return Func(func() error { return nil })
}

func buildTree() *Suite {
	root := NewRootSuite("")
	math := root.AddSuite("Math")
	math.AddTest("adds", noop())
	math.AddTest("subtracts", noop())
	nested := math.AddSuite("nested")
	nested.AddTest("multiplies", noop())
	root.AddSuite("Strings").AddTest("concatenates", noop())
	return root
}

func TestSuite_TotalAndEachTest(t *testing.T) {
	root := buildTree()
	assert.Equal(t, 4, root.Total())

	var titles []string
	root.EachTest(func(r *Runnable) {
		titles = append(titles, r.FullTitle())
	})
	assert.Equal(t, []string{
		"Math adds",
		"Math subtracts",
		"Math nested multiplies",
		"Strings concatenates",
	}, titles)
}

func TestSuite_TitlePath(t *testing.T) {
	root := NewRootSuite("ignored root title")
	child := root.AddSuite("outer").AddSuite("inner")
	assert.Equal(t, []string{"outer", "inner"}, child.TitlePath())
	assert.Equal(t, "outer inner", child.FullTitle())
	assert.Empty(t, root.FullTitle())
}

func TestSuite_AddSuiteInheritsBail(t *testing.T) {
	root := NewRootSuite("")
	root.Bail = true
	child := root.AddSuite("a")
	assert.True(t, child.Bail)
	assert.Equal(t, InheritRetries, child.Retries)
}

func TestSuite_AddTestWithoutBodyIsPending(t *testing.T) {
	root := NewRootSuite("")
	s := root.AddSuite("todo")
	test := s.AddTest("later", Body{})
	assert.True(t, test.IsPending())
	assert.Same(t, s, test.Parent)
}

func TestSuite_PendingPropagatesToDescendants(t *testing.T) {
	root := NewRootSuite("")
	s := root.AddSuite("skipped")
	inner := s.AddSuite("inner")
	test := inner.AddTest("t", noop())
	s.Pending = true
	assert.True(t, inner.IsPending())
	assert.True(t, test.IsPending())
}

func TestSuite_MarkPending(t *testing.T) {
	root := NewRootSuite("")
	s := root.AddSuite("s")
	a := s.AddTest("a", noop())
	inner := s.AddSuite("inner")
	b := inner.AddTest("b", noop())

	s.MarkPending()
	assert.True(t, a.IsPending())
	assert.False(t, a.Pending)
	assert.True(t, inner.IsPending())
	assert.True(t, b.IsPending())
	assert.False(t, s.IsPending())

	s.Reset()
	assert.False(t, a.IsPending())
	assert.False(t, inner.IsPending())
	assert.False(t, b.IsPending())
}

func TestSuite_ResetRestoresFirstAttempt(t *testing.T) {
	root := NewRootSuite("")
	orig := root.AddTest("flaky", noop())
	orig.State = StateFailed
	clone := orig.Clone()
	require.True(t, root.ReplaceTest(orig, clone))
	clone.State = StatePassed

	root.Reset()
	assert.Same(t, orig, root.Tests[0])
	assert.Equal(t, StateUnrun, orig.State)
	assert.Nil(t, orig.Err)
	assert.Equal(t, 0, root.Tests[0].CurrentRetry())
}

func TestSuite_Hooks(t *testing.T) {
	root := NewRootSuite("")
	first := root.AddHook(KindBeforeEach, "first", noop())
	second := root.AddHook(KindBeforeEach, "", noop())
	after := root.AddHook(KindAfterAll, "", noop())

	assert.Equal(t, []*Runnable{first, second}, root.Hooks(KindBeforeEach))
	assert.Equal(t, []*Runnable{after}, root.Hooks(KindAfterAll))
	assert.Empty(t, root.Hooks(KindBeforeAll))
	assert.Panics(t, func() { root.AddHook(KindTest, "", noop()) })
}

func TestSuite_FilterOnly(t *testing.T) {
	tests := []struct {
		name      string
		build     func() *Suite
		wantTests []string
	}{
		{
			name: "exclusive test drops siblings and child suites",
			build: func() *Suite {
				root := NewRootSuite("")
				s := root.AddSuite("s")
				s.AddTest("a", noop())
				only := s.AddTest("b", noop())
				s.AppendOnlyTest(only)
				s.AddSuite("child").AddTest("c", noop())
				root.AddSuite("other").AddTest("d", noop())
				return root
			},
			wantTests: []string{"s b"},
		},
		{
			name: "exclusive suite keeps its whole subtree",
			build: func() *Suite {
				root := NewRootSuite("")
				only := root.AddSuite("only")
				only.AddTest("a", noop())
				only.AddSuite("inner").AddTest("b", noop())
				root.AppendOnlySuite(only)
				root.AddSuite("other").AddTest("c", noop())
				return root
			},
			wantTests: []string{"only a", "only inner b"},
		},
		{
			name: "exclusive test nested in exclusive suite wins",
			build: func() *Suite {
				root := NewRootSuite("")
				only := root.AddSuite("only")
				only.AddTest("a", noop())
				inner := only.AddSuite("inner")
				inner.AddTest("b", noop())
				c := inner.AddTest("c", noop())
				inner.AppendOnlyTest(c)
				root.AppendOnlySuite(only)
				return root
			},
			wantTests: []string{"only inner c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := tt.build()
			require.True(t, root.HasOnly())
			require.True(t, root.FilterOnly())

			var got []string
			root.EachTest(func(r *Runnable) { got = append(got, r.FullTitle()) })
			assert.Equal(t, tt.wantTests, got)
			assert.Equal(t, len(tt.wantTests), root.Total())
		})
	}
}

func TestSuite_HasOnlyWithoutMarkers(t *testing.T) {
	assert.False(t, buildTree().HasOnly())
}

func TestSuite_ReplaceTest(t *testing.T) {
	root := NewRootSuite("")
	s := root.AddSuite("s")
	a := s.AddTest("a", noop())
	b := s.AddTest("b", noop())
	clone := a.Clone()

	require.True(t, s.ReplaceTest(a, clone))
	assert.Equal(t, []*Runnable{clone, b}, s.Tests)
	assert.False(t, s.ReplaceTest(a, clone))
}

func TestSuite_CleanReferences(t *testing.T) {
	root := NewRootSuite("")
	h := root.AddHook(KindBeforeAll, "", noop())
	test := root.AddTest("t", noop())
	root.CleanReferences()
	assert.True(t, h.Body.IsZero())
	assert.True(t, test.Body.IsZero())
}
