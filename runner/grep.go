package runner

import "github.com/katalab/kata-runner/types"

// matches applies the active title filter to a test
func (r *Runner) matches(t *types.Runnable) bool {
	match := r.grep == nil || r.grep.MatchString(t.FullTitle())
	if r.invert {
		match = !match
	}
	return match
}

// grepTotal counts the tests under s that pass the title filter
func (r *Runner) grepTotal(s *types.Suite) int {
	total := 0
	s.EachTest(func(t *types.Runnable) {
		if r.matches(t) {
			total++
		}
	})
	return total
}
