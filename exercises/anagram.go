package exercises

import (
	"slices"
	"strings"

	"github.com/katalab/kata-runner/registry"
	"github.com/katalab/kata-runner/types"
)

// Detect returns the candidates that are anagrams of subject. A word is not
// its own anagram; comparison ignores case.
func Detect(subject string, candidates []string) []string {
	key := sortedLower(subject)
	var out []string
	for _, c := range candidates {
		if strings.EqualFold(c, subject) {
			continue
		}
		if sortedLower(c) == key {
			out = append(out, c)
		}
	}
	return out
}

func sortedLower(s string) string {
	runes := []rune(strings.ToLower(s))
	slices.Sort(runes)
	return string(runes)
}

var Anagram = registry.Exercise{
	ID:          "anagram",
	Description: "Select the anagrams of a word from a list of candidates",
	Define: func(s *types.Suite) {
		var candidates []string
		s.AddHook(types.KindBeforeEach, "load candidates", types.Func(func() error {
			candidates = []string{"enlists", "google", "inlets", "banana", "Listen", "silent"}
			return nil
		}))
		s.AddHook(types.KindAfterEach, "reset candidates", types.Func(func() error {
			candidates = nil
			return nil
		}))

		s.AddTest("finds anagrams", types.Func(func() error {
			return expectEqual([]string{"inlets", "silent"}, Detect("listen", candidates))
		}))
		s.AddTest("ignores the word itself", types.Func(func() error {
			return expectEqual([]string(nil), Detect("listen", []string{"LISTEN"}))
		}))
		s.AddTest("is case insensitive", types.Future(func(*types.Context) <-chan error {
			ch := make(chan error, 1)
			ch <- expectEqual([]string{"Listen"}, Detect("SILENT", []string{"Listen"}))
			return ch
		}))
	},
}
