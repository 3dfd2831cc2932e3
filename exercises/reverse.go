package exercises

import (
	"github.com/katalab/kata-runner/registry"
	"github.com/katalab/kata-runner/types"
)

// Reverse returns s with its runes in reverse order
func Reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

var ReverseString = registry.Exercise{
	ID:          "reverse-string",
	Title:       "reverse string",
	Description: "Reverse a string rune by rune",
	Define: func(s *types.Suite) {
		cases := []struct{ title, in, want string }{
			{"an empty string", "", ""},
			{"a word", "robot", "tobor"},
			{"a palindrome", "racecar", "racecar"},
			{"unicode", "résumé", "émusér"},
		}
		for _, c := range cases {
			s.AddTest("reverses "+c.title, types.Func(func() error {
				return expectEqual(c.want, Reverse(c.in))
			}))
		}

		// reversing twice is the identity; this runs as a callback body
		s.AddTest("round trips", types.Callback(func(_ *types.Context, done types.Done) {
			go func() {
				done(expectEqual("kata", Reverse(Reverse("kata"))))
			}()
		}))
	},
}
