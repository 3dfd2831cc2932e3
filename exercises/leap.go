package exercises

import (
	"fmt"

	"github.com/katalab/kata-runner/registry"
	"github.com/katalab/kata-runner/types"
)

// IsLeap reports whether year is a leap year in the Gregorian calendar
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

var Leap = registry.Exercise{
	ID:          "leap",
	Description: "Decide whether a year is a leap year",
	Define: func(s *types.Suite) {
		cases := []struct {
			year int
			want bool
		}{
			{2015, false},
			{1996, true},
			{1900, false},
			{2000, true},
		}
		for _, c := range cases {
			s.AddTest(fmt.Sprintf("year %d", c.year), types.Func(func() error {
				return expectEqual(c.want, IsLeap(c.year))
			}))
		}
		s.AddTest("proleptic years before 1582", types.Body{})
	},
}
