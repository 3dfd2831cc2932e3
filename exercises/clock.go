package exercises

import (
	"fmt"

	"github.com/katalab/kata-runner/registry"
	"github.com/katalab/kata-runner/types"
)

const minutesPerDay = 24 * 60

// ClockTime is a time of day without a date, in minutes since midnight
type ClockTime int

// NewClock normalizes hour and minute into a time of day. Negative and
// overflowing values roll over.
func NewClock(hour, minute int) ClockTime {
	m := (hour*60 + minute) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return ClockTime(m)
}

// Add returns the clock moved forward by minutes
func (c ClockTime) Add(minutes int) ClockTime {
	return NewClock(0, int(c)+minutes)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

var Clock = registry.Exercise{
	ID:          "clock",
	Description: "Model a time of day that rolls over at midnight",
	Define: func(s *types.Suite) {
		var base ClockTime
		s.AddHook(types.KindBeforeAll, "build base clock", types.Func(func() error {
			base = NewClock(8, 0)
			return nil
		}))

		create := s.AddSuite("create")
		create.AddTest("on the hour", types.Func(func() error {
			return expectEqual("08:00", base.String())
		}))
		create.AddTest("rolls over hours", types.Func(func() error {
			return expectEqual("04:00", NewClock(100, 0).String())
		}))
		create.AddTest("handles negative minutes", types.Func(func() error {
			return expectEqual("23:20", NewClock(0, -40).String())
		}))

		arithmetic := s.AddSuite("arithmetic")
		arithmetic.AddTest("adds minutes", types.Func(func() error {
			return expectEqual("08:03", base.Add(3).String())
		}))
		arithmetic.AddTest("adds across midnight", types.Func(func() error {
			return expectEqual("00:01", NewClock(23, 59).Add(2).String())
		}))
		arithmetic.AddTest("subtracts", types.Func(func() error {
			return expectEqual("07:30", base.Add(-30).String())
		}))
	},
}
