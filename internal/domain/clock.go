package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Clock returns the current time source.
func Clock() clockwork.Clock {
	return clock
}

// Now returns the current time in loc, or in the clock's own location when loc is nil.
func Now(loc *time.Location) time.Time {
	now := clock.Now()
	if loc == nil {
		return now
	}
	return now.In(loc)
}
