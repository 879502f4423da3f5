package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// summaryClock supplies CitySummary.ComputedAt.
var summaryClock clockwork.Clock = clockwork.NewRealClock()

// SetClock replaces the source of ComputedAt timestamps, letting callers pin
// a recompute to a known instant. nil restores wall-clock time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	summaryClock = c
}

// computedAt is the UTC instant stamped on summaries produced now.
func computedAt() time.Time {
	return summaryClock.Now().UTC()
}
