package auth

import "time"

// RefreshWindow bounds refresh attempts inside a sliding time interval.
// The zero value is not meaningful; construct one explicitly and pass it
// via WithRefreshWindow. An interceptor without a window never treats a
// refresh as excessive.
type RefreshWindow struct {
	// Interval is the width of the sliding window.
	Interval time.Duration
	// MaximumAttempts is the number of refreshes permitted per window.
	MaximumAttempts int
}

// allows reports whether another refresh may run at now given the history
// of prior refresh timestamps.
func (w RefreshWindow) allows(history []time.Time, now time.Time) bool {
	cutoff := now.Add(-w.Interval)
	attempts := 0
	for _, ts := range history {
		if !ts.Before(cutoff) {
			attempts++
		}
	}
	return attempts < w.MaximumAttempts
}
