package interval

import "time"

// Tick is the smallest time unit the engine distinguishes. It is used to pull
// an end instant that falls on midnight back into the day it closes.
const Tick = time.Millisecond

// Interval is a span of time. Booking intervals are half-open: [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// New returns the interval between start and end without normalization.
func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Duration reports the length of the interval. Inverted intervals report a
// negative duration.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Valid reports whether the interval has a positive length.
func (i Interval) Valid() bool {
	if i.Start.IsZero() || i.End.IsZero() {
		return false
	}
	return i.End.After(i.Start)
}

// Overlaps reports whether the two intervals share any instant. Intervals that
// only touch (one ends exactly when the other begins) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether other lies entirely within i.
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Extend widens the interval by before at the start and after at the end.
func (i Interval) Extend(before, after time.Duration) Interval {
	return Interval{Start: i.Start.Add(-before), End: i.End.Add(after)}
}

// Compare orders intervals by start, then by end.
func Compare(a, b Interval) int {
	switch {
	case a.Start.Before(b.Start):
		return -1
	case a.Start.After(b.Start):
		return 1
	case a.End.Before(b.End):
		return -1
	case a.End.After(b.End):
		return 1
	default:
		return 0
	}
}
