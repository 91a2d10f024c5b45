package testfixtures

import (
	"sync"
	"time"
	_ "time/tzdata"
)

// Location is the timezone fixtures are expressed in.
var Location = mustLoad("Europe/Helsinki")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// ReferenceTime is Friday 1 March 2024 08:00 in Location, the "now" fixtures
// are built around. The following Monday is MondayAfterReference.
func ReferenceTime() time.Time {
	return time.Date(2024, time.March, 1, 8, 0, 0, 0, Location)
}

// MondayAfterReference returns the first Monday after ReferenceTime at hour:minute.
func MondayAfterReference(hour, minute int) time.Time {
	return time.Date(2024, time.March, 4, hour, minute, 0, 0, Location)
}

// Clock is a controllable time source.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the clock time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for injection. A nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// AdvanceDays moves the clock by n calendar days in its own location, keeping
// the wall-clock time across DST changes.
func (c *Clock) AdvanceDays(n int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.AddDate(0, 0, n)
	return c.current
}
