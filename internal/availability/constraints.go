package availability

import (
	"time"

	"github.com/example/reservation-availability/internal/interval"
)

const (
	// DefaultMinDuration applies when a unit configures no minimum duration.
	DefaultMinDuration = 30 * time.Minute
	// DefaultStartInterval applies when a unit configures no start interval.
	DefaultStartInterval = 15 * time.Minute
)

// Constraints is the reservation unit's booking policy at the time of the
// check. Zero values mean "not configured".
type Constraints struct {
	MinDuration   time.Duration
	MaxDuration   time.Duration
	StartInterval time.Duration
	// BufferBefore and BufferAfter are attached to every new reservation.
	BufferBefore time.Duration
	BufferAfter  time.Duration
	// MinDaysBefore and MaxDaysBefore bound how far ahead of today the
	// reservation may start.
	MinDaysBefore int
	MaxDaysBefore int
	WindowBegin   *time.Time
	WindowEnd     *time.Time
}

func (c Constraints) minDuration() time.Duration {
	if c.MinDuration > 0 {
		return c.MinDuration
	}
	return DefaultMinDuration
}

func (c Constraints) startInterval() time.Duration {
	if c.StartInterval > 0 {
		return c.StartInterval
	}
	return DefaultStartInterval
}

// Blackout is an inclusive range of calendar days during which direct
// bookings are closed, typically an application round's reservation period.
type Blackout struct {
	Begin interval.DayKey
	End   interval.DayKey
}

// Includes reports whether day lies within the blackout.
func (b Blackout) Includes(day interval.DayKey) bool {
	return day >= b.Begin && day <= b.End
}
