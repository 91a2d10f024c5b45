// Package availability decides whether a candidate time range can be booked
// on a reservation unit.
package availability

import (
	"time"

	"github.com/example/reservation-availability/internal/dayindex"
	"github.com/example/reservation-availability/internal/interval"
	"github.com/example/reservation-availability/internal/scheduler"
)

// Reason is a stable label explaining a verdict.
type Reason string

const (
	ReasonReservable          Reason = "reservable"
	ReasonInvalidInterval     Reason = "invalid_interval"
	ReasonDurationMisaligned  Reason = "duration_misaligned"
	ReasonTooShort            Reason = "too_short"
	ReasonTooLong             Reason = "too_long"
	ReasonCollision           Reason = "collision"
	ReasonOutsideOpenHours    Reason = "outside_open_hours"
	ReasonStartMisaligned     Reason = "start_misaligned"
	ReasonInPast              Reason = "in_past"
	ReasonOutsideBookingRange Reason = "outside_booking_window"
	ReasonBlackout            Reason = "blackout"
)

// Input bundles everything a single check needs. Callers build it fresh from
// the latest query results; the checker never retains it.
type Input struct {
	Candidate    interval.Interval
	Index        *dayindex.Index
	Constraints  Constraints
	Blackouts    []Blackout
	Reservations []scheduler.Reservation
	Now          time.Time
}

// Verdict is the outcome of a check.
type Verdict struct {
	Reservable bool
	Reason     Reason
}

func reject(reason Reason) Verdict {
	return Verdict{Reason: reason}
}

// Checker evaluates candidates against opening hours and booking rules in a
// reference timezone.
type Checker struct {
	location *time.Location
}

// NewChecker constructs a Checker. If loc is nil, the index location is used.
func NewChecker(loc *time.Location) *Checker {
	return &Checker{location: loc}
}

// IsReservable reports whether the candidate passes every rule.
func (c *Checker) IsReservable(in Input) bool {
	return c.Check(in).Reservable
}

// Check runs the rules cheapest first and returns on the first failure:
// interval sanity, duration alignment, duration bounds, buffered collisions,
// opening hours and start alignment, booking window, blackout periods.
func (c *Checker) Check(in Input) Verdict {
	candidate := in.Candidate
	if !candidate.Valid() {
		return reject(ReasonInvalidInterval)
	}

	step := in.Constraints.startInterval()
	duration := candidate.Duration()
	if duration%step != 0 {
		return reject(ReasonDurationMisaligned)
	}
	if duration < in.Constraints.minDuration() {
		return reject(ReasonTooShort)
	}
	if longest := in.Constraints.MaxDuration; longest > 0 && duration > longest {
		return reject(ReasonTooLong)
	}

	request := scheduler.Candidate{
		Start:        candidate.Start,
		End:          candidate.End,
		BufferBefore: in.Constraints.BufferBefore,
		BufferAfter:  in.Constraints.BufferAfter,
	}
	if scheduler.Collides(request, in.Reservations) {
		return reject(ReasonCollision)
	}

	loc := c.locationFor(in.Index)
	if reason := fitsOpenHours(candidate, in.Index, step, loc); reason != "" {
		return reject(reason)
	}

	if reason := withinBookingWindow(candidate, in.Constraints, in.Now, loc); reason != "" {
		return reject(reason)
	}

	day := interval.DayKeyOf(candidate.Start, loc)
	for _, blackout := range in.Blackouts {
		if blackout.Includes(day) {
			return reject(ReasonBlackout)
		}
	}

	return Verdict{Reservable: true, Reason: ReasonReservable}
}

func (c *Checker) locationFor(idx *dayindex.Index) *time.Location {
	if c != nil && c.location != nil {
		return c.location
	}
	return idx.Location()
}

// fitsOpenHours requires the start to sit on the step grid of the window it
// falls in, and every step-sized piece of the candidate to lie inside some
// open window. Checking only the endpoints would accept a candidate spanning
// a closed gap between two windows.
func fitsOpenHours(candidate interval.Interval, idx *dayindex.Index, step time.Duration, loc *time.Location) Reason {
	windows := idx.Windows(interval.DayKeyOf(candidate.Start, loc))

	inWindow := false
	aligned := false
	for _, w := range windows {
		if candidate.Start.Before(w.Start) || !candidate.Start.Before(w.End) {
			continue
		}
		inWindow = true
		if candidate.Start.Sub(w.Anchor)%step == 0 {
			aligned = true
			break
		}
	}
	if !inWindow {
		return ReasonOutsideOpenHours
	}
	if !aligned {
		return ReasonStartMisaligned
	}

	for t := candidate.Start; t.Before(candidate.End); t = t.Add(step) {
		if !idx.Covers(interval.New(t, t.Add(step))) {
			return ReasonOutsideOpenHours
		}
	}
	return ""
}

func withinBookingWindow(candidate interval.Interval, constraints Constraints, now time.Time, loc *time.Location) Reason {
	if !now.IsZero() && candidate.Start.Before(now) {
		return ReasonInPast
	}

	today := interval.DayKeyOf(now, loc)
	if constraints.MinDaysBefore > 0 {
		earliest := today.AddDays(constraints.MinDaysBefore).Start(loc)
		if candidate.Start.Before(earliest) {
			return ReasonOutsideBookingRange
		}
	}
	if constraints.MaxDaysBefore > 0 {
		limit := today.AddDays(constraints.MaxDaysBefore + 1).Start(loc)
		if !candidate.Start.Before(limit) {
			return ReasonOutsideBookingRange
		}
	}

	if constraints.WindowBegin != nil && candidate.Start.Before(*constraints.WindowBegin) {
		return ReasonOutsideBookingRange
	}
	if constraints.WindowEnd != nil && candidate.End.After(*constraints.WindowEnd) {
		return ReasonOutsideBookingRange
	}
	return ""
}
