package scheduler

import (
	"strings"
	"time"

	"github.com/example/reservation-availability/internal/interval"
)

// ReservationState is the lifecycle state of an existing reservation.
type ReservationState string

const (
	StateCreated           ReservationState = "CREATED"
	StateConfirmed         ReservationState = "CONFIRMED"
	StateRequiresHandling  ReservationState = "REQUIRES_HANDLING"
	StateWaitingForPayment ReservationState = "WAITING_FOR_PAYMENT"
	StateDenied            ReservationState = "DENIED"
	StateCancelled         ReservationState = "CANCELLED"
)

// Occupies reports whether reservations in this state hold their time slot.
func (s ReservationState) Occupies() bool {
	switch ReservationState(strings.ToUpper(strings.TrimSpace(string(s)))) {
	case StateDenied, StateCancelled:
		return false
	default:
		return true
	}
}

// Reservation is an existing booking on a reservation unit.
type Reservation struct {
	ID           string
	Begin        time.Time
	End          time.Time
	BufferBefore time.Duration
	BufferAfter  time.Duration
	// Blocked marks a staff block. Blocks are exact and carry no buffers.
	Blocked bool
	State   ReservationState
}

// Interval returns the reserved time without buffers.
func (r Reservation) Interval() interval.Interval {
	return interval.New(r.Begin, r.End)
}

// Buffered returns the reserved time widened by its buffers. Blocks are
// returned unchanged.
func (r Reservation) Buffered() interval.Interval {
	if r.Blocked {
		return r.Interval()
	}
	return r.Interval().Extend(nonNegative(r.BufferBefore), nonNegative(r.BufferAfter))
}

// Candidate is a reservation being requested together with the buffers the
// reservation unit attaches to new bookings.
type Candidate struct {
	Start        time.Time
	End          time.Time
	BufferBefore time.Duration
	BufferAfter  time.Duration
}

// Interval returns the requested time without buffers.
func (c Candidate) Interval() interval.Interval {
	return interval.New(c.Start, c.End)
}

// Buffered returns the requested time widened by its buffers.
func (c Candidate) Buffered() interval.Interval {
	return c.Interval().Extend(nonNegative(c.BufferBefore), nonNegative(c.BufferAfter))
}

// AsCandidate views an existing reservation as a request, which makes the
// collision test usable in both directions.
func (r Reservation) AsCandidate() Candidate {
	buffered := r.Buffered()
	return Candidate{
		Start:        r.Begin,
		End:          r.End,
		BufferBefore: r.Begin.Sub(buffered.Start),
		BufferAfter:  buffered.End.Sub(r.End),
	}
}

// ConflictType describes how a candidate collides with a reservation.
type ConflictType string

const (
	// ConflictTypeOverlap indicates the reserved times themselves overlap.
	ConflictTypeOverlap ConflictType = "overlap"
	// ConflictTypeBuffer indicates only the buffered times overlap.
	ConflictTypeBuffer ConflictType = "buffer"
)

// Conflict details a reservation that collides with the candidate.
type Conflict struct {
	WithReservationID string
	Type              ConflictType
	Interval          interval.Interval
}

// Collides reports whether the buffered candidate overlaps any buffered
// reservation that still occupies its slot. Back-to-back bookings without
// buffers do not collide.
func Collides(candidate Candidate, reservations []Reservation) bool {
	buffered := candidate.Buffered()
	for _, r := range reservations {
		if !r.State.Occupies() {
			continue
		}
		if buffered.Overlaps(r.Buffered()) {
			return true
		}
	}
	return false
}

// DetectConflicts enumerates every occupying reservation the candidate
// collides with, in input order.
func DetectConflicts(existing []Reservation, candidate Candidate) []Conflict {
	buffered := candidate.Buffered()
	raw := candidate.Interval()

	var conflicts []Conflict
	for _, r := range existing {
		if !r.State.Occupies() {
			continue
		}
		if !buffered.Overlaps(r.Buffered()) {
			continue
		}
		kind := ConflictTypeBuffer
		if raw.Overlaps(r.Interval()) {
			kind = ConflictTypeOverlap
		}
		conflicts = append(conflicts, Conflict{
			WithReservationID: r.ID,
			Type:              kind,
			Interval:          r.Interval(),
		})
	}
	return conflicts
}

// OverlapsAny reports whether iv overlaps any of the intervals.
func OverlapsAny(iv interval.Interval, intervals []interval.Interval) bool {
	for _, other := range intervals {
		if iv.Overlaps(other) {
			return true
		}
	}
	return false
}

// OccupiedIntervals returns the unbuffered intervals of reservations that
// still occupy their slot.
func OccupiedIntervals(reservations []Reservation) []interval.Interval {
	out := make([]interval.Interval, 0, len(reservations))
	for _, r := range reservations {
		if r.State.Occupies() {
			out = append(out, r.Interval())
		}
	}
	return out
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
