package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/reservation-availability/internal/interval"
	"github.com/example/reservation-availability/internal/snapshot"
)

var unitCounter uint64

// UnitFixture describes a reservation unit and its surrounding data in the
// shape the query layer delivers it.
type UnitFixture struct {
	ID            string
	Name          string
	Timezone      string
	StartInterval string
	MinDuration   time.Duration
	MaxDuration   time.Duration
	BufferBefore  time.Duration
	BufferAfter   time.Duration
	MaxDaysBefore int
	OpenSpans     []snapshot.RawOpenSpan
	Reservations  []snapshot.RawReservation
	Blackouts     []snapshot.RawBlackout
}

// UnitOption configures a UnitFixture.
type UnitOption func(*UnitFixture)

// NewUnitFixture returns a unit open 08:00-20:00 every weekday for the four
// weeks starting MondayAfterReference, bookable in 30 minute steps for one to
// four hours.
func NewUnitFixture(opts ...UnitOption) UnitFixture {
	idx := atomic.AddUint64(&unitCounter, 1)
	fixture := UnitFixture{
		ID:            fmt.Sprintf("unit-%03d", idx),
		Name:          fmt.Sprintf("Room %03d", idx),
		Timezone:      Location.String(),
		StartInterval: "INTERVAL_30_MINS",
		MinDuration:   time.Hour,
		MaxDuration:   4 * time.Hour,
		MaxDaysBefore: 180,
	}
	first := interval.DayKeyOf(MondayAfterReference(0, 0), Location)
	WithWeekdayHours(first, 28, "08:00", "20:00")(&fixture)
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUnitID overrides the generated unit id.
func WithUnitID(id string) UnitOption {
	return func(f *UnitFixture) { f.ID = id }
}

// WithBuffers sets the buffers attached to new reservations.
func WithBuffers(before, after time.Duration) UnitOption {
	return func(f *UnitFixture) {
		f.BufferBefore = before
		f.BufferAfter = after
	}
}

// WithDurations sets the minimum and maximum reservation length.
func WithDurations(minimum, maximum time.Duration) UnitOption {
	return func(f *UnitFixture) {
		f.MinDuration = minimum
		f.MaxDuration = maximum
	}
}

// WithWeekdayHours replaces the opening hours with open..closing on each
// Monday to Friday among the days days starting at first.
func WithWeekdayHours(first interval.DayKey, days int, open, closing string) UnitOption {
	return func(f *UnitFixture) {
		f.OpenSpans = nil
		for day := first; day < first.AddDays(days); day = day.AddDays(1) {
			if day.MondayFirst() > 4 {
				continue
			}
			WithOpenSpan(day.String()+"T"+open+":00", day.String()+"T"+closing+":00")(f)
		}
	}
}

// WithOpenSpan appends one opening-hours entry. Values without an offset are
// read in the unit's timezone.
func WithOpenSpan(start, end string) UnitOption {
	return func(f *UnitFixture) {
		s, e := start, end
		f.OpenSpans = append(f.OpenSpans, snapshot.RawOpenSpan{StartDatetime: &s, EndDatetime: &e})
	}
}

// WithReservation adds a confirmed reservation.
func WithReservation(id string, begin, end time.Time) UnitOption {
	return func(f *UnitFixture) {
		f.Reservations = append(f.Reservations, snapshot.RawReservation{
			ID:    id,
			Begin: begin.Format(time.RFC3339),
			End:   end.Format(time.RFC3339),
			State: "CONFIRMED",
		})
	}
}

// WithBlock adds a staff block.
func WithBlock(id string, begin, end time.Time) UnitOption {
	return func(f *UnitFixture) {
		f.Reservations = append(f.Reservations, snapshot.RawReservation{
			ID:    id,
			Begin: begin.Format(time.RFC3339),
			End:   end.Format(time.RFC3339),
			State: "CONFIRMED",
			Type:  "BLOCKED",
		})
	}
}

// WithBlackout adds an application-round period over inclusive YYYY-MM-DD dates.
func WithBlackout(begin, end string) UnitOption {
	return func(f *UnitFixture) {
		f.Blackouts = append(f.Blackouts, snapshot.RawBlackout{Begin: begin, End: end})
	}
}

// Snapshot returns the fixture as a snapshot document without a fixed now.
func (f UnitFixture) Snapshot() snapshot.Snapshot {
	return snapshot.Snapshot{
		Timezone: f.Timezone,
		Unit: snapshot.RawUnit{
			ID:                        f.ID,
			Name:                      f.Name,
			MinReservationDuration:    int64(f.MinDuration / time.Second),
			MaxReservationDuration:    int64(f.MaxDuration / time.Second),
			ReservationStartInterval:  f.StartInterval,
			BufferTimeBefore:          int64(f.BufferBefore / time.Second),
			BufferTimeAfter:           int64(f.BufferAfter / time.Second),
			ReservationsMaxDaysBefore: f.MaxDaysBefore,
			ApplicationRoundPeriods:   append([]snapshot.RawBlackout(nil), f.Blackouts...),
		},
		OpenSpans:    append([]snapshot.RawOpenSpan(nil), f.OpenSpans...),
		Reservations: append([]snapshot.RawReservation(nil), f.Reservations...),
	}
}
