package persistence

import "time"

// Unit is a reservation unit together with its booking policy.
type Unit struct {
	ID       string
	Name     string
	Timezone string
	// StartInterval is the enum label, for example INTERVAL_30_MINS.
	StartInterval     string
	MinDuration       time.Duration
	MaxDuration       time.Duration
	BufferBefore      time.Duration
	BufferAfter       time.Duration
	MinDaysBefore     int
	MaxDaysBefore     int
	ReservationBegins *time.Time
	ReservationEnds   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OpenSpan is one stored opening-hours entry. Bounds are kept as the ISO
// strings received from the source and may be null.
type OpenSpan struct {
	ID            int64
	UnitID        string
	StartDatetime *string
	EndDatetime   *string
}

// Reservation is an existing booking on a unit.
type Reservation struct {
	ID           string
	UnitID       string
	Begin        time.Time
	End          time.Time
	BufferBefore time.Duration
	BufferAfter  time.Duration
	State        string
	Blocked      bool
	// BatchID links reservations created by one recurring submission.
	BatchID   *string
	CreatedAt time.Time
}

// Blackout is an application-round reservation period with inclusive
// YYYY-MM-DD dates.
type Blackout struct {
	ID     int64
	UnitID string
	Begin  string
	End    string
}
