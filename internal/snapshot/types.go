// Package snapshot decodes the payloads the query layer hands to the engine
// and converts them into engine values.
package snapshot

// RawOpenSpan is one opening-hours entry. Either bound may be null.
type RawOpenSpan struct {
	StartDatetime *string `json:"startDatetime" yaml:"startDatetime"`
	EndDatetime   *string `json:"endDatetime" yaml:"endDatetime"`
}

// RawReservation is an existing reservation on the unit. Buffers are seconds.
type RawReservation struct {
	ID               string `json:"id,omitempty" yaml:"id"`
	Begin            string `json:"begin" yaml:"begin" validate:"required"`
	End              string `json:"end" yaml:"end" validate:"required"`
	BufferTimeBefore int64  `json:"bufferTimeBefore" yaml:"bufferTimeBefore" validate:"gte=0"`
	BufferTimeAfter  int64  `json:"bufferTimeAfter" yaml:"bufferTimeAfter" validate:"gte=0"`
	State            string `json:"state" yaml:"state"`
	Type             string `json:"type,omitempty" yaml:"type"`
	IsBlocked        bool   `json:"isBlocked,omitempty" yaml:"isBlocked"`
}

// RawBlackout is an application-round reservation period with inclusive
// YYYY-MM-DD dates.
type RawBlackout struct {
	Begin string `json:"begin" yaml:"begin" validate:"required"`
	End   string `json:"end" yaml:"end" validate:"required"`
}

// RawUnit is the reservation unit's constraint snapshot. Durations and
// buffers are seconds.
type RawUnit struct {
	ID                        string        `json:"id" yaml:"id" validate:"required"`
	Name                      string        `json:"name,omitempty" yaml:"name"`
	MinReservationDuration    int64         `json:"minReservationDuration" yaml:"minReservationDuration" validate:"gte=0"`
	MaxReservationDuration    int64         `json:"maxReservationDuration" yaml:"maxReservationDuration" validate:"gte=0"`
	ReservationStartInterval  string        `json:"reservationStartInterval" yaml:"reservationStartInterval"`
	BufferTimeBefore          int64         `json:"bufferTimeBefore" yaml:"bufferTimeBefore" validate:"gte=0"`
	BufferTimeAfter           int64         `json:"bufferTimeAfter" yaml:"bufferTimeAfter" validate:"gte=0"`
	ReservationsMinDaysBefore int           `json:"reservationsMinDaysBefore" yaml:"reservationsMinDaysBefore" validate:"gte=0"`
	ReservationsMaxDaysBefore int           `json:"reservationsMaxDaysBefore" yaml:"reservationsMaxDaysBefore" validate:"gte=0"`
	ReservationBegins         *string       `json:"reservationBegins,omitempty" yaml:"reservationBegins"`
	ReservationEnds           *string       `json:"reservationEnds,omitempty" yaml:"reservationEnds"`
	ApplicationRoundPeriods   []RawBlackout `json:"applicationRoundPeriods,omitempty" yaml:"applicationRoundPeriods" validate:"dive"`
}

// RawRecurrence is a recurring reservation request.
type RawRecurrence struct {
	StartDate string `json:"startDate" yaml:"startDate" validate:"required"`
	EndDate   string `json:"endDate" yaml:"endDate" validate:"required"`
	StartTime string `json:"startTime" yaml:"startTime" validate:"required"`
	EndTime   string `json:"endTime" yaml:"endTime" validate:"required"`
	Weekdays  []int  `json:"weekdays" yaml:"weekdays" validate:"dive,gte=0,lte=6"`
	Cadence   string `json:"cadence" yaml:"cadence" validate:"omitempty,oneof=weekly biweekly"`
	Anchor    string `json:"anchor,omitempty" yaml:"anchor" validate:"omitempty,oneof=per_weekday calendar_week"`
}

// Snapshot bundles one unit's data as returned by the query layer.
type Snapshot struct {
	Now          string           `json:"now,omitempty" yaml:"now"`
	Timezone     string           `json:"timezone,omitempty" yaml:"timezone"`
	Unit         RawUnit          `json:"unit" yaml:"unit"`
	OpenSpans    []RawOpenSpan    `json:"openingHours" yaml:"openingHours"`
	Reservations []RawReservation `json:"reservations" yaml:"reservations" validate:"dive"`
	Recurrence   *RawRecurrence   `json:"recurrence,omitempty" yaml:"recurrence"`
}
