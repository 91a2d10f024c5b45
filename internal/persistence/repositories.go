package persistence

import (
	"context"
	"time"
)

// UnitRepository stores reservation units.
type UnitRepository interface {
	UpsertUnit(ctx context.Context, unit Unit) error
	GetUnit(ctx context.Context, id string) (Unit, error)
	ListUnits(ctx context.Context) ([]Unit, error)
}

// OpenSpanRepository stores the opening hours of a unit.
type OpenSpanRepository interface {
	ReplaceOpenSpans(ctx context.Context, unitID string, spans []OpenSpan) error
	ListOpenSpans(ctx context.Context, unitID string) ([]OpenSpan, error)
}

// ReservationFilter narrows reservation queries. Nil bounds are open.
type ReservationFilter struct {
	UnitID       string
	EndsAfter    *time.Time
	BeginsBefore *time.Time
}

// ReservationRepository stores reservations.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	UpdateReservationState(ctx context.Context, id, state string) error
}

// BlackoutRepository stores application-round periods.
type BlackoutRepository interface {
	ReplaceBlackouts(ctx context.Context, unitID string, blackouts []Blackout) error
	ListBlackouts(ctx context.Context, unitID string) ([]Blackout, error)
}
