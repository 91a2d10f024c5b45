package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/reservation-availability/internal/snapshot"
	"github.com/example/reservation-availability/internal/submission"
)

const timestampLayout = time.RFC3339Nano

// Source assembles unit snapshots from the repositories.
type Source struct {
	Units        UnitRepository
	OpenSpans    OpenSpanRepository
	Reservations ReservationRepository
	Blackouts    BlackoutRepository
}

// LoadSnapshot returns everything the engine needs for one unit. Unknown
// units yield ErrNotFound.
func (s Source) LoadSnapshot(ctx context.Context, unitID string) (snapshot.Snapshot, error) {
	unit, err := s.Units.GetUnit(ctx, unitID)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	spans, err := s.OpenSpans.ListOpenSpans(ctx, unitID)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("list open spans: %w", err)
	}
	reservations, err := s.Reservations.ListReservations(ctx, ReservationFilter{UnitID: unitID})
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("list reservations: %w", err)
	}
	blackouts, err := s.Blackouts.ListBlackouts(ctx, unitID)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("list blackouts: %w", err)
	}

	doc := snapshot.Snapshot{
		Timezone:     unit.Timezone,
		Unit:         rawUnit(unit, blackouts),
		OpenSpans:    make([]snapshot.RawOpenSpan, 0, len(spans)),
		Reservations: make([]snapshot.RawReservation, 0, len(reservations)),
	}
	for _, span := range spans {
		doc.OpenSpans = append(doc.OpenSpans, snapshot.RawOpenSpan{
			StartDatetime: span.StartDatetime,
			EndDatetime:   span.EndDatetime,
		})
	}
	for _, r := range reservations {
		doc.Reservations = append(doc.Reservations, snapshot.RawReservation{
			ID:               r.ID,
			Begin:            r.Begin.Format(timestampLayout),
			End:              r.End.Format(timestampLayout),
			BufferTimeBefore: int64(r.BufferBefore / time.Second),
			BufferTimeAfter:  int64(r.BufferAfter / time.Second),
			State:            r.State,
			IsBlocked:        r.Blocked,
		})
	}
	return doc, nil
}

func rawUnit(unit Unit, blackouts []Blackout) snapshot.RawUnit {
	raw := snapshot.RawUnit{
		ID:                        unit.ID,
		Name:                      unit.Name,
		MinReservationDuration:    int64(unit.MinDuration / time.Second),
		MaxReservationDuration:    int64(unit.MaxDuration / time.Second),
		ReservationStartInterval:  unit.StartInterval,
		BufferTimeBefore:          int64(unit.BufferBefore / time.Second),
		BufferTimeAfter:           int64(unit.BufferAfter / time.Second),
		ReservationsMinDaysBefore: unit.MinDaysBefore,
		ReservationsMaxDaysBefore: unit.MaxDaysBefore,
		ReservationBegins:         formatOptional(unit.ReservationBegins),
		ReservationEnds:           formatOptional(unit.ReservationEnds),
	}
	for _, b := range blackouts {
		raw.ApplicationRoundPeriods = append(raw.ApplicationRoundPeriods, snapshot.RawBlackout{Begin: b.Begin, End: b.End})
	}
	return raw
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timestampLayout)
	return &s
}

// ImportStats counts what Import wrote.
type ImportStats struct {
	OpenSpans    int `json:"openSpans"`
	Reservations int `json:"reservations"`
	Skipped      int `json:"skipped"`
	Blackouts    int `json:"blackouts"`
}

// Importer loads snapshot documents into the repositories.
type Importer struct {
	Units        UnitRepository
	OpenSpans    OpenSpanRepository
	Reservations ReservationRepository
	Blackouts    BlackoutRepository
}

// Import upserts the document's unit and replaces its opening hours and
// application-round periods. Reservations are added; rows that already exist
// or cannot be parsed are counted as skipped.
func (im Importer) Import(ctx context.Context, doc snapshot.Snapshot) (ImportStats, error) {
	var stats ImportStats

	loc, err := snapshot.Location(doc.Timezone, time.UTC)
	if err != nil {
		return stats, fmt.Errorf("timezone: %w", err)
	}

	unit, err := unitRecord(doc, loc)
	if err != nil {
		return stats, err
	}
	if err := im.Units.UpsertUnit(ctx, unit); err != nil {
		return stats, fmt.Errorf("upsert unit %s: %w", unit.ID, err)
	}

	spans := make([]OpenSpan, 0, len(doc.OpenSpans))
	for _, raw := range doc.OpenSpans {
		spans = append(spans, OpenSpan{StartDatetime: raw.StartDatetime, EndDatetime: raw.EndDatetime})
	}
	if err := im.OpenSpans.ReplaceOpenSpans(ctx, unit.ID, spans); err != nil {
		return stats, fmt.Errorf("replace open spans: %w", err)
	}
	stats.OpenSpans = len(spans)

	blackouts := make([]Blackout, 0, len(doc.Unit.ApplicationRoundPeriods))
	for _, raw := range doc.Unit.ApplicationRoundPeriods {
		blackouts = append(blackouts, Blackout{Begin: raw.Begin, End: raw.End})
	}
	if err := im.Blackouts.ReplaceBlackouts(ctx, unit.ID, blackouts); err != nil {
		return stats, fmt.Errorf("replace blackouts: %w", err)
	}
	stats.Blackouts = len(blackouts)

	for _, raw := range doc.Reservations {
		record, ok := reservationRecord(unit.ID, raw, loc)
		if !ok {
			stats.Skipped++
			continue
		}
		if _, err := im.Reservations.CreateReservation(ctx, record); err != nil {
			if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrConstraintViolation) {
				stats.Skipped++
				continue
			}
			return stats, fmt.Errorf("create reservation %s: %w", raw.ID, err)
		}
		stats.Reservations++
	}
	return stats, nil
}

func unitRecord(doc snapshot.Snapshot, loc *time.Location) (Unit, error) {
	raw := doc.Unit
	unit := Unit{
		ID:            raw.ID,
		Name:          raw.Name,
		Timezone:      strings.TrimSpace(doc.Timezone),
		StartInterval: raw.ReservationStartInterval,
		MinDuration:   time.Duration(raw.MinReservationDuration) * time.Second,
		MaxDuration:   time.Duration(raw.MaxReservationDuration) * time.Second,
		BufferBefore:  time.Duration(raw.BufferTimeBefore) * time.Second,
		BufferAfter:   time.Duration(raw.BufferTimeAfter) * time.Second,
		MinDaysBefore: raw.ReservationsMinDaysBefore,
		MaxDaysBefore: raw.ReservationsMaxDaysBefore,
	}
	var err error
	if unit.ReservationBegins, err = parseOptional(raw.ReservationBegins, loc); err != nil {
		return Unit{}, fmt.Errorf("unit %s reservationBegins: %w", raw.ID, err)
	}
	if unit.ReservationEnds, err = parseOptional(raw.ReservationEnds, loc); err != nil {
		return Unit{}, fmt.Errorf("unit %s reservationEnds: %w", raw.ID, err)
	}
	return unit, nil
}

func parseOptional(value *string, loc *time.Location) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := snapshot.ParseTimestamp(*value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func reservationRecord(unitID string, raw snapshot.RawReservation, loc *time.Location) (Reservation, bool) {
	begin, err := snapshot.ParseTimestamp(raw.Begin, loc)
	if err != nil {
		return Reservation{}, false
	}
	end, err := snapshot.ParseTimestamp(raw.End, loc)
	if err != nil || !end.After(begin) {
		return Reservation{}, false
	}
	return Reservation{
		ID:           raw.ID,
		UnitID:       unitID,
		Begin:        begin,
		End:          end,
		BufferBefore: time.Duration(raw.BufferTimeBefore) * time.Second,
		BufferAfter:  time.Duration(raw.BufferTimeAfter) * time.Second,
		State:        raw.State,
		Blocked:      raw.IsBlocked || strings.EqualFold(raw.Type, "BLOCKED"),
	}, true
}

// ReservationCreator persists submitted slots as reservations.
type ReservationCreator struct {
	Reservations ReservationRepository
	// State is stored on new reservations; empty means the store default.
	State string
}

// CreateReservation implements submission.Creator.
func (c ReservationCreator) CreateReservation(ctx context.Context, req submission.CreateRequest) (string, error) {
	batchID := req.BatchID
	created, err := c.Reservations.CreateReservation(ctx, Reservation{
		UnitID:       req.UnitID,
		Begin:        req.Interval.Start,
		End:          req.Interval.End,
		BufferBefore: req.BufferBefore,
		BufferAfter:  req.BufferAfter,
		State:        c.State,
		BatchID:      &batchID,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}
