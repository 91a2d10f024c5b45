package snapshot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/reservation-availability/internal/availability"
	"github.com/example/reservation-availability/internal/dayindex"
	"github.com/example/reservation-availability/internal/interval"
	"github.com/example/reservation-availability/internal/recurrence"
	"github.com/example/reservation-availability/internal/scheduler"
)

var (
	// ErrInvalidTimestamp indicates an ISO-8601 value could not be parsed.
	ErrInvalidTimestamp = errors.New("snapshot: invalid timestamp")
	// ErrInvalidStartInterval indicates an unknown start interval enum value.
	ErrInvalidStartInterval = errors.New("snapshot: invalid start interval")
	// ErrInvalidAnchor indicates an unknown biweekly anchor selector.
	ErrInvalidAnchor = errors.New("snapshot: invalid anchor")
	// ErrEmptyTimeRange indicates a recurrence whose start and end times are equal.
	ErrEmptyTimeRange = errors.New("snapshot: start and end times are equal")
)

const reservationTypeBlocked = "BLOCKED"

var startIntervals = map[string]time.Duration{
	"INTERVAL_15_MINS":  15 * time.Minute,
	"INTERVAL_30_MINS":  30 * time.Minute,
	"INTERVAL_60_MINS":  60 * time.Minute,
	"INTERVAL_90_MINS":  90 * time.Minute,
	"INTERVAL_120_MINS": 120 * time.Minute,
	"INTERVAL_180_MINS": 180 * time.Minute,
	"INTERVAL_240_MINS": 240 * time.Minute,
	"INTERVAL_300_MINS": 300 * time.Minute,
	"INTERVAL_360_MINS": 360 * time.Minute,
	"INTERVAL_420_MINS": 420 * time.Minute,
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without an offset are
// read as wall-clock time in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}
	for i, layout := range timestampLayouts {
		var (
			parsed time.Time
			err    error
		)
		if i == 0 {
			parsed, err = time.Parse(layout, value)
		} else {
			parsed, err = time.ParseInLocation(layout, value, loc)
		}
		if err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
}

// StartInterval maps the start interval enum to a duration. An empty value
// maps to zero, letting the checker apply its default.
func StartInterval(value string) (time.Duration, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return 0, nil
	}
	if d, ok := startIntervals[value]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStartInterval, value)
}

// OpenSpans converts raw opening hours. Null or unparseable bounds become
// zero values, which the index builder drops.
func OpenSpans(raw []RawOpenSpan, loc *time.Location) []dayindex.OpenSpan {
	spans := make([]dayindex.OpenSpan, 0, len(raw))
	for _, entry := range raw {
		spans = append(spans, dayindex.OpenSpan{
			Start: optionalTimestamp(entry.StartDatetime, loc),
			End:   optionalTimestamp(entry.EndDatetime, loc),
		})
	}
	return spans
}

// Reservations converts raw reservations, skipping rows whose bounds cannot
// be parsed.
func Reservations(raw []RawReservation, loc *time.Location) []scheduler.Reservation {
	out := make([]scheduler.Reservation, 0, len(raw))
	for _, entry := range raw {
		begin, err := ParseTimestamp(entry.Begin, loc)
		if err != nil {
			continue
		}
		end, err := ParseTimestamp(entry.End, loc)
		if err != nil {
			continue
		}
		out = append(out, scheduler.Reservation{
			ID:           entry.ID,
			Begin:        begin,
			End:          end,
			BufferBefore: seconds(entry.BufferTimeBefore),
			BufferAfter:  seconds(entry.BufferTimeAfter),
			Blocked:      entry.IsBlocked || strings.EqualFold(entry.Type, reservationTypeBlocked),
			State:        scheduler.ReservationState(strings.ToUpper(strings.TrimSpace(entry.State))),
		})
	}
	return out
}

// Constraints converts the unit's booking rules.
func Constraints(unit RawUnit, loc *time.Location) (availability.Constraints, error) {
	step, err := StartInterval(unit.ReservationStartInterval)
	if err != nil {
		return availability.Constraints{}, err
	}
	constraints := availability.Constraints{
		MinDuration:   seconds(unit.MinReservationDuration),
		MaxDuration:   seconds(unit.MaxReservationDuration),
		StartInterval: step,
		BufferBefore:  seconds(unit.BufferTimeBefore),
		BufferAfter:   seconds(unit.BufferTimeAfter),
		MinDaysBefore: unit.ReservationsMinDaysBefore,
		MaxDaysBefore: unit.ReservationsMaxDaysBefore,
	}
	if unit.ReservationBegins != nil && strings.TrimSpace(*unit.ReservationBegins) != "" {
		begins, err := ParseTimestamp(*unit.ReservationBegins, loc)
		if err != nil {
			return availability.Constraints{}, fmt.Errorf("reservationBegins: %w", err)
		}
		constraints.WindowBegin = &begins
	}
	if unit.ReservationEnds != nil && strings.TrimSpace(*unit.ReservationEnds) != "" {
		ends, err := ParseTimestamp(*unit.ReservationEnds, loc)
		if err != nil {
			return availability.Constraints{}, fmt.Errorf("reservationEnds: %w", err)
		}
		constraints.WindowEnd = &ends
	}
	return constraints, nil
}

// Blackouts converts application-round periods.
func Blackouts(raw []RawBlackout) ([]availability.Blackout, error) {
	out := make([]availability.Blackout, 0, len(raw))
	for _, entry := range raw {
		begin, err := interval.ParseDayKey(entry.Begin)
		if err != nil {
			return nil, fmt.Errorf("blackout begin: %w", err)
		}
		end, err := interval.ParseDayKey(entry.End)
		if err != nil {
			return nil, fmt.Errorf("blackout end: %w", err)
		}
		out = append(out, availability.Blackout{Begin: begin, End: end})
	}
	return out, nil
}

// Rule converts a recurrence request.
func Rule(raw RawRecurrence) (recurrence.Rule, error) {
	startDate, err := interval.ParseDayKey(raw.StartDate)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("startDate: %w", err)
	}
	endDate, err := interval.ParseDayKey(raw.EndDate)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("endDate: %w", err)
	}
	startTime, err := interval.ParseTimeOfDay(raw.StartTime)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("startTime: %w", err)
	}
	endTime, err := interval.ParseTimeOfDay(raw.EndTime)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("endTime: %w", err)
	}
	if startTime == endTime {
		return recurrence.Rule{}, fmt.Errorf("endTime: %w", ErrEmptyTimeRange)
	}
	cadence, err := recurrence.ParseCadence(raw.Cadence)
	if err != nil {
		return recurrence.Rule{}, err
	}
	anchor, err := parseAnchor(raw.Anchor)
	if err != nil {
		return recurrence.Rule{}, err
	}

	weekdays := make([]int, len(raw.Weekdays))
	copy(weekdays, raw.Weekdays)

	return recurrence.Rule{
		StartDate: startDate,
		EndDate:   endDate,
		StartTime: startTime,
		EndTime:   endTime,
		Weekdays:  weekdays,
		Cadence:   cadence,
		Anchor:    anchor,
	}, nil
}

// Location resolves an IANA timezone name, falling back to fallback when the
// name is empty.
func Location(name string, fallback *time.Location) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	return time.LoadLocation(name)
}

func parseAnchor(value string) (recurrence.Anchor, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "per_weekday":
		return recurrence.AnchorPerWeekday, nil
	case "calendar_week":
		return recurrence.AnchorCalendarWeek, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAnchor, value)
	}
}

func optionalTimestamp(value *string, loc *time.Location) time.Time {
	if value == nil {
		return time.Time{}
	}
	parsed, err := ParseTimestamp(*value, loc)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func seconds(value int64) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}
