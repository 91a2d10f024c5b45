package interval

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout    = "2006-01-02"
	secondsPerDay = 24 * 60 * 60
)

// ErrInvalidDate indicates a calendar date string could not be parsed.
var ErrInvalidDate = errors.New("interval: invalid date")

// DayKey identifies one calendar day as the number of days since 1970-01-01.
// The key carries no timezone; DayKeyOf resolves an instant against a
// reference location.
type DayKey int32

// DayKeyOf returns the calendar day containing t in loc. A nil loc means UTC.
func DayKeyOf(t time.Time, loc *time.Location) DayKey {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return FromDate(y, m, d)
}

// FromDate converts a civil date into a DayKey.
func FromDate(year int, month time.Month, day int) DayKey {
	return DayKey(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

// ParseDayKey parses a YYYY-MM-DD date. A full RFC 3339 timestamp is accepted
// and its date part is used as written.
func ParseDayKey(value string) (DayKey, error) {
	value = strings.TrimSpace(value)
	if len(value) > len(dateLayout) && value[len(dateLayout)] == 'T' {
		value = value[:len(dateLayout)]
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return FromDate(parsed.Date()), nil
}

// Date returns the civil date for the key.
func (k DayKey) Date() (int, time.Month, int) {
	return time.Unix(int64(k)*secondsPerDay, 0).UTC().Date()
}

// Start returns midnight at the beginning of the day in loc.
func (k DayKey) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := k.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// End returns midnight at the beginning of the following day in loc.
func (k DayKey) End(loc *time.Location) time.Time {
	return (k + 1).Start(loc)
}

// Bounds returns the [00:00, 24:00) window of the day in loc.
func (k DayKey) Bounds(loc *time.Location) Interval {
	return Interval{Start: k.Start(loc), End: k.End(loc)}
}

// At combines the day with a wall-clock time of day in loc.
func (k DayKey) At(tod TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := k.Date()
	return time.Date(y, m, d, 0, int(tod), 0, 0, loc)
}

// AddDays returns the key n days later.
func (k DayKey) AddDays(n int) DayKey {
	return k + DayKey(n)
}

// Weekday returns the day of the week using time.Weekday numbering.
func (k DayKey) Weekday() time.Weekday {
	// 1970-01-01 was a Thursday.
	w := (int(k) + int(time.Thursday)) % 7
	if w < 0 {
		w += 7
	}
	return time.Weekday(w)
}

// MondayFirst returns the weekday numbered 0 (Monday) through 6 (Sunday).
func (k DayKey) MondayFirst() int {
	return MondayFirst(k.Weekday())
}

// String formats the key as YYYY-MM-DD.
func (k DayKey) String() string {
	y, m, d := k.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// MarshalText implements encoding.TextMarshaler.
func (k DayKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *DayKey) UnmarshalText(text []byte) error {
	parsed, err := ParseDayKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MondayFirst converts a time.Weekday (Sunday == 0) to Monday-first numbering.
func MondayFirst(w time.Weekday) int {
	return (int(w) + 6) % 7
}
