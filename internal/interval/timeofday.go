package interval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeOfDay indicates a wall-clock value was not in HH:mm form.
var ErrInvalidTimeOfDay = errors.New("interval: invalid time of day")

// MinutesPerDay is the number of minutes in a day without DST transitions.
const MinutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed as minutes after midnight. The
// value 24:00 is allowed so a window can close at the end of the day.
type TimeOfDay int

// ParseTimeOfDay parses an HH:mm value. Seconds (HH:mm:ss) are accepted when
// zero.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 24 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	if len(parts) == 3 {
		seconds, err := strconv.Atoi(parts[2])
		if err != nil || seconds != 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
		}
	}
	tod := TimeOfDay(hours*60 + minutes)
	if tod > MinutesPerDay {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	return tod, nil
}

// Clock returns the hour and minute components.
func (t TimeOfDay) Clock() (int, int) {
	return int(t) / 60, int(t) % 60
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Minute
}

// String formats the value as HH:mm.
func (t TimeOfDay) String() string {
	h, m := t.Clock()
	return fmt.Sprintf("%02d:%02d", h, m)
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
