package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/reservation-availability/internal/interval"
	"github.com/example/reservation-availability/internal/scheduler"
)

// Cadence is the repeat period of a rule in days.
type Cadence int

const (
	// CadenceWeekly repeats every selected weekday each week.
	CadenceWeekly Cadence = 7
	// CadenceBiweekly repeats every other occurrence of each selected weekday.
	CadenceBiweekly Cadence = 14
)

// ErrInvalidCadence indicates the cadence selector is not supported.
var ErrInvalidCadence = errors.New("recurrence: invalid cadence")

// ParseCadence maps a cadence selector ("weekly", "biweekly", or the day
// counts 7 and 14) to a Cadence.
func ParseCadence(value string) (Cadence, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "weekly", "7", "":
		return CadenceWeekly, nil
	case "biweekly", "fortnightly", "14":
		return CadenceBiweekly, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCadence, value)
	}
}

// String returns the selector form of the cadence.
func (c Cadence) String() string {
	switch c {
	case CadenceWeekly:
		return "weekly"
	case CadenceBiweekly:
		return "biweekly"
	default:
		return fmt.Sprintf("cadence(%d)", int(c))
	}
}

// Anchor selects which weeks a biweekly rule keeps.
type Anchor int

const (
	// AnchorPerWeekday keeps the 1st, 3rd, 5th... occurrence of each selected
	// weekday, counting each weekday from its own first date in the range.
	AnchorPerWeekday Anchor = iota
	// AnchorCalendarWeek keeps the days falling in alternating Monday-first
	// calendar weeks, counting the week containing the start date as the
	// first kept week.
	AnchorCalendarWeek
)

// Rule describes a weekday recurrence over an inclusive date range.
type Rule struct {
	StartDate interval.DayKey
	EndDate   interval.DayKey
	StartTime interval.TimeOfDay
	EndTime   interval.TimeOfDay
	// Weekdays uses Monday-first numbering: 0 is Monday, 6 is Sunday.
	Weekdays []int
	Cadence  Cadence
	Anchor   Anchor
}

// Slot is one concrete occurrence. Times are wall-clock values on Date.
type Slot struct {
	Date      interval.DayKey
	StartTime interval.TimeOfDay
	EndTime   interval.TimeOfDay
	Conflict  bool
}

// Engine expands recurrence rules and maps slots onto absolute time.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine resolving wall-clock slot times in loc.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location returns the engine's reference timezone.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// Generate lists the slots of rule in date order.
//
// The range is inclusive of both dates. A range whose start is not before its
// end, an empty or out-of-range weekday selection, or an unknown cadence
// yields no slots.
func (e *Engine) Generate(rule Rule) []Slot {
	if rule.StartDate >= rule.EndDate {
		return nil
	}
	if rule.Cadence != CadenceWeekly && rule.Cadence != CadenceBiweekly {
		return nil
	}

	weekdaySet := make(map[int]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		if day < 0 || day > 6 {
			continue
		}
		weekdaySet[day] = struct{}{}
	}
	if len(weekdaySet) == 0 {
		return nil
	}

	seen := make(map[int]int, len(weekdaySet))
	slots := make([]Slot, 0)

	for day := rule.StartDate; day <= rule.EndDate; day++ {
		weekday := day.MondayFirst()
		if _, ok := weekdaySet[weekday]; !ok {
			continue
		}

		if rule.Cadence == CadenceBiweekly {
			skip := false
			switch rule.Anchor {
			case AnchorCalendarWeek:
				skip = (int(weekStart(day)-weekStart(rule.StartDate))/7)%2 != 0
			default:
				skip = seen[weekday]%2 != 0
				seen[weekday]++
			}
			if skip {
				continue
			}
		}

		slots = append(slots, Slot{
			Date:      day,
			StartTime: rule.StartTime,
			EndTime:   rule.EndTime,
		})
	}

	return slots
}

func weekStart(day interval.DayKey) interval.DayKey {
	return day.AddDays(-day.MondayFirst())
}

// SlotInterval resolves a slot to absolute time. An end time that is not
// after the start time is taken to fall on the following day, so equal times
// give a full day. Decoded rules never carry equal times.
func (e *Engine) SlotInterval(slot Slot) interval.Interval {
	loc := e.Location()
	start := slot.Date.At(slot.StartTime, loc)
	endDay := slot.Date
	if slot.EndTime <= slot.StartTime {
		endDay = endDay.AddDays(1)
	}
	return interval.New(start, endDay.At(slot.EndTime, loc))
}

// Annotate returns a copy of slots with Conflict set on every slot that
// overlaps one of the existing intervals. Touching intervals are not
// conflicts. Buffers are not applied here.
func (e *Engine) Annotate(slots []Slot, existing []interval.Interval) []Slot {
	if len(slots) == 0 {
		return nil
	}
	out := make([]Slot, len(slots))
	for i, slot := range slots {
		slot.Conflict = scheduler.OverlapsAny(e.SlotInterval(slot), existing)
		out[i] = slot
	}
	return out
}
