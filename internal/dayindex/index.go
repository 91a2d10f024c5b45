// Package dayindex turns raw opening-hour spans into a per-day lookup of the
// windows a reservation unit can still be booked in.
package dayindex

import (
	"sort"
	"time"

	"github.com/example/reservation-availability/internal/interval"
)

// OpenSpan is one opening-hours entry as delivered by the query layer. A zero
// Start or End marks a missing timestamp.
type OpenSpan struct {
	Start time.Time
	End   time.Time
}

// Window is an open interval on a single day. Anchor is the unclipped start of
// the window; start-time alignment steps from it even after the window has
// been trimmed to "now".
type Window struct {
	interval.Interval
	Anchor time.Time
}

// Index maps calendar days to their open windows. It is immutable once built.
type Index struct {
	location *time.Location
	days     map[interval.DayKey][]Window
}

// Build indexes spans by calendar day in loc.
//
// Spans are processed as follows:
//   - timestamps are truncated to the minute; spans with a missing bound or a
//     non-positive length are dropped;
//   - spans that end at or before now are dropped, spans that started before
//     now are clipped to start at now;
//   - multi-day spans are split at midnight, each piece keyed to the day it
//     lies in. A piece ending exactly at midnight belongs to the earlier day.
//
// Windows are sorted by start within a day but are not merged.
func Build(spans []OpenSpan, now time.Time, loc *time.Location) *Index {
	if loc == nil {
		loc = time.UTC
	}
	idx := &Index{location: loc, days: make(map[interval.DayKey][]Window)}
	nowDay := interval.DayKeyOf(now, loc)

	for _, span := range spans {
		if span.Start.IsZero() || span.End.IsZero() {
			continue
		}
		start := span.Start.Truncate(time.Minute)
		end := span.End.Truncate(time.Minute)
		if !end.After(start) || !end.After(now) {
			continue
		}

		first := interval.DayKeyOf(start, loc)
		if first < nowDay {
			first = nowDay
		}
		last := interval.DayKeyOf(end.Add(-interval.Tick), loc)

		for day := first; day <= last; day++ {
			bounds := day.Bounds(loc)
			piece := interval.New(laterOf(start, bounds.Start), earlierOf(end, bounds.End))
			anchor := piece.Start
			if piece.Start.Before(now) {
				piece.Start = now
			}
			if !piece.End.After(piece.Start) {
				continue
			}
			idx.days[day] = append(idx.days[day], Window{Interval: piece, Anchor: anchor})
		}
	}

	for day := range idx.days {
		windows := idx.days[day]
		sort.SliceStable(windows, func(i, j int) bool {
			return interval.Compare(windows[i].Interval, windows[j].Interval) < 0
		})
	}

	return idx
}

// Location returns the reference timezone the index was keyed in.
func (x *Index) Location() *time.Location {
	if x == nil || x.location == nil {
		return time.UTC
	}
	return x.location
}

// Windows returns a copy of the windows open on day.
func (x *Index) Windows(day interval.DayKey) []Window {
	if x == nil {
		return nil
	}
	windows := x.days[day]
	if len(windows) == 0 {
		return nil
	}
	out := make([]Window, len(windows))
	copy(out, windows)
	return out
}

// Days returns the indexed days in ascending order.
func (x *Index) Days() []interval.DayKey {
	if x == nil {
		return nil
	}
	days := make([]interval.DayKey, 0, len(x.days))
	for day := range x.days {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// Len reports the number of indexed days.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.days)
}

// Covers reports whether iv lies entirely inside one window of the day its
// start falls on.
func (x *Index) Covers(iv interval.Interval) bool {
	if x == nil {
		return false
	}
	for _, w := range x.days[interval.DayKeyOf(iv.Start, x.Location())] {
		if w.Contains(iv) {
			return true
		}
	}
	return false
}

// Equal reports whether both indexes hold the same windows.
func (x *Index) Equal(other *Index) bool {
	if x.Len() != other.Len() {
		return false
	}
	if x == nil || other == nil {
		return true
	}
	for day, windows := range x.days {
		theirs := other.days[day]
		if len(windows) != len(theirs) {
			return false
		}
		for i := range windows {
			if !windows[i].Start.Equal(theirs[i].Start) ||
				!windows[i].End.Equal(theirs[i].End) ||
				!windows[i].Anchor.Equal(theirs[i].Anchor) {
				return false
			}
		}
	}
	return true
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
