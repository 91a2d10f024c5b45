package dayindex

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/example/reservation-availability/internal/interval"
)

var helsinki = time.FixedZone("EET", 2*60*60)

func local(day, hour, minute int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, 0, 0, helsinki)
}

func key(day int) interval.DayKey {
	return interval.FromDate(2024, time.March, day)
}

func TestBuild_SplitsMultiDaySpans(t *testing.T) {
	t.Parallel()

	now := local(1, 8, 0)
	idx := Build([]OpenSpan{{Start: local(4, 18, 0), End: local(6, 6, 0)}}, now, helsinki)

	if idx.Len() != 3 {
		t.Fatalf("expected 3 indexed days, got %d (%v)", idx.Len(), idx.Days())
	}

	expect := map[interval.DayKey]interval.Interval{
		key(4): interval.New(local(4, 18, 0), local(5, 0, 0)),
		key(5): interval.New(local(5, 0, 0), local(6, 0, 0)),
		key(6): interval.New(local(6, 0, 0), local(6, 6, 0)),
	}
	for day, want := range expect {
		windows := idx.Windows(day)
		if len(windows) != 1 {
			t.Fatalf("expected one window on %s, got %d", day, len(windows))
		}
		if !windows[0].Start.Equal(want.Start) || !windows[0].End.Equal(want.End) {
			t.Fatalf("window on %s = %s..%s, want %s..%s", day, windows[0].Start, windows[0].End, want.Start, want.End)
		}
	}
}

func TestBuild_MidnightEndStaysOnEarlierDay(t *testing.T) {
	t.Parallel()

	idx := Build([]OpenSpan{{Start: local(4, 20, 0), End: local(5, 0, 0)}}, local(1, 0, 0), helsinki)

	if idx.Len() != 1 {
		t.Fatalf("expected a single day, got %v", idx.Days())
	}
	if len(idx.Windows(key(5))) != 0 {
		t.Fatalf("expected no window on the following day")
	}
	windows := idx.Windows(key(4))
	if len(windows) != 1 || !windows[0].End.Equal(local(5, 0, 0)) {
		t.Fatalf("unexpected windows %v", windows)
	}
}

func TestBuild_DropsMalformedAndPastSpans(t *testing.T) {
	t.Parallel()

	now := local(4, 12, 0)
	spans := []OpenSpan{
		{Start: time.Time{}, End: local(4, 15, 0)},                         // missing start
		{Start: local(4, 15, 0), End: time.Time{}},                         // missing end
		{Start: local(4, 16, 0), End: local(4, 15, 0)},                     // inverted
		{Start: local(4, 16, 0), End: local(4, 16, 0).Add(30 * time.Second)}, // zero after truncation
		{Start: local(4, 8, 0), End: local(4, 11, 0)},                      // in the past
		{Start: local(4, 8, 0), End: local(4, 12, 0)},                      // ends exactly now
	}

	idx := Build(spans, now, helsinki)
	if idx.Len() != 0 {
		t.Fatalf("expected empty index, got %v", idx.Days())
	}
}

func TestBuild_ClipsOngoingSpanToNow(t *testing.T) {
	t.Parallel()

	now := local(4, 10, 7)
	idx := Build([]OpenSpan{{Start: local(4, 9, 0), End: local(4, 12, 0)}}, now, helsinki)

	windows := idx.Windows(key(4))
	if len(windows) != 1 {
		t.Fatalf("expected one window, got %d", len(windows))
	}
	if !windows[0].Start.Equal(now) {
		t.Fatalf("expected clipped start %s, got %s", now, windows[0].Start)
	}
	if !windows[0].Anchor.Equal(local(4, 9, 0)) {
		t.Fatalf("expected anchor to keep the original start, got %s", windows[0].Anchor)
	}
}

func TestBuild_KeepsEveryWindowSorted(t *testing.T) {
	t.Parallel()

	spans := []OpenSpan{
		{Start: local(4, 13, 0), End: local(4, 17, 0)},
		{Start: local(4, 9, 0), End: local(4, 12, 0)},
	}
	idx := Build(spans, local(1, 0, 0), helsinki)

	windows := idx.Windows(key(4))
	if len(windows) != 2 {
		t.Fatalf("expected two windows, got %d", len(windows))
	}
	if !windows[0].Start.Equal(local(4, 9, 0)) || !windows[1].Start.Equal(local(4, 13, 0)) {
		t.Fatalf("expected windows ordered by start, got %v", windows)
	}

	if !idx.Covers(interval.New(local(4, 10, 0), local(4, 11, 0))) {
		t.Fatalf("expected morning slot to be covered")
	}
	if idx.Covers(interval.New(local(4, 11, 30), local(4, 13, 30))) {
		t.Fatalf("expected straddling slot not to be covered by a single window")
	}
}

func TestBuild_IsIdempotent(t *testing.T) {
	t.Parallel()

	spans := []OpenSpan{
		{Start: local(4, 18, 0), End: local(6, 6, 0)},
		{Start: local(7, 9, 0), End: local(7, 17, 0)},
	}
	now := local(4, 19, 0)

	first := Build(spans, now, helsinki)
	second := Build(spans, now, helsinki)
	if !first.Equal(second) {
		t.Fatalf("expected identical indexes from identical input")
	}

	mutated := Build(spans[:1], now, helsinki)
	if first.Equal(mutated) {
		t.Fatalf("expected different inputs to produce different indexes")
	}
}

func TestIndex_WindowsReturnsCopy(t *testing.T) {
	t.Parallel()

	idx := Build([]OpenSpan{{Start: local(4, 9, 0), End: local(4, 12, 0)}}, local(1, 0, 0), helsinki)
	windows := idx.Windows(key(4))
	windows[0].End = local(4, 23, 0)

	if !idx.Windows(key(4))[0].End.Equal(local(4, 12, 0)) {
		t.Fatalf("expected index to be unaffected by caller mutation")
	}
}

func TestBuild_DaylightSavingDaysInRealZone(t *testing.T) {
	t.Parallel()

	zone, err := time.LoadLocation("Europe/Helsinki")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}

	cases := []struct {
		name   string
		day    interval.DayKey
		length time.Duration
	}{
		{name: "spring forward", day: interval.FromDate(2026, time.March, 29), length: 23 * time.Hour},
		{name: "fall back", day: interval.FromDate(2026, time.October, 25), length: 25 * time.Hour},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			bounds := tc.day.Bounds(zone)
			now := bounds.Start.AddDate(0, 0, -7)
			idx := Build([]OpenSpan{{Start: bounds.Start, End: bounds.End}}, now, zone)

			if days := idx.Days(); len(days) != 1 || days[0] != tc.day {
				t.Fatalf("expected the span keyed to %s only, got %v", tc.day, days)
			}
			windows := idx.Windows(tc.day)
			if len(windows) != 1 {
				t.Fatalf("expected one window, got %d", len(windows))
			}
			if got := windows[0].Duration(); got != tc.length {
				t.Fatalf("expected a %s day, got %s", tc.length, got)
			}
			if windows[0].Start.Hour() != 0 || windows[0].End.In(zone).Hour() != 0 {
				t.Fatalf("expected local midnight bounds, got %s - %s", windows[0].Start, windows[0].End)
			}
		})
	}

	t.Run("span across the clock change", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2026, time.March, 28, 12, 0, 0, 0, zone)
		end := time.Date(2026, time.March, 30, 12, 0, 0, 0, zone)
		idx := Build([]OpenSpan{{Start: start, End: end}}, start.AddDate(0, 0, -1), zone)

		if idx.Len() != 3 {
			t.Fatalf("expected 3 indexed days, got %v", idx.Days())
		}
		middle := idx.Windows(interval.FromDate(2026, time.March, 29))
		if len(middle) != 1 || middle[0].Duration() != 23*time.Hour {
			t.Fatalf("expected a full 23 hour window on the change day, got %+v", middle)
		}
	})
}
