package interval

import (
	"errors"
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, time.March, 4, hour, minute, 0, 0, time.UTC)
}

func TestInterval_Overlaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{name: "disjoint", a: New(at(9, 0), at(10, 0)), b: New(at(11, 0), at(12, 0)), want: false},
		{name: "touching edges do not overlap", a: New(at(9, 0), at(10, 0)), b: New(at(10, 0), at(11, 0)), want: false},
		{name: "partial overlap", a: New(at(9, 0), at(10, 30)), b: New(at(10, 0), at(11, 0)), want: true},
		{name: "containment", a: New(at(9, 0), at(12, 0)), b: New(at(10, 0), at(11, 0)), want: true},
		{name: "identical", a: New(at(9, 0), at(10, 0)), b: New(at(9, 0), at(10, 0)), want: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("a.Overlaps(b) = %v, want %v", got, tc.want)
			}
			if got := tc.b.Overlaps(tc.a); got != tc.want {
				t.Fatalf("overlap must be symmetric, got %v want %v", got, tc.want)
			}
		})
	}
}

func TestInterval_ContainsAndValid(t *testing.T) {
	t.Parallel()

	outer := New(at(9, 0), at(12, 0))
	if !outer.Contains(New(at(9, 0), at(12, 0))) {
		t.Fatalf("expected interval to contain itself")
	}
	if outer.Contains(New(at(11, 0), at(12, 30))) {
		t.Fatalf("expected interval extending past end to be rejected")
	}
	if New(at(9, 0), at(9, 0)).Valid() {
		t.Fatalf("expected zero-length interval to be invalid")
	}
	if New(at(10, 0), at(9, 0)).Valid() {
		t.Fatalf("expected inverted interval to be invalid")
	}
	if (Interval{End: at(9, 0)}).Valid() {
		t.Fatalf("expected interval with unset start to be invalid")
	}

	extended := New(at(10, 0), at(11, 0)).Extend(15*time.Minute, 30*time.Minute)
	if !extended.Start.Equal(at(9, 45)) || !extended.End.Equal(at(11, 30)) {
		t.Fatalf("unexpected extended interval %v", extended)
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	early := New(at(9, 0), at(10, 0))
	longer := New(at(9, 0), at(11, 0))
	late := New(at(13, 0), at(14, 0))

	if Compare(early, longer) >= 0 || Compare(longer, late) >= 0 || Compare(late, early) <= 0 {
		t.Fatalf("expected start-then-end ordering")
	}
	if Compare(early, New(at(9, 0), at(10, 0))) != 0 {
		t.Fatalf("expected equal intervals to compare as 0")
	}
}

func TestDayKey(t *testing.T) {
	t.Parallel()

	helsinki := time.FixedZone("EET", 2*60*60)

	t.Run("same calendar day yields same key", func(t *testing.T) {
		t.Parallel()
		morning := time.Date(2024, time.March, 4, 0, 30, 0, 0, helsinki)
		night := time.Date(2024, time.March, 4, 23, 59, 0, 0, helsinki)
		if DayKeyOf(morning, helsinki) != DayKeyOf(night, helsinki) {
			t.Fatalf("expected identical keys for the same day")
		}
		// 00:30 EET is still the previous day in UTC.
		if DayKeyOf(morning, time.UTC) == DayKeyOf(morning, helsinki) {
			t.Fatalf("expected key to depend on the reference location")
		}
	})

	t.Run("round trips through strings", func(t *testing.T) {
		t.Parallel()
		key, err := ParseDayKey("2024-02-29")
		if err != nil {
			t.Fatalf("ParseDayKey returned error: %v", err)
		}
		if key.String() != "2024-02-29" {
			t.Fatalf("unexpected string %q", key.String())
		}
		if key.AddDays(1).String() != "2024-03-01" {
			t.Fatalf("unexpected next day %q", key.AddDays(1).String())
		}
		withTime, err := ParseDayKey("2024-02-29T10:00:00+02:00")
		if err != nil || withTime != key {
			t.Fatalf("expected timestamp date part to parse, got %v %v", withTime, err)
		}
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseDayKey("2024-13-01"); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate, got %v", err)
		}
	})

	t.Run("weekday numbering", func(t *testing.T) {
		t.Parallel()
		monday := FromDate(2024, time.March, 4)
		if monday.Weekday() != time.Monday {
			t.Fatalf("expected Monday, got %s", monday.Weekday())
		}
		if monday.MondayFirst() != 0 {
			t.Fatalf("expected Monday-first index 0, got %d", monday.MondayFirst())
		}
		if monday.AddDays(6).MondayFirst() != 6 {
			t.Fatalf("expected Sunday-first index 6, got %d", monday.AddDays(6).MondayFirst())
		}
		if FromDate(1969, time.December, 31).Weekday() != time.Wednesday {
			t.Fatalf("expected weekday before epoch to be Wednesday")
		}
	})

	t.Run("bounds cover the civil day", func(t *testing.T) {
		t.Parallel()
		key := FromDate(2024, time.March, 4)
		bounds := key.Bounds(helsinki)
		if bounds.Duration() != 24*time.Hour {
			t.Fatalf("expected 24h day, got %s", bounds.Duration())
		}
		if got := key.At(9*60+30, helsinki); !got.Equal(time.Date(2024, time.March, 4, 9, 30, 0, 0, helsinki)) {
			t.Fatalf("unexpected At result %s", got)
		}
	})
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	valid := map[string]TimeOfDay{
		"00:00":    0,
		"09:30":    570,
		"9:05":     545,
		"23:59":    1439,
		"24:00":    MinutesPerDay,
		"10:15:00": 615,
	}
	for input, want := range valid {
		got, err := ParseTimeOfDay(input)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseTimeOfDay(%q) = %d, want %d", input, got, want)
		}
	}

	for _, input := range []string{"", "25:00", "24:30", "12:60", "12:5", "noon", "10:15:30"} {
		if _, err := ParseTimeOfDay(input); !errors.Is(err, ErrInvalidTimeOfDay) {
			t.Fatalf("ParseTimeOfDay(%q) expected ErrInvalidTimeOfDay, got %v", input, err)
		}
	}

	if TimeOfDay(570).String() != "09:30" {
		t.Fatalf("unexpected format %q", TimeOfDay(570).String())
	}
}
