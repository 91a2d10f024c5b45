package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/reservation-availability/internal/persistence"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := DefaultConfig(filepath.Join(t.TempDir(), "reservations.db"))
	cfg.JournalMode = "MEMORY"
	cfg.Synchronous = "OFF"

	store, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background(), nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func ptr[T any](v T) *T { return &v }

var base = time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)

func TestStore_MigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	if err := store.Migrate(ctx, nil); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	versions, err := store.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("applied versions: %v", err)
	}
	if len(versions) != 1 || versions[0] != "0001" {
		t.Fatalf("unexpected versions %v", versions)
	}
}

func TestStore_Units(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	begins := base.Add(-24 * time.Hour)
	unit := persistence.Unit{
		ID:                "unit-1",
		Name:              "Sauna",
		Timezone:          "Europe/Helsinki",
		StartInterval:     "INTERVAL_30_MINS",
		MinDuration:       time.Hour,
		MaxDuration:       3 * time.Hour,
		BufferBefore:      15 * time.Minute,
		MaxDaysBefore:     30,
		ReservationBegins: &begins,
	}
	if err := store.UpsertUnit(ctx, unit); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetUnit(ctx, "unit-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Sauna" || got.MinDuration != time.Hour || got.BufferBefore != 15*time.Minute {
		t.Fatalf("unexpected unit %+v", got)
	}
	if got.ReservationBegins == nil || !got.ReservationBegins.Equal(begins) || got.ReservationEnds != nil {
		t.Fatalf("unexpected window %v..%v", got.ReservationBegins, got.ReservationEnds)
	}

	unit.Name = "Sauna 2"
	if err := store.UpsertUnit(ctx, unit); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	units, err := store.ListUnits(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(units) != 1 || units[0].Name != "Sauna 2" {
		t.Fatalf("expected upsert to replace the unit, got %+v", units)
	}

	if _, err := store.GetUnit(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	unit.ID = "unit-bad"
	unit.MinDuration = -time.Minute
	if err := store.UpsertUnit(ctx, unit); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestStore_OpenSpansAndBlackouts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	if err := store.UpsertUnit(ctx, persistence.Unit{ID: "unit-1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	spans := []persistence.OpenSpan{
		{StartDatetime: ptr("2024-03-04T08:00:00+02:00"), EndDatetime: ptr("2024-03-04T20:00:00+02:00")},
		{StartDatetime: nil, EndDatetime: ptr("2024-03-05T20:00:00+02:00")},
	}
	if err := store.ReplaceOpenSpans(ctx, "unit-1", spans); err != nil {
		t.Fatalf("replace spans: %v", err)
	}
	if err := store.ReplaceOpenSpans(ctx, "unit-1", spans[:1]); err != nil {
		t.Fatalf("replace spans again: %v", err)
	}
	got, err := store.ListOpenSpans(ctx, "unit-1")
	if err != nil {
		t.Fatalf("list spans: %v", err)
	}
	if len(got) != 1 || *got[0].StartDatetime != *spans[0].StartDatetime {
		t.Fatalf("unexpected spans %+v", got)
	}

	if err := store.ReplaceOpenSpans(ctx, "missing", spans); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown unit, got %v", err)
	}

	blackouts := []persistence.Blackout{{Begin: "2024-06-01", End: "2024-06-30"}}
	if err := store.ReplaceBlackouts(ctx, "unit-1", blackouts); err != nil {
		t.Fatalf("replace blackouts: %v", err)
	}
	gotBlackouts, err := store.ListBlackouts(ctx, "unit-1")
	if err != nil {
		t.Fatalf("list blackouts: %v", err)
	}
	if len(gotBlackouts) != 1 || gotBlackouts[0].End != "2024-06-30" {
		t.Fatalf("unexpected blackouts %+v", gotBlackouts)
	}

	inverted := []persistence.Blackout{{Begin: "2024-06-30", End: "2024-06-01"}}
	if err := store.ReplaceBlackouts(ctx, "unit-1", inverted); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
	gotBlackouts, _ = store.ListBlackouts(ctx, "unit-1")
	if len(gotBlackouts) != 1 {
		t.Fatalf("expected failed replace to roll back, got %+v", gotBlackouts)
	}
}

func TestStore_Reservations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	if err := store.UpsertUnit(ctx, persistence.Unit{ID: "unit-1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	first, err := store.CreateReservation(ctx, persistence.Reservation{
		UnitID:      "unit-1",
		Begin:       base.Add(2 * time.Hour),
		End:         base.Add(3 * time.Hour),
		BufferAfter: 30 * time.Minute,
		State:       "confirmed",
		BatchID:     ptr("batch-1"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(first.ID) != 36 {
		t.Fatalf("expected uuid id, got %q", first.ID)
	}
	if first.State != "CONFIRMED" {
		t.Fatalf("expected upper-cased state, got %q", first.State)
	}

	if _, err := store.CreateReservation(ctx, persistence.Reservation{
		ID:      "blocked-1",
		UnitID:  "unit-1",
		Begin:   base.Add(6 * time.Hour),
		End:     base.Add(7 * time.Hour),
		Blocked: true,
	}); err != nil {
		t.Fatalf("create blocked: %v", err)
	}

	if _, err := store.CreateReservation(ctx, persistence.Reservation{
		ID:     "blocked-1",
		UnitID: "unit-1",
		Begin:  base,
		End:    base.Add(time.Hour),
	}); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := store.CreateReservation(ctx, persistence.Reservation{
		UnitID: "unknown",
		Begin:  base,
		End:    base.Add(time.Hour),
	}); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected foreign key violation, got %v", err)
	}

	all, err := store.ListReservations(ctx, persistence.ReservationFilter{UnitID: "unit-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != first.ID || !all[1].Blocked {
		t.Fatalf("unexpected reservations %+v", all)
	}
	if all[0].BufferAfter != 30*time.Minute || all[0].BatchID == nil || *all[0].BatchID != "batch-1" {
		t.Fatalf("unexpected stored reservation %+v", all[0])
	}

	windowed, err := store.ListReservations(ctx, persistence.ReservationFilter{
		UnitID:       "unit-1",
		EndsAfter:    ptr(base.Add(3 * time.Hour)),
		BeginsBefore: ptr(base.Add(12 * time.Hour)),
	})
	if err != nil {
		t.Fatalf("windowed list: %v", err)
	}
	if len(windowed) != 1 || windowed[0].ID != "blocked-1" {
		t.Fatalf("expected touching reservation to be excluded, got %+v", windowed)
	}

	if err := store.UpdateReservationState(ctx, first.ID, "cancelled"); err != nil {
		t.Fatalf("update state: %v", err)
	}
	got, err := store.GetReservation(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != "CANCELLED" {
		t.Fatalf("unexpected state %q", got.State)
	}
	if err := store.UpdateReservationState(ctx, "missing", "DENIED"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListReservationsReportsCorruptRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	if err := store.UpsertUnit(ctx, persistence.Unit{ID: "unit-1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	_, err := store.db.ExecContext(ctx,
		`INSERT INTO reservations (id, unit_id, begin_at, end_at, state, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		"broken", "unit-1", "garbage", "zzz", "CONFIRMED", formatTime(base),
	)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err = store.ListReservations(ctx, persistence.ReservationFilter{UnitID: "unit-1"})
	if err == nil || !strings.Contains(err.Error(), "sqlite: scan reservation") {
		t.Fatalf("expected wrapped scan error, got %v", err)
	}
	if errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("corrupt row must not look like a missing one: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{name: "defaults", cfg: DefaultConfig("data/reservations.db"), ok: true},
		{name: "memory", cfg: Config{DSN: ":memory:"}, ok: true},
		{name: "empty dsn", cfg: Config{}},
		{name: "bad journal mode", cfg: Config{DSN: "x.db", JournalMode: "FANCY"}},
		{name: "negative timeout", cfg: Config{DSN: "x.db", BusyTimeout: -time.Second}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
