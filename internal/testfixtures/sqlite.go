package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/reservation-availability/internal/persistence"
	"github.com/example/reservation-availability/internal/persistence/sqlite"
)

// SQLiteHarness wires the repository adapters to a migrated SQLite store on a
// temporary file.
type SQLiteHarness struct {
	Store    *sqlite.Store
	Source   persistence.Source
	Importer persistence.Importer
	Creator  persistence.ReservationCreator

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a store under tb.TempDir. The store is
// closed automatically when the test ends.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	cfg := sqlite.DefaultConfig(filepath.Join(tb.TempDir(), "reservations.db"))
	cfg.JournalMode = "MEMORY"
	cfg.Synchronous = "OFF"

	store, err := sqlite.Open(context.Background(), cfg)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(context.Background(), nil); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:    store,
		Source:   persistence.Source{Units: store, OpenSpans: store, Reservations: store, Blackouts: store},
		Importer: persistence.Importer{Units: store, OpenSpans: store, Reservations: store, Blackouts: store},
		Creator:  persistence.ReservationCreator{Reservations: store},
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// Seed imports fixtures into the store.
func (h *SQLiteHarness) Seed(tb testing.TB, units ...UnitFixture) {
	tb.Helper()
	for _, u := range units {
		if _, err := h.Importer.Import(context.Background(), u.Snapshot()); err != nil {
			tb.Fatalf("failed to seed %s: %v", u.ID, err)
		}
	}
}
