package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/reservation-availability/internal/application"
	"github.com/example/reservation-availability/internal/availability"
	"github.com/example/reservation-availability/internal/persistence"
	"github.com/example/reservation-availability/internal/snapshot"
	"github.com/example/reservation-availability/internal/testfixtures"
)

func TestSource_LoadSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	unit := testfixtures.NewUnitFixture(
		testfixtures.WithUnitID("unit-1"),
		testfixtures.WithBuffers(15*time.Minute, 0),
		testfixtures.WithReservation("r-1", testfixtures.MondayAfterReference(10, 0), testfixtures.MondayAfterReference(11, 0)),
		testfixtures.WithBlock("b-1", testfixtures.MondayAfterReference(14, 0), testfixtures.MondayAfterReference(15, 0)),
		testfixtures.WithBlackout("2024-03-18", "2024-03-22"),
	)
	harness.Seed(t, unit)

	doc, err := harness.Source.LoadSnapshot(ctx, "unit-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Timezone != "Europe/Helsinki" || doc.Unit.BufferTimeBefore != 900 {
		t.Fatalf("unexpected unit %+v", doc.Unit)
	}
	if len(doc.OpenSpans) != len(unit.OpenSpans) || len(doc.Reservations) != 2 {
		t.Fatalf("unexpected snapshot sizes: %d spans, %d reservations", len(doc.OpenSpans), len(doc.Reservations))
	}
	if !doc.Reservations[1].IsBlocked || doc.Reservations[0].State != "CONFIRMED" {
		t.Fatalf("unexpected reservations %+v", doc.Reservations)
	}
	if len(doc.Unit.ApplicationRoundPeriods) != 1 || doc.Unit.ApplicationRoundPeriods[0].End != "2024-03-22" {
		t.Fatalf("unexpected blackouts %+v", doc.Unit.ApplicationRoundPeriods)
	}

	resolved, err := snapshot.Resolve(doc, time.UTC, testfixtures.ReferenceTime())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	first := resolved.Reservations[0]
	if !first.Begin.Equal(testfixtures.MondayAfterReference(10, 0)) {
		t.Fatalf("expected stored instant to survive, got %v", first.Begin)
	}

	if _, err := harness.Source.LoadSnapshot(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImporter_SkipsDuplicateAndInvalidReservations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	unit := testfixtures.NewUnitFixture(
		testfixtures.WithReservation("r-1", testfixtures.MondayAfterReference(10, 0), testfixtures.MondayAfterReference(11, 0)),
	)
	doc := unit.Snapshot()
	doc.Reservations = append(doc.Reservations, snapshot.RawReservation{ID: "bad", Begin: "soon", End: "later"})

	stats, err := harness.Importer.Import(ctx, doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.Reservations != 1 || stats.Skipped != 1 || stats.OpenSpans != 20 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	stats, err = harness.Importer.Import(ctx, doc)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if stats.Reservations != 0 || stats.Skipped != 2 {
		t.Fatalf("expected re-import to skip existing rows, got %+v", stats)
	}

	doc.Timezone = "Nowhere/Special"
	if _, err := harness.Importer.Import(ctx, doc); err == nil {
		t.Fatalf("expected unknown timezone to fail")
	}
}

func TestAvailabilityOverSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	harness.Seed(t, testfixtures.NewUnitFixture(
		testfixtures.WithUnitID("hall"),
		testfixtures.WithReservation("r-1", testfixtures.MondayAfterReference(10, 0), testfixtures.MondayAfterReference(11, 0)),
	))

	factory := testfixtures.NewServiceFactory()
	svc := factory.NewAvailabilityService(testfixtures.AvailabilityServiceDeps{
		Source:  harness.Source,
		Creator: harness.Creator,
	})

	mondays := application.RecurrenceInput{
		StartDate: "2024-03-04",
		EndDate:   "2024-03-25",
		StartTime: "10:00",
		EndTime:   "11:00",
		Weekdays:  []int{0},
		Cadence:   "weekly",
	}

	result, err := svc.SubmitRecurrence(ctx, application.SubmitParams{UnitID: "hall", Recurrence: mondays})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Report.Created() != 3 || len(result.Skipped) != 1 || result.Skipped[0].Date != "2024-03-04" {
		t.Fatalf("unexpected submission %+v", result)
	}

	stored, err := harness.Store.ListReservations(ctx, persistence.ReservationFilter{UnitID: "hall"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) != 4 {
		t.Fatalf("expected 4 stored reservations, got %d", len(stored))
	}
	for _, r := range stored[1:] {
		if r.BatchID == nil || *r.BatchID != result.Report.BatchID {
			t.Fatalf("expected batch id on %+v", r)
		}
	}

	slots, err := svc.PreviewRecurrence(ctx, application.PreviewParams{UnitID: "hall", Recurrence: mondays})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	for _, slot := range slots {
		if !slot.Conflict || slot.Reason != availability.ReasonCollision {
			t.Fatalf("expected every slot to conflict after submission, got %+v", slot)
		}
	}

	if err := harness.Store.UpdateReservationState(ctx, stored[1].ID, "CANCELLED"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	verdict, err := svc.CheckSlot(ctx, application.CheckSlotParams{
		UnitID: "hall",
		Start:  stored[1].Begin,
		End:    stored[1].End,
	})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !verdict.Reservable {
		t.Fatalf("expected cancelled slot to be free again, got %s", verdict.Reason)
	}
}
