package testfixtures

import (
	"context"
	"errors"
	"testing"

	"github.com/example/reservation-availability/internal/application"
	"github.com/example/reservation-availability/internal/availability"
	"github.com/example/reservation-availability/internal/submission"
)

func TestServiceFactoryNewAvailabilityService(t *testing.T) {
	factory := NewServiceFactory()
	unit := NewUnitFixture(
		WithUnitID("sauna"),
		WithReservation("r-1", MondayAfterReference(10, 0), MondayAfterReference(11, 0)),
	)

	var created []submission.CreateRequest
	creator := submission.CreatorFunc(func(_ context.Context, req submission.CreateRequest) (string, error) {
		created = append(created, req)
		return "res", nil
	})
	svc := factory.NewAvailabilityService(AvailabilityServiceDeps{Source: NewStaticSource(unit), Creator: creator})

	verdict, err := svc.CheckSlot(context.Background(), application.CheckSlotParams{
		UnitID: "sauna",
		Start:  MondayAfterReference(10, 30),
		End:    MondayAfterReference(11, 30),
	})
	if err != nil {
		t.Fatalf("CheckSlot returned error: %v", err)
	}
	if verdict.Reason != availability.ReasonCollision {
		t.Fatalf("expected collision, got %s", verdict.Reason)
	}

	result, err := svc.SubmitRecurrence(context.Background(), application.SubmitParams{
		UnitID: "sauna",
		Recurrence: application.RecurrenceInput{
			StartDate: "2024-03-04",
			EndDate:   "2024-03-15",
			StartTime: "12:00",
			EndTime:   "13:00",
			Weekdays:  []int{0, 4},
		},
	})
	if err != nil {
		t.Fatalf("SubmitRecurrence returned error: %v", err)
	}
	if result.Report.BatchID != "batch-1" || len(created) != 4 {
		t.Fatalf("expected four slots under batch-1, got %s with %d", result.Report.BatchID, len(created))
	}

	if _, err := svc.CheckSlot(context.Background(), application.CheckSlotParams{UnitID: "missing"}); err == nil {
		t.Fatalf("expected validation or not found error")
	}
}

func TestStaticSourceUnknownUnit(t *testing.T) {
	factory := NewServiceFactory()
	svc := factory.NewAvailabilityService(AvailabilityServiceDeps{Source: NewStaticSource()})

	_, err := svc.CheckSlot(context.Background(), application.CheckSlotParams{
		UnitID: "missing",
		Start:  MondayAfterReference(10, 0),
		End:    MondayAfterReference(11, 0),
	})
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnitFixtureDefaults(t *testing.T) {
	unit := NewUnitFixture()
	doc := unit.Snapshot()

	// Four weeks of Monday to Friday.
	if len(doc.OpenSpans) != 20 {
		t.Fatalf("expected 20 open spans, got %d", len(doc.OpenSpans))
	}
	if *doc.OpenSpans[0].StartDatetime != "2024-03-04T08:00:00" {
		t.Fatalf("unexpected first span %s", *doc.OpenSpans[0].StartDatetime)
	}
	if doc.Timezone != "Europe/Helsinki" || doc.Unit.MinReservationDuration != 3600 {
		t.Fatalf("unexpected unit %+v", doc.Unit)
	}
}
