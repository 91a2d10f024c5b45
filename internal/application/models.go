package application

import (
	"time"

	"github.com/example/reservation-availability/internal/availability"
	"github.com/example/reservation-availability/internal/submission"
)

// CheckSlotParams identifies a single candidate booking.
type CheckSlotParams struct {
	UnitID string
	Start  time.Time
	End    time.Time
}

// SlotVerdict is the outcome of a single-slot check.
type SlotVerdict struct {
	UnitID     string
	Start      time.Time
	End        time.Time
	Reservable bool
	Reason     availability.Reason
	// Conflicts lists the colliding reservations when Reason is a collision.
	Conflicts []SlotConflict
}

// SlotConflict names a reservation a candidate collides with. BufferOnly is
// set when only the buffered times overlap.
type SlotConflict struct {
	ReservationID string
	BufferOnly    bool
	Start         time.Time
	End           time.Time
}

// RecurrenceInput is a recurring booking request as entered by the user.
// Dates are YYYY-MM-DD, times HH:mm, weekdays Monday-first 0..6.
type RecurrenceInput struct {
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
	Weekdays  []int
	Cadence   string
	Anchor    string
}

// PreviewParams requests the slot list for a recurrence on a unit.
type PreviewParams struct {
	UnitID     string
	Recurrence RecurrenceInput
}

// PreviewSlot is one generated occurrence with its conflict flag and full
// reservability verdict.
type PreviewSlot struct {
	Date       string
	StartTime  string
	EndTime    string
	Start      time.Time
	End        time.Time
	Conflict   bool
	Reservable bool
	Reason     availability.Reason
}

// SubmitParams confirms a recurrence for creation. When Dates is empty every
// reservable slot is submitted; otherwise only the listed dates are.
type SubmitParams struct {
	UnitID     string
	Recurrence RecurrenceInput
	Dates      []string
}

// SubmitResult reports the batch outcome together with the slots left out
// because they were not reservable.
type SubmitResult struct {
	Report  submission.Report
	Skipped []PreviewSlot
}
