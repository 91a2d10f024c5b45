package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/reservation-availability/internal/application"
	"github.com/example/reservation-availability/internal/snapshot"
)

// documentSource serves one snapshot document as the only known unit.
type documentSource struct {
	doc snapshot.Snapshot
}

func (s documentSource) LoadSnapshot(_ context.Context, unitID string) (snapshot.Snapshot, error) {
	if unitID != s.doc.Unit.ID {
		return snapshot.Snapshot{}, application.ErrNotFound
	}
	return s.doc, nil
}

type offlineEngine struct {
	doc      snapshot.Snapshot
	location *time.Location
	service  *application.AvailabilityService
}

// loadOffline builds a read-only service over the document at path. The
// document's now, when present, replaces the wall clock.
func loadOffline(cmd *cobra.Command, path string) (offlineEngine, error) {
	doc, err := snapshot.LoadFile(path)
	if err != nil {
		return offlineEngine{}, err
	}
	loc, err := snapshot.Location(doc.Timezone, time.UTC)
	if err != nil {
		return offlineEngine{}, fmt.Errorf("timezone: %w", err)
	}

	now := time.Now()
	if strings.TrimSpace(doc.Now) != "" {
		if now, err = snapshot.ParseTimestamp(doc.Now, loc); err != nil {
			return offlineEngine{}, fmt.Errorf("now: %w", err)
		}
	}

	service := application.NewAvailabilityService(documentSource{doc: doc}, nil,
		application.WithLogger(cliLogger(cmd)),
		application.WithLocation(loc),
		application.WithClock(func() time.Time { return now }),
	)
	return offlineEngine{doc: doc, location: loc, service: service}, nil
}

type verdictOutput struct {
	UnitID     string    `json:"unit_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Reservable bool      `json:"reservable"`
	Reason     string    `json:"reason"`
	Conflicts  []string  `json:"conflicts,omitempty"`
}

func newCheckCmd() *cobra.Command {
	var snapshotPath, start, end string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check one slot against a snapshot document",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadOffline(cmd, snapshotPath)
			if err != nil {
				return err
			}
			startAt, err := snapshot.ParseTimestamp(start, engine.location)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			endAt, err := snapshot.ParseTimestamp(end, engine.location)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			verdict, err := engine.service.CheckSlot(cmd.Context(), application.CheckSlotParams{
				UnitID: engine.doc.Unit.ID,
				Start:  startAt,
				End:    endAt,
			})
			if err != nil {
				return describe(err)
			}
			out := verdictOutput{
				UnitID:     verdict.UnitID,
				Start:      verdict.Start.In(engine.location),
				End:        verdict.End.In(engine.location),
				Reservable: verdict.Reservable,
				Reason:     string(verdict.Reason),
			}
			for _, c := range verdict.Conflicts {
				out.Conflicts = append(out.Conflicts, c.ReservationID)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "snapshot document (YAML or JSON)")
	cmd.Flags().StringVar(&start, "start", "", "slot start, RFC 3339 or local wall-clock time")
	cmd.Flags().StringVar(&end, "end", "", "slot end, RFC 3339 or local wall-clock time")
	for _, name := range []string{"snapshot", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

type slotOutput struct {
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Conflict   bool      `json:"conflict"`
	Reservable bool      `json:"reservable"`
	Reason     string    `json:"reason"`
}

func newPreviewCmd() *cobra.Command {
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Expand the recurrence of a snapshot document and annotate each slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadOffline(cmd, snapshotPath)
			if err != nil {
				return err
			}
			raw := engine.doc.Recurrence
			if raw == nil {
				return errors.New("snapshot has no recurrence")
			}

			slots, err := engine.service.PreviewRecurrence(cmd.Context(), application.PreviewParams{
				UnitID: engine.doc.Unit.ID,
				Recurrence: application.RecurrenceInput{
					StartDate: raw.StartDate,
					EndDate:   raw.EndDate,
					StartTime: raw.StartTime,
					EndTime:   raw.EndTime,
					Weekdays:  raw.Weekdays,
					Cadence:   raw.Cadence,
					Anchor:    raw.Anchor,
				},
			})
			if err != nil {
				return describe(err)
			}

			out := make([]slotOutput, 0, len(slots))
			for _, slot := range slots {
				out = append(out, slotOutput{
					Date:       slot.Date,
					StartTime:  slot.StartTime,
					EndTime:    slot.EndTime,
					Start:      slot.Start.In(engine.location),
					End:        slot.End.In(engine.location),
					Conflict:   slot.Conflict,
					Reservable: slot.Reservable,
					Reason:     string(slot.Reason),
				})
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"unit_id": engine.doc.Unit.ID, "slots": out})
		},
	}

	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "snapshot document (YAML or JSON)")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

// describe flattens validation errors into one readable message.
func describe(err error) error {
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		return err
	}
	fields := make([]string, 0, len(vErr.FieldErrors))
	for field, message := range vErr.FieldErrors {
		fields = append(fields, field+": "+message)
	}
	return fmt.Errorf("invalid request: %s", strings.Join(fields, "; "))
}
