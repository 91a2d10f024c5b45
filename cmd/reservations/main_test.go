package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const unitDocument = `now: "2024-03-01T08:00:00Z"
timezone: UTC
unit:
  id: hall
  minReservationDuration: 3600
  maxReservationDuration: 14400
  reservationStartInterval: INTERVAL_30_MINS
  reservationsMaxDaysBefore: 90
openingHours:
  - startDatetime: "2024-03-04T08:00:00Z"
    endDatetime: "2024-03-04T20:00:00Z"
  - startDatetime: "2024-03-11T08:00:00Z"
    endDatetime: "2024-03-11T20:00:00Z"
reservations:
  - id: r-1
    begin: "2024-03-04T10:00:00Z"
    end: "2024-03-04T11:00:00Z"
    state: CONFIRMED
recurrence:
  startDate: "2024-03-04"
  endDate: "2024-03-17"
  startTime: "10:00"
  endTime: "11:00"
  weekdays: [0]
  cadence: weekly
`

func writeDocument(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unit.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	t.Parallel()

	path := writeDocument(t, unitDocument)

	cases := []struct {
		name       string
		start, end string
		reservable bool
		reason     string
	}{
		{name: "free slot", start: "2024-03-11T10:00:00Z", end: "2024-03-11T11:00:00Z", reservable: true, reason: "reservable"},
		{name: "overlaps existing booking", start: "2024-03-04T10:30:00", end: "2024-03-04T11:30:00", reason: "collision"},
		{name: "closed day", start: "2024-03-05T10:00:00Z", end: "2024-03-05T11:00:00Z", reason: "outside_open_hours"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out, err := run(t, "check", "--snapshot", path, "--start", tc.start, "--end", tc.end)
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			var verdict verdictOutput
			if err := json.Unmarshal([]byte(out), &verdict); err != nil {
				t.Fatalf("invalid output %q: %v", out, err)
			}
			if verdict.Reservable != tc.reservable || verdict.Reason != tc.reason || verdict.UnitID != "hall" {
				t.Fatalf("unexpected verdict %+v", verdict)
			}
			if tc.reason == "collision" && (len(verdict.Conflicts) != 1 || verdict.Conflicts[0] != "r-1") {
				t.Fatalf("expected r-1 as conflict, got %v", verdict.Conflicts)
			}
		})
	}
}

func TestCheckCommand_RejectsBadInput(t *testing.T) {
	t.Parallel()

	path := writeDocument(t, unitDocument)
	if _, err := run(t, "check", "--snapshot", path, "--start", "soon", "--end", "2024-03-11T11:00:00Z"); err == nil || !strings.Contains(err.Error(), "--start") {
		t.Fatalf("expected start parse error, got %v", err)
	}
	if _, err := run(t, "check", "--snapshot", filepath.Join(t.TempDir(), "missing.yaml"), "--start", "2024-03-11T10:00:00Z", "--end", "2024-03-11T11:00:00Z"); err == nil {
		t.Fatalf("expected missing snapshot to fail")
	}
	if _, err := run(t, "check", "--snapshot", path); err == nil {
		t.Fatalf("expected required flags to be enforced")
	}
}

func TestPreviewCommand(t *testing.T) {
	t.Parallel()

	out, err := run(t, "preview", "--snapshot", writeDocument(t, unitDocument))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	var body struct {
		UnitID string       `json:"unit_id"`
		Slots  []slotOutput `json:"slots"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("invalid output %q: %v", out, err)
	}
	if len(body.Slots) != 2 {
		t.Fatalf("expected two Mondays, got %+v", body.Slots)
	}
	if first := body.Slots[0]; first.Date != "2024-03-04" || !first.Conflict || first.Reason != "collision" {
		t.Fatalf("unexpected first slot %+v", first)
	}
	if second := body.Slots[1]; second.Conflict || !second.Reservable {
		t.Fatalf("unexpected second slot %+v", second)
	}

	withoutRule := strings.Split(unitDocument, "recurrence:")[0]
	if _, err := run(t, "preview", "--snapshot", writeDocument(t, withoutRule)); err == nil {
		t.Fatalf("expected missing recurrence to fail")
	}

	invalid := strings.Replace(unitDocument, `startTime: "10:00"`, `startTime: "ten"`, 1)
	if _, err := run(t, "preview", "--snapshot", writeDocument(t, invalid)); err == nil {
		t.Fatalf("expected invalid recurrence to fail")
	}
}

func TestImportAndMigrateCommands(t *testing.T) {
	t.Parallel()

	db := filepath.Join(t.TempDir(), "nested", "reservations.db")
	out, err := run(t, "import", "--snapshot", writeDocument(t, unitDocument), "--db", db)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var stats struct {
		OpenSpans    int `json:"openSpans"`
		Reservations int `json:"reservations"`
		Skipped      int `json:"skipped"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("invalid output %q: %v", out, err)
	}
	if stats.OpenSpans != 2 || stats.Reservations != 1 || stats.Skipped != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	out, err = run(t, "migrate", "--db", db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, `"applied"`) || !strings.Contains(out, "0001") {
		t.Fatalf("unexpected migrate output %q", out)
	}
}

func TestServeCommand_RejectsInvalidConfig(t *testing.T) {
	t.Setenv("RESERVATIONS_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("RESERVATIONS_HTTP_PORT", "not-a-port")

	if _, err := run(t, "serve"); err == nil || !strings.Contains(err.Error(), "RESERVATIONS_HTTP_PORT") {
		t.Fatalf("expected config error, got %v", err)
	}
}
