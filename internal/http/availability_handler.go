package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/reservation-availability/internal/application"
	"github.com/example/reservation-availability/internal/submission"
)

type availabilityService interface {
	CheckSlot(ctx context.Context, params application.CheckSlotParams) (application.SlotVerdict, error)
	PreviewRecurrence(ctx context.Context, params application.PreviewParams) ([]application.PreviewSlot, error)
	SubmitRecurrence(ctx context.Context, params application.SubmitParams) (application.SubmitResult, error)
}

type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, responder: newResponder(logger), logger: logger}
}

// Check answers POST /units/{id}/availability.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	unitID, ok := h.unitID(w, r)
	if !ok {
		return
	}

	var req checkRequest
	if !h.decode(w, r, &req) {
		return
	}

	params := application.CheckSlotParams{
		UnitID: unitID,
		Start:  parseTime(req.Start),
		End:    parseTime(req.End),
	}
	if params.Start.IsZero() && strings.TrimSpace(req.Start) != "" ||
		params.End.IsZero() && strings.TrimSpace(req.End) != "" {
		h.responder.handleServiceError(r.Context(), w, timestampError(req.Start, req.End))
		return
	}

	verdict, err := h.service.CheckSlot(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	endpointLogger(r, h.logger, "availability").
		DebugContext(r.Context(), "verdict rendered", "reason", verdict.Reason)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toVerdictDTO(verdict))
}

// Preview answers POST /units/{id}/recurrence/preview.
func (h *AvailabilityHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	unitID, ok := h.unitID(w, r)
	if !ok {
		return
	}

	var req recurrenceRequest
	if !h.decode(w, r, &req) {
		return
	}

	slots, err := h.service.PreviewRecurrence(r.Context(), application.PreviewParams{
		UnitID:     unitID,
		Recurrence: req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	endpointLogger(r, h.logger, "recurrence_preview").
		DebugContext(r.Context(), "preview rendered", "slots", len(slots))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, previewResponse{
		UnitID: unitID,
		Slots:  toSlotDTOs(slots),
	})
}

// Submit answers POST /units/{id}/recurrence/submit. A batch where some
// slots failed is still a 200 response; per-slot outcomes are in the body.
func (h *AvailabilityHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	unitID, ok := h.unitID(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.SubmitRecurrence(r.Context(), application.SubmitParams{
		UnitID:     unitID,
		Recurrence: req.recurrenceRequest.toInput(),
		Dates:      req.Dates,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	endpointLogger(r, h.logger, "recurrence_submit").
		InfoContext(r.Context(), "batch submitted", "batch_id", result.Report.BatchID, "failed", result.Report.Failed())
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSubmitResponse(result))
}

func (h *AvailabilityHandler) unitID(w http.ResponseWriter, r *http.Request) (string, bool) {
	unitID, ok := UnitIDFromContext(r.Context())
	if !ok || strings.TrimSpace(unitID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUnitID)
		return "", false
	}
	return unitID, true
}

func (h *AvailabilityHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		h.responder.writeError(r.Context(), w, http.StatusRequestEntityTooLarge, nil)
	case errors.Is(err, io.EOF):
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("request body is empty"))
	default:
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
	}
	return false
}

func timestampError(start, end string) error {
	vErr := &application.ValidationError{FieldErrors: map[string]string{}}
	if strings.TrimSpace(start) != "" && parseTime(start).IsZero() {
		vErr.FieldErrors["start"] = "start must be an RFC 3339 timestamp"
	}
	if strings.TrimSpace(end) != "" && parseTime(end).IsZero() {
		vErr.FieldErrors["end"] = "end must be an RFC 3339 timestamp"
	}
	return vErr
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type checkRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type recurrenceRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Weekdays  []int  `json:"weekdays"`
	Cadence   string `json:"cadence"`
	Anchor    string `json:"anchor,omitempty"`
}

func (r recurrenceRequest) toInput() application.RecurrenceInput {
	return application.RecurrenceInput{
		StartDate: strings.TrimSpace(r.StartDate),
		EndDate:   strings.TrimSpace(r.EndDate),
		StartTime: strings.TrimSpace(r.StartTime),
		EndTime:   strings.TrimSpace(r.EndTime),
		Weekdays:  append([]int(nil), r.Weekdays...),
		Cadence:   r.Cadence,
		Anchor:    r.Anchor,
	}
}

type submitRequest struct {
	recurrenceRequest
	Dates []string `json:"dates,omitempty"`
}

type verdictDTO struct {
	UnitID     string        `json:"unit_id"`
	Start      string        `json:"start"`
	End        string        `json:"end"`
	Reservable bool          `json:"reservable"`
	Reason     string        `json:"reason"`
	Conflicts  []conflictDTO `json:"conflicts,omitempty"`
}

type conflictDTO struct {
	ReservationID string `json:"reservation_id"`
	BufferOnly    bool   `json:"buffer_only"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

func toVerdictDTO(v application.SlotVerdict) verdictDTO {
	dto := verdictDTO{
		UnitID:     v.UnitID,
		Start:      v.Start.Format(time.RFC3339Nano),
		End:        v.End.Format(time.RFC3339Nano),
		Reservable: v.Reservable,
		Reason:     string(v.Reason),
	}
	for _, c := range v.Conflicts {
		dto.Conflicts = append(dto.Conflicts, conflictDTO{
			ReservationID: c.ReservationID,
			BufferOnly:    c.BufferOnly,
			Start:         c.Start.Format(time.RFC3339Nano),
			End:           c.End.Format(time.RFC3339Nano),
		})
	}
	return dto
}

type slotDTO struct {
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Conflict   bool   `json:"conflict"`
	Reservable bool   `json:"reservable"`
	Reason     string `json:"reason"`
}

func toSlotDTOs(slots []application.PreviewSlot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotDTO{
			Date:       slot.Date,
			StartTime:  slot.StartTime,
			EndTime:    slot.EndTime,
			Start:      slot.Start.Format(time.RFC3339Nano),
			End:        slot.End.Format(time.RFC3339Nano),
			Conflict:   slot.Conflict,
			Reservable: slot.Reservable,
			Reason:     string(slot.Reason),
		})
	}
	return out
}

type previewResponse struct {
	UnitID string    `json:"unit_id"`
	Slots  []slotDTO `json:"slots"`
}

type outcomeDTO struct {
	Date          string `json:"date"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Status        string `json:"status"`
	ReservationID string `json:"reservation_id,omitempty"`
	Attempts      int    `json:"attempts"`
	Error         string `json:"error,omitempty"`
}

type submitResponse struct {
	BatchID      string       `json:"batch_id"`
	UnitID       string       `json:"unit_id"`
	Created      int          `json:"created"`
	Failed       int          `json:"failed"`
	NotAttempted int          `json:"not_attempted"`
	Outcomes     []outcomeDTO `json:"outcomes"`
	Skipped      []slotDTO    `json:"skipped,omitempty"`
}

func toSubmitResponse(result application.SubmitResult) submitResponse {
	report := result.Report
	outcomes := make([]outcomeDTO, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		outcomes = append(outcomes, toOutcomeDTO(o))
	}
	resp := submitResponse{
		BatchID:      report.BatchID,
		UnitID:       report.UnitID,
		Created:      report.Created(),
		Failed:       report.Failed(),
		NotAttempted: report.NotAttempted(),
		Outcomes:     outcomes,
	}
	if len(result.Skipped) > 0 {
		resp.Skipped = toSlotDTOs(result.Skipped)
	}
	return resp
}

func toOutcomeDTO(o submission.Outcome) outcomeDTO {
	return outcomeDTO{
		Date:          o.Date.String(),
		Start:         o.Interval.Start.Format(time.RFC3339Nano),
		End:           o.Interval.End.Format(time.RFC3339Nano),
		Status:        string(o.Status),
		ReservationID: o.ReservationID,
		Attempts:      o.Attempts,
		Error:         o.Error,
	}
}
