// Package http provides HTTP handlers and middleware for the availability API.
//
// The router exposes the following endpoints:
//   - GET /healthz: {"status":"ok"} while the store answers, 503 otherwise.
//   - POST /units/{id}/availability: single-slot check. Body: {"start","end"} as
//     RFC 3339 timestamps. Response: {"unit_id","start","end","reservable","reason"}.
//   - POST /units/{id}/recurrence/preview: expands a recurrence. Body:
//     {"start_date","end_date","start_time","end_time","weekdays","cadence","anchor"}
//     with Monday-first weekdays. Response: {"unit_id","slots":[...]} where each
//     slot carries its conflict flag and reservability reason.
//   - POST /units/{id}/recurrence/submit: the preview body plus an optional
//     "dates" selection. Reservable slots are created one at a time and the
//     response reports each slot's outcome under a batch id.
//
// Validation problems map to 422 with per-field messages and unknown units to
// 404. Request/response DTOs live in availability_handler.go.
package http
