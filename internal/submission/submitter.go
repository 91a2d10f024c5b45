// Package submission creates the slots of a recurring booking one at a time
// through the mutation layer, tolerating per-slot failures.
package submission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/reservation-availability/internal/interval"
	"github.com/example/reservation-availability/internal/logging"
)

// Creator persists one reservation for a unit and returns its id.
type Creator interface {
	CreateReservation(ctx context.Context, req CreateRequest) (string, error)
}

// CreatorFunc adapts a function to Creator.
type CreatorFunc func(ctx context.Context, req CreateRequest) (string, error)

// CreateReservation calls f.
func (f CreatorFunc) CreateReservation(ctx context.Context, req CreateRequest) (string, error) {
	return f(ctx, req)
}

// CreateRequest is the mutation payload for one slot.
type CreateRequest struct {
	BatchID      string
	UnitID       string
	Interval     interval.Interval
	BufferBefore time.Duration
	BufferAfter  time.Duration
}

// Item is one slot handed to the submitter.
type Item struct {
	Date         interval.DayKey
	Interval     interval.Interval
	BufferBefore time.Duration
	BufferAfter  time.Duration
}

// Status is the terminal state of one slot.
type Status string

const (
	StatusCreated      Status = "created"
	StatusFailed       Status = "failed"
	StatusNotAttempted Status = "not_attempted"
)

// Outcome records what happened to one slot.
type Outcome struct {
	Date          interval.DayKey   `json:"date"`
	Interval      interval.Interval `json:"-"`
	Status        Status            `json:"status"`
	ReservationID string            `json:"reservationId,omitempty"`
	Attempts      int               `json:"attempts"`
	Error         string            `json:"error,omitempty"`
}

// Report summarises a batch. A partially successful batch is complete.
type Report struct {
	BatchID  string    `json:"batchId"`
	UnitID   string    `json:"unitId"`
	Outcomes []Outcome `json:"outcomes"`
}

// Created counts slots that were persisted.
func (r Report) Created() int { return r.count(StatusCreated) }

// Failed counts slots that failed after their retry.
func (r Report) Failed() int { return r.count(StatusFailed) }

// NotAttempted counts slots skipped because the batch was cancelled.
func (r Report) NotAttempted() int { return r.count(StatusNotAttempted) }

func (r Report) count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// maxAttempts is the first try plus one retry.
const maxAttempts = 2

// Submitter drives a Creator over a batch of slots.
type Submitter struct {
	creator Creator
	logger  *slog.Logger
	newID   func() string
}

// Option customises a Submitter.
type Option func(*Submitter)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBatchIDGenerator replaces the uuid batch id source.
func WithBatchIDGenerator(gen func() string) Option {
	return func(s *Submitter) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewSubmitter constructs a Submitter.
func NewSubmitter(creator Creator, opts ...Option) *Submitter {
	s := &Submitter{
		creator: creator,
		logger:  slog.Default(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates items sequentially in order. Each failed item is retried
// once; a second failure is recorded against that item and the batch moves on.
// Once ctx is done the remaining items are reported as not attempted.
func (s *Submitter) Submit(ctx context.Context, unitID string, items []Item) Report {
	report := Report{
		BatchID:  s.newID(),
		UnitID:   unitID,
		Outcomes: make([]Outcome, 0, len(items)),
	}

	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = s.logger
	}
	logger = logger.With("component", "submission", "batch_id", report.BatchID, "unit_id", unitID)

	for _, item := range items {
		outcome := Outcome{Date: item.Date, Interval: item.Interval}
		if ctx.Err() != nil {
			outcome.Status = StatusNotAttempted
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		req := CreateRequest{
			BatchID:      report.BatchID,
			UnitID:       unitID,
			Interval:     item.Interval,
			BufferBefore: item.BufferBefore,
			BufferAfter:  item.BufferAfter,
		}

		var lastErr error
		for outcome.Attempts < maxAttempts {
			outcome.Attempts++
			id, err := s.creator.CreateReservation(ctx, req)
			if err == nil {
				outcome.Status = StatusCreated
				outcome.ReservationID = id
				lastErr = nil
				break
			}
			lastErr = err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
		}

		if lastErr != nil {
			outcome.Status = StatusFailed
			outcome.Error = lastErr.Error()
			logger.Warn("slot creation failed",
				"date", item.Date.String(),
				"attempts", outcome.Attempts,
				"error", lastErr,
			)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	logger.Info("recurring batch submitted",
		"created", report.Created(),
		"failed", report.Failed(),
		"not_attempted", report.NotAttempted(),
	)
	return report
}
