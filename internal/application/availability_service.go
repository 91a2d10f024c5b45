package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/reservation-availability/internal/availability"
	"github.com/example/reservation-availability/internal/dayindex"
	"github.com/example/reservation-availability/internal/interval"
	"github.com/example/reservation-availability/internal/persistence"
	"github.com/example/reservation-availability/internal/recurrence"
	"github.com/example/reservation-availability/internal/scheduler"
	"github.com/example/reservation-availability/internal/snapshot"
	"github.com/example/reservation-availability/internal/submission"
)

const tracerName = "github.com/example/reservation-availability/internal/application"

// SnapshotSource loads the latest data for one unit. Implementations return
// persistence.ErrNotFound or ErrNotFound for unknown units.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, unitID string) (snapshot.Snapshot, error)
}

// Submitter creates confirmed recurring slots.
type Submitter interface {
	Submit(ctx context.Context, unitID string, items []submission.Item) submission.Report
}

// AvailabilityService answers availability questions for reservation units
// and drives recurring submissions.
type AvailabilityService struct {
	source    SnapshotSource
	submitter Submitter
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger
	tracer    trace.Tracer
	indexes   *indexCache
}

// ServiceOption customises an AvailabilityService.
type ServiceOption func(*AvailabilityService)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *AvailabilityService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *AvailabilityService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the timezone used for units that do not declare one.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *AvailabilityService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithTracer replaces the global tracer.
func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *AvailabilityService) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithIndexCache enables day index reuse for ttl. A zero ttl disables it.
func WithIndexCache(ttl time.Duration, maxEntries int) ServiceOption {
	return func(s *AvailabilityService) {
		if ttl <= 0 {
			s.indexes = nil
			return
		}
		s.indexes = newIndexCache(ttl, maxEntries, func() time.Time { return s.now() })
	}
}

// NewAvailabilityService constructs the service. submitter may be nil when
// only read operations are used.
func NewAvailabilityService(source SnapshotSource, submitter Submitter, opts ...ServiceOption) *AvailabilityService {
	s := &AvailabilityService{
		source:    source,
		submitter: submitter,
		location:  time.UTC,
		now:       time.Now,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation, unitID string) *slog.Logger {
	return unitLogger(ctx, s.logger, operation, unitID)
}

// InvalidateCache drops cached day indexes, for example after opening hours
// were replaced.
func (s *AvailabilityService) InvalidateCache() {
	if s != nil {
		s.indexes.Invalidate()
	}
}

// CheckSlot reports whether one candidate booking can be made.
func (s *AvailabilityService) CheckSlot(ctx context.Context, params CheckSlotParams) (verdict SlotVerdict, err error) {
	if s == nil || s.source == nil {
		return SlotVerdict{}, ErrNotConfigured
	}

	ctx, span := s.tracer.Start(ctx, "AvailabilityService.CheckSlot",
		trace.WithAttributes(attribute.String("unit.id", params.UnitID)))
	logger := s.loggerWith(ctx, "CheckSlot", params.UnitID)
	defer func() {
		finishSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "slot check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		span.SetAttributes(attribute.String("verdict.reason", string(verdict.Reason)))
		logger.DebugContext(ctx, "slot checked", "reservable", verdict.Reservable, "reason", verdict.Reason)
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(params.UnitID) == "" {
		vErr.add("unit_id", "unit id is required")
	}
	if params.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if params.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	resolved, err := s.load(ctx, params.UnitID)
	if err != nil {
		return
	}

	result := availability.NewChecker(resolved.Location).Check(availability.Input{
		Candidate:    interval.New(params.Start, params.End),
		Index:        resolved.Index,
		Constraints:  resolved.Constraints,
		Blackouts:    resolved.Blackouts,
		Reservations: resolved.Reservations,
		Now:          resolved.Now,
	})

	verdict = SlotVerdict{
		UnitID:     params.UnitID,
		Start:      params.Start,
		End:        params.End,
		Reservable: result.Reservable,
		Reason:     result.Reason,
	}
	if result.Reason == availability.ReasonCollision {
		candidate := scheduler.Candidate{
			Start:        params.Start,
			End:          params.End,
			BufferBefore: resolved.Constraints.BufferBefore,
			BufferAfter:  resolved.Constraints.BufferAfter,
		}
		for _, c := range scheduler.DetectConflicts(resolved.Reservations, candidate) {
			verdict.Conflicts = append(verdict.Conflicts, SlotConflict{
				ReservationID: c.WithReservationID,
				BufferOnly:    c.Type == scheduler.ConflictTypeBuffer,
				Start:         c.Interval.Start,
				End:           c.Interval.End,
			})
		}
	}
	return
}

// PreviewRecurrence lists the slots a recurrence would create. Each slot is
// flagged when it overlaps an existing occupying reservation, ignoring
// buffers, and carries its full reservability verdict.
func (s *AvailabilityService) PreviewRecurrence(ctx context.Context, params PreviewParams) (slots []PreviewSlot, err error) {
	if s == nil || s.source == nil {
		return nil, ErrNotConfigured
	}

	ctx, span := s.tracer.Start(ctx, "AvailabilityService.PreviewRecurrence",
		trace.WithAttributes(attribute.String("unit.id", params.UnitID)))
	logger := s.loggerWith(ctx, "PreviewRecurrence", params.UnitID)
	defer func() {
		finishSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "recurrence preview failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		span.SetAttributes(attribute.Int("slots", len(slots)))
		logger.InfoContext(ctx, "recurrence previewed", "slots", len(slots))
	}()

	rule, err := s.parseRule(params.UnitID, params.Recurrence)
	if err != nil {
		return nil, err
	}

	resolved, err := s.load(ctx, params.UnitID)
	if err != nil {
		return nil, err
	}

	slots = preview(resolved, rule)
	return slots, nil
}

// SubmitRecurrence creates the reservable slots of a recurrence one at a
// time. Slots that are not reservable, or not among params.Dates when it is
// set, are not submitted.
func (s *AvailabilityService) SubmitRecurrence(ctx context.Context, params SubmitParams) (result SubmitResult, err error) {
	if s == nil || s.source == nil || s.submitter == nil {
		return SubmitResult{}, ErrNotConfigured
	}

	ctx, span := s.tracer.Start(ctx, "AvailabilityService.SubmitRecurrence",
		trace.WithAttributes(attribute.String("unit.id", params.UnitID)))
	logger := s.loggerWith(ctx, "SubmitRecurrence", params.UnitID)
	defer func() {
		finishSpan(span, err)
		if err != nil {
			logger.ErrorContext(ctx, "recurrence submission failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		span.SetAttributes(
			attribute.String("batch.id", result.Report.BatchID),
			attribute.Int("created", result.Report.Created()),
			attribute.Int("failed", result.Report.Failed()),
		)
		logger.InfoContext(ctx, "recurrence submitted",
			"batch_id", result.Report.BatchID,
			"created", result.Report.Created(),
			"failed", result.Report.Failed(),
			"skipped", len(result.Skipped),
		)
	}()

	rule, err := s.parseRule(params.UnitID, params.Recurrence)
	selected, vErr := selectedDates(params.Dates)
	if err != nil {
		var ruleErr *ValidationError
		if errors.As(err, &ruleErr) {
			ruleErr.merge(vErr)
		}
		return SubmitResult{}, err
	}
	if vErr.HasErrors() {
		return SubmitResult{}, vErr
	}

	resolved, err := s.load(ctx, params.UnitID)
	if err != nil {
		return SubmitResult{}, err
	}

	slots := preview(resolved, rule)
	items := make([]submission.Item, 0, len(slots))
	matched := make(map[string]bool, len(selected))
	for _, slot := range slots {
		if len(selected) > 0 && !selected[slot.Date] {
			continue
		}
		matched[slot.Date] = true
		if !slot.Reservable {
			result.Skipped = append(result.Skipped, slot)
			continue
		}
		day, _ := interval.ParseDayKey(slot.Date)
		items = append(items, submission.Item{
			Date:         day,
			Interval:     interval.New(slot.Start, slot.End),
			BufferBefore: resolved.Constraints.BufferBefore,
			BufferAfter:  resolved.Constraints.BufferAfter,
		})
	}

	for date := range selected {
		if !matched[date] {
			vErr.add("dates", fmt.Sprintf("%s is not an occurrence of the recurrence", date))
		}
	}
	if vErr.HasErrors() {
		return SubmitResult{}, vErr
	}
	if len(items) == 0 {
		vErr.add("recurrence", "no reservable slots")
		return SubmitResult{Skipped: result.Skipped}, vErr
	}

	result.Report = s.submitter.Submit(ctx, params.UnitID, items)
	return result, nil
}

func (s *AvailabilityService) parseRule(unitID string, in RecurrenceInput) (recurrence.Rule, error) {
	vErr := &ValidationError{}
	if strings.TrimSpace(unitID) == "" {
		vErr.add("unit_id", "unit id is required")
	}

	raw := snapshot.RawRecurrence{
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Weekdays:  in.Weekdays,
		Cadence:   strings.ToLower(strings.TrimSpace(in.Cadence)),
		Anchor:    strings.ToLower(strings.TrimSpace(in.Anchor)),
	}
	if err := snapshot.Validate(raw); err != nil {
		var fieldErrs *snapshot.ValidationError
		if !errors.As(err, &fieldErrs) {
			return recurrence.Rule{}, err
		}
		for _, f := range fieldErrs.Fields {
			vErr.add(f.Field, "failed "+f.Rule)
		}
	}
	if vErr.HasErrors() {
		return recurrence.Rule{}, vErr
	}

	rule, err := snapshot.Rule(raw)
	if err != nil {
		vErr.add("recurrence", err.Error())
		return recurrence.Rule{}, vErr
	}
	return rule, nil
}

func selectedDates(dates []string) (map[string]bool, *ValidationError) {
	vErr := &ValidationError{}
	selected := make(map[string]bool, len(dates))
	for _, value := range dates {
		day, err := interval.ParseDayKey(value)
		if err != nil {
			vErr.add("dates", fmt.Sprintf("%q is not a date", value))
			continue
		}
		selected[day.String()] = true
	}
	return selected, vErr
}

func (s *AvailabilityService) load(ctx context.Context, unitID string) (snapshot.Resolved, error) {
	doc, err := s.source.LoadSnapshot(ctx, unitID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return snapshot.Resolved{}, fmt.Errorf("unit %s: %w", unitID, ErrNotFound)
		}
		return snapshot.Resolved{}, fmt.Errorf("load unit %s: %w", unitID, err)
	}
	doc.Now = ""

	resolved, err := snapshot.Resolve(doc, s.location, s.now(), snapshot.WithIndexBuilder(s.indexBuilder(unitID)))
	if err != nil {
		return snapshot.Resolved{}, fmt.Errorf("resolve unit %s: %w", unitID, err)
	}
	return resolved, nil
}

func (s *AvailabilityService) indexBuilder(unitID string) snapshot.IndexBuilder {
	if s.indexes == nil {
		return dayindex.Build
	}
	return func(spans []dayindex.OpenSpan, now time.Time, loc *time.Location) *dayindex.Index {
		key := buildIndexCacheKey(unitID, loc, now, spans)
		if idx, ok := s.indexes.Get(key); ok {
			return idx
		}
		idx := dayindex.Build(spans, now, loc)
		s.indexes.Store(key, idx)
		return idx
	}
}

// preview expands rule against a resolved unit.
func preview(resolved snapshot.Resolved, rule recurrence.Rule) []PreviewSlot {
	engine := recurrence.NewEngine(resolved.Location)
	checker := availability.NewChecker(resolved.Location)

	annotated := engine.Annotate(engine.Generate(rule), scheduler.OccupiedIntervals(resolved.Reservations))
	out := make([]PreviewSlot, 0, len(annotated))
	for _, slot := range annotated {
		iv := engine.SlotInterval(slot)
		verdict := checker.Check(availability.Input{
			Candidate:    iv,
			Index:        resolved.Index,
			Constraints:  resolved.Constraints,
			Blackouts:    resolved.Blackouts,
			Reservations: resolved.Reservations,
			Now:          resolved.Now,
		})
		out = append(out, PreviewSlot{
			Date:       slot.Date.String(),
			StartTime:  slot.StartTime.String(),
			EndTime:    slot.EndTime.String(),
			Start:      iv.Start,
			End:        iv.End,
			Conflict:   slot.Conflict,
			Reservable: verdict.Reservable,
			Reason:     verdict.Reason,
		})
	}
	return out
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
	}
	span.End()
}
