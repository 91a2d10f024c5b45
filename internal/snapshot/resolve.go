package snapshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/reservation-availability/internal/availability"
	"github.com/example/reservation-availability/internal/dayindex"
	"github.com/example/reservation-availability/internal/recurrence"
	"github.com/example/reservation-availability/internal/scheduler"
)

// Resolved holds a snapshot converted into engine values.
type Resolved struct {
	UnitID       string
	Location     *time.Location
	Now          time.Time
	Index        *dayindex.Index
	Constraints  availability.Constraints
	Blackouts    []availability.Blackout
	Reservations []scheduler.Reservation
	// Rule is nil when the snapshot carries no recurrence request.
	Rule *recurrence.Rule
}

// IndexBuilder builds the day index for converted opening hours.
type IndexBuilder func(spans []dayindex.OpenSpan, now time.Time, loc *time.Location) *dayindex.Index

// ResolveOption customises Resolve.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	buildIndex IndexBuilder
}

// WithIndexBuilder replaces dayindex.Build, for example with a caching
// builder.
func WithIndexBuilder(build IndexBuilder) ResolveOption {
	return func(o *resolveOptions) {
		if build != nil {
			o.buildIndex = build
		}
	}
}

// Resolve converts doc. The document's own timezone and now take precedence
// over fallback and now.
func Resolve(doc Snapshot, fallback *time.Location, now time.Time, opts ...ResolveOption) (Resolved, error) {
	options := resolveOptions{buildIndex: dayindex.Build}
	for _, opt := range opts {
		opt(&options)
	}

	loc, err := Location(doc.Timezone, fallback)
	if err != nil {
		return Resolved{}, fmt.Errorf("snapshot: timezone: %w", err)
	}

	if strings.TrimSpace(doc.Now) != "" {
		parsed, err := ParseTimestamp(doc.Now, loc)
		if err != nil {
			return Resolved{}, fmt.Errorf("snapshot: now: %w", err)
		}
		now = parsed
	}

	constraints, err := Constraints(doc.Unit, loc)
	if err != nil {
		return Resolved{}, fmt.Errorf("snapshot: unit %s: %w", doc.Unit.ID, err)
	}
	blackouts, err := Blackouts(doc.Unit.ApplicationRoundPeriods)
	if err != nil {
		return Resolved{}, fmt.Errorf("snapshot: unit %s: %w", doc.Unit.ID, err)
	}

	out := Resolved{
		UnitID:       doc.Unit.ID,
		Location:     loc,
		Now:          now,
		Index:        options.buildIndex(OpenSpans(doc.OpenSpans, loc), now, loc),
		Constraints:  constraints,
		Blackouts:    blackouts,
		Reservations: Reservations(doc.Reservations, loc),
	}

	if doc.Recurrence != nil {
		rule, err := Rule(*doc.Recurrence)
		if err != nil {
			return Resolved{}, fmt.Errorf("snapshot: recurrence: %w", err)
		}
		out.Rule = &rule
	}
	return out, nil
}
