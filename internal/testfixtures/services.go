package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/example/reservation-availability/internal/application"
	"github.com/example/reservation-availability/internal/persistence"
	"github.com/example/reservation-availability/internal/snapshot"
	"github.com/example/reservation-availability/internal/submission"
)

// StaticSource serves fixed snapshots keyed by unit id.
type StaticSource struct {
	mu    sync.Mutex
	units map[string]snapshot.Snapshot
}

// NewStaticSource returns a source holding the given fixtures.
func NewStaticSource(units ...UnitFixture) *StaticSource {
	s := &StaticSource{units: make(map[string]snapshot.Snapshot, len(units))}
	for _, u := range units {
		s.Put(u)
	}
	return s
}

// Put adds or replaces a unit.
func (s *StaticSource) Put(u UnitFixture) {
	s.mu.Lock()
	s.units[u.ID] = u.Snapshot()
	s.mu.Unlock()
}

// LoadSnapshot implements application.SnapshotSource.
func (s *StaticSource) LoadSnapshot(_ context.Context, unitID string) (snapshot.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.units[unitID]
	if !ok {
		return snapshot.Snapshot{}, persistence.ErrNotFound
	}
	return doc, nil
}

// ServiceFactory builds application services on a deterministic clock and
// batch id sequence.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with a reference clock, a
// "batch" id sequence and a discarding logger.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("batch"),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		if clock != nil {
			factory.Clock = clock
		}
	}
}

// WithLogger overrides the discarding logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		if logger != nil {
			factory.Logger = logger
		}
	}
}

// AvailabilityServiceDeps captures dependencies for an availability service.
type AvailabilityServiceDeps struct {
	Source application.SnapshotSource
	// Creator is optional; without it submissions report ErrNotConfigured.
	Creator  submission.Creator
	CacheTTL time.Duration
}

// NewAvailabilityService builds a service in Location using the factory clock.
func (f *ServiceFactory) NewAvailabilityService(deps AvailabilityServiceDeps) *application.AvailabilityService {
	var submitter application.Submitter
	if deps.Creator != nil {
		submitter = submission.NewSubmitter(deps.Creator,
			submission.WithLogger(f.Logger),
			submission.WithBatchIDGenerator(f.IDGenerator.NextFunc()),
		)
	}
	return application.NewAvailabilityService(deps.Source, submitter,
		application.WithLogger(f.Logger),
		application.WithClock(f.Clock.NowFunc()),
		application.WithLocation(Location),
		application.WithIndexCache(deps.CacheTTL, 0),
	)
}
