package conditions

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/itinera/itinera/internal/provider/resilience"
	"github.com/itinera/itinera/internal/transport"
)

const instrumentationName = "github.com/itinera/itinera/internal/conditions"

// DefaultCacheTTL is how long a snapshot stays valid.
const DefaultCacheTTL = 15 * time.Minute

// ServiceConfig holds configuration for the condition service.
type ServiceConfig struct {
	// Source produces fresh snapshots (default: a Simulator).
	Source Source

	// Store caches snapshots (default: a MemoryStore).
	Store Store

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long snapshots are reused (default: 15 minutes).
	CacheTTL time.Duration

	// Clock supplies the current time (default: time.Now).
	Clock func() time.Time

	// Guard configures retries and the circuit breaker around the source.
	// If nil, uses resilience.DefaultGuardConfig.
	Guard *resilience.GuardConfig

	// Registry receives the source's health. Optional.
	Registry *resilience.Registry
}

// Service returns cached or freshly fetched conditions for legs.
type Service struct {
	source Source
	store  Store
	guard  *resilience.Guard[Snapshot]
	logger zerolog.Logger
	ttl    time.Duration
	clock  func() time.Time

	hits     atomic.Int64
	misses   atomic.Int64
	failures atomic.Int64

	tracer        trace.Tracer
	hitCounter    metric.Int64Counter
	missCounter   metric.Int64Counter
	failedCounter metric.Int64Counter
}

// CacheStats contains condition cache statistics.
type CacheStats struct {
	Entries  int   `json:"entries"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Failures int64 `json:"failures"`
}

// NewService creates a new condition service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Source == nil {
		cfg.Source = NewSimulator(SimulatorConfig{Clock: cfg.Clock})
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore(cfg.Clock)
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	guardCfg := resilience.DefaultGuardConfig("conditions." + cfg.Source.Name())
	if cfg.Guard != nil {
		guardCfg = *cfg.Guard
	}
	if cfg.Registry != nil {
		guardCfg.Registry = cfg.Registry
	}

	s := &Service{
		source: cfg.Source,
		store:  cfg.Store,
		guard:  resilience.NewGuard[Snapshot](guardCfg),
		logger: cfg.Logger,
		ttl:    cfg.CacheTTL,
		clock:  cfg.Clock,
		tracer: otel.Tracer(instrumentationName),
	}
	s.initInstruments()

	return s
}

func (s *Service) initInstruments() {
	meter := otel.Meter(instrumentationName)

	var err error
	if s.hitCounter, err = meter.Int64Counter("conditions.cache.hit",
		metric.WithDescription("Condition lookups served from cache"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		s.logger.Warn().Err(err).Msg("failed to create cache hit counter")
	}
	if s.missCounter, err = meter.Int64Counter("conditions.cache.miss",
		metric.WithDescription("Condition lookups that fetched from the source"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		s.logger.Warn().Err(err).Msg("failed to create cache miss counter")
	}
	if s.failedCounter, err = meter.Int64Counter("conditions.fetch.failed",
		metric.WithDescription("Condition fetches that degraded to the default snapshot"),
		metric.WithUnit("{fetch}"),
	); err != nil {
		s.logger.Warn().Err(err).Msg("failed to create fetch failure counter")
	}
}

// GetCondition returns the snapshot for a leg. Modes that are not traffic
// sensitive always get a zero-impact snapshot and never touch the cache.
// A failing source yields a zero-delay snapshot marked Degraded, which is
// not cached.
func (s *Service) GetCondition(ctx context.Context, req Request) Snapshot {
	now := s.clock()

	profile, ok := transport.Lookup(req.Mode)
	if !ok || !profile.TrafficSensitive {
		return notApplicable(req, now)
	}

	key := req.Key()
	ctx, span := s.tracer.Start(ctx, "conditions.GetCondition",
		trace.WithAttributes(attribute.String("conditions.key", key)))
	defer span.End()

	cached, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("condition cache read failed")
	}
	if cached != nil {
		s.hits.Add(1)
		s.count(ctx, s.hitCounter, req)
		span.SetAttributes(attribute.Bool("conditions.cache_hit", true))
		return *cached
	}

	s.misses.Add(1)
	s.count(ctx, s.missCounter, req)
	span.SetAttributes(attribute.Bool("conditions.cache_hit", false))

	s.logger.Debug().
		Str("key", key).
		Str("source", s.source.Name()).
		Msg("fetching conditions from source")

	snap, err := s.guard.Execute(ctx, func(ctx context.Context) (Snapshot, error) {
		return s.source.Fetch(ctx, req)
	})
	if err != nil {
		s.failures.Add(1)
		s.count(ctx, s.failedCounter, req)
		span.RecordError(err)

		s.logger.Warn().Err(err).
			Str("key", key).
			Msg("condition fetch failed, assuming normal conditions")

		return degraded(req, now)
	}

	snap.CreatedAt = now
	snap.ExpiresAt = now.Add(s.ttl)

	if err := s.store.Set(ctx, key, snap); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("condition cache write failed")
	}

	return snap
}

func (s *Service) count(ctx context.Context, c metric.Int64Counter, req Request) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", string(req.Mode))))
}

// SourceName returns the name of the underlying source.
func (s *Service) SourceName() string {
	return s.source.Name()
}

// InvalidateCache clears all cached snapshots.
func (s *Service) InvalidateCache(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats(ctx context.Context) CacheStats {
	entries, err := s.store.Len(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to count condition cache entries")
	}

	return CacheStats{
		Entries:  entries,
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Failures: s.failures.Load(),
	}
}
