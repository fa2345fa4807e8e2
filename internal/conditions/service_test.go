package conditions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/provider/resilience"
	"github.com/itinera/itinera/internal/transport"
)

// mockSource counts fetches and returns a fixed delay or error.
type mockSource struct {
	mu        sync.Mutex
	callCount int
	delay     int
	err       error
}

func (m *mockSource) Fetch(_ context.Context, req conditions.Request) (conditions.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.err != nil {
		return conditions.Snapshot{}, m.err
	}
	return conditions.Snapshot{
		Origin:               req.Origin,
		Destination:          req.Destination,
		Mode:                 req.Mode,
		Conditions:           "moderate",
		DelayMinutes:         m.delay,
		CongestionMultiplier: 1.3,
	}, nil
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func noRetry() *resilience.GuardConfig {
	cfg := resilience.DefaultGuardConfig("conditions.mock")
	cfg.MaxRetries = 0
	cfg.InitialInterval = time.Millisecond
	return &cfg
}

func newService(source conditions.Source, clock *fakeClock, store conditions.Store) *conditions.Service {
	return conditions.NewService(conditions.ServiceConfig{
		Source: source,
		Store:  store,
		Clock:  clock.Now,
		Guard:  noRetry(),
		Logger: zerolog.Nop(),
	})
}

func busReq(origin, destination string) conditions.Request {
	return conditions.Request{Origin: origin, Destination: destination, Mode: transport.ModeBus}
}

func TestService_InsensitiveModesBypassCache(t *testing.T) {
	source := &mockSource{delay: 40}
	svc := newService(source, newFakeClock(8), nil)

	for _, mode := range []transport.Mode{transport.ModeFlight, transport.ModeTrain} {
		for range 3 {
			snap := svc.GetCondition(context.Background(), conditions.Request{Origin: "a", Destination: "b", Mode: mode})
			assert.Zero(t, snap.DelayMinutes)
			assert.Equal(t, conditions.LabelNotApplicable, snap.Conditions)
		}
	}

	assert.Zero(t, source.calls())
	stats := svc.CacheStats(context.Background())
	assert.Zero(t, stats.Entries)
	assert.Zero(t, stats.Hits+stats.Misses)
}

func TestService_CacheHitWithinTTL(t *testing.T) {
	source := &mockSource{delay: 40}
	clock := newFakeClock(8)
	svc := newService(source, clock, nil)

	first := svc.GetCondition(context.Background(), busReq("Paris", "London"))
	clock.Advance(14 * time.Minute)
	second := svc.GetCondition(context.Background(), busReq("paris", "london"))

	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.True(t, first.ExpiresAt.Equal(first.CreatedAt.Add(conditions.DefaultCacheTTL)))
	assert.Equal(t, 40, second.DelayMinutes)
	assert.Equal(t, 1, source.calls())

	stats := svc.CacheStats(context.Background())
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestService_RefetchAfterTTL(t *testing.T) {
	source := &mockSource{delay: 10}
	clock := newFakeClock(8)
	svc := newService(source, clock, nil)

	first := svc.GetCondition(context.Background(), busReq("a", "b"))
	clock.Advance(conditions.DefaultCacheTTL)
	second := svc.GetCondition(context.Background(), busReq("a", "b"))

	assert.False(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.Equal(t, 2, source.calls())
}

func TestService_DegradesOnFetchFailure(t *testing.T) {
	source := &mockSource{err: errors.New("traffic feed down")}
	svc := newService(source, newFakeClock(8), nil)

	snap := svc.GetCondition(context.Background(), busReq("a", "b"))
	assert.True(t, snap.Degraded)
	assert.Equal(t, conditions.LabelNormal, snap.Conditions)
	assert.Zero(t, snap.DelayMinutes)

	// Failures are not cached.
	_ = svc.GetCondition(context.Background(), busReq("a", "b"))
	assert.Equal(t, 2, source.calls())

	stats := svc.CacheStats(context.Background())
	assert.Equal(t, int64(2), stats.Failures)
	assert.Zero(t, stats.Entries)
}

func TestService_InvalidateCache(t *testing.T) {
	source := &mockSource{delay: 5}
	svc := newService(source, newFakeClock(8), nil)

	_ = svc.GetCondition(context.Background(), busReq("a", "b"))
	require.NoError(t, svc.InvalidateCache(context.Background()))
	_ = svc.GetCondition(context.Background(), busReq("a", "b"))

	assert.Equal(t, 2, source.calls())
}

func TestService_ConcurrentMisses(t *testing.T) {
	source := &mockSource{delay: 5}
	svc := newService(source, newFakeClock(8), nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := svc.GetCondition(context.Background(), busReq("a", "b"))
			assert.Equal(t, 5, snap.DelayMinutes)
		}()
	}
	wg.Wait()

	// Last writer wins; every caller sees a valid snapshot.
	assert.GreaterOrEqual(t, source.calls(), 1)
	stats := svc.CacheStats(context.Background())
	assert.Equal(t, 1, stats.Entries)
}

func TestService_DefaultsToSimulator(t *testing.T) {
	svc := conditions.NewService(conditions.ServiceConfig{Clock: newFakeClock(12).Now})
	assert.Equal(t, "simulator", svc.SourceName())

	snap := svc.GetCondition(context.Background(), conditions.Request{
		Origin: "boston", Destination: "new york", Mode: transport.ModeCar,
	})
	assert.False(t, snap.Degraded)
	assert.GreaterOrEqual(t, snap.DelayMinutes, 0)
}

func TestService_RegistersSourceHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	conditions.NewService(conditions.ServiceConfig{
		Source:   &mockSource{},
		Registry: registry,
	})

	assert.Equal(t, []string{"conditions.mock"}, registry.GetProviderNames())
}

func TestMemoryStore_LazyEviction(t *testing.T) {
	clock := newFakeClock(8)
	store := conditions.NewMemoryStore(clock.Now)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", conditions.Snapshot{ExpiresAt: clock.Now().Add(time.Minute)}))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)

	clock.Advance(2 * time.Minute)

	// Expired entries linger until looked up.
	n, _ := store.Len(ctx)
	assert.Equal(t, 1, n)

	got, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, _ = store.Len(ctx)
	assert.Zero(t, n)
}

func newRedisStore(t *testing.T, clock *fakeClock) (*conditions.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return conditions.NewRedisStore(conditions.RedisStoreConfig{Client: client, Clock: clock.Now}), mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	clock := newFakeClock(8)
	store, mr := newRedisStore(t, clock)
	ctx := context.Background()

	snap := conditions.Snapshot{
		Origin:       "a",
		Destination:  "b",
		Mode:         transport.ModeCar,
		Conditions:   "heavy_rain",
		Weather:      conditions.WeatherRain,
		DelayMinutes: 50,
		CreatedAt:    clock.Now(),
		ExpiresAt:    clock.Now().Add(15 * time.Minute),
	}
	require.NoError(t, store.Set(ctx, "a_b_car", snap))

	assert.True(t, mr.Exists(conditions.DefaultKeyPrefix+"a_b_car"))
	assert.Equal(t, 15*time.Minute, mr.TTL(conditions.DefaultKeyPrefix+"a_b_car"))

	got, err := store.Get(ctx, "a_b_car")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "heavy_rain", got.Conditions)
	assert.Equal(t, 50, got.DelayMinutes)
	assert.True(t, snap.CreatedAt.Equal(got.CreatedAt))

	missing, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mr.FastForward(16 * time.Minute)
	got, err = store.Get(ctx, "a_b_car")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_SkipsExpiredAndClears(t *testing.T) {
	clock := newFakeClock(8)
	store, mr := newRedisStore(t, clock)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "old", conditions.Snapshot{ExpiresAt: clock.Now().Add(-time.Second)}))
	assert.False(t, mr.Exists(conditions.DefaultKeyPrefix+"old"))

	for _, k := range []string{"x", "y"} {
		require.NoError(t, store.Set(ctx, k, conditions.Snapshot{ExpiresAt: clock.Now().Add(time.Minute)}))
	}
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, store.Clear(ctx))
	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisStore_BackingService(t *testing.T) {
	clock := newFakeClock(8)
	store, _ := newRedisStore(t, clock)
	source := &mockSource{delay: 35}
	svc := newService(source, clock, store)

	first := svc.GetCondition(context.Background(), busReq("a", "b"))
	second := svc.GetCondition(context.Background(), busReq("a", "b"))

	assert.Equal(t, 1, source.calls())
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
}

func TestRedisStore_ReadFailureFallsThrough(t *testing.T) {
	clock := newFakeClock(8)
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	store := conditions.NewRedisStore(conditions.RedisStoreConfig{Client: client, Clock: clock.Now})
	source := &mockSource{delay: 35}
	svc := newService(source, clock, store)

	snap := svc.GetCondition(context.Background(), busReq("a", "b"))
	assert.Equal(t, 35, snap.DelayMinutes)
	assert.False(t, snap.Degraded)
	assert.Equal(t, 1, source.calls())
}
