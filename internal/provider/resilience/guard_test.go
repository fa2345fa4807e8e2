package resilience_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera/itinera/internal/provider/resilience"
)

var errTransient = errors.New("provider unavailable")

func fastConfig(name string, retries uint64) resilience.GuardConfig {
	return resilience.GuardConfig{
		Name:            name,
		Timeout:         time.Second,
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		TripAfter:       100,
	}
}

func TestGuard_Success(t *testing.T) {
	g := resilience.NewGuard[string](resilience.DefaultGuardConfig("test"))

	v, err := g.Execute(context.Background(), func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, "test", g.Name())
}

func TestGuard_RetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int32
	g := resilience.NewGuard[int](fastConfig("test-retry", 5))

	v, err := g.Execute(context.Background(), func(context.Context) (int, error) {
		if attempts.Add(1) < 3 {
			return 0, errTransient
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, int32(3), attempts.Load(), "should have retried until success")
}

func TestGuard_ExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	g := resilience.NewGuard[int](fastConfig("test-exhaust", 2))

	_, err := g.Execute(context.Background(), func(context.Context) (int, error) {
		attempts.Add(1)
		return 0, errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestGuard_PermanentNotRetried(t *testing.T) {
	var attempts atomic.Int32
	g := resilience.NewGuard[int](fastConfig("test-permanent", 3))

	_, err := g.Execute(context.Background(), func(context.Context) (int, error) {
		attempts.Add(1)
		return 0, resilience.Permanent(errTransient)
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, int32(1), attempts.Load(), "should not retry permanent errors")
}

func TestGuard_CircuitBreakerTrips(t *testing.T) {
	var attempts atomic.Int32

	var transitions []gobreaker.State
	cfg := fastConfig("test-trip", 0)
	cfg.TripAfter = 5
	cfg.OpenFor = time.Minute
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}
	g := resilience.NewGuard[int](cfg)

	fail := func(context.Context) (int, error) {
		attempts.Add(1)
		return 0, errTransient
	}

	for i := 0; i < 5; i++ {
		_, _ = g.Execute(context.Background(), fail)
	}
	assert.Equal(t, gobreaker.StateOpen, g.CircuitBreakerState())

	_, err := g.Execute(context.Background(), fail)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(5), attempts.Load(), "open circuit should not call the provider")
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
}

func TestGuard_SuccessResetsFailureRun(t *testing.T) {
	cfg := fastConfig("test-reset", 0)
	cfg.TripAfter = 3
	g := resilience.NewGuard[int](cfg)

	fail := func(context.Context) (int, error) { return 0, errTransient }
	pass := func(context.Context) (int, error) { return 1, nil }

	for _, fn := range []func(context.Context) (int, error){fail, fail, pass, fail, fail} {
		_, _ = g.Execute(context.Background(), fn)
	}
	assert.Equal(t, gobreaker.StateClosed, g.CircuitBreakerState())
	assert.Equal(t, uint32(2), g.CircuitBreakerCounts().ConsecutiveFailures)

	_, _ = g.Execute(context.Background(), fail)
	assert.Equal(t, gobreaker.StateOpen, g.CircuitBreakerState())
}

func TestGuard_AttemptTimeout(t *testing.T) {
	cfg := fastConfig("test-timeout", 0)
	cfg.Timeout = 20 * time.Millisecond
	g := resilience.NewGuard[int](cfg)

	_, err := g.Execute(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuard_ContextCancellation(t *testing.T) {
	g := resilience.NewGuard[int](fastConfig("test-cancel", 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Execute(ctx, func(context.Context) (int, error) {
		return 0, errTransient
	})
	assert.Error(t, err)
}

func TestGuard_RecordsToRegistry(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := fastConfig("test-registry", 0)
	cfg.Registry = registry
	g := resilience.NewGuard[int](cfg)

	_, err := g.Execute(context.Background(), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	health := registry.GetHealth("test-registry")
	require.NotNil(t, health)
	assert.NotNil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)

	_, err = g.Execute(context.Background(), func(context.Context) (int, error) { return 0, errTransient })
	require.Error(t, err)

	health = registry.GetHealth("test-registry")
	require.NotNil(t, health.LastFailureAt)
	assert.Equal(t, errTransient.Error(), health.LastError)
}

func TestDefaultGuardConfig(t *testing.T) {
	cfg := resilience.DefaultGuardConfig("conditions")

	assert.Equal(t, "conditions", cfg.Name)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, uint64(2), cfg.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.InitialInterval)
	assert.Equal(t, time.Second, cfg.MaxInterval)
	assert.Equal(t, uint32(5), cfg.TripAfter)
	assert.Equal(t, 30*time.Second, cfg.OpenFor)
}

func TestNewGuard_ZeroConfigUsesDefaults(t *testing.T) {
	g := resilience.NewGuard[int](resilience.GuardConfig{Name: "bare"})

	for i := 0; i < 4; i++ {
		_, _ = g.Execute(context.Background(), func(context.Context) (int, error) {
			return 0, resilience.Permanent(errTransient)
		})
	}
	assert.Equal(t, gobreaker.StateClosed, g.CircuitBreakerState())

	_, _ = g.Execute(context.Background(), func(context.Context) (int, error) {
		return 0, resilience.Permanent(errTransient)
	})
	assert.Equal(t, gobreaker.StateOpen, g.CircuitBreakerState())
}
