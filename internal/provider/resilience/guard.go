// Package resilience guards calls to live condition sources with a circuit
// breaker, per-attempt timeouts and retries.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for guarded operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// GuardConfig holds configuration for a guarded condition source call.
type GuardConfig struct {
	// Name identifies the source in logs and the provider registry.
	Name string

	// Timeout bounds each individual attempt.
	// Default: 2 seconds
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts after the first.
	MaxRetries uint64

	// InitialInterval and MaxInterval bound the retry backoff.
	// Defaults: 50ms and 1 second
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// TripAfter is the number of consecutive failed calls that opens the
	// breaker. Default: 5
	TripAfter uint32

	// OpenFor is how long an open breaker rejects calls before letting a
	// single probe through. Default: 30 seconds
	OpenFor time.Duration

	// OnStateChange is called on every breaker transition. Optional.
	OnStateChange func(name string, from, to gobreaker.State)

	// Registry receives the guard for health reporting. Optional.
	Registry *Registry
}

// DefaultGuardConfig returns the settings used for live condition sources.
func DefaultGuardConfig(name string) GuardConfig {
	return GuardConfig{
		Name:            name,
		Timeout:         2 * time.Second,
		MaxRetries:      2,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		TripAfter:       5,
		OpenFor:         30 * time.Second,
	}
}

// Guard runs provider calls through a circuit breaker with retries.
type Guard[T any] struct {
	name     string
	breaker  *gobreaker.CircuitBreaker[T]
	registry *Registry
	config   GuardConfig
}

// NewGuard creates a new guard and registers it when a registry is configured.
func NewGuard[T any](cfg GuardConfig) *Guard[T] {
	defaults := DefaultGuardConfig(cfg.Name)
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = defaults.InitialInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = defaults.MaxInterval
	}
	if cfg.TripAfter == 0 {
		cfg.TripAfter = defaults.TripAfter
	}
	if cfg.OpenFor == 0 {
		cfg.OpenFor = defaults.OpenFor
	}

	tripAfter := cfg.TripAfter
	g := &Guard[T]{
		name: cfg.Name,
		breaker: gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Timeout:     cfg.OpenFor,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= tripAfter
			},
			OnStateChange: cfg.OnStateChange,
		}),
		registry: cfg.Registry,
		config:   cfg,
	}

	if g.registry != nil {
		g.registry.Register(cfg.Name, g)
	}

	return g
}

// Name returns the provider name.
func (g *Guard[T]) Name() string {
	return g.name
}

// Execute runs fn with a per-attempt timeout, retrying failures with
// exponential backoff. Errors wrapped with Permanent are not retried.
// Returns ErrCircuitOpen without calling fn when the breaker is open.
func (g *Guard[T]) Execute(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.config.InitialInterval
	bo.MaxInterval = g.config.MaxInterval
	bo.MaxElapsedTime = 0 // retries are bounded by WithMaxRetries

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, g.config.MaxRetries), ctx)

	var result T
	operation := func() error {
		v, err := g.breaker.Execute(func() (T, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
			defer cancel()
			return fn(attemptCtx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			return err
		}
		result = v
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		if g.registry != nil {
			g.registry.RecordFailure(g.name, err)
		}
		var zero T
		return zero, err
	}

	if g.registry != nil {
		g.registry.RecordSuccess(g.name)
	}
	return result, nil
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (g *Guard[T]) CircuitBreakerState() gobreaker.State {
	return g.breaker.State()
}

// CircuitBreakerCounts returns the current counts of the circuit breaker.
func (g *Guard[T]) CircuitBreakerCounts() gobreaker.Counts {
	return g.breaker.Counts()
}
