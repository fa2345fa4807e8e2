// Package app assembles the dependencies shared by the api and worker
// binaries from the loaded configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/config"
	"github.com/itinera/itinera/internal/database"
	"github.com/itinera/itinera/internal/featureflags"
	"github.com/itinera/itinera/internal/geo"
	"github.com/itinera/itinera/internal/provider/resilience"
)

// NewLogger returns the process logger. Development runs get console output.
func NewLogger(cfg config.Config, service, version string) zerolog.Logger {
	var log zerolog.Logger
	if cfg.IsProduction() {
		log = zerolog.New(os.Stdout)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return log.With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// Deps holds the shared services. Close releases their connections.
type Deps struct {
	Distances  *geo.Calculator
	Registry   *resilience.Registry
	Conditions *conditions.Service
	Flags      *featureflags.Service

	// Checks probe the external stores in use, keyed by name.
	Checks map[string]func(ctx context.Context) error

	closers []func()
}

// Build connects the configured stores and creates the shared services.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Deps, error) {
	d := &Deps{
		Registry: resilience.NewRegistry(),
		Checks:   make(map[string]func(ctx context.Context) error),
	}

	distances, err := newDistances(cfg, log)
	if err != nil {
		return nil, err
	}
	d.Distances = distances

	store, err := d.conditionStore(ctx, cfg, log)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Conditions = conditions.NewService(conditions.ServiceConfig{
		Source:   conditions.NewSimulator(conditions.SimulatorConfig{Distances: distances}),
		Store:    store,
		Logger:   log,
		CacheTTL: cfg.ConditionCacheTTL,
		Registry: d.Registry,
	})

	repo, err := d.flagRepository(ctx, cfg, log)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Flags = featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     log,
		CacheTTL:   cfg.FlagsCacheTTL,
	})

	return d, nil
}

// Close releases connections in reverse order of creation.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

func newDistances(cfg config.Config, log zerolog.Logger) (*geo.Calculator, error) {
	calcCfg := geo.CalculatorConfig{Logger: log}
	if cfg.GazetteerPath != "" {
		g, err := geo.LoadGazetteer(cfg.GazetteerPath)
		if err != nil {
			return nil, fmt.Errorf("load gazetteer: %w", err)
		}
		calcCfg.Lookup = g
		log.Info().Str("path", cfg.GazetteerPath).Int("locations", g.Len()).Msg("gazetteer loaded")
	}
	return geo.NewCalculator(calcCfg), nil
}

func (d *Deps) conditionStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (conditions.Store, error) {
	if cfg.ConditionStore != config.StoreRedis {
		return conditions.NewMemoryStore(nil), nil
	}

	client, err := conditions.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, func() { _ = client.Close() })
	d.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

	log.Info().Str("addr", cfg.RedisAddr).Msg("condition cache using redis")
	return conditions.NewRedisStore(conditions.RedisStoreConfig{Client: client}), nil
}

func (d *Deps) flagRepository(ctx context.Context, cfg config.Config, log zerolog.Logger) (featureflags.Repository, error) {
	if !cfg.DBEnabled {
		return featureflags.NewInMemoryRepository(), nil
	}

	dbCfg := cfg.Database()
	pool, err := database.Connect(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	d.closers = append(d.closers, pool.Close)
	d.Checks["postgres"] = pool.Ping

	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("database", dbCfg.Database).
		Msg("database connected")
	return featureflags.NewPostgresRepository(pool), nil
}
