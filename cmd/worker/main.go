// Package main provides the entrypoint for the Itinera monitoring worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/itinera/itinera/internal/app"
	"github.com/itinera/itinera/internal/config"
	"github.com/itinera/itinera/internal/monitoring"
	"github.com/itinera/itinera/internal/telemetry"
	"github.com/itinera/itinera/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "itinera-worker"

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := app.NewLogger(cfg, serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Dur("poll_interval", cfg.MonitorPollInterval).
		Msg("starting Itinera worker")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("worker stopped with error")
	}
	log.Info().Msg("worker stopped")
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, cfg.Telemetry(serviceName, Version))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	deps, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	monitor := monitoring.NewService(monitoring.ServiceConfig{
		Conditions:   deps.Conditions,
		Logger:       log,
		Concurrency:  cfg.MonitorConcurrency,
		PollInterval: cfg.MonitorPollInterval,
	})

	jobCfg := worker.MonitorJobConfig{
		Monitor:   monitor,
		Publisher: monitoring.LogPublisher{Logger: log},
		Gate:      deps.Flags,
	}

	var client *pubsub.Client
	if cfg.PubSubProjectID != "" {
		client, err = pubsub.NewClient(ctx, cfg.PubSubProjectID)
		if err != nil {
			return fmt.Errorf("create pubsub client: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub client")
			}
		}()

		if cfg.PubSubAlertTopic != "" {
			alerts := worker.NewAlertPublisher(client, cfg.PubSubAlertTopic, log)
			defer alerts.Stop()
			jobCfg.Publisher = alerts
			log.Info().Str("topic", cfg.PubSubAlertTopic).Msg("publishing alerts to pubsub")
		}
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set, no itineraries will be received")
	}

	job := worker.NewMonitorJob(jobCfg, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      healthMux(job),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return job.Run(gctx)
	})
	if client != nil {
		handler := worker.NewPubSubHandler(worker.PubSubConfig{
			Client:           client,
			SubscriptionName: cfg.PubSubSubscription,
			Dispatcher:       worker.NewDispatcher(job, log),
			Logger:           log,
		})
		g.Go(func() error {
			return handler.Start(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down worker")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// healthMux serves the liveness probe with the job's counters.
func healthMux(job *worker.MonitorJob) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "healthy",
			"version": Version,
			"monitor": job.MetricsSnapshot(),
		})
	})
	return mux
}
