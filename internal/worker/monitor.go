package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/itinera/itinera/internal/monitoring"
)

// AlertGate reports whether alert publishing is switched off.
type AlertGate interface {
	MonitoringAlertsDisabled(ctx context.Context) bool
}

// MonitorJob sweeps the watch list on every poll and publishes alerts.
type MonitorJob struct {
	monitor   *monitoring.Service
	watches   *monitoring.Watchlist
	publisher monitoring.Publisher
	gate      AlertGate
	timeout   time.Duration
	logger    zerolog.Logger

	metrics *MonitorMetrics
}

// MonitorMetrics tracks monitor job statistics.
type MonitorMetrics struct {
	mu sync.RWMutex

	Reports          int64
	AlertsPublished  int64
	AlertsSuppressed int64
	PublishFailures  int64
	DegradedLegs     int64

	LastReportAt time.Time
}

// NewMonitorJob creates a monitor job.
func NewMonitorJob(cfg MonitorJobConfig, logger zerolog.Logger) *MonitorJob {
	watches := cfg.Watches
	if watches == nil {
		watches = monitoring.NewWatchlist()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = monitoring.LogPublisher{Logger: logger}
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	return &MonitorJob{
		monitor:   cfg.Monitor,
		watches:   watches,
		publisher: publisher,
		gate:      cfg.Gate,
		timeout:   timeout,
		logger:    logger,
		metrics:   &MonitorMetrics{},
	}
}

// Watches returns the list the job sweeps.
func (j *MonitorJob) Watches() *monitoring.Watchlist {
	return j.watches
}

// Run polls until ctx is cancelled. A cancelled context is a clean stop.
func (j *MonitorJob) Run(ctx context.Context) error {
	err := j.monitor.Run(ctx, j.watches, j.HandleReport)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleReport publishes the report's alerts unless alerts are muted.
func (j *MonitorJob) HandleReport(ctx context.Context, r *monitoring.Report) {
	logger := j.logger.With().
		Str("itinerary_id", r.ItineraryID).
		Str("status", string(r.Status)).
		Int("max_delay_minutes", r.MaxDelayMinutes).
		Logger()

	var published, suppressed, failed int
	muted := len(r.Alerts) > 0 && j.gate != nil && j.gate.MonitoringAlertsDisabled(ctx)

	for _, alert := range r.Alerts {
		if muted {
			suppressed++
			continue
		}
		if err := j.publish(ctx, alert); err != nil {
			failed++
			logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert")
			continue
		}
		published++
	}

	if len(r.DegradedLegs) > 0 {
		logger.Warn().Ints("degraded_legs", r.DegradedLegs).Msg("conditions unavailable for some legs")
	}
	logger.Debug().
		Int("alerts", len(r.Alerts)).
		Int("published", published).
		Int("suppressed", suppressed).
		Msg("itinerary checked")

	j.updateMetrics(r, published, suppressed, failed)
}

func (j *MonitorJob) publish(ctx context.Context, alert monitoring.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	return j.publisher.Publish(ctx, alert)
}

func (j *MonitorJob) updateMetrics(r *monitoring.Report, published, suppressed, failed int) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.Reports++
	j.metrics.AlertsPublished += int64(published)
	j.metrics.AlertsSuppressed += int64(suppressed)
	j.metrics.PublishFailures += int64(failed)
	j.metrics.DegradedLegs += int64(len(r.DegradedLegs))
	j.metrics.LastReportAt = r.CheckedAt
}

// GetMetrics returns a copy of the current metrics.
func (j *MonitorJob) GetMetrics() MonitorMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return MonitorMetrics{
		Reports:          j.metrics.Reports,
		AlertsPublished:  j.metrics.AlertsPublished,
		AlertsSuppressed: j.metrics.AlertsSuppressed,
		PublishFailures:  j.metrics.PublishFailures,
		DegradedLegs:     j.metrics.DegradedLegs,
		LastReportAt:     j.metrics.LastReportAt,
	}
}

// MetricsSnapshot returns the current metrics as a map for status output.
func (j *MonitorJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"watched_itineraries": j.watches.Len(),
		"reports":             m.Reports,
		"alerts_published":    m.AlertsPublished,
		"alerts_suppressed":   m.AlertsSuppressed,
		"publish_failures":    m.PublishFailures,
		"degraded_legs":       m.DegradedLegs,
		"last_report_at":      m.LastReportAt,
	}
}
