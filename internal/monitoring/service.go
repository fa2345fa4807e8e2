package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/itinerary"
)

// Delay thresholds in minutes.
const (
	mediumDelayMinutes = 15
	highDelayMinutes   = 45

	// AlertThresholdMinutes is the delay above which an alert is raised.
	AlertThresholdMinutes = 30

	minorStatusMinutes = 30
	majorStatusMinutes = 60
)

// ConditionProvider returns the live conditions for a leg.
type ConditionProvider interface {
	GetCondition(ctx context.Context, req conditions.Request) conditions.Snapshot
}

// ServiceConfig holds configuration for the monitoring service.
type ServiceConfig struct {
	Conditions ConditionProvider
	Logger     zerolog.Logger

	// Concurrency bounds parallel condition lookups (default: 3).
	Concurrency int

	// PollInterval is used for NextCheckAt and by Run (default: 5 minutes).
	PollInterval time.Duration

	Clock func() time.Time
}

// Service evaluates timed itineraries against live conditions.
type Service struct {
	conditions   ConditionProvider
	logger       zerolog.Logger
	concurrency  int
	pollInterval time.Duration
	clock        func() time.Time
}

// NewService creates a new monitoring service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Service{
		conditions:   cfg.Conditions,
		logger:       cfg.Logger,
		concurrency:  cfg.Concurrency,
		pollInterval: cfg.PollInterval,
		clock:        cfg.Clock,
	}
}

// PollInterval returns the configured poll interval.
func (s *Service) PollInterval() time.Duration {
	return s.pollInterval
}

// Evaluate fetches fresh conditions for every leg and grades the delays.
func (s *Service) Evaluate(ctx context.Context, w Watch) (*Report, error) {
	if len(w.Legs) == 0 {
		return nil, ErrNoLegs
	}

	snaps := make([]conditions.Snapshot, len(w.Legs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, tl := range w.Legs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snaps[i] = s.conditions.GetCondition(gctx, conditions.Request{
				Origin:      tl.Leg.Origin,
				Destination: tl.Leg.Destination,
				Mode:        tl.Leg.Mode,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.clock()
	report := &Report{
		ItineraryID: w.ID,
		Legs:        make([]LegReport, len(w.Legs)),
		CheckedAt:   now,
		NextCheckAt: now.Add(s.pollInterval),
	}

	for i, tl := range w.Legs {
		snap := snaps[i]
		lr := gradeLeg(i, tl, snap, i < len(w.Legs)-1)
		report.Legs[i] = lr
		report.MaxDelayMinutes = max(report.MaxDelayMinutes, snap.DelayMinutes)

		if snap.Degraded {
			report.DegradedLegs = append(report.DegradedLegs, i)
		}

		if snap.DelayMinutes > AlertThresholdMinutes {
			report.Alerts = append(report.Alerts, Alert{
				ID:           uuid.NewString(),
				ItineraryID:  w.ID,
				LegIndex:     i,
				Origin:       tl.Leg.Origin,
				Destination:  tl.Leg.Destination,
				Mode:         string(tl.Leg.Mode),
				DelayMinutes: snap.DelayMinutes,
				Severity:     lr.Severity,
				Conditions:   snap.Conditions,
				Message: fmt.Sprintf("%s leg %s to %s is delayed by %d minutes (%s)",
					tl.Leg.Mode, tl.Leg.Origin, tl.Leg.Destination, snap.DelayMinutes, snap.Conditions),
				RaisedAt: now,
			})
		}
	}

	report.Status = statusFor(report.MaxDelayMinutes)

	s.logger.Debug().
		Str("itinerary_id", w.ID).
		Str("status", string(report.Status)).
		Int("max_delay_minutes", report.MaxDelayMinutes).
		Int("alerts", len(report.Alerts)).
		Msg("itinerary evaluated")

	return report, nil
}

func gradeLeg(i int, tl itinerary.TimedLeg, snap conditions.Snapshot, hasNext bool) LegReport {
	lr := LegReport{Index: i, Leg: tl, Condition: snap, Severity: SeverityLow}
	delay := snap.DelayMinutes

	switch {
	case delay < mediumDelayMinutes:
		return lr

	case delay < highDelayMinutes:
		shift := delay / 2
		lr.Severity = SeverityMedium
		lr.Recommendations = []Recommendation{
			{
				Action:       ActionEarlierDeparture,
				Message:      fmt.Sprintf("Consider departing %d minutes earlier", shift),
				ShiftMinutes: shift,
			},
			{
				Action:  ActionConsiderAlternatives,
				Message: "Consider alternative transport for this leg",
			},
		}
		lr.SuggestedDeparture = tl.Departure.Add(-time.Duration(shift) * time.Minute)

	default:
		lr.Severity = SeverityHigh
		lr.Recommendations = []Recommendation{
			{
				Action:       ActionEarlierDeparture,
				Message:      fmt.Sprintf("Depart %d minutes earlier to absorb the delay", delay),
				ShiftMinutes: delay,
			},
			{
				Action:  ActionAlternativeRouting,
				Message: "Switch to an alternative route or mode",
			},
		}
		if hasNext {
			lr.Recommendations = append(lr.Recommendations, Recommendation{
				Action:  ActionCheckConnections,
				Message: "Check that the next connection can still be made",
			})
		}
		lr.SuggestedDeparture = tl.Departure.Add(-time.Duration(delay) * time.Minute)
	}

	return lr
}

func statusFor(maxDelay int) Status {
	switch {
	case maxDelay > majorStatusMinutes:
		return StatusMajorDelays
	case maxDelay > minorStatusMinutes:
		return StatusMinorDelays
	default:
		return StatusOnSchedule
	}
}

// WatchSource lists the itineraries to check on each poll.
type WatchSource interface {
	Active() []Watch
}

// ReportHandler receives each report produced by Run.
type ReportHandler func(ctx context.Context, r *Report)

// Run evaluates every active watch once per poll interval until ctx is
// cancelled. A pass in flight when ctx is cancelled finishes its current
// itinerary evaluations before Run returns; their reports are discarded.
func (s *Service) Run(ctx context.Context, watches WatchSource, handle ReportHandler) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("poll_interval", s.pollInterval).
		Msg("monitoring loop started")

	for {
		s.sweep(ctx, watches.Active(), handle)

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("monitoring loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) sweep(ctx context.Context, watches []Watch, handle ReportHandler) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, w := range watches {
		g.Go(func() error {
			report, err := s.Evaluate(gctx, w)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Warn().Err(err).Str("itinerary_id", w.ID).Msg("itinerary evaluation failed")
				}
				return nil
			}
			if gctx.Err() == nil && handle != nil {
				handle(gctx, report)
			}
			return nil
		})
	}

	_ = g.Wait()
}
