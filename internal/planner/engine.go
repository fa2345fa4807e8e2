package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	polyline "github.com/twpayne/go-polyline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/geo"
	"github.com/itinera/itinera/internal/itinerary"
	"github.com/itinera/itinera/internal/monitoring"
	"github.com/itinera/itinera/internal/transport"
)

const instrumentationName = "github.com/itinera/itinera/internal/planner"

// Distances measures and locates named places.
type Distances interface {
	Distance(origin, destination string) geo.Distance
	Locate(name string) (geo.Location, bool)
}

// Flags supplies runtime overrides. *featureflags.Service implements it.
type Flags interface {
	DisabledModes(ctx context.Context) []transport.Mode
	LiveConditionsDisabled(ctx context.Context) bool
	Policy(ctx context.Context) transport.Policy
}

// Config holds configuration for the planning engine.
type Config struct {
	// Distances defaults to a geo.Calculator over the built-in gazetteer.
	Distances Distances

	// Conditions defaults to a conditions.Service backed by the simulator.
	Conditions monitoring.ConditionProvider

	// Monitor defaults to a monitoring.Service over Conditions.
	Monitor *monitoring.Service

	// Flags is optional; without it the stock policy and every mode apply.
	Flags Flags

	Schedule itinerary.ScheduleConfig
	Logger   zerolog.Logger

	// SearchConcurrency bounds leg evaluation during searches.
	SearchConcurrency int
}

// Engine serves the planning operations.
type Engine struct {
	distances         Distances
	conditions        monitoring.ConditionProvider
	monitor           *monitoring.Service
	flags             Flags
	scheduler         *itinerary.Scheduler
	logger            zerolog.Logger
	tracer            trace.Tracer
	searchConcurrency int
}

// NewEngine creates a new planning engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Distances == nil {
		cfg.Distances = geo.NewCalculator(geo.CalculatorConfig{Logger: cfg.Logger})
	}
	if cfg.Conditions == nil {
		cfg.Conditions = conditions.NewService(conditions.ServiceConfig{
			Source: conditions.NewSimulator(conditions.SimulatorConfig{Distances: cfg.Distances}),
			Logger: cfg.Logger,
		})
	}
	if cfg.Monitor == nil {
		cfg.Monitor = monitoring.NewService(monitoring.ServiceConfig{
			Conditions: cfg.Conditions,
			Logger:     cfg.Logger,
		})
	}
	cfg.Schedule.Logger = cfg.Logger

	scheduler, err := itinerary.NewScheduler(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &Engine{
		distances:         cfg.Distances,
		conditions:        cfg.Conditions,
		monitor:           cfg.Monitor,
		flags:             cfg.Flags,
		scheduler:         scheduler,
		logger:            cfg.Logger,
		tracer:            otel.Tracer(instrumentationName),
		searchConcurrency: cfg.SearchConcurrency,
	}, nil
}

// OptimizeMultiCity finds the best orderings of a multi-city trip.
func (e *Engine) OptimizeMultiCity(ctx context.Context, req MultiCityRequest) (*MultiCityResult, error) {
	const op = "OptimizeMultiCity"
	ctx, span := e.tracer.Start(ctx, "planner."+op,
		trace.WithAttributes(attribute.Int("planner.cities", len(req.Cities))))
	defer span.End()

	var warnings []Warning
	obj := e.objective(req.Objective, &warnings)
	policy := e.policy(ctx)
	selector := e.selector(ctx, req.Modes, policy, &warnings)

	searcher := itinerary.NewSearcher(itinerary.SearcherConfig{
		Distances:   e.distances,
		Selector:    selector,
		Logger:      e.logger,
		Concurrency: e.searchConcurrency,
	})

	res, err := searcher.Search(ctx, itinerary.SearchRequest{
		Start:     req.Start,
		End:       req.End,
		Cities:    req.Cities,
		Objective: obj,
		Date:      req.Date,
	})
	if err != nil {
		return nil, e.fail(span, op, err)
	}
	span.SetAttributes(
		attribute.String("itinerary.search.regime", string(res.Regime)),
		attribute.Int("itinerary.search.candidates", len(res.Candidates)),
	)

	warnings = append(warnings, searchWarnings(res)...)

	limit := req.Limit
	if limit <= 0 {
		limit = itinerary.DefaultRankLimit
	}
	ranked := itinerary.RankRoutes(res.Candidates,
		func(c itinerary.Candidate) itinerary.Metrics { return c.Metrics }, obj, policy, limit)

	routes := make([]itinerary.Ranked[RoutePlan], len(ranked))
	for i, r := range ranked {
		route := res.Route(r.Item)
		routes[i] = itinerary.Ranked[RoutePlan]{
			Rank: r.Rank,
			Item: RoutePlan{Route: route, Polyline: e.encodeStops(route.Stops)},
		}
	}

	e.logger.Info().
		Str("objective", string(obj)).
		Str("regime", string(res.Regime)).
		Int("cities", len(req.Cities)).
		Int("candidates", len(res.Candidates)).
		Int("warnings", len(warnings)).
		Msg("multi-city route optimized")

	return &MultiCityResult{
		ID:                  uuid.NewString(),
		Objective:           obj,
		Regime:              res.Regime,
		TotalCities:         len(req.Cities),
		CandidatesEvaluated: len(res.Candidates),
		Routes:              routes,
		Warnings:            warnings,
	}, nil
}

// GetCondition returns the live conditions for one leg.
func (e *Engine) GetCondition(ctx context.Context, origin, destination, mode string) (conditions.Snapshot, error) {
	const op = "GetCondition"
	ctx, span := e.tracer.Start(ctx, "planner."+op)
	defer span.End()

	if strings.TrimSpace(origin) == "" || strings.TrimSpace(destination) == "" {
		return conditions.Snapshot{}, e.fail(span, op,
			newError(KindInvalidRequest, op, nil, "origin and destination are required"))
	}
	m, err := transport.ParseMode(mode)
	if err != nil {
		return conditions.Snapshot{}, e.fail(span, op, newError(KindInvalidRequest, op, err, "unknown mode"))
	}

	return e.conditions.GetCondition(ctx, conditions.Request{Origin: origin, Destination: destination, Mode: m}), nil
}

// ScheduleItinerary places legs on the calendar.
func (e *Engine) ScheduleItinerary(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error) {
	const op = "ScheduleItinerary"
	_, span := e.tracer.Start(ctx, "planner."+op,
		trace.WithAttributes(attribute.Int("planner.legs", len(req.Legs))))
	defer span.End()

	sched, err := e.scheduler.Schedule(itinerary.ScheduleRequest{Legs: req.Legs, StartAt: req.StartAt})
	if err != nil {
		return nil, e.fail(span, op, err)
	}

	return &ScheduleResult{ID: uuid.NewString(), Schedule: sched}, nil
}

// MonitorItinerary evaluates a timed itinerary once against fresh
// conditions.
func (e *Engine) MonitorItinerary(ctx context.Context, req MonitorRequest) (*monitoring.Report, error) {
	const op = "MonitorItinerary"
	ctx, span := e.tracer.Start(ctx, "planner."+op,
		trace.WithAttributes(attribute.Int("planner.legs", len(req.Legs))))
	defer span.End()

	id := req.ItineraryID
	if id == "" {
		id = uuid.NewString()
	}

	report, err := e.monitor.Evaluate(ctx, monitoring.Watch{ID: id, Legs: req.Legs})
	if err != nil {
		return nil, e.fail(span, op, err)
	}
	if req.PollInterval > 0 {
		report.NextCheckAt = report.CheckedAt.Add(req.PollInterval)
	}

	span.SetAttributes(
		attribute.String("monitoring.status", string(report.Status)),
		attribute.Int("monitoring.alerts", len(report.Alerts)),
	)
	return report, nil
}

// fail converts err into an *Error and records it on the span.
func (e *Engine) fail(span trace.Span, op string, err error) error {
	var perr *Error
	if !errors.As(err, &perr) {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			perr = newError(KindCanceled, op, err, "request canceled")
		case errors.Is(err, itinerary.ErrEmptyRouteRequest):
			perr = newError(KindEmptyRouteRequest, op, err, "no cities to visit")
		case errors.Is(err, itinerary.ErrNoLegs), errors.Is(err, monitoring.ErrNoLegs):
			perr = newError(KindEmptyRouteRequest, op, err, "no legs given")
		default:
			perr = newError(KindInvalidRequest, op, err, "invalid request")
		}
	}

	span.RecordError(perr)
	span.SetStatus(codes.Error, string(perr.Kind))
	if perr.Kind != KindCanceled {
		e.logger.Debug().Err(perr).Str("kind", string(perr.Kind)).Msg("planner request rejected")
	}
	return perr
}

func (e *Engine) objective(name string, warnings *[]Warning) transport.Objective {
	obj, err := transport.ParseObjective(name)
	if err != nil {
		*warnings = append(*warnings, Warning{
			Kind:    WarningInvalidObjective,
			Subject: name,
			Message: "unknown objective, using balanced",
		})
	}
	return obj
}

func (e *Engine) policy(ctx context.Context) transport.Policy {
	if e.flags == nil {
		return transport.DefaultPolicy()
	}
	return e.flags.Policy(ctx)
}

func (e *Engine) liveConditions(ctx context.Context, requested *bool) bool {
	if e.flags != nil && e.flags.LiveConditionsDisabled(ctx) {
		return false
	}
	return requested == nil || *requested
}

// allowedModes resolves requested mode names against the catalog and the
// disabled_modes flag. When nothing is left, flights are used.
func (e *Engine) allowedModes(ctx context.Context, names []string, warnings *[]Warning) []transport.Mode {
	requested := transport.Modes()
	if len(names) > 0 {
		requested = requested[:0]
		for _, name := range names {
			m, err := transport.ParseMode(name)
			if err != nil {
				*warnings = append(*warnings, Warning{
					Kind:    WarningInvalidMode,
					Subject: name,
					Message: "unknown transport mode ignored",
				})
				continue
			}
			requested = append(requested, m)
		}
	}

	disabled := make(map[transport.Mode]bool)
	if e.flags != nil {
		for _, m := range e.flags.DisabledModes(ctx) {
			disabled[m] = true
		}
	}

	modes := make([]transport.Mode, 0, len(requested))
	for _, m := range requested {
		if !disabled[m] {
			modes = append(modes, m)
		}
	}

	if len(modes) == 0 {
		*warnings = append(*warnings, Warning{
			Kind:    WarningNoViableMode,
			Message: "no requested mode is available, using flight",
		})
		modes = []transport.Mode{transport.ModeFlight}
	}
	return modes
}

func (e *Engine) selector(ctx context.Context, names []string, policy transport.Policy, warnings *[]Warning) *transport.Selector {
	return transport.NewSelector(transport.SelectorConfig{
		Policy: &policy,
		Modes:  e.allowedModes(ctx, names, warnings),
	})
}

func searchWarnings(res *itinerary.SearchResult) []Warning {
	var warnings []Warning
	for _, name := range res.Unresolved {
		warnings = append(warnings, Warning{
			Kind:    WarningUnknownLocation,
			Subject: name,
			Message: fmt.Sprintf("unknown location, assuming %.0f km legs", geo.DefaultFallbackKm),
		})
	}
	for _, leg := range res.FallbackLegs {
		warnings = append(warnings, Warning{
			Kind:    WarningNoViableMode,
			Subject: leg.Origin + " -> " + leg.Destination,
			Message: "no mode is viable for this leg, using flight",
		})
	}
	return warnings
}

// encodeStops returns the Google encoded polyline of the stops, or "" when
// any stop cannot be located.
func (e *Engine) encodeStops(stops []string) string {
	coords := make([][]float64, 0, len(stops))
	for _, name := range stops {
		loc, ok := e.distances.Locate(name)
		if !ok {
			return ""
		}
		coords = append(coords, []float64{loc.Lat, loc.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}
