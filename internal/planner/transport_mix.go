package planner

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/itinerary"
	"github.com/itinera/itinera/internal/transport"
)

const (
	// multiModalMinKm is the distance above which flight+bus is offered.
	multiModalMinKm = 1000

	// multiModalFlightShare is the portion of the distance flown.
	multiModalFlightShare = 0.8
)

// OptimizeTransportMix ranks the ways of travelling from origin to
// destination, including a flight+bus combination for long journeys.
func (e *Engine) OptimizeTransportMix(ctx context.Context, req TransportMixRequest) (*TransportMixResult, error) {
	const op = "OptimizeTransportMix"
	ctx, span := e.tracer.Start(ctx, "planner."+op)
	defer span.End()

	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return nil, e.fail(span, op, newError(KindInvalidRequest, op, nil, "origin and destination are required"))
	}

	var warnings []Warning
	obj := e.objective(req.Objective, &warnings)
	policy := e.policy(ctx)
	modes := e.allowedModes(ctx, nil, &warnings)

	dist := e.distances.Distance(req.Origin, req.Destination)
	for _, name := range dist.Unresolved {
		warnings = append(warnings, Warning{
			Kind:    WarningUnknownLocation,
			Subject: name,
			Message: "unknown location, using the default distance",
		})
	}
	if dist.Km == 0 {
		return nil, e.fail(span, op, newError(KindInvalidRequest, op, nil,
			"origin and destination are the same place"))
	}

	selector := transport.NewSelector(transport.SelectorConfig{Policy: &policy, Modes: modes})
	legs := selector.Options(req.Origin, req.Destination, dist.Km, req.Date)
	if len(legs) == 0 {
		warnings = append(warnings, Warning{
			Kind:    WarningNoViableMode,
			Subject: req.Origin + " -> " + req.Destination,
			Message: "no mode is viable for this journey, using flight",
		})
		legs = []transport.LegOption{selector.Select(req.Origin, req.Destination, dist.Km, obj, req.Date).Leg}
	}

	live := e.liveConditions(ctx, req.IncludeConditions)
	snaps := make([]conditions.Snapshot, len(legs))
	if live {
		reqs := make([]conditions.Request, len(legs))
		for i, leg := range legs {
			reqs[i] = conditions.Request{Origin: leg.Origin, Destination: leg.Destination, Mode: leg.Mode}
		}
		fetched, fw, err := e.fetchConditions(ctx, reqs)
		if err != nil {
			return nil, e.fail(span, op, err)
		}
		snaps = fetched
		warnings = append(warnings, fw...)
	}

	options := make([]MixOption, 0, len(legs)+1)
	for i, leg := range legs {
		options = append(options, MixOption{
			Label:    string(leg.Mode),
			Segments: []transport.LegOption{leg},
			Adjusted: conditions.Adjust(leg, snaps[i]),
		})
	}

	if dist.Km > multiModalMinKm && slices.Contains(modes, transport.ModeFlight) && slices.Contains(modes, transport.ModeBus) {
		options = append(options, multiModal(req.Origin, req.Destination, dist.Km, req.Date))
	}

	result := &TransportMixResult{
		ID:                 uuid.NewString(),
		Origin:             req.Origin,
		Destination:        req.Destination,
		DistanceKm:         transport.Round2(dist.Km),
		Objective:          obj,
		ConditionsIncluded: live,
		Options:            itinerary.RankOptions(options, MixOption.Metrics, obj, policy, req.Limit),
		Warnings:           warnings,
	}
	if live {
		summary := conditions.Summarize(snaps)
		result.Summary = &summary
	}

	span.SetAttributes(
		attribute.Int("planner.options", len(options)),
		attribute.Bool("planner.conditions", live),
	)

	return result, nil
}

// multiModal flies most of the distance and covers the rest by bus. Both
// setup overheads apply. Conditions are not applied to the combination.
func multiModal(origin, destination string, km float64, date string) MixOption {
	flight := transport.Evaluate(transport.MustLookup(transport.ModeFlight), origin, destination, km*multiModalFlightShare, date)
	bus := transport.Evaluate(transport.MustLookup(transport.ModeBus), origin, destination, km*(1-multiModalFlightShare), date)

	combined := transport.LegOption{
		Origin:        origin,
		Destination:   destination,
		DistanceKm:    transport.Round2(km),
		Cost:          transport.Round2(flight.Cost + bus.Cost),
		DurationHours: transport.Round2(flight.DurationHours + bus.DurationHours),
		CarbonKg:      transport.Round2(flight.CarbonKg + bus.CarbonKg),
		Date:          date,
	}

	return MixOption{
		Label:    MultiModalLabel,
		Segments: []transport.LegOption{flight, bus},
		Adjusted: conditions.Adjust(combined, conditions.Snapshot{}),
	}
}
