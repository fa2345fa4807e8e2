package planner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/transport"
)

const (
	// maxAlternativesPerLeg caps the other modes offered for a leg.
	maxAlternativesPerLeg = 3

	delayAvoidanceMinutes = 30
	highPriorityDelay     = 45
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

// SuggestAlternatives lists other viable modes for each leg of a route and
// recommends cheaper or, when delayed, faster ones.
func (e *Engine) SuggestAlternatives(ctx context.Context, req AlternativesRequest) (*AlternativesResult, error) {
	const op = "SuggestAlternatives"
	ctx, span := e.tracer.Start(ctx, "planner."+op,
		trace.WithAttributes(attribute.Int("planner.legs", len(req.Legs))))
	defer span.End()

	if len(req.Legs) == 0 {
		return nil, e.fail(span, op, newError(KindEmptyRouteRequest, op, nil, "no legs given"))
	}
	if len(req.Conditions) > 0 && len(req.Conditions) != len(req.Legs) {
		return nil, e.fail(span, op, newError(KindInvalidRequest, op, nil,
			"got %d condition snapshots for %d legs", len(req.Conditions), len(req.Legs)))
	}

	var warnings []Warning
	policy := e.policy(ctx)
	selector := transport.NewSelector(transport.SelectorConfig{
		Policy: &policy,
		Modes:  e.allowedModes(ctx, nil, &warnings),
	})

	withConditions := req.IncludeConditions || len(req.Conditions) > 0
	fetch := withConditions && e.liveConditions(ctx, nil)

	// Collect the current legs and their alternatives, then look up every
	// condition in one fan-out.
	type slot struct {
		leg     int
		alt     int // -1 for the current leg
		request conditions.Request
	}
	alternatives := make([][]transport.LegOption, len(req.Legs))
	var slots []slot

	for i, leg := range req.Legs {
		km := leg.DistanceKm
		if km <= 0 {
			d := e.distances.Distance(leg.Origin, leg.Destination)
			km = d.Km
			for _, name := range d.Unresolved {
				warnings = append(warnings, Warning{
					Kind:    WarningUnknownLocation,
					Subject: name,
					Message: "unknown location, using the default distance",
				})
			}
		}

		for _, opt := range selector.Options(leg.Origin, leg.Destination, km, leg.Date) {
			if opt.Mode == leg.Mode {
				continue
			}
			alternatives[i] = append(alternatives[i], opt)
			if len(alternatives[i]) == maxAlternativesPerLeg {
				break
			}
		}

		if !fetch {
			continue
		}
		if len(req.Conditions) == 0 {
			slots = append(slots, slot{leg: i, alt: -1, request: requestFor(leg)})
		}
		for j, alt := range alternatives[i] {
			slots = append(slots, slot{leg: i, alt: j, request: requestFor(alt)})
		}
	}

	current := make([]conditions.Snapshot, len(req.Legs))
	copy(current, req.Conditions)
	altSnaps := make([][]conditions.Snapshot, len(req.Legs))
	for i := range altSnaps {
		altSnaps[i] = make([]conditions.Snapshot, len(alternatives[i]))
	}

	if len(slots) > 0 {
		reqs := make([]conditions.Request, len(slots))
		for i, s := range slots {
			reqs[i] = s.request
		}
		snaps, fw, err := e.fetchConditions(ctx, reqs)
		if err != nil {
			return nil, e.fail(span, op, err)
		}
		warnings = append(warnings, fw...)

		for i, s := range slots {
			if s.alt < 0 {
				current[s.leg] = snaps[i]
			} else {
				altSnaps[s.leg][s.alt] = snaps[i]
			}
		}
	}

	var legs []LegAlternatives
	for i, leg := range req.Legs {
		if len(alternatives[i]) == 0 {
			continue
		}
		la := LegAlternatives{
			LegNumber: i + 1,
			Current:   conditions.Adjust(leg, current[i]),
		}
		for j, alt := range alternatives[i] {
			la.Alternatives = append(la.Alternatives, conditions.Adjust(alt, altSnaps[i][j]))
		}
		legs = append(legs, la)
	}

	result := &AlternativesResult{
		ID:                 uuid.NewString(),
		ConditionsIncluded: withConditions,
		Legs:               legs,
		Recommendations:    recommend(legs),
		Warnings:           warnings,
	}

	span.SetAttributes(attribute.Int("planner.recommendations", len(result.Recommendations)))
	return result, nil
}

func requestFor(leg transport.LegOption) conditions.Request {
	return conditions.Request{Origin: leg.Origin, Destination: leg.Destination, Mode: leg.Mode}
}

// recommend builds cost and delay recommendations. A route-wide savings
// total leads when any leg can be made cheaper.
func recommend(legs []LegAlternatives) []Recommendation {
	var (
		recs  []Recommendation
		delay []Recommendation
		total float64
	)

	for _, la := range legs {
		cur := la.Current

		cheapest := la.Alternatives[0]
		for _, alt := range la.Alternatives[1:] {
			if alt.AdjustedCost < cheapest.AdjustedCost {
				cheapest = alt
			}
		}
		if savings := transport.Round2(cur.AdjustedCost - cheapest.AdjustedCost); savings > 0 {
			total += savings
			recs = append(recs, Recommendation{
				Type:          RecommendationCostOptimization,
				Leg:           la.LegNumber,
				Suggestion:    fmt.Sprintf("Switch from %s to %s", cur.Mode, cheapest.Mode),
				Savings:       savings,
				TradeOffHours: transport.Round2(cheapest.AdjustedDurationHours - cur.AdjustedDurationHours),
			})
		}

		if cur.DelayMinutes() <= delayAvoidanceMinutes {
			continue
		}
		fastest := la.Alternatives[0]
		for _, alt := range la.Alternatives[1:] {
			if alt.AdjustedDurationHours < fastest.AdjustedDurationHours {
				fastest = alt
			}
		}
		if fastest.AdjustedDurationHours >= cur.AdjustedDurationHours {
			continue
		}
		priority := PriorityMedium
		if cur.DelayMinutes() >= highPriorityDelay {
			priority = PriorityHigh
		}
		delay = append(delay, Recommendation{
			Type: RecommendationDelayAvoidance,
			Leg:  la.LegNumber,
			Suggestion: fmt.Sprintf("Switch from %s to %s to avoid a %d min delay (%s)",
				cur.Mode, fastest.Mode, cur.DelayMinutes(), cur.Condition.Conditions),
			Savings:       transport.Round2(cur.AdjustedCost - fastest.AdjustedCost),
			TradeOffHours: transport.Round2(fastest.AdjustedDurationHours - cur.AdjustedDurationHours),
			Priority:      priority,
		})
	}

	if total > 0 {
		recs = append([]Recommendation{{
			Type:       RecommendationOverallSavings,
			Suggestion: fmt.Sprintf("Total potential savings: $%.2f", total),
			Savings:    transport.Round2(total),
			Priority:   PriorityHigh,
		}}, recs...)
	}

	return append(recs, delay...)
}
