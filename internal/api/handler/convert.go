package handler

import (
	"fmt"
	"time"

	"github.com/itinera/itinera/internal/api/models"
	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/itinerary"
	"github.com/itinera/itinera/internal/monitoring"
	"github.com/itinera/itinera/internal/planner"
	"github.com/itinera/itinera/internal/transport"
)

func toLeg(l transport.LegOption) models.Leg {
	return models.Leg{
		Origin:            l.Origin,
		Destination:       l.Destination,
		Mode:              string(l.Mode),
		DistanceKm:        l.DistanceKm,
		Cost:              l.Cost,
		DurationHours:     l.DurationHours,
		CarbonKg:          l.CarbonKg,
		Date:              l.Date,
		CostFormatted:     models.FormatCost(l.Cost),
		DurationFormatted: models.FormatHours(l.DurationHours),
		CarbonFormatted:   models.FormatCarbon(l.CarbonKg),
	}
}

func toLegs(ls []transport.LegOption) []models.Leg {
	out := make([]models.Leg, len(ls))
	for i, l := range ls {
		out[i] = toLeg(l)
	}
	return out
}

// fromLegInput rebuilds a leg. A leg with a distance but no duration is
// re-evaluated from the catalog.
func fromLegInput(in models.LegInput) (transport.LegOption, error) {
	mode, err := transport.ParseMode(in.Mode)
	if err != nil {
		return transport.LegOption{}, err
	}
	if in.DurationHours == 0 && in.DistanceKm > 0 {
		return transport.EvaluateMode(mode, in.Origin, in.Destination, in.DistanceKm, in.Date)
	}
	return transport.LegOption{
		Origin:        in.Origin,
		Destination:   in.Destination,
		Mode:          mode,
		DistanceKm:    in.DistanceKm,
		Cost:          in.Cost,
		DurationHours: in.DurationHours,
		CarbonKg:      in.CarbonKg,
		Date:          in.Date,
	}, nil
}

func fromLegInputs(ins []models.LegInput) ([]transport.LegOption, error) {
	out := make([]transport.LegOption, len(ins))
	for i, in := range ins {
		leg, err := fromLegInput(in)
		if err != nil {
			return nil, fmt.Errorf("legs[%d]: %w", i, err)
		}
		out[i] = leg
	}
	return out, nil
}

func fromTimedLegInputs(ins []models.TimedLegInput) ([]itinerary.TimedLeg, error) {
	out := make([]itinerary.TimedLeg, len(ins))
	for i, in := range ins {
		mode, err := transport.ParseMode(in.Mode)
		if err != nil {
			return nil, fmt.Errorf("legs[%d]: %w", i, err)
		}
		out[i] = itinerary.TimedLeg{
			Leg:       transport.LegOption{Origin: in.Origin, Destination: in.Destination, Mode: mode},
			Departure: in.Departure,
			Arrival:   in.Arrival,
		}
		if i > 0 {
			out[i-1].LayoverHours = in.Departure.Sub(out[i-1].Arrival).Hours()
		}
	}
	return out, nil
}

func toRankedRoutes(routes []itinerary.Ranked[planner.RoutePlan]) []models.RankedRoute {
	out := make([]models.RankedRoute, len(routes))
	for i, rr := range routes {
		p := rr.Item
		out[i] = models.RankedRoute{
			Rank:               rr.Rank,
			ID:                 p.ID,
			Stops:              p.Stops,
			Legs:               toLegs(p.Legs),
			TotalCost:          p.TotalCost,
			TotalDurationHours: p.TotalDuration,
			TotalCarbonKg:      p.TotalCarbonKg,
			EfficiencyScore:    p.EfficiencyScore,
			Polyline:           p.Polyline,
			CostFormatted:      models.FormatCost(p.TotalCost),
			DurationFormatted:  models.FormatHours(p.TotalDuration),
			CarbonFormatted:    models.FormatCarbon(p.TotalCarbonKg),
		}
	}
	return out
}

func toMixOptions(opts []itinerary.Ranked[planner.MixOption]) []models.MixOption {
	out := make([]models.MixOption, len(opts))
	for i, ro := range opts {
		a := ro.Item.Adjusted
		out[i] = models.MixOption{
			Rank:                  ro.Rank,
			Label:                 ro.Item.Label,
			Segments:              toLegs(ro.Item.Segments),
			Cost:                  a.Cost,
			DurationHours:         a.DurationHours,
			CarbonKg:              a.CarbonKg,
			AdjustedCost:          a.AdjustedCost,
			AdjustedDurationHours: a.AdjustedDurationHours,
			AdjustedCarbonKg:      a.AdjustedCarbonKg,
			DelayMinutes:          a.DelayMinutes(),
			Conditions:            a.Condition.Conditions,
			Impact:                a.Impact(),
			CostFormatted:         models.FormatCost(a.AdjustedCost),
			DurationFormatted:     models.FormatHours(a.AdjustedDurationHours),
			CarbonFormatted:       models.FormatCarbon(a.AdjustedCarbonKg),
		}
	}
	return out
}

func toSchedule(res *planner.ScheduleResult) models.ScheduleResponse {
	legs := make([]models.TimedLeg, len(res.Legs))
	for i, tl := range res.Legs {
		legs[i] = models.TimedLeg{
			Leg:          toLeg(tl.Leg),
			Departure:    tl.Departure,
			Arrival:      tl.Arrival,
			LayoverHours: tl.LayoverHours,
			Overnight:    tl.Overnight,
		}
	}
	return models.ScheduleResponse{
		ID:                res.ID,
		Legs:              legs,
		TotalTravelHours:  res.TotalTravelHours,
		TotalLayoverHours: res.TotalLayoverHours,
		TotalTripHours:    res.TotalTripHours,
		ElapsedHours:      res.ElapsedHours,
		FirstDeparture:    res.FirstDeparture,
		LastArrival:       res.LastArrival,
		OvernightStops:    res.OvernightStops,
	}
}

func toMonitor(r *monitoring.Report) models.MonitorResponse {
	legs := make([]models.LegStatus, len(r.Legs))
	for i, lr := range r.Legs {
		ls := models.LegStatus{
			Leg:             lr.Index + 1,
			Origin:          lr.Leg.Leg.Origin,
			Destination:     lr.Leg.Leg.Destination,
			Mode:            string(lr.Leg.Leg.Mode),
			Departure:       lr.Leg.Departure,
			Condition:       lr.Condition,
			Severity:        string(lr.Severity),
			Recommendations: lr.Recommendations,
		}
		if !lr.SuggestedDeparture.IsZero() {
			dep := lr.SuggestedDeparture
			ls.SuggestedDeparture = &dep
		}
		legs[i] = ls
	}

	alerts := r.Alerts
	if alerts == nil {
		alerts = []monitoring.Alert{}
	}
	return models.MonitorResponse{
		ItineraryID:     r.ItineraryID,
		Status:          string(r.Status),
		MaxDelayMinutes: r.MaxDelayMinutes,
		Legs:            legs,
		Alerts:          alerts,
		CheckedAt:       r.CheckedAt,
		NextCheckAt:     r.NextCheckAt,
		DegradedLegs:    r.DegradedLegs,
	}
}

func toAdjusted(a conditions.AdjustedLeg) models.AdjustedLeg {
	return models.AdjustedLeg{
		Leg:                   toLeg(a.LegOption),
		AdjustedCost:          a.AdjustedCost,
		AdjustedDurationHours: a.AdjustedDurationHours,
		AdjustedCarbonKg:      a.AdjustedCarbonKg,
		DelayMinutes:          a.DelayMinutes(),
		Impact:                a.Impact(),
	}
}

func toAlternatives(res *planner.AlternativesResult) models.AlternativesResponse {
	legs := make([]models.LegAlternatives, len(res.Legs))
	for i, la := range res.Legs {
		alts := make([]models.AdjustedLeg, len(la.Alternatives))
		for j, a := range la.Alternatives {
			alts[j] = toAdjusted(a)
		}
		legs[i] = models.LegAlternatives{
			LegNumber:    la.LegNumber,
			Current:      toAdjusted(la.Current),
			Alternatives: alts,
		}
	}

	recs := make([]models.Recommendation, len(res.Recommendations))
	for i, rec := range res.Recommendations {
		recs[i] = models.Recommendation{
			Type:          string(rec.Type),
			Leg:           rec.Leg,
			Suggestion:    rec.Suggestion,
			Savings:       rec.Savings,
			TradeOffHours: rec.TradeOffHours,
			Priority:      rec.Priority,
		}
	}

	return models.AlternativesResponse{
		ID:                 res.ID,
		ConditionsIncluded: res.ConditionsIncluded,
		Legs:               legs,
		Recommendations:    recs,
		Warnings:           warnings(res.Warnings),
	}
}

func pollInterval(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
