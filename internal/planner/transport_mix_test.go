package planner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/planner"
	"github.com/itinera/itinera/internal/transport"
)

func labels(res *planner.TransportMixResult) []string {
	out := make([]string, len(res.Options))
	for i, o := range res.Options {
		out[i] = o.Item.Label
	}
	return out
}

func TestOptimizeTransportMix_ConditionsReorderOptions(t *testing.T) {
	cond := &fakeConditions{delays: map[transport.Mode]int{
		transport.ModeBus: 60,
		transport.ModeCar: 120,
	}}
	engine := newEngine(t, cond, nil)

	res, err := engine.OptimizeTransportMix(context.Background(), planner.TransportMixRequest{
		Origin: "a", Destination: "c", Date: "2025-08-01", Objective: "time",
	})
	require.NoError(t, err)

	assert.True(t, res.ConditionsIncluded)
	assert.Equal(t, 600.0, res.DistanceKm)
	// Base order would be flight, train, car (7.17 h), bus (8 h).
	assert.Equal(t, []string{"flight", "train", "bus", "car"}, labels(res))

	bus := res.Options[2].Item
	assert.Equal(t, 30.0, bus.Adjusted.Cost)
	assert.InDelta(t, 33.0, bus.Adjusted.AdjustedCost, 1e-9)
	assert.InDelta(t, 9.0, bus.Adjusted.AdjustedDurationHours, 1e-9)
	assert.Equal(t, "+60 min delay (heavy)", bus.Adjusted.Impact())

	car := res.Options[3].Item
	assert.InDelta(t, 9.17, car.Adjusted.AdjustedDurationHours, 1e-9)
	assert.InDelta(t, 107.6, car.Adjusted.AdjustedCarbonKg, 1e-9)

	require.NotNil(t, res.Summary)
	assert.Equal(t, conditions.Summary{
		RoutesChecked:       4,
		RoutesWithDelays:    2,
		AverageDelayMinutes: 45,
		MaxDelayMinutes:     120,
		TotalDelayMinutes:   180,
		Status:              conditions.TrafficHeavy,
	}, *res.Summary)
}

func TestOptimizeTransportMix_WithoutConditions(t *testing.T) {
	cond := &fakeConditions{delays: map[transport.Mode]int{transport.ModeBus: 60}}
	off := false

	res, err := newEngine(t, cond, nil).OptimizeTransportMix(context.Background(), planner.TransportMixRequest{
		Origin: "a", Destination: "c", Objective: "time", IncludeConditions: &off,
	})
	require.NoError(t, err)

	assert.False(t, res.ConditionsIncluded)
	assert.Nil(t, res.Summary)
	assert.Zero(t, cond.callCount())
	assert.Equal(t, []string{"flight", "train", "car", "bus"}, labels(res))
}

func TestOptimizeTransportMix_FlagDisablesConditions(t *testing.T) {
	cond := &fakeConditions{}
	res, err := newEngine(t, cond, fakeFlags{noLive: true}).OptimizeTransportMix(context.Background(), planner.TransportMixRequest{
		Origin: "a", Destination: "c",
	})
	require.NoError(t, err)
	assert.False(t, res.ConditionsIncluded)
	assert.Zero(t, cond.callCount())
}

func TestOptimizeTransportMix_MultiModal(t *testing.T) {
	res, err := newEngine(t, nil, nil).OptimizeTransportMix(context.Background(), planner.TransportMixRequest{
		Origin: "a", Destination: "b", Objective: "cost",
	})
	require.NoError(t, err)

	// 1500 km: only flight is viable on its own.
	assert.Equal(t, []string{planner.MultiModalLabel, "flight"}, labels(res))

	mm := res.Options[0].Item
	require.Len(t, mm.Segments, 2)
	assert.Equal(t, transport.ModeFlight, mm.Segments[0].Mode)
	assert.Equal(t, 1200.0, mm.Segments[0].DistanceKm)
	assert.Equal(t, transport.ModeBus, mm.Segments[1].Mode)
	assert.InDelta(t, 195.0, mm.Adjusted.Cost, 1e-9)
	assert.InDelta(t, 8.75, mm.Adjusted.DurationHours, 1e-9)
	assert.InDelta(t, 332.7, mm.Adjusted.CarbonKg, 1e-9)
	assert.Equal(t, mm.Adjusted.Cost, mm.Adjusted.AdjustedCost)
}

func TestOptimizeTransportMix_MultiModalNeedsBothModes(t *testing.T) {
	flags := fakeFlags{disabled: []transport.Mode{transport.ModeBus}}
	res, err := newEngine(t, nil, flags).OptimizeTransportMix(context.Background(), planner.TransportMixRequest{
		Origin: "a", Destination: "b",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"flight"}, labels(res))
}

func TestOptimizeTransportMix_InvalidRequests(t *testing.T) {
	engine := newEngine(t, nil, nil)

	_, err := engine.OptimizeTransportMix(context.Background(), planner.TransportMixRequest{Origin: "a", Destination: "a"})
	requireKind(t, err, planner.KindInvalidRequest)

	_, err = engine.OptimizeTransportMix(context.Background(), planner.TransportMixRequest{Origin: "a"})
	requireKind(t, err, planner.KindInvalidRequest)
}

func TestOptimizeTransportMix_Fallbacks(t *testing.T) {
	cond := &fakeConditions{degraded: true}
	res, err := newEngine(t, cond, nil).OptimizeTransportMix(context.Background(), planner.TransportMixRequest{
		Origin: "a", Destination: "nowhere", Objective: "scenic",
	})
	require.NoError(t, err)

	kinds := warningKinds(res.Warnings)
	assert.Contains(t, kinds, planner.WarningInvalidObjective)
	assert.Contains(t, kinds, planner.WarningUnknownLocation)
	assert.Contains(t, kinds, planner.WarningConditionFetchFailure)
	assert.Equal(t, 500.0, res.DistanceKm)
	assert.Len(t, res.Options, 4)
}
