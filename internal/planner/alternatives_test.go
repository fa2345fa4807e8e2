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

func carLeg(t *testing.T) transport.LegOption {
	t.Helper()
	leg, err := transport.EvaluateMode(transport.ModeCar, "a", "c", 600, "2025-08-01")
	require.NoError(t, err)
	return leg
}

func TestSuggestAlternatives_CostOptimization(t *testing.T) {
	cond := &fakeConditions{}
	res, err := newEngine(t, cond, nil).SuggestAlternatives(context.Background(), planner.AlternativesRequest{
		Legs: []transport.LegOption{carLeg(t)},
	})
	require.NoError(t, err)

	assert.False(t, res.ConditionsIncluded)
	assert.Zero(t, cond.callCount())

	require.Len(t, res.Legs, 1)
	la := res.Legs[0]
	assert.Equal(t, 1, la.LegNumber)
	require.Len(t, la.Alternatives, 3)
	assert.Equal(t, transport.ModeFlight, la.Alternatives[0].Mode)
	assert.Equal(t, transport.ModeTrain, la.Alternatives[1].Mode)
	assert.Equal(t, transport.ModeBus, la.Alternatives[2].Mode)

	require.Len(t, res.Recommendations, 2)
	overall := res.Recommendations[0]
	assert.Equal(t, planner.RecommendationOverallSavings, overall.Type)
	assert.Equal(t, planner.PriorityHigh, overall.Priority)
	assert.Equal(t, "Total potential savings: $42.00", overall.Suggestion)

	costRec := res.Recommendations[1]
	assert.Equal(t, planner.RecommendationCostOptimization, costRec.Type)
	assert.Equal(t, 1, costRec.Leg)
	assert.Equal(t, "Switch from car to bus", costRec.Suggestion)
	assert.InDelta(t, 42.0, costRec.Savings, 1e-9)
	assert.InDelta(t, 0.83, costRec.TradeOffHours, 1e-9)
}

func TestSuggestAlternatives_DelayAvoidance(t *testing.T) {
	cond := &fakeConditions{delays: map[transport.Mode]int{transport.ModeBus: 60}}
	res, err := newEngine(t, cond, nil).SuggestAlternatives(context.Background(), planner.AlternativesRequest{
		Legs:       []transport.LegOption{carLeg(t)},
		Conditions: []conditions.Snapshot{{DelayMinutes: 90, Conditions: "heavy"}},
	})
	require.NoError(t, err)

	assert.True(t, res.ConditionsIncluded)
	// Supplied conditions are not refetched; the three alternatives are.
	assert.Equal(t, 3, cond.callCount())

	cur := res.Legs[0].Current
	assert.InDelta(t, 79.2, cur.AdjustedCost, 1e-9)
	assert.InDelta(t, 8.67, cur.AdjustedDurationHours, 1e-9)

	require.Len(t, res.Recommendations, 3)
	assert.Equal(t, planner.RecommendationOverallSavings, res.Recommendations[0].Type)
	assert.InDelta(t, 46.2, res.Recommendations[1].Savings, 1e-9)

	delay := res.Recommendations[2]
	assert.Equal(t, planner.RecommendationDelayAvoidance, delay.Type)
	assert.Equal(t, planner.PriorityHigh, delay.Priority)
	assert.Equal(t, "Switch from car to flight to avoid a 90 min delay (heavy)", delay.Suggestion)
	assert.InDelta(t, -4.92, delay.TradeOffHours, 1e-9)
}

func TestSuggestAlternatives_FetchesCurrentConditions(t *testing.T) {
	cond := &fakeConditions{delays: map[transport.Mode]int{transport.ModeCar: 35}}
	res, err := newEngine(t, cond, nil).SuggestAlternatives(context.Background(), planner.AlternativesRequest{
		Legs:              []transport.LegOption{carLeg(t)},
		IncludeConditions: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, cond.callCount())
	assert.Equal(t, 35, res.Legs[0].Current.DelayMinutes())

	last := res.Recommendations[len(res.Recommendations)-1]
	assert.Equal(t, planner.RecommendationDelayAvoidance, last.Type)
	assert.Equal(t, planner.PriorityMedium, last.Priority)
}

func TestSuggestAlternatives_NoCheaperOption(t *testing.T) {
	bus, err := transport.EvaluateMode(transport.ModeBus, "a", "c", 600, "")
	require.NoError(t, err)

	res, err := newEngine(t, nil, nil).SuggestAlternatives(context.Background(), planner.AlternativesRequest{
		Legs: []transport.LegOption{bus},
	})
	require.NoError(t, err)
	assert.Len(t, res.Legs, 1)
	assert.Empty(t, res.Recommendations)
}

func TestSuggestAlternatives_InvalidRequests(t *testing.T) {
	engine := newEngine(t, nil, nil)

	_, err := engine.SuggestAlternatives(context.Background(), planner.AlternativesRequest{})
	requireKind(t, err, planner.KindEmptyRouteRequest)

	_, err = engine.SuggestAlternatives(context.Background(), planner.AlternativesRequest{
		Legs:       []transport.LegOption{carLeg(t)},
		Conditions: []conditions.Snapshot{{}, {}},
	})
	requireKind(t, err, planner.KindInvalidRequest)
}
