package itinerary_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera/itinera/internal/geo"
	"github.com/itinera/itinera/internal/itinerary"
	"github.com/itinera/itinera/internal/transport"
)

// lineDistances places cities on a straight line, 100 km apart per unit.
type lineDistances map[string]float64

func (l lineDistances) Distance(origin, destination string) geo.Distance {
	a, okA := l[geo.Normalize(origin)]
	b, okB := l[geo.Normalize(destination)]
	if !okA || !okB {
		return geo.Distance{Km: geo.DefaultFallbackKm}
	}
	return geo.Distance{Km: math.Abs(a-b) * 100, Resolved: true}
}

func newSearcher(t *testing.T) *itinerary.Searcher {
	t.Helper()
	return itinerary.NewSearcher(itinerary.SearcherConfig{
		Distances: geo.NewCalculator(geo.CalculatorConfig{}),
	})
}

func assertChained(t *testing.T, r itinerary.Route) {
	t.Helper()
	require.Len(t, r.Legs, len(r.Stops)-1)
	for i, leg := range r.Legs {
		assert.Equal(t, r.Stops[i], leg.Origin)
		assert.Equal(t, r.Stops[i+1], leg.Destination)
	}
}

func TestSearch_EmptyRequest(t *testing.T) {
	_, err := newSearcher(t).Search(context.Background(), itinerary.SearchRequest{})
	assert.ErrorIs(t, err, itinerary.ErrEmptyRouteRequest)
}

func TestSearch_RoundTripHasNoReturnLeg(t *testing.T) {
	res, err := newSearcher(t).Search(context.Background(), itinerary.SearchRequest{
		Start:     "New York",
		Cities:    []string{"Boston", "Chicago", "Washington DC"},
		Objective: transport.ObjectiveCost,
	})
	require.NoError(t, err)

	assert.Equal(t, itinerary.RegimeExact, res.Regime)
	assert.Len(t, res.Candidates, 6)
	assert.Empty(t, res.Unresolved)

	for _, c := range res.Candidates {
		r := res.Route(c)
		assert.Len(t, r.Stops, 4)
		assert.Equal(t, "New York", r.Stops[0])
		assertChained(t, r)
	}
}

func TestSearch_LexicographicCandidateOrder(t *testing.T) {
	res, err := newSearcher(t).Search(context.Background(), itinerary.SearchRequest{
		Start:  "london",
		Cities: []string{"paris", "rome", "tokyo"},
	})
	require.NoError(t, err)

	first := res.Route(res.Candidates[0])
	last := res.Route(res.Candidates[len(res.Candidates)-1])
	assert.Equal(t, []string{"london", "paris", "rome", "tokyo"}, first.Stops)
	assert.Equal(t, []string{"london", "tokyo", "rome", "paris"}, last.Stops)
}

func TestSearch_OneWayEndsAtEnd(t *testing.T) {
	res, err := newSearcher(t).Search(context.Background(), itinerary.SearchRequest{
		Start:  "seattle",
		End:    "miami",
		Cities: []string{"Seattle", "denver", "MIAMI", "chicago"},
	})
	require.NoError(t, err)

	// Start and end are filtered from the intermediate stops.
	assert.Len(t, res.Candidates, 2)
	for _, c := range res.Candidates {
		r := res.Route(c)
		assert.Equal(t, "seattle", r.Stops[0])
		assert.Equal(t, "miami", r.Stops[len(r.Stops)-1])
		assert.Len(t, r.Legs, 3)
		assertChained(t, r)
	}
}

func TestSearch_DirectTrip(t *testing.T) {
	res, err := newSearcher(t).Search(context.Background(), itinerary.SearchRequest{
		Start: "boston",
		End:   "new york",
	})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)

	r := res.Route(res.Candidates[0])
	assert.Equal(t, []string{"boston", "new york"}, r.Stops)
	require.Len(t, r.Legs, 1)
	assert.NotEmpty(t, r.ID)
}

func TestSearch_StartDefaultsToFirstCity(t *testing.T) {
	res, err := newSearcher(t).Search(context.Background(), itinerary.SearchRequest{
		Cities: []string{"paris", "london", "rome"},
	})
	require.NoError(t, err)

	r := res.Route(res.Candidates[0])
	assert.Equal(t, "paris", r.Stops[0])
	assert.Len(t, res.Candidates, 2)
}

func TestSearch_DuplicatesAreKept(t *testing.T) {
	res, err := newSearcher(t).Search(context.Background(), itinerary.SearchRequest{
		Start:  "london",
		Cities: []string{"paris", "paris"},
	})
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 2)

	r := res.Route(res.Candidates[0])
	assert.Equal(t, []string{"london", "paris", "paris"}, r.Stops)
}

func TestSearch_TotalsMatchLegSums(t *testing.T) {
	res, err := newSearcher(t).Search(context.Background(), itinerary.SearchRequest{
		Start:     "london",
		Cities:    []string{"paris", "rome", "new york"},
		Objective: transport.ObjectiveBalanced,
	})
	require.NoError(t, err)

	policy := transport.DefaultPolicy()
	for _, c := range res.Candidates {
		r := res.Route(c)
		var cost, dur, co2 float64
		for _, leg := range r.Legs {
			cost += leg.Cost
			dur += leg.DurationHours
			co2 += leg.CarbonKg
		}
		assert.InDelta(t, cost, r.TotalCost, 0.01)
		assert.InDelta(t, dur, r.TotalDuration, 0.01)
		assert.InDelta(t, co2, r.TotalCarbonKg, 0.01)
		assert.InDelta(t, policy.EfficiencyScore(r.TotalCost, r.TotalDuration, r.TotalCarbonKg), r.EfficiencyScore, 1e-9)
		assert.GreaterOrEqual(t, r.EfficiencyScore, 0.0)
		assert.LessOrEqual(t, r.EfficiencyScore, 100.0)
	}
}

func TestSearch_ExactNeverWorseThanHeuristic(t *testing.T) {
	req := itinerary.SearchRequest{
		Start:     "chicago",
		Cities:    []string{"miami", "seattle", "boston", "denver", "atlanta"},
		Objective: transport.ObjectiveCost,
	}
	s := newSearcher(t)

	exact, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	heuristic, err := s.Heuristic(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, heuristic.Candidates, 1)
	assert.Equal(t, itinerary.RegimeHeuristic, heuristic.Regime)

	best := math.Inf(1)
	for _, c := range exact.Candidates {
		best = min(best, c.Metrics.Cost)
	}
	assert.LessOrEqual(t, best, heuristic.Candidates[0].Metrics.Cost)
}

func TestSearch_HeuristicAboveEightStops(t *testing.T) {
	line := lineDistances{
		"start": 0, "a": 1, "b": 2, "c": 3, "d": 4, "e": 5,
		"f": 6, "g": 7, "h": 8, "i": 9,
	}
	s := itinerary.NewSearcher(itinerary.SearcherConfig{Distances: line})

	res, err := s.Search(context.Background(), itinerary.SearchRequest{
		Start:  "start",
		Cities: []string{"e", "i", "a", "c", "g", "b", "h", "d", "f"},
	})
	require.NoError(t, err)

	assert.Equal(t, itinerary.RegimeHeuristic, res.Regime)
	require.Len(t, res.Candidates, 1)

	r := res.Route(res.Candidates[0])
	assert.Equal(t, []string{"start", "a", "b", "c", "d", "e", "f", "g", "h", "i"}, r.Stops)
	assertChained(t, r)
}

func TestSearch_HeuristicTieGoesToFirstListed(t *testing.T) {
	line := lineDistances{"start": 0, "west": -1, "east": 1}
	s := itinerary.NewSearcher(itinerary.SearcherConfig{Distances: line})

	res, err := s.Heuristic(context.Background(), itinerary.SearchRequest{
		Start:  "start",
		Cities: []string{"east", "west"},
	})
	require.NoError(t, err)

	r := res.Route(res.Candidates[0])
	assert.Equal(t, []string{"start", "east", "west"}, r.Stops)
}

func TestSearch_UnresolvedAndFallbackLegs(t *testing.T) {
	s := itinerary.NewSearcher(itinerary.SearcherConfig{
		Distances: geo.NewCalculator(geo.CalculatorConfig{}),
		Selector: transport.NewSelector(transport.SelectorConfig{
			Modes: []transport.Mode{transport.ModeTrain},
		}),
	})

	res, err := s.Search(context.Background(), itinerary.SearchRequest{
		Start:  "london",
		End:    "tokyo",
		Cities: []string{"atlantis"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"atlantis"}, res.Unresolved)

	// london -> atlantis falls back to 500 km (train ok); atlantis -> tokyo
	// is also 500 km. Only a direct london -> tokyo leg would need a
	// fallback, and it is not part of any ordering.
	assert.Empty(t, res.FallbackLegs)

	res, err = s.Search(context.Background(), itinerary.SearchRequest{
		Start: "london",
		End:   "tokyo",
	})
	require.NoError(t, err)
	require.Len(t, res.FallbackLegs, 1)
	assert.Equal(t, itinerary.LegRef{Origin: "london", Destination: "tokyo"}, res.FallbackLegs[0])
	assert.Equal(t, transport.ModeFlight, res.Route(res.Candidates[0]).Legs[0].Mode)
}

func TestSearch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSearcher(t).Search(ctx, itinerary.SearchRequest{
		Start:  "london",
		Cities: []string{"paris", "rome"},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
