package itinerary

import (
	"context"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/itinera/itinera/internal/geo"
	"github.com/itinera/itinera/internal/transport"
)

// DistanceSource measures the distance between two named places.
type DistanceSource interface {
	Distance(origin, destination string) geo.Distance
}

// SearcherConfig holds configuration for the route searcher.
type SearcherConfig struct {
	Distances DistanceSource
	Selector  *transport.Selector
	Logger    zerolog.Logger

	// Concurrency bounds the leg evaluation fan-out (default: GOMAXPROCS).
	Concurrency int
}

// Searcher enumerates candidate orderings of a multi-city trip.
type Searcher struct {
	distances   DistanceSource
	selector    *transport.Selector
	logger      zerolog.Logger
	concurrency int
}

// SearchRequest describes a multi-city trip.
type SearchRequest struct {
	Start string
	// End defaults to Start. A trip ending where it started does not add a
	// return leg.
	End       string
	Cities    []string
	Objective transport.Objective
	Date      string
}

// Candidate is one ordering of the intermediate stops with its aggregates.
type Candidate struct {
	Order           []int
	Metrics         Metrics
	EfficiencyScore float64
}

// SearchResult holds every candidate produced by a search.
type SearchResult struct {
	Regime     Regime
	Candidates []Candidate

	// Unresolved lists place names that fell back to the default distance.
	Unresolved []string
	// FallbackLegs lists legs for which no mode was viable and a flight was
	// substituted.
	FallbackLegs []LegRef

	nodes     []string
	roundTrip bool
	table     *legTable
}

// NewSearcher creates a new route searcher.
func NewSearcher(cfg SearcherConfig) *Searcher {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	selector := cfg.Selector
	if selector == nil {
		selector = transport.NewSelector(transport.SelectorConfig{})
	}

	return &Searcher{
		distances:   cfg.Distances,
		selector:    selector,
		logger:      cfg.Logger,
		concurrency: concurrency,
	}
}

// Search explores the trip exhaustively when there are at most
// MaxExactStops intermediate stops, and heuristically otherwise.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	nodes, roundTrip, err := buildNodes(req)
	if err != nil {
		return nil, err
	}

	if stops := len(nodes) - 2; stops <= MaxExactStops {
		return s.exact(ctx, req, nodes, roundTrip)
	}
	return s.heuristic(ctx, req, nodes, roundTrip)
}

// Heuristic always builds the single nearest-neighbour candidate.
func (s *Searcher) Heuristic(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	nodes, roundTrip, err := buildNodes(req)
	if err != nil {
		return nil, err
	}
	return s.heuristic(ctx, req, nodes, roundTrip)
}

// buildNodes lays out the search graph as [start, stops..., end]. Cities
// matching the start or end are dropped; other duplicates are kept as
// separate visits.
func buildNodes(req SearchRequest) ([]string, bool, error) {
	start := strings.TrimSpace(req.Start)
	cities := req.Cities
	if start == "" {
		if len(cities) == 0 {
			return nil, false, ErrEmptyRouteRequest
		}
		start, cities = strings.TrimSpace(cities[0]), cities[1:]
	}

	end := strings.TrimSpace(req.End)
	if end == "" {
		end = start
	}
	roundTrip := geo.Normalize(end) == geo.Normalize(start)

	nodes := []string{start}
	for _, c := range cities {
		key := geo.Normalize(c)
		if key == "" || key == geo.Normalize(start) || key == geo.Normalize(end) {
			continue
		}
		nodes = append(nodes, strings.TrimSpace(c))
	}
	nodes = append(nodes, end)

	return nodes, roundTrip, nil
}

func (s *Searcher) exact(ctx context.Context, req SearchRequest, nodes []string, roundTrip bool) (*SearchResult, error) {
	table := newLegTable(nodes)
	endIdx := len(nodes) - 1
	stops := endIdx - 1

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for from := 0; from < endIdx; from++ {
		g.Go(func() error {
			for to := 1; to <= endIdx; to++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if !needsLeg(from, to, stops, roundTrip) {
					continue
				}
				table.set(from, to, s.evaluateLeg(nodes[from], nodes[to], req))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := newSearchResult(RegimeExact, nodes, roundTrip, table)
	policy := s.selector.Policy()

	order := make([]int, stops)
	for i := range order {
		order[i] = i + 1
	}

	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		result.Candidates = append(result.Candidates, result.candidate(order, policy))

		if !nextPermutation(order) {
			break
		}
	}

	s.logger.Debug().
		Int("stops", stops).
		Int("candidates", len(result.Candidates)).
		Msg("exact route search completed")

	return result, nil
}

func (s *Searcher) heuristic(ctx context.Context, req SearchRequest, nodes []string, roundTrip bool) (*SearchResult, error) {
	table := newLegTable(nodes)
	endIdx := len(nodes) - 1

	remaining := make([]int, 0, endIdx-1)
	for i := 1; i < endIdx; i++ {
		remaining = append(remaining, i)
	}

	order := make([]int, 0, len(remaining))
	current := 0
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best := 0
		bestKm := s.distances.Distance(nodes[current], nodes[remaining[0]]).Km
		for i := 1; i < len(remaining); i++ {
			if km := s.distances.Distance(nodes[current], nodes[remaining[i]]).Km; km < bestKm {
				best, bestKm = i, km
			}
		}

		next := remaining[best]
		table.set(current, next, s.evaluateLeg(nodes[current], nodes[next], req))
		order = append(order, next)
		remaining = append(remaining[:best], remaining[best+1:]...)
		current = next
	}

	if !roundTrip {
		table.set(current, endIdx, s.evaluateLeg(nodes[current], nodes[endIdx], req))
	}

	result := newSearchResult(RegimeHeuristic, nodes, roundTrip, table)
	result.Candidates = []Candidate{result.candidate(order, s.selector.Policy())}

	s.logger.Debug().
		Int("stops", len(order)).
		Msg("heuristic route search completed")

	return result, nil
}

func (s *Searcher) evaluateLeg(origin, destination string, req SearchRequest) legResult {
	d := s.distances.Distance(origin, destination)
	sel := s.selector.Select(origin, destination, d.Km, req.Objective, req.Date)
	return legResult{
		leg:        sel.Leg,
		fallback:   sel.Fallback,
		unresolved: d.Unresolved,
		set:        true,
	}
}

// needsLeg reports whether some ordering uses the leg from -> to.
func needsLeg(from, to, stops int, roundTrip bool) bool {
	endIdx := stops + 1
	switch {
	case from == to:
		return false
	case to == endIdx:
		if roundTrip {
			return false
		}
		// The direct start -> end leg only exists without intermediate stops.
		return from != 0 || stops == 0
	default:
		return true
	}
}

// nextPermutation advances p to its lexicographic successor and reports
// whether one existed.
func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	for l, r := i+1, len(p)-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}
	return true
}

func newSearchResult(regime Regime, nodes []string, roundTrip bool, table *legTable) *SearchResult {
	r := &SearchResult{
		Regime:    regime,
		nodes:     nodes,
		roundTrip: roundTrip,
		table:     table,
	}

	seen := make(map[string]bool)
	for _, row := range table.legs {
		for _, lr := range row {
			if !lr.set {
				continue
			}
			if lr.fallback {
				r.FallbackLegs = append(r.FallbackLegs, LegRef{Origin: lr.leg.Origin, Destination: lr.leg.Destination})
			}
			for _, name := range lr.unresolved {
				if key := geo.Normalize(name); !seen[key] {
					seen[key] = true
					r.Unresolved = append(r.Unresolved, name)
				}
			}
		}
	}

	return r
}

// chain returns the node indices visited by an ordering.
func (r *SearchResult) chain(order []int) []int {
	path := make([]int, 0, len(order)+2)
	path = append(path, 0)
	path = append(path, order...)
	if !r.roundTrip {
		path = append(path, len(r.nodes)-1)
	}
	return path
}

func (r *SearchResult) candidate(order []int, policy transport.Policy) Candidate {
	path := r.chain(order)

	var m Metrics
	for i := 1; i < len(path); i++ {
		leg := r.table.get(path[i-1], path[i])
		m.Cost += leg.Cost
		m.DurationHours += leg.DurationHours
		m.CarbonKg += leg.CarbonKg
	}
	m = Metrics{
		Cost:          transport.Round2(m.Cost),
		DurationHours: transport.Round2(m.DurationHours),
		CarbonKg:      transport.Round2(m.CarbonKg),
	}

	return Candidate{
		Order:           append([]int(nil), order...),
		Metrics:         m,
		EfficiencyScore: policy.EfficiencyScore(m.Cost, m.DurationHours, m.CarbonKg),
	}
}

// Route materialises a candidate into its full leg chain.
func (r *SearchResult) Route(c Candidate) Route {
	path := r.chain(c.Order)

	stops := make([]string, len(path))
	for i, idx := range path {
		stops[i] = r.nodes[idx]
	}

	legs := make([]transport.LegOption, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		legs = append(legs, r.table.get(path[i-1], path[i]))
	}

	return Route{
		ID:              uuid.NewString(),
		Stops:           stops,
		Legs:            legs,
		TotalCost:       c.Metrics.Cost,
		TotalDuration:   c.Metrics.DurationHours,
		TotalCarbonKg:   c.Metrics.CarbonKg,
		EfficiencyScore: c.EfficiencyScore,
	}
}

type legResult struct {
	leg        transport.LegOption
	fallback   bool
	unresolved []string
	set        bool
}

// legTable memoises the selected leg for each ordered node pair.
type legTable struct {
	legs [][]legResult
}

func newLegTable(nodes []string) *legTable {
	legs := make([][]legResult, len(nodes))
	for i := range legs {
		legs[i] = make([]legResult, len(nodes))
	}
	return &legTable{legs: legs}
}

func (t *legTable) set(from, to int, lr legResult) {
	t.legs[from][to] = lr
}

func (t *legTable) get(from, to int) transport.LegOption {
	return t.legs[from][to].leg
}
