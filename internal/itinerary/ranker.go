package itinerary

import (
	"slices"

	"github.com/itinera/itinera/internal/transport"
)

// DefaultRankLimit is the number of results returned to callers.
const DefaultRankLimit = 5

// Ranked pairs an item with its 1-based position.
type Ranked[T any] struct {
	Rank int
	Item T
}

// RankRoutes orders items by the objective. Balanced ranks by efficiency
// score, highest first; the other objectives sort their metric ascending.
// Ties keep their input order. A limit <= 0 keeps every item.
func RankRoutes[T any](items []T, metrics func(T) Metrics, obj transport.Objective, policy transport.Policy, limit int) []Ranked[T] {
	return rank(items, func(item T) float64 {
		m := metrics(item)
		if obj == transport.ObjectiveBalanced {
			return -policy.EfficiencyScore(m.Cost, m.DurationHours, m.CarbonKg)
		}
		return policy.Score(obj, m.Cost, m.DurationHours, m.CarbonKg)
	}, limit)
}

// RankOptions orders single-leg transport options. Unlike RankRoutes,
// balanced ranks by the weighted sum, lowest first.
func RankOptions[T any](items []T, metrics func(T) Metrics, obj transport.Objective, policy transport.Policy, limit int) []Ranked[T] {
	return rank(items, func(item T) float64 {
		m := metrics(item)
		return policy.Score(obj, m.Cost, m.DurationHours, m.CarbonKg)
	}, limit)
}

func rank[T any](items []T, key func(T) float64, limit int) []Ranked[T] {
	type keyed struct {
		key  float64
		item T
	}

	ks := make([]keyed, len(items))
	for i, item := range items {
		ks[i] = keyed{key: key(item), item: item}
	}

	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		default:
			return 0
		}
	})

	if limit > 0 && len(ks) > limit {
		ks = ks[:limit]
	}

	ranked := make([]Ranked[T], len(ks))
	for i, k := range ks {
		ranked[i] = Ranked[T]{Rank: i + 1, Item: k.item}
	}
	return ranked
}
