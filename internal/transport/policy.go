package transport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidObjective is returned by ParseObjective for unrecognised names.
var ErrInvalidObjective = errors.New("invalid optimization objective")

// Objective selects what a search or ranking minimises.
type Objective string

const (
	ObjectiveCost     Objective = "cost"
	ObjectiveTime     Objective = "time"
	ObjectiveCarbon   Objective = "carbon"
	ObjectiveBalanced Objective = "balanced"
)

// ParseObjective converts a name to an Objective. An empty name means
// balanced. Unrecognised names also resolve to balanced, together with
// ErrInvalidObjective so callers can surface a warning.
func ParseObjective(s string) (Objective, error) {
	switch o := Objective(strings.ToLower(strings.TrimSpace(s))); o {
	case ObjectiveCost, ObjectiveTime, ObjectiveCarbon, ObjectiveBalanced:
		return o, nil
	case "":
		return ObjectiveBalanced, nil
	default:
		return ObjectiveBalanced, fmt.Errorf("%w: %q", ErrInvalidObjective, s)
	}
}

// Policy holds the weights used for balanced selection and for the
// efficiency score. Zero values in an override keep the default.
type Policy struct {
	// Balanced mode selection: cost + duration*DurationWeight + carbon*CarbonWeight.
	BalancedCostWeight     float64 `json:"balanced_cost_weight"`
	BalancedDurationWeight float64 `json:"balanced_duration_weight"`
	BalancedCarbonWeight   float64 `json:"balanced_carbon_weight"`

	// Efficiency score component weights.
	EfficiencyCostWeight   float64 `json:"efficiency_cost_weight"`
	EfficiencyTimeWeight   float64 `json:"efficiency_time_weight"`
	EfficiencyCarbonWeight float64 `json:"efficiency_carbon_weight"`

	// Efficiency score normalisation ceilings.
	CostCeiling          float64 `json:"cost_ceiling"`
	DurationCeilingHours float64 `json:"duration_ceiling_hours"`
	CarbonCeilingKg      float64 `json:"carbon_ceiling_kg"`
}

// DefaultPolicy returns the stock weighting.
func DefaultPolicy() Policy {
	return Policy{
		BalancedCostWeight:     1,
		BalancedDurationWeight: 10,
		BalancedCarbonWeight:   100,
		EfficiencyCostWeight:   0.4,
		EfficiencyTimeWeight:   0.4,
		EfficiencyCarbonWeight: 0.2,
		CostCeiling:            1000,
		DurationCeilingHours:   48,
		CarbonCeilingKg:        1000,
	}
}

// WithOverrides returns p with every non-zero field of o applied.
func (p Policy) WithOverrides(o Policy) Policy {
	set := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	set(&p.BalancedCostWeight, o.BalancedCostWeight)
	set(&p.BalancedDurationWeight, o.BalancedDurationWeight)
	set(&p.BalancedCarbonWeight, o.BalancedCarbonWeight)
	set(&p.EfficiencyCostWeight, o.EfficiencyCostWeight)
	set(&p.EfficiencyTimeWeight, o.EfficiencyTimeWeight)
	set(&p.EfficiencyCarbonWeight, o.EfficiencyCarbonWeight)
	set(&p.CostCeiling, o.CostCeiling)
	set(&p.DurationCeilingHours, o.DurationCeilingHours)
	set(&p.CarbonCeilingKg, o.CarbonCeilingKg)
	return p
}

// BalancedScore is the weighted sum used for balanced selection. Lower is
// better.
func (p Policy) BalancedScore(cost, durationHours, carbonKg float64) float64 {
	return cost*p.BalancedCostWeight + durationHours*p.BalancedDurationWeight + carbonKg*p.BalancedCarbonWeight
}

// Score returns the value an objective minimises.
func (p Policy) Score(obj Objective, cost, durationHours, carbonKg float64) float64 {
	switch obj {
	case ObjectiveCost:
		return cost
	case ObjectiveTime:
		return durationHours
	case ObjectiveCarbon:
		return carbonKg
	default:
		return p.BalancedScore(cost, durationHours, carbonKg)
	}
}

// EfficiencyScore returns a 0-100 composite where higher is better. Each
// component is clipped at zero once its ceiling is exceeded.
func (p Policy) EfficiencyScore(cost, durationHours, carbonKg float64) float64 {
	costScore := max(0, p.CostCeiling-cost) / p.CostCeiling
	timeScore := max(0, p.DurationCeilingHours-durationHours) / p.DurationCeilingHours
	carbonScore := max(0, p.CarbonCeilingKg-carbonKg) / p.CarbonCeilingKg

	return 100 * (p.EfficiencyCostWeight*costScore +
		p.EfficiencyTimeWeight*timeScore +
		p.EfficiencyCarbonWeight*carbonScore)
}
