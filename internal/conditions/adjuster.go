package conditions

import (
	"fmt"
	"math"

	"github.com/itinera/itinera/internal/transport"
)

const (
	// surchargeDelayMinutes is the delay above which cost is surcharged.
	surchargeDelayMinutes = 30
	surchargeRate         = 0.1

	// carIdleCarbonPerHour is the extra carbon a car emits per hour of delay.
	carIdleCarbonPerHour = 2.5
)

// AdjustedLeg is a leg with live conditions applied. The embedded base
// metrics are left untouched.
type AdjustedLeg struct {
	transport.LegOption

	Condition             Snapshot
	AdjustedDurationHours float64
	AdjustedCost          float64
	AdjustedCarbonKg      float64
}

// Adjust applies a snapshot to a leg. Delay adds to duration; delays over
// thirty minutes add a ten percent surcharge; cars emit extra carbon while
// delayed.
func Adjust(leg transport.LegOption, snap Snapshot) AdjustedLeg {
	delayHours := float64(snap.DelayMinutes) / 60

	cost := leg.Cost
	if snap.DelayMinutes > surchargeDelayMinutes {
		cost += leg.Cost * surchargeRate
	}

	carbon := leg.CarbonKg
	if leg.Mode == transport.ModeCar {
		carbon += delayHours * carIdleCarbonPerHour
	}

	return AdjustedLeg{
		LegOption:             leg,
		Condition:             snap,
		AdjustedDurationHours: transport.Round2(leg.DurationHours + delayHours),
		AdjustedCost:          transport.Round2(cost),
		AdjustedCarbonKg:      transport.Round2(carbon),
	}
}

// DelayMinutes returns the applied delay.
func (a AdjustedLeg) DelayMinutes() int {
	return a.Condition.DelayMinutes
}

// Impact describes the delay for display.
func (a AdjustedLeg) Impact() string {
	if a.Condition.DelayMinutes > 0 {
		return fmt.Sprintf("+%d min delay (%s)", a.Condition.DelayMinutes, a.Condition.Conditions)
	}
	return "No significant impact"
}

// TrafficStatus is the overall traffic level across a set of legs.
type TrafficStatus string

const (
	TrafficLight    TrafficStatus = "light"
	TrafficModerate TrafficStatus = "moderate"
	TrafficHeavy    TrafficStatus = "heavy"
)

// Summary aggregates the delays across a set of snapshots.
type Summary struct {
	RoutesChecked       int           `json:"total_routes_checked"`
	RoutesWithDelays    int           `json:"routes_with_delays"`
	AverageDelayMinutes float64       `json:"average_delay_minutes"`
	MaxDelayMinutes     int           `json:"max_delay_minutes"`
	TotalDelayMinutes   int           `json:"total_delay_minutes"`
	Status              TrafficStatus `json:"traffic_status"`
}

// Summarize aggregates delays. The status is heavy above 120 total delay
// minutes and moderate above 60.
func Summarize(snaps []Snapshot) Summary {
	sum := Summary{RoutesChecked: len(snaps), Status: TrafficLight}
	for _, s := range snaps {
		sum.TotalDelayMinutes += s.DelayMinutes
		sum.MaxDelayMinutes = max(sum.MaxDelayMinutes, s.DelayMinutes)
		if s.DelayMinutes > 0 {
			sum.RoutesWithDelays++
		}
	}

	if len(snaps) > 0 {
		avg := float64(sum.TotalDelayMinutes) / float64(len(snaps))
		sum.AverageDelayMinutes = math.Round(avg*10) / 10
	}

	switch {
	case sum.TotalDelayMinutes > 120:
		sum.Status = TrafficHeavy
	case sum.TotalDelayMinutes > 60:
		sum.Status = TrafficModerate
	}

	return sum
}
