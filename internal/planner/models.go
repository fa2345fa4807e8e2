// Package planner is the entry point for trip planning: multi-city search,
// single-journey transport mixes, live conditions, scheduling, monitoring
// and alternatives.
package planner

import (
	"fmt"
	"time"

	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/itinerary"
	"github.com/itinera/itinera/internal/transport"
)

// ErrorKind classifies request failures.
type ErrorKind string

const (
	// KindEmptyRouteRequest means there was nothing to plan.
	KindEmptyRouteRequest ErrorKind = "EmptyRouteRequest"
	// KindInvalidRequest means the request is structurally invalid.
	KindInvalidRequest ErrorKind = "InvalidRequest"
	// KindCanceled means the caller's context ended first.
	KindCanceled ErrorKind = "Canceled"
)

// Error is returned by every planner operation that fails.
type Error struct {
	Kind    ErrorKind // Failure class
	Op      string    // Operation that failed
	Message string    // Human-readable error message
	Err     error     // Underlying error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Message
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// WarningKind names a condition that was absorbed with a fallback.
type WarningKind string

const (
	WarningUnknownLocation       WarningKind = "UnknownLocation"
	WarningNoViableMode          WarningKind = "NoViableMode"
	WarningConditionFetchFailure WarningKind = "ConditionFetchFailure"
	WarningInvalidObjective      WarningKind = "InvalidObjective"
	WarningInvalidMode           WarningKind = "InvalidMode"
)

// Warning reports a fallback applied while serving a request.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Subject string      `json:"subject,omitempty"`
	Message string      `json:"message"`
}

// MultiCityRequest asks for the best orderings of a multi-city trip.
type MultiCityRequest struct {
	Cities []string
	Start  string
	// End defaults to Start.
	End       string
	Objective string
	// Modes restricts the transport modes. Empty means every mode.
	Modes []string
	Date  string
	// Limit caps the routes returned (default: itinerary.DefaultRankLimit).
	Limit int
}

// RoutePlan is a ranked route with its encoded stop geometry.
type RoutePlan struct {
	itinerary.Route

	// Polyline encodes the stop coordinates. Empty when a stop is unknown.
	Polyline string
}

// MultiCityResult holds the best routes of a multi-city search.
type MultiCityResult struct {
	ID                  string
	Objective           transport.Objective
	Regime              itinerary.Regime
	TotalCities         int
	CandidatesEvaluated int
	Routes              []itinerary.Ranked[RoutePlan]
	Warnings            []Warning
}

// TransportMixRequest asks for the ranked ways of making one journey.
type TransportMixRequest struct {
	Origin      string
	Destination string
	Date        string
	Objective   string

	// IncludeConditions applies live conditions to each option. Nil means
	// on, unless switched off by the live_conditions_disabled flag.
	IncludeConditions *bool

	Limit int
}

// MultiModalLabel identifies the combined flight and bus option.
const MultiModalLabel = "flight+bus"

// MixOption is one way of making a journey. Single-mode options have one
// segment; the multi-modal option has a flight and a bus segment.
type MixOption struct {
	Label    string
	Segments []transport.LegOption

	// Adjusted holds the option's totals with conditions applied. Equal to
	// the base totals when conditions are off.
	Adjusted conditions.AdjustedLeg
}

// Metrics returns the metrics ranking uses: the adjusted totals.
func (o MixOption) Metrics() itinerary.Metrics {
	return itinerary.Metrics{
		Cost:          o.Adjusted.AdjustedCost,
		DurationHours: o.Adjusted.AdjustedDurationHours,
		CarbonKg:      o.Adjusted.AdjustedCarbonKg,
	}
}

// TransportMixResult holds the ranked options for a journey.
type TransportMixResult struct {
	ID                 string
	Origin             string
	Destination        string
	DistanceKm         float64
	Objective          transport.Objective
	ConditionsIncluded bool
	Options            []itinerary.Ranked[MixOption]

	// Summary is set when conditions were included.
	Summary  *conditions.Summary
	Warnings []Warning
}

// ScheduleRequest asks for a timed itinerary.
type ScheduleRequest struct {
	Legs    []itinerary.ScheduleLeg
	StartAt time.Time
}

// ScheduleResult is a timed itinerary.
type ScheduleResult struct {
	ID string
	*itinerary.Schedule
}

// MonitorRequest asks for a one-shot evaluation of a timed itinerary.
type MonitorRequest struct {
	ItineraryID string
	Legs        []itinerary.TimedLeg

	// PollInterval sets the report's next check time. Zero keeps the
	// monitoring service's interval.
	PollInterval time.Duration
}

// AlternativesRequest asks for cheaper or faster ways to run a route.
type AlternativesRequest struct {
	Legs []transport.LegOption

	// Conditions optionally holds the current snapshot for each leg, in leg
	// order. When set, alternatives are condition-adjusted as well.
	Conditions []conditions.Snapshot

	// IncludeConditions fetches live conditions for every leg and
	// alternative. Implied when Conditions is set.
	IncludeConditions bool
}

// RecommendationType names an alternatives recommendation.
type RecommendationType string

const (
	RecommendationOverallSavings   RecommendationType = "overall_savings"
	RecommendationCostOptimization RecommendationType = "cost_optimization"
	RecommendationDelayAvoidance   RecommendationType = "delay_avoidance"
)

// Recommendation suggests a change to the current route.
type Recommendation struct {
	Type RecommendationType
	// Leg is the 1-based leg number. Zero for route-wide recommendations.
	Leg        int
	Suggestion string
	Savings    float64
	// TradeOffHours is the duration change of the suggestion; negative is
	// faster.
	TradeOffHours float64
	Priority      string
}

// LegAlternatives lists up to three other viable modes for a leg.
type LegAlternatives struct {
	LegNumber    int
	Current      conditions.AdjustedLeg
	Alternatives []conditions.AdjustedLeg
}

// AlternativesResult holds alternatives and recommendations for a route.
type AlternativesResult struct {
	ID                 string
	ConditionsIncluded bool
	Legs               []LegAlternatives
	Recommendations    []Recommendation
	Warnings           []Warning
}
