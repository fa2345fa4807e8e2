// Package models holds the request and response bodies of the itinerary API.
package models

import (
	"fmt"
	"time"

	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/monitoring"
)

// FormatCost renders an amount as dollars, e.g. "$12.50".
func FormatCost(v float64) string { return fmt.Sprintf("$%.2f", v) }

// FormatHours renders a duration in hours, e.g. "7.5 hours".
func FormatHours(v float64) string { return fmt.Sprintf("%.1f hours", v) }

// FormatCarbon renders an emission figure, e.g. "40.80 kg CO₂".
func FormatCarbon(v float64) string { return fmt.Sprintf("%.2f kg CO₂", v) }

// Warning reports a fallback taken while planning.
type Warning struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// LegInput is a leg supplied by the client, usually echoed from an earlier
// optimize response. Metrics left at zero are recomputed from the distance.
type LegInput struct {
	Origin        string  `json:"origin" validate:"required"`
	Destination   string  `json:"destination" validate:"required"`
	Mode          string  `json:"mode" validate:"required"`
	DistanceKm    float64 `json:"distance_km" validate:"gte=0"`
	Cost          float64 `json:"cost" validate:"gte=0"`
	DurationHours float64 `json:"duration_hours" validate:"gte=0"`
	CarbonKg      float64 `json:"carbon_kg" validate:"gte=0"`
	Date          string  `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Leg is one evaluated leg.
type Leg struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	Mode          string  `json:"mode"`
	DistanceKm    float64 `json:"distance_km"`
	Cost          float64 `json:"cost"`
	DurationHours float64 `json:"duration_hours"`
	CarbonKg      float64 `json:"carbon_kg"`
	Date          string  `json:"date,omitempty"`

	CostFormatted     string `json:"cost_formatted"`
	DurationFormatted string `json:"duration_formatted"`
	CarbonFormatted   string `json:"carbon_formatted"`
}

// OptimizeItineraryRequest is the body of POST /v1/itineraries:optimize.
type OptimizeItineraryRequest struct {
	Cities    []string `json:"cities" validate:"max=20,dive,required"`
	Start     string   `json:"start,omitempty"`
	End       string   `json:"end,omitempty"`
	Objective string   `json:"objective,omitempty"`
	Modes     []string `json:"modes,omitempty"`
	Date      string   `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Limit     int      `json:"limit,omitempty" validate:"gte=0,lte=50"`
}

// RankedRoute is one candidate route in an optimize response.
type RankedRoute struct {
	Rank               int      `json:"rank"`
	ID                 string   `json:"route_id"`
	Stops              []string `json:"stops"`
	Legs               []Leg    `json:"legs"`
	TotalCost          float64  `json:"total_cost"`
	TotalDurationHours float64  `json:"total_duration_hours"`
	TotalCarbonKg      float64  `json:"total_carbon_kg"`
	EfficiencyScore    float64  `json:"efficiency_score"`
	Polyline           string   `json:"polyline,omitempty"`

	CostFormatted     string `json:"cost_formatted"`
	DurationFormatted string `json:"duration_formatted"`
	CarbonFormatted   string `json:"carbon_formatted"`
}

// OptimizeItineraryResponse lists the best routes through the cities.
type OptimizeItineraryResponse struct {
	ID                  string        `json:"id"`
	Objective           string        `json:"optimization_objective"`
	Regime              string        `json:"regime"`
	TotalCities         int           `json:"total_cities"`
	CandidatesEvaluated int           `json:"candidates_evaluated"`
	Routes              []RankedRoute `json:"routes"`
	Warnings            []Warning     `json:"warnings,omitempty"`
}

// TransportMixRequest is the body of POST /v1/transport:optimize.
type TransportMixRequest struct {
	Origin            string `json:"origin" validate:"required"`
	Destination       string `json:"destination" validate:"required"`
	Date              string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Objective         string `json:"objective,omitempty"`
	IncludeConditions *bool  `json:"include_conditions,omitempty"`
	Limit             int    `json:"limit,omitempty" validate:"gte=0,lte=50"`
}

// MixOption is one ranked way to make the journey.
type MixOption struct {
	Rank     int    `json:"rank"`
	Label    string `json:"label"`
	Segments []Leg  `json:"segments"`

	Cost                  float64 `json:"cost"`
	DurationHours         float64 `json:"duration_hours"`
	CarbonKg              float64 `json:"carbon_kg"`
	AdjustedCost          float64 `json:"adjusted_cost"`
	AdjustedDurationHours float64 `json:"adjusted_duration_hours"`
	AdjustedCarbonKg      float64 `json:"adjusted_carbon_kg"`
	DelayMinutes          int     `json:"delay_minutes"`
	Conditions            string  `json:"conditions,omitempty"`
	Impact                string  `json:"impact"`

	CostFormatted     string `json:"cost_formatted"`
	DurationFormatted string `json:"duration_formatted"`
	CarbonFormatted   string `json:"carbon_formatted"`
}

// TransportMixResponse ranks the transport options between two places.
type TransportMixResponse struct {
	ID                 string              `json:"id"`
	Origin             string              `json:"origin"`
	Destination        string              `json:"destination"`
	DistanceKm         float64             `json:"distance_km"`
	Objective          string              `json:"optimization_objective"`
	ConditionsIncluded bool                `json:"real_time_conditions_included"`
	Options            []MixOption         `json:"options"`
	Summary            *conditions.Summary `json:"traffic_summary,omitempty"`
	Warnings           []Warning           `json:"warnings,omitempty"`
}

// ConditionQuery holds the query parameters of GET /v1/conditions.
type ConditionQuery struct {
	Origin      string `validate:"required"`
	Destination string `validate:"required"`
	Mode        string `validate:"required"`
}

// ScheduleLegInput is a leg to schedule with an optional extra layover.
type ScheduleLegInput struct {
	LegInput
	LayoverHours float64 `json:"layover_hours,omitempty" validate:"gte=0"`
}

// ScheduleRequest is the body of POST /v1/itineraries:schedule.
type ScheduleRequest struct {
	Legs    []ScheduleLegInput `json:"legs" validate:"required,min=1,dive"`
	StartAt *time.Time         `json:"start_at,omitempty"`
}

// TimedLeg is a leg placed on the calendar.
type TimedLeg struct {
	Leg
	Departure    time.Time `json:"departure"`
	Arrival      time.Time `json:"arrival"`
	LayoverHours float64   `json:"layover_hours"`
	Overnight    bool      `json:"overnight,omitempty"`
}

// ScheduleResponse is a timed itinerary.
type ScheduleResponse struct {
	ID                string     `json:"id"`
	Legs              []TimedLeg `json:"legs"`
	TotalTravelHours  float64    `json:"total_travel_hours"`
	TotalLayoverHours float64    `json:"total_layover_hours"`
	TotalTripHours    float64    `json:"total_trip_hours"`
	ElapsedHours      float64    `json:"elapsed_hours"`
	FirstDeparture    time.Time  `json:"first_departure"`
	LastArrival       time.Time  `json:"last_arrival"`
	OvernightStops    int        `json:"overnight_stops"`
}

// TimedLegInput is a scheduled leg to monitor.
type TimedLegInput struct {
	Origin      string    `json:"origin" validate:"required"`
	Destination string    `json:"destination" validate:"required"`
	Mode        string    `json:"mode" validate:"required"`
	Departure   time.Time `json:"departure" validate:"required"`
	Arrival     time.Time `json:"arrival" validate:"required,gtefield=Departure"`
}

// MonitorRequest is the body of POST /v1/itineraries:monitor.
type MonitorRequest struct {
	ItineraryID         string          `json:"itinerary_id,omitempty"`
	Legs                []TimedLegInput `json:"legs" validate:"required,min=1,dive"`
	PollIntervalSeconds int             `json:"poll_interval_seconds,omitempty" validate:"gte=0"`
}

// LegStatus is the monitoring outcome for one leg.
type LegStatus struct {
	Leg                int                         `json:"leg"`
	Origin             string                      `json:"origin"`
	Destination        string                      `json:"destination"`
	Mode               string                      `json:"mode"`
	Departure          time.Time                   `json:"departure"`
	Condition          conditions.Snapshot         `json:"current_conditions"`
	Severity           string                      `json:"severity"`
	Recommendations    []monitoring.Recommendation `json:"recommendations,omitempty"`
	SuggestedDeparture *time.Time                  `json:"suggested_departure,omitempty"`
}

// MonitorResponse is one monitoring pass over an itinerary.
type MonitorResponse struct {
	ItineraryID     string             `json:"itinerary_id"`
	Status          string             `json:"overall_status"`
	MaxDelayMinutes int                `json:"max_delay_minutes"`
	Legs            []LegStatus        `json:"legs"`
	Alerts          []monitoring.Alert `json:"alerts"`
	CheckedAt       time.Time          `json:"checked_at"`
	NextCheckAt     time.Time          `json:"next_check_at"`
	DegradedLegs    []int              `json:"degraded_legs,omitempty"`
}

// AlternativesRequest is the body of POST /v1/itineraries:alternatives.
type AlternativesRequest struct {
	Legs              []LegInput            `json:"legs" validate:"required,min=1,dive"`
	Conditions        []conditions.Snapshot `json:"current_conditions,omitempty"`
	IncludeConditions bool                  `json:"include_conditions,omitempty"`
}

// AdjustedLeg is a leg with current conditions applied.
type AdjustedLeg struct {
	Leg
	AdjustedCost          float64 `json:"adjusted_cost"`
	AdjustedDurationHours float64 `json:"adjusted_duration_hours"`
	AdjustedCarbonKg      float64 `json:"adjusted_carbon_kg"`
	DelayMinutes          int     `json:"delay_minutes"`
	Impact                string  `json:"real_time_impact"`
}

// LegAlternatives lists the other ways to travel one leg.
type LegAlternatives struct {
	LegNumber    int           `json:"leg_number"`
	Current      AdjustedLeg   `json:"current"`
	Alternatives []AdjustedLeg `json:"alternatives"`
}

// Recommendation suggests a change to the route.
type Recommendation struct {
	Type          string  `json:"type"`
	Leg           int     `json:"leg,omitempty"`
	Suggestion    string  `json:"suggestion"`
	Savings       float64 `json:"savings"`
	TradeOffHours float64 `json:"time_trade_off_hours"`
	Priority      string  `json:"priority,omitempty"`
}

// AlternativesResponse lists alternatives and recommendations for a route.
type AlternativesResponse struct {
	ID                 string            `json:"id"`
	ConditionsIncluded bool              `json:"real_time_conditions_included"`
	Legs               []LegAlternatives `json:"alternatives"`
	Recommendations    []Recommendation  `json:"recommendations"`
	Warnings           []Warning         `json:"warnings,omitempty"`
}
