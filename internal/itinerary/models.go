// Package itinerary searches, ranks and schedules multi-leg trips.
package itinerary

import (
	"errors"
	"time"

	"github.com/itinera/itinera/internal/transport"
)

// Itinerary errors.
var (
	// ErrEmptyRouteRequest is returned when neither a start nor any city was given.
	ErrEmptyRouteRequest = errors.New("route request has no cities")
	// ErrNoLegs is returned when scheduling an empty leg list.
	ErrNoLegs = errors.New("itinerary has no legs")
	// ErrInvalidDate is returned for leg dates that are not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid leg date")
	// ErrInvalidDepartureTime is returned for departure times that are not HH:MM.
	ErrInvalidDepartureTime = errors.New("invalid departure time")
)

// Regime identifies how a search explored the stop orderings.
type Regime string

const (
	// RegimeExact enumerates every ordering of the intermediate stops.
	RegimeExact Regime = "exact"
	// RegimeHeuristic builds a single nearest-neighbour tour.
	RegimeHeuristic Regime = "heuristic"
)

// MaxExactStops is the largest number of intermediate stops searched
// exhaustively. 8! orderings keeps a search well under a second.
const MaxExactStops = 8

// Metrics are the aggregate cost, duration and carbon of a trip or option.
type Metrics struct {
	Cost          float64
	DurationHours float64
	CarbonKg      float64
}

// Route is an ordered chain of legs from the start through every stop.
// Legs[i].Destination always equals Legs[i+1].Origin.
type Route struct {
	ID              string
	Stops           []string
	Legs            []transport.LegOption
	TotalCost       float64
	TotalDuration   float64
	TotalCarbonKg   float64
	EfficiencyScore float64
}

// Metrics returns the route aggregates.
func (r Route) Metrics() Metrics {
	return Metrics{Cost: r.TotalCost, DurationHours: r.TotalDuration, CarbonKg: r.TotalCarbonKg}
}

// LegRef names an origin/destination pair.
type LegRef struct {
	Origin      string
	Destination string
}

// TimedLeg is a leg placed on the calendar.
type TimedLeg struct {
	Leg       transport.LegOption
	Departure time.Time
	Arrival   time.Time

	// LayoverHours is the wait between this leg's arrival and the next
	// leg's departure. Zero for the final leg.
	LayoverHours float64

	// Overnight is true when the daily travel limit pushed this leg to a
	// later day.
	Overnight bool
}

// Schedule is a timed itinerary with its aggregates.
type Schedule struct {
	Legs              []TimedLeg
	TotalTravelHours  float64
	TotalLayoverHours float64
	TotalTripHours    float64
	ElapsedHours      float64
	FirstDeparture    time.Time
	LastArrival       time.Time
	OvernightStops    int
}
