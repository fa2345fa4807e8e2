// Package monitoring re-evaluates scheduled itineraries against live
// conditions and raises delay alerts.
package monitoring

import (
	"errors"
	"time"

	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/itinerary"
)

// ErrNoLegs is returned when monitoring an itinerary without legs.
var ErrNoLegs = errors.New("itinerary has no legs to monitor")

// Severity grades the impact of a leg delay.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Status summarises the whole itinerary.
type Status string

const (
	StatusOnSchedule  Status = "on_schedule"
	StatusMinorDelays Status = "minor_delays"
	StatusMajorDelays Status = "major_delays"
)

// Action is a recommended response to a delay.
type Action string

const (
	ActionEarlierDeparture     Action = "earlier_departure"
	ActionConsiderAlternatives Action = "consider_alternatives"
	ActionAlternativeRouting   Action = "alternative_routing"
	ActionCheckConnections     Action = "check_connections"
)

// Recommendation is a suggested response to a leg delay.
type Recommendation struct {
	Action  Action `json:"action"`
	Message string `json:"message"`

	// ShiftMinutes is how much earlier to leave, for earlier_departure.
	ShiftMinutes int `json:"shift_minutes,omitempty"`
}

// LegReport is the monitoring outcome for one leg.
type LegReport struct {
	Index           int
	Leg             itinerary.TimedLeg
	Condition       conditions.Snapshot
	Severity        Severity
	Recommendations []Recommendation

	// SuggestedDeparture is the departure shifted by the recommended amount.
	// Zero when no shift is recommended.
	SuggestedDeparture time.Time
}

// Alert is raised for a leg delayed by more than AlertThresholdMinutes.
type Alert struct {
	ID           string    `json:"id"`
	ItineraryID  string    `json:"itinerary_id"`
	LegIndex     int       `json:"leg_index"`
	Origin       string    `json:"origin"`
	Destination  string    `json:"destination"`
	Mode         string    `json:"mode"`
	DelayMinutes int       `json:"delay_minutes"`
	Severity     Severity  `json:"severity"`
	Conditions   string    `json:"conditions"`
	Message      string    `json:"message"`
	RaisedAt     time.Time `json:"raised_at"`
}

// Report is a single monitoring pass over an itinerary.
type Report struct {
	ItineraryID     string
	Status          Status
	MaxDelayMinutes int
	Legs            []LegReport
	Alerts          []Alert
	CheckedAt       time.Time
	NextCheckAt     time.Time

	// DegradedLegs lists legs whose conditions could not be fetched.
	DegradedLegs []int
}

// Watch is an itinerary under continuous monitoring.
type Watch struct {
	ID   string
	Legs []itinerary.TimedLeg
}
