// Package worker runs the background itinerary monitor: it keeps a watch
// list fed from Pub/Sub and publishes delay alerts.
package worker

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/itinera/itinera/internal/itinerary"
	"github.com/itinera/itinera/internal/monitoring"
	"github.com/itinera/itinera/internal/transport"
)

// Job types carried in the job_type field of worker messages.
const (
	JobMonitorItinerary = "monitor_itinerary"
	JobStopMonitoring   = "stop_monitoring"
	JobHealthCheck      = "health_check"
)

// ErrInvalidMessage marks messages that can never be processed.
var ErrInvalidMessage = errors.New("worker: invalid message")

// JobMessage is the envelope received on the monitor subscription.
type JobMessage struct {
	JobType     string       `json:"job_type" validate:"required,oneof=monitor_itinerary stop_monitoring health_check"`
	ItineraryID string       `json:"itinerary_id" validate:"required_unless=JobType health_check"`
	Legs        []WatchedLeg `json:"legs,omitempty" validate:"required_if=JobType monitor_itinerary,dive"`
}

// WatchedLeg is one scheduled leg of a monitored itinerary.
type WatchedLeg struct {
	Origin      string    `json:"origin" validate:"required"`
	Destination string    `json:"destination" validate:"required"`
	Mode        string    `json:"mode" validate:"required"`
	Departure   time.Time `json:"departure" validate:"required"`
	Arrival     time.Time `json:"arrival" validate:"required,gtefield=Departure"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the message shape.
func (m JobMessage) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return nil
}

// Watch converts a monitor_itinerary message into a watch list entry.
func (m JobMessage) Watch() (monitoring.Watch, error) {
	legs := make([]itinerary.TimedLeg, len(m.Legs))
	for i, l := range m.Legs {
		mode, err := transport.ParseMode(l.Mode)
		if err != nil {
			return monitoring.Watch{}, fmt.Errorf("%w: leg %d: %w", ErrInvalidMessage, i+1, err)
		}
		legs[i] = itinerary.TimedLeg{
			Leg: transport.LegOption{
				Origin:      l.Origin,
				Destination: l.Destination,
				Mode:        mode,
			},
			Departure: l.Departure,
			Arrival:   l.Arrival,
		}
		if i > 0 {
			legs[i-1].LayoverHours = l.Departure.Sub(legs[i-1].Arrival).Hours()
		}
	}
	return monitoring.Watch{ID: m.ItineraryID, Legs: legs}, nil
}

// MonitorJobConfig holds configuration for creating a MonitorJob.
type MonitorJobConfig struct {
	// Monitor grades watched itineraries. Required.
	Monitor *monitoring.Service

	// Watches is the list swept on every poll (default: a new Watchlist).
	Watches *monitoring.Watchlist

	// Publisher receives alerts (default: a LogPublisher).
	Publisher monitoring.Publisher

	// Gate can mute alert publishing at runtime. Optional.
	Gate AlertGate

	// PublishTimeout bounds a single alert publish (default: 10 seconds).
	PublishTimeout time.Duration
}

const defaultPublishTimeout = 10 * time.Second
