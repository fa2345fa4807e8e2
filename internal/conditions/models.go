// Package conditions provides live traffic and weather impact for legs.
//
// Snapshots come from a Source (the built-in Simulator by default), are
// cached per origin, destination and mode in a Store, and are folded into leg
// metrics by Adjust.
package conditions

import (
	"errors"
	"fmt"
	"time"

	"github.com/itinera/itinera/internal/geo"
	"github.com/itinera/itinera/internal/transport"
)

// Condition errors.
var (
	// ErrSourceUnavailable is returned by sources that cannot produce a snapshot.
	ErrSourceUnavailable = errors.New("condition source unavailable")
)

// Congestion is a traffic congestion level.
type Congestion string

const (
	CongestionNormal   Congestion = "normal"
	CongestionLight    Congestion = "light"
	CongestionModerate Congestion = "moderate"
	CongestionHeavy    Congestion = "heavy"
	CongestionSevere   Congestion = "severe"
)

// Multiplier returns the travel time multiplier for the congestion level.
func (c Congestion) Multiplier() float64 {
	switch c {
	case CongestionLight:
		return 1.1
	case CongestionModerate:
		return 1.3
	case CongestionHeavy:
		return 1.8
	case CongestionSevere:
		return 2.5
	default:
		return 1.0
	}
}

// Weather is a coarse weather state.
type Weather string

const (
	WeatherClear Weather = "clear"
	WeatherRain  Weather = "rain"
	WeatherSnow  Weather = "snow"
	WeatherStorm Weather = "storm"
)

// Factor returns the delay scaling for the weather state.
func (w Weather) Factor() float64 {
	switch w {
	case WeatherRain:
		return 1.2
	case WeatherSnow:
		return 1.5
	case WeatherStorm:
		return 2.0
	default:
		return 1.0
	}
}

// Condition labels that are not a congestion level.
const (
	LabelNotApplicable = "not_applicable"
	LabelNormal        = "normal"
)

// Request identifies the leg whose conditions are wanted.
type Request struct {
	Origin      string
	Destination string
	Mode        transport.Mode
}

// Key returns the cache key for the request: origin_destination_mode.
func (r Request) Key() string {
	return fmt.Sprintf("%s_%s_%s", geo.Normalize(r.Origin), geo.Normalize(r.Destination), r.Mode)
}

// Snapshot is a time-boxed traffic and weather impact for one leg and mode.
type Snapshot struct {
	Origin               string         `json:"origin"`
	Destination          string         `json:"destination"`
	Mode                 transport.Mode `json:"mode"`
	Conditions           string         `json:"conditions"`
	Weather              Weather        `json:"weather,omitempty"`
	DelayMinutes         int            `json:"delay_minutes"`
	CongestionMultiplier float64        `json:"congestion_multiplier"`
	DistanceKm           float64        `json:"distance_km"`
	CreatedAt            time.Time      `json:"created_at"`
	ExpiresAt            time.Time      `json:"expires_at"`

	// Degraded is true when the source failed and the snapshot is the
	// zero-delay default.
	Degraded bool `json:"degraded,omitempty"`
}

// Expired reports whether the snapshot is no longer valid at now.
func (s Snapshot) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// notApplicable is the zero-impact snapshot for modes unaffected by traffic.
func notApplicable(req Request, now time.Time) Snapshot {
	return Snapshot{
		Origin:               req.Origin,
		Destination:          req.Destination,
		Mode:                 req.Mode,
		Conditions:           LabelNotApplicable,
		CongestionMultiplier: 1.0,
		CreatedAt:            now,
		ExpiresAt:            now,
	}
}

// degraded is the zero-delay snapshot used when the source fails.
func degraded(req Request, now time.Time) Snapshot {
	return Snapshot{
		Origin:               req.Origin,
		Destination:          req.Destination,
		Mode:                 req.Mode,
		Conditions:           LabelNormal,
		CongestionMultiplier: 1.0,
		CreatedAt:            now,
		ExpiresAt:            now,
		Degraded:             true,
	}
}
