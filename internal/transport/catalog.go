// Package transport describes the available travel modes and evaluates the
// cost, duration and carbon of a single leg.
package transport

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownMode is returned when a mode name is not in the catalog.
var ErrUnknownMode = errors.New("unknown transport mode")

// Mode is a travel mode offered by the catalog.
type Mode string

const (
	ModeFlight Mode = "flight"
	ModeTrain  Mode = "train"
	ModeBus    Mode = "bus"
	ModeCar    Mode = "car"
)

// DistanceRange is an open interval (MinKm, MaxKm) of distances for which a
// mode is offered.
type DistanceRange struct {
	MinKm float64
	MaxKm float64
}

// Contains reports whether km lies strictly inside the range.
func (r DistanceRange) Contains(km float64) bool {
	return km > r.MinKm && km < r.MaxKm
}

// Profile holds the fixed characteristics of a mode.
type Profile struct {
	Mode             Mode
	AvgSpeedKmh      float64
	CostPerKm        float64
	CarbonPerKm      float64
	SetupHours       float64
	TrafficSensitive bool
	Range            DistanceRange
}

// Viable reports whether the mode is offered for a leg of the given length.
func (p Profile) Viable(km float64) bool {
	return p.Range.Contains(km)
}

// catalogOrder is the iteration order of the catalog. Ties between modes
// resolve to the earlier entry.
var catalogOrder = []Mode{ModeFlight, ModeTrain, ModeBus, ModeCar}

var catalog = map[Mode]Profile{
	ModeFlight: {
		Mode:        ModeFlight,
		AvgSpeedKmh: 800,
		CostPerKm:   0.15,
		CarbonPerKm: 0.255,
		SetupHours:  3,
		Range:       DistanceRange{MinKm: 100, MaxKm: math.Inf(1)},
	},
	ModeTrain: {
		Mode:        ModeTrain,
		AvgSpeedKmh: 120,
		CostPerKm:   0.08,
		CarbonPerKm: 0.041,
		SetupHours:  1,
		Range:       DistanceRange{MinKm: 50, MaxKm: 1000},
	},
	ModeBus: {
		Mode:             ModeBus,
		AvgSpeedKmh:      80,
		CostPerKm:        0.05,
		CarbonPerKm:      0.089,
		SetupHours:       0.5,
		TrafficSensitive: true,
		Range:            DistanceRange{MinKm: math.Inf(-1), MaxKm: 800},
	},
	ModeCar: {
		Mode:             ModeCar,
		AvgSpeedKmh:      90,
		CostPerKm:        0.12,
		CarbonPerKm:      0.171,
		SetupHours:       0.5,
		TrafficSensitive: true,
		Range:            DistanceRange{MinKm: math.Inf(-1), MaxKm: 1200},
	},
}

// Modes returns every catalog mode in catalog order.
func Modes() []Mode {
	out := make([]Mode, len(catalogOrder))
	copy(out, catalogOrder)
	return out
}

// Lookup returns the profile for a mode.
func Lookup(m Mode) (Profile, bool) {
	p, ok := catalog[m]
	return p, ok
}

// MustLookup returns the profile for a mode and panics on unknown modes.
func MustLookup(m Mode) Profile {
	p, ok := catalog[m]
	if !ok {
		panic(fmt.Sprintf("transport: no profile for mode %q", m))
	}
	return p
}

// ParseMode converts a mode name to a Mode. "car_rental" is accepted as an
// alias of car.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "car_rental" {
		return ModeCar, nil
	}
	m := Mode(name)
	if _, ok := catalog[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// ParseModes converts a list of mode names, rejecting unknown entries.
func ParseModes(names []string) ([]Mode, error) {
	modes := make([]Mode, 0, len(names))
	for _, n := range names {
		m, err := ParseMode(n)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}
