package geo

import (
	"github.com/golang/geo/s2"
	"github.com/rs/zerolog"
)

const (
	// EarthRadiusKm is the mean earth radius used for great-circle distances.
	EarthRadiusKm = 6371.0

	// DefaultFallbackKm is returned when either endpoint cannot be resolved.
	DefaultFallbackKm = 500.0
)

// CalculatorConfig holds configuration for the distance calculator.
type CalculatorConfig struct {
	// Lookup resolves place names. Defaults to DefaultGazetteer().
	Lookup Lookup

	// FallbackKm is the distance reported for unresolved pairs (default: 500).
	FallbackKm float64

	Logger zerolog.Logger
}

// Calculator computes great-circle distances between named places.
type Calculator struct {
	lookup     Lookup
	fallbackKm float64
	logger     zerolog.Logger
}

// Distance is the result of a distance query. When Resolved is false, Km
// holds the fallback constant and Unresolved names the missing places.
type Distance struct {
	Km         float64
	Resolved   bool
	Unresolved []string
}

// NewCalculator creates a new distance calculator.
func NewCalculator(cfg CalculatorConfig) *Calculator {
	lookup := cfg.Lookup
	if lookup == nil {
		lookup = DefaultGazetteer()
	}

	fallback := cfg.FallbackKm
	if fallback == 0 {
		fallback = DefaultFallbackKm
	}

	return &Calculator{
		lookup:     lookup,
		fallbackKm: fallback,
		logger:     cfg.Logger,
	}
}

// Distance returns the great-circle distance in kilometres between two named
// places. It never fails: unknown names yield the fallback distance.
func (c *Calculator) Distance(origin, destination string) Distance {
	from, okFrom := c.lookup.Lookup(origin)
	to, okTo := c.lookup.Lookup(destination)

	if okFrom && okTo {
		return Distance{Km: Haversine(from, to), Resolved: true}
	}

	var unresolved []string
	if !okFrom {
		unresolved = append(unresolved, origin)
	}
	if !okTo {
		unresolved = append(unresolved, destination)
	}

	c.logger.Debug().
		Str("origin", origin).
		Str("destination", destination).
		Strs("unresolved", unresolved).
		Float64("fallback_km", c.fallbackKm).
		Msg("using fallback distance for unresolved location")

	return Distance{Km: c.fallbackKm, Unresolved: unresolved}
}

// Locate resolves a single place name.
func (c *Calculator) Locate(name string) (Location, bool) {
	return c.lookup.Lookup(name)
}

// Haversine returns the great-circle distance between two locations in km.
func Haversine(a, b Location) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return angle.Radians() * EarthRadiusKm
}
