package transport

import "math"

// LegOption is the evaluated cost, duration and carbon of travelling one leg
// with one mode.
type LegOption struct {
	Origin        string
	Destination   string
	Mode          Mode
	DistanceKm    float64
	Cost          float64
	DurationHours float64
	CarbonKg      float64
	Date          string
}

// DefaultSetupHours is the overhead assumed for a mode outside the catalog.
const DefaultSetupHours = 1.0

// SetupHours returns the fixed overhead of the leg's mode.
func (l LegOption) SetupHours() float64 {
	p, ok := Lookup(l.Mode)
	if !ok {
		return DefaultSetupHours
	}
	return p.SetupHours
}

// Evaluate computes the metrics for travelling km kilometres with profile p.
// Duration includes the mode's setup overhead. Metrics are rounded to two
// decimals.
func Evaluate(p Profile, origin, destination string, km float64, date string) LegOption {
	return LegOption{
		Origin:        origin,
		Destination:   destination,
		Mode:          p.Mode,
		DistanceKm:    km,
		Cost:          Round2(km * p.CostPerKm),
		DurationHours: Round2(km/p.AvgSpeedKmh + p.SetupHours),
		CarbonKg:      Round2(km * p.CarbonPerKm),
		Date:          date,
	}
}

// EvaluateMode is Evaluate for a mode name.
func EvaluateMode(m Mode, origin, destination string, km float64, date string) (LegOption, error) {
	p, ok := Lookup(m)
	if !ok {
		return LegOption{}, ErrUnknownMode
	}
	return Evaluate(p, origin, destination, km, date), nil
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
