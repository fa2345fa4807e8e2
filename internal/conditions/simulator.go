package conditions

import (
	"context"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/itinera/itinera/internal/geo"
	"github.com/itinera/itinera/internal/transport"
)

// Source produces a fresh snapshot for a leg. Implementations set the
// impact fields; the service stamps CreatedAt and ExpiresAt.
type Source interface {
	Fetch(ctx context.Context, req Request) (Snapshot, error)
	Name() string
}

// DistanceSource measures the distance between two named places.
type DistanceSource interface {
	Distance(origin, destination string) geo.Distance
}

// RandomSource supplies the randomness behind simulated conditions.
type RandomSource interface {
	Float64() float64
	IntN(n int) int
}

// globalRandom uses the goroutine-safe top-level math/rand/v2 functions.
type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) IntN(n int) int   { return rand.IntN(n) }

// DefaultPeakHours are the local clock hours with rush-hour congestion.
var DefaultPeakHours = []int{7, 8, 17, 18, 19}

// simulatedWeather are the states the simulator draws from.
var simulatedWeather = []Weather{WeatherClear, WeatherRain, WeatherSnow}

const (
	// heavyChance is the probability that peak traffic escalates to heavy.
	heavyChance = 0.3

	// longHaulKm is the distance above which congestion grows by longHaulFactor.
	longHaulKm     = 200.0
	longHaulFactor = 1.1
)

// SimulatorConfig holds configuration for the condition simulator.
type SimulatorConfig struct {
	Distances DistanceSource
	Random    RandomSource
	Clock     func() time.Time
	PeakHours []int
}

// Simulator synthesises plausible traffic and weather conditions. It stands
// in for a real traffic provider.
type Simulator struct {
	distances DistanceSource
	random    RandomSource
	clock     func() time.Time
	peakHours []int
}

// NewSimulator creates a new simulator.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.Distances == nil {
		cfg.Distances = geo.NewCalculator(geo.CalculatorConfig{})
	}
	if cfg.Random == nil {
		cfg.Random = globalRandom{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.PeakHours == nil {
		cfg.PeakHours = DefaultPeakHours
	}

	return &Simulator{
		distances: cfg.Distances,
		random:    cfg.Random,
		clock:     cfg.Clock,
		peakHours: cfg.PeakHours,
	}
}

// Name returns the source name.
func (s *Simulator) Name() string {
	return "simulator"
}

// Fetch synthesises a snapshot. Peak hours are moderate, with a chance of
// heavy; off-peak is normal. Long legs add ten percent congestion and
// non-clear weather scales the delay further.
func (s *Simulator) Fetch(ctx context.Context, req Request) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	profile, ok := transport.Lookup(req.Mode)
	if !ok {
		return Snapshot{}, transport.ErrUnknownMode
	}

	km := s.distances.Distance(req.Origin, req.Destination).Km

	label := string(CongestionNormal)
	multiplier := CongestionNormal.Multiplier()
	if slices.Contains(s.peakHours, s.clock().Hour()) {
		level := CongestionModerate
		if s.random.Float64() < heavyChance {
			level = CongestionHeavy
		}
		label, multiplier = string(level), level.Multiplier()
	}

	if km > longHaulKm {
		multiplier *= longHaulFactor
	}

	baseHours := km / profile.AvgSpeedKmh
	delay := max(0, int((multiplier-1.0)*baseHours*60))

	weather := simulatedWeather[s.random.IntN(len(simulatedWeather))]
	if weather != WeatherClear {
		delay = int(float64(delay) * weather.Factor())
		label += "_" + string(weather)
	}

	return Snapshot{
		Origin:               req.Origin,
		Destination:          req.Destination,
		Mode:                 req.Mode,
		Conditions:           label,
		Weather:              weather,
		DelayMinutes:         delay,
		CongestionMultiplier: multiplier,
		DistanceKm:           km,
	}, nil
}
