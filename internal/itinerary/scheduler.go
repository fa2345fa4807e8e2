package itinerary

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/itinera/itinera/internal/transport"
)

// ScheduleConfig holds configuration for the itinerary scheduler.
type ScheduleConfig struct {
	MinLayoverHours     float64 // default: 2
	MaxDailyTravelHours float64 // default: 12
	DepartureTime       string  // HH:MM, default: 09:00

	Location *time.Location // default: UTC
	Clock    func() time.Time
	Logger   zerolog.Logger
}

// DefaultScheduleConfig returns the stock scheduling limits.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		MinLayoverHours:     2,
		MaxDailyTravelHours: 12,
		DepartureTime:       "09:00",
	}
}

// Scheduler places legs on the calendar.
type Scheduler struct {
	minLayover time.Duration
	maxDaily   time.Duration
	departHour int
	departMin  int
	location   *time.Location
	clock      func() time.Time
	logger     zerolog.Logger
}

// ScheduleLeg is a leg to schedule plus an optional leg-specific layover.
type ScheduleLeg struct {
	transport.LegOption

	// LayoverHours requests a wait after this leg. The scheduler never
	// waits less than its configured minimum.
	LayoverHours float64
}

// ScheduleRequest is an ordered list of legs to time.
type ScheduleRequest struct {
	Legs []ScheduleLeg

	// StartAt overrides the first departure. Zero means the first leg's date
	// at the preferred departure time, or today when the leg has no date.
	StartAt time.Time
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg ScheduleConfig) (*Scheduler, error) {
	defaults := DefaultScheduleConfig()
	if cfg.MinLayoverHours <= 0 {
		cfg.MinLayoverHours = defaults.MinLayoverHours
	}
	if cfg.MaxDailyTravelHours <= 0 {
		cfg.MaxDailyTravelHours = defaults.MaxDailyTravelHours
	}
	if cfg.DepartureTime == "" {
		cfg.DepartureTime = defaults.DepartureTime
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	t, err := time.Parse("15:04", cfg.DepartureTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDepartureTime, cfg.DepartureTime)
	}

	return &Scheduler{
		minLayover: hours(cfg.MinLayoverHours),
		maxDaily:   hours(cfg.MaxDailyTravelHours),
		departHour: t.Hour(),
		departMin:  t.Minute(),
		location:   cfg.Location,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}, nil
}

// Schedule times each leg in order. A leg departs after the previous
// arrival plus the larger of the minimum and the requested layover. When a
// leg would take the day's travel past the daily limit it moves to the next
// day's preferred departure time. A single leg longer than the limit still
// runs on its own day.
func (s *Scheduler) Schedule(req ScheduleRequest) (*Schedule, error) {
	if len(req.Legs) == 0 {
		return nil, ErrNoLegs
	}
	for i, leg := range req.Legs {
		if _, ok := transport.Lookup(leg.Mode); !ok {
			return nil, fmt.Errorf("leg %d: %w: %q", i, transport.ErrUnknownMode, leg.Mode)
		}
	}

	departure, err := s.firstDeparture(req)
	if err != nil {
		return nil, err
	}

	sched := &Schedule{Legs: make([]TimedLeg, 0, len(req.Legs))}
	var dayTravel time.Duration
	day := dateOf(departure)

	for i, leg := range req.Legs {
		travel := hours(leg.DurationHours + leg.SetupHours())

		overnight := false
		if i > 0 {
			if !dateOf(departure).Equal(day) {
				day, dayTravel = dateOf(departure), 0
			}
			if dayTravel > 0 && dayTravel+travel > s.maxDaily {
				next := s.preferredOn(day.AddDate(0, 0, 1))
				if next.After(departure) {
					departure = next
				}
				day, dayTravel = dateOf(departure), 0
				overnight = true
				sched.OvernightStops++
			}

			prev := &sched.Legs[i-1]
			prev.LayoverHours = transport.Round2(departure.Sub(prev.Arrival).Hours())
			sched.TotalLayoverHours += prev.LayoverHours
		}

		arrival := departure.Add(travel)
		sched.Legs = append(sched.Legs, TimedLeg{
			Leg:       leg.LegOption,
			Departure: departure,
			Arrival:   arrival,
			Overnight: overnight,
		})
		sched.TotalTravelHours += leg.DurationHours
		dayTravel += travel

		departure = arrival.Add(max(s.minLayover, hours(leg.LayoverHours)))
	}

	sched.FirstDeparture = sched.Legs[0].Departure
	sched.LastArrival = sched.Legs[len(sched.Legs)-1].Arrival
	sched.TotalTravelHours = transport.Round2(sched.TotalTravelHours)
	sched.TotalLayoverHours = transport.Round2(sched.TotalLayoverHours)
	sched.TotalTripHours = transport.Round2(sched.TotalTravelHours + sched.TotalLayoverHours)
	sched.ElapsedHours = transport.Round2(sched.LastArrival.Sub(sched.FirstDeparture).Hours())

	s.logger.Debug().
		Int("legs", len(sched.Legs)).
		Int("overnight_stops", sched.OvernightStops).
		Float64("trip_hours", sched.TotalTripHours).
		Msg("itinerary scheduled")

	return sched, nil
}

func (s *Scheduler) firstDeparture(req ScheduleRequest) (time.Time, error) {
	if !req.StartAt.IsZero() {
		return req.StartAt.In(s.location), nil
	}

	date := req.Legs[0].Date
	if date == "" {
		return s.preferredOn(s.clock().In(s.location)), nil
	}

	d, err := time.ParseInLocation(time.DateOnly, date, s.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return s.preferredOn(d), nil
}

// preferredOn returns the preferred departure time on the given day.
func (s *Scheduler) preferredOn(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, s.departHour, s.departMin, 0, 0, s.location)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
