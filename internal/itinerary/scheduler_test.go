package itinerary_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera/itinera/internal/itinerary"
	"github.com/itinera/itinera/internal/transport"
)

func newScheduler(t *testing.T, cfg itinerary.ScheduleConfig) *itinerary.Scheduler {
	t.Helper()
	s, err := itinerary.NewScheduler(cfg)
	require.NoError(t, err)
	return s
}

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func assertTime(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}

func leg(mode transport.Mode, hours float64) itinerary.ScheduleLeg {
	return itinerary.ScheduleLeg{LegOption: transport.LegOption{
		Origin: "a", Destination: "b", Mode: mode, DurationHours: hours, Date: "2025-08-01",
	}}
}

func TestSchedule_DefaultsAndTotals(t *testing.T) {
	s := newScheduler(t, itinerary.ScheduleConfig{})

	sched, err := s.Schedule(itinerary.ScheduleRequest{Legs: []itinerary.ScheduleLeg{
		leg(transport.ModeTrain, 2), // + 1h setup
		leg(transport.ModeBus, 3),   // + 0.5h setup
	}})
	require.NoError(t, err)
	require.Len(t, sched.Legs, 2)

	assertTime(t, at("2025-08-01 09:00"), sched.Legs[0].Departure)
	assertTime(t, at("2025-08-01 12:00"), sched.Legs[0].Arrival)
	assert.Equal(t, 2.0, sched.Legs[0].LayoverHours)

	assertTime(t, at("2025-08-01 14:00"), sched.Legs[1].Departure)
	assertTime(t, at("2025-08-01 17:30"), sched.Legs[1].Arrival)
	assert.Zero(t, sched.Legs[1].LayoverHours)

	assert.Equal(t, 5.0, sched.TotalTravelHours)
	assert.Equal(t, 2.0, sched.TotalLayoverHours)
	assert.Equal(t, 7.0, sched.TotalTripHours)
	assert.Equal(t, 8.5, sched.ElapsedHours)
	assertTime(t, sched.Legs[0].Departure, sched.FirstDeparture)
	assertTime(t, sched.Legs[1].Arrival, sched.LastArrival)
	assert.Zero(t, sched.OvernightStops)
}

func TestSchedule_LegLayoverOverridesMinimumWhenLonger(t *testing.T) {
	s := newScheduler(t, itinerary.ScheduleConfig{})

	first := leg(transport.ModeTrain, 2)
	first.LayoverHours = 3
	short := leg(transport.ModeBus, 1)
	short.LayoverHours = 0.5

	sched, err := s.Schedule(itinerary.ScheduleRequest{Legs: []itinerary.ScheduleLeg{
		first, short, leg(transport.ModeBus, 1),
	}})
	require.NoError(t, err)

	assertTime(t, at("2025-08-01 15:00"), sched.Legs[1].Departure)
	// The half hour request is raised to the two hour minimum.
	assertTime(t, sched.Legs[1].Arrival.Add(2*time.Hour), sched.Legs[2].Departure)
}

func TestSchedule_DailyLimitPushesToNextDay(t *testing.T) {
	s := newScheduler(t, itinerary.ScheduleConfig{MinLayoverHours: 1})

	// Each flight takes 4.25h plus 3h setup.
	sched, err := s.Schedule(itinerary.ScheduleRequest{Legs: []itinerary.ScheduleLeg{
		leg(transport.ModeFlight, 4.25),
		leg(transport.ModeFlight, 4.25),
	}})
	require.NoError(t, err)

	assertTime(t, at("2025-08-01 16:15"), sched.Legs[0].Arrival)
	assertTime(t, at("2025-08-02 09:00"), sched.Legs[1].Departure)
	assert.True(t, sched.Legs[1].Overnight)
	assert.Equal(t, 16.75, sched.Legs[0].LayoverHours)
	assert.Equal(t, 1, sched.OvernightStops)
}

func TestSchedule_SingleLongLegStillRuns(t *testing.T) {
	s := newScheduler(t, itinerary.ScheduleConfig{})

	sched, err := s.Schedule(itinerary.ScheduleRequest{Legs: []itinerary.ScheduleLeg{
		leg(transport.ModeFlight, 18),
	}})
	require.NoError(t, err)

	assertTime(t, at("2025-08-01 09:00"), sched.FirstDeparture)
	assertTime(t, at("2025-08-02 06:00"), sched.LastArrival)
	assert.False(t, sched.Legs[0].Overnight)
}

func TestSchedule_StartAtAndClock(t *testing.T) {
	s := newScheduler(t, itinerary.ScheduleConfig{
		DepartureTime: "07:30",
		Clock:         func() time.Time { return at("2026-03-10 22:00") },
	})

	undated := leg(transport.ModeBus, 1)
	undated.Date = ""

	sched, err := s.Schedule(itinerary.ScheduleRequest{Legs: []itinerary.ScheduleLeg{undated}})
	require.NoError(t, err)
	assertTime(t, at("2026-03-10 07:30"), sched.FirstDeparture)

	sched, err = s.Schedule(itinerary.ScheduleRequest{
		Legs:    []itinerary.ScheduleLeg{undated},
		StartAt: at("2026-04-01 13:45"),
	})
	require.NoError(t, err)
	assertTime(t, at("2026-04-01 13:45"), sched.FirstDeparture)
}

func TestSchedule_Errors(t *testing.T) {
	s := newScheduler(t, itinerary.ScheduleConfig{})

	_, err := s.Schedule(itinerary.ScheduleRequest{})
	assert.ErrorIs(t, err, itinerary.ErrNoLegs)

	bad := leg(transport.ModeBus, 1)
	bad.Date = "01/08/2025"
	_, err = s.Schedule(itinerary.ScheduleRequest{Legs: []itinerary.ScheduleLeg{bad}})
	assert.ErrorIs(t, err, itinerary.ErrInvalidDate)

	_, err = itinerary.NewScheduler(itinerary.ScheduleConfig{DepartureTime: "9am"})
	assert.ErrorIs(t, err, itinerary.ErrInvalidDepartureTime)
}

func TestSchedule_UnknownMode(t *testing.T) {
	s := newScheduler(t, itinerary.ScheduleConfig{})

	tests := []struct {
		name string
		mode transport.Mode
	}{
		{"empty", ""},
		{"unknown", "hovercraft"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Schedule(itinerary.ScheduleRequest{Legs: []itinerary.ScheduleLeg{
				leg(transport.ModeTrain, 2),
				leg(tt.mode, 2),
			}})
			require.Error(t, err)
			assert.ErrorIs(t, err, transport.ErrUnknownMode)
			assert.Contains(t, err.Error(), "leg 1")
		})
	}
}
