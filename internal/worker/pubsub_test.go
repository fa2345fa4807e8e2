package worker_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera/itinera/internal/transport"
	"github.com/itinera/itinera/internal/worker"
)

const monitorMsg = `{
	"job_type": "monitor_itinerary",
	"itinerary_id": "trip-7",
	"legs": [
		{"origin": "boston", "destination": "new york", "mode": "bus",
		 "departure": "2025-08-01T09:00:00Z", "arrival": "2025-08-01T13:00:00Z"},
		{"origin": "new york", "destination": "chicago", "mode": "car_rental",
		 "departure": "2025-08-01T15:30:00Z", "arrival": "2025-08-02T07:00:00Z"}
	]
}`

func TestDispatcher_MonitorAndStop(t *testing.T) {
	job := newJob(t, 0, &recordingPublisher{}, nil)
	d := worker.NewDispatcher(job, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, []byte(monitorMsg)))

	w, ok := job.Watches().Get("trip-7")
	require.True(t, ok)
	require.Len(t, w.Legs, 2)
	assert.Equal(t, transport.ModeCar, w.Legs[1].Leg.Mode)
	assert.InDelta(t, 2.5, w.Legs[0].LayoverHours, 1e-9)
	assert.Zero(t, w.Legs[1].LayoverHours)

	require.NoError(t, d.Dispatch(ctx, []byte(`{"job_type":"health_check"}`)))

	require.NoError(t, d.Dispatch(ctx, []byte(`{"job_type":"stop_monitoring","itinerary_id":"trip-7"}`)))
	assert.Zero(t, job.Watches().Len())

	// Stopping an unknown itinerary is not an error.
	assert.NoError(t, d.Dispatch(ctx, []byte(`{"job_type":"stop_monitoring","itinerary_id":"trip-7"}`)))
}

func TestDispatcher_InvalidMessages(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{`},
		{name: "unknown job", data: `{"job_type":"provider_refresh"}`},
		{name: "missing itinerary id", data: `{"job_type":"stop_monitoring"}`},
		{name: "no legs", data: `{"job_type":"monitor_itinerary","itinerary_id":"x"}`},
		{name: "unknown mode", data: `{"job_type":"monitor_itinerary","itinerary_id":"x","legs":[
			{"origin":"a","destination":"b","mode":"zeppelin",
			 "departure":"2025-08-01T09:00:00Z","arrival":"2025-08-01T10:00:00Z"}]}`},
		{name: "arrival before departure", data: `{"job_type":"monitor_itinerary","itinerary_id":"x","legs":[
			{"origin":"a","destination":"b","mode":"bus",
			 "departure":"2025-08-01T09:00:00Z","arrival":"2025-08-01T08:00:00Z"}]}`},
	}

	job := newJob(t, 0, &recordingPublisher{}, nil)
	d := worker.NewDispatcher(job, zerolog.Nop())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Dispatch(context.Background(), []byte(tt.data))
			assert.ErrorIs(t, err, worker.ErrInvalidMessage)
		})
	}
	assert.Zero(t, job.Watches().Len())
}
