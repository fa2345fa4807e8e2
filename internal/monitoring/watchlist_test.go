package monitoring_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera/itinera/internal/monitoring"
)

func TestWatchlist(t *testing.T) {
	list := monitoring.NewWatchlist()

	assert.ErrorIs(t, list.Add(monitoring.Watch{ID: "empty"}), monitoring.ErrNoLegs)

	w := threeLegWatch()
	require.NoError(t, list.Add(w))
	w2 := threeLegWatch()
	w2.ID = "a-trip"
	require.NoError(t, list.Add(w2))

	assert.Equal(t, 2, list.Len())
	active := list.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "a-trip", active[0].ID)
	assert.Equal(t, "trip-1", active[1].ID)

	got, ok := list.Get("trip-1")
	assert.True(t, ok)
	assert.Len(t, got.Legs, 3)

	assert.True(t, list.Remove("trip-1"))
	assert.False(t, list.Remove("trip-1"))
	assert.Equal(t, 1, list.Len())
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	pub := monitoring.LogPublisher{Logger: zerolog.New(&buf)}

	err := pub.Publish(context.Background(), monitoring.Alert{
		ID:           "al-1",
		ItineraryID:  "trip-1",
		DelayMinutes: 50,
		Severity:     monitoring.SeverityHigh,
		Message:      "bus leg delayed",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"itinerary_id":"trip-1"`)
	assert.Contains(t, out, `"delay_minutes":50`)
	assert.Contains(t, out, `"message":"bus leg delayed"`)
}
