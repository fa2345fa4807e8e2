package geo_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera/itinera/internal/geo"
)

func TestDefaultGazetteer(t *testing.T) {
	g := geo.DefaultGazetteer()

	assert.Equal(t, 15, g.Len())

	loc, ok := g.Lookup("San Francisco")
	require.True(t, ok)
	assert.Equal(t, "san francisco", loc.Name)
	assert.InDelta(t, 37.7749, loc.Lat, 1e-9)
	assert.InDelta(t, -122.4194, loc.Lon, 1e-9)

	_, ok = g.Lookup("gotham")
	assert.False(t, ok)
}

func TestGazetteer_Names(t *testing.T) {
	g, err := geo.NewGazetteer([]geo.Location{
		{Name: "Zurich", Lat: 47.37, Lon: 8.54},
		{Name: "Amsterdam", Lat: 52.37, Lon: 4.90},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"amsterdam", "zurich"}, g.Names())
}

func TestNewGazetteer_Errors(t *testing.T) {
	_, err := geo.NewGazetteer(nil)
	assert.ErrorIs(t, err, geo.ErrEmptyGazetteer)

	_, err = geo.NewGazetteer([]geo.Location{
		{Name: "Oslo", Lat: 59.91, Lon: 10.75},
		{Name: "oslo ", Lat: 59.91, Lon: 10.75},
	})
	assert.ErrorIs(t, err, geo.ErrDuplicateLocation)
}

func TestLoadGazetteer(t *testing.T) {
	g, err := geo.LoadGazetteer(filepath.Join("testdata", "gazetteer.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3, g.Len())
	loc, ok := g.Lookup("lisbon")
	require.True(t, ok)
	assert.InDelta(t, -9.1393, loc.Lon, 1e-9)

	calc := geo.NewCalculator(geo.CalculatorConfig{Lookup: g})
	d := calc.Distance("Lisbon", "Madrid")
	assert.True(t, d.Resolved)
	assert.InDelta(t, 502.4, d.Km, 1)
}

func TestLoadGazetteer_Invalid(t *testing.T) {
	_, err := geo.LoadGazetteer(filepath.Join("testdata", "invalid.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate gazetteer")

	_, err = geo.LoadGazetteer(filepath.Join("testdata", "missing.yaml"))
	require.Error(t, err)
}
