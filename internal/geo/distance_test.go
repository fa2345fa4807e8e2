package geo_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera/itinera/internal/geo"
)

func newCalculator() *geo.Calculator {
	return geo.NewCalculator(geo.CalculatorConfig{Logger: zerolog.Nop()})
}

func TestCalculator_KnownPairs(t *testing.T) {
	calc := newCalculator()

	tests := []struct {
		origin, destination string
		wantKm              float64
	}{
		{"new york", "los angeles", 3936},
		{"london", "paris", 344},
		{"boston", "new york", 306},
		{"tokyo", "sydney", 7826},
	}

	for _, tt := range tests {
		t.Run(tt.origin+"->"+tt.destination, func(t *testing.T) {
			d := calc.Distance(tt.origin, tt.destination)
			assert.True(t, d.Resolved)
			assert.Empty(t, d.Unresolved)
			assert.InDelta(t, tt.wantKm, d.Km, 2)
		})
	}
}

func TestCalculator_IsSymmetric(t *testing.T) {
	calc := newCalculator()

	ab := calc.Distance("chicago", "miami")
	ba := calc.Distance("miami", "chicago")
	assert.InDelta(t, ab.Km, ba.Km, 1e-9)
}

func TestCalculator_SamePlaceIsZero(t *testing.T) {
	calc := newCalculator()

	d := calc.Distance("denver", "Denver")
	assert.True(t, d.Resolved)
	assert.InDelta(t, 0, d.Km, 1e-9)
}

func TestCalculator_CaseInsensitive(t *testing.T) {
	calc := newCalculator()

	lower := calc.Distance("new york", "los angeles")
	mixed := calc.Distance("  New York ", "LOS ANGELES")
	assert.InDelta(t, lower.Km, mixed.Km, 1e-9)
}

func TestCalculator_UnknownLocationFallsBack(t *testing.T) {
	calc := newCalculator()

	d := calc.Distance("atlantis", "paris")
	assert.False(t, d.Resolved)
	assert.Equal(t, geo.DefaultFallbackKm, d.Km)
	assert.Equal(t, []string{"atlantis"}, d.Unresolved)

	both := calc.Distance("atlantis", "el dorado")
	assert.Equal(t, []string{"atlantis", "el dorado"}, both.Unresolved)
	assert.Equal(t, 500.0, both.Km)
}

func TestCalculator_CustomLookupAndFallback(t *testing.T) {
	g, err := geo.NewGazetteer([]geo.Location{
		{Name: "a", Lat: 0, Lon: 0},
		{Name: "b", Lat: 0, Lon: 1},
	})
	require.NoError(t, err)

	calc := geo.NewCalculator(geo.CalculatorConfig{
		Lookup:     g,
		FallbackKm: 42,
		Logger:     zerolog.Nop(),
	})

	// One degree of longitude at the equator.
	assert.InDelta(t, 111.19, calc.Distance("a", "b").Km, 0.01)
	assert.Equal(t, 42.0, calc.Distance("a", "new york").Km)
}
