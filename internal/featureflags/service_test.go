package featureflags_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itinera/itinera/internal/featureflags"
	"github.com/itinera/itinera/internal/transport"
)

func newService(repo featureflags.Repository) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Minute,
	})
}

func TestService_Defaults(t *testing.T) {
	svc := newService(nil)
	ctx := context.Background()

	assert.Empty(t, svc.DisabledModes(ctx))
	assert.False(t, svc.LiveConditionsDisabled(ctx))
	assert.False(t, svc.MonitoringAlertsDisabled(ctx))
	assert.Equal(t, transport.DefaultPolicy(), svc.Policy(ctx))

	all := svc.GetAllFlags(ctx)
	assert.Len(t, all, 4)
	assert.Contains(t, all, featureflags.FlagPolicyOverrides)
}

func TestService_SetFlag(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository())
	ctx := context.Background()

	require.NoError(t, svc.SetFlag(ctx, &featureflags.Flag{
		Key:   featureflags.FlagLiveConditionsDisabled,
		Value: true,
	}))
	assert.True(t, svc.LiveConditionsDisabled(ctx))

	require.NoError(t, svc.SetFlags(ctx, []*featureflags.Flag{
		{Key: featureflags.FlagMonitoringAlertsDisabled, Value: true},
		{Key: featureflags.FlagDisabledModes, Value: []any{"flight", "car_rental", "zeppelin"}},
	}))
	assert.True(t, svc.MonitoringAlertsDisabled(ctx))
	assert.Equal(t, []transport.Mode{transport.ModeFlight, transport.ModeCar}, svc.DisabledModes(ctx))
}

func TestService_PolicyOverrides(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository())
	ctx := context.Background()

	// Values arrive as decoded JSON.
	require.NoError(t, svc.SetFlag(ctx, &featureflags.Flag{
		Key: featureflags.FlagPolicyOverrides,
		Value: map[string]any{
			"balanced_carbon_weight": 250.0,
			"efficiency_time_weight": 0.5,
		},
	}))

	policy := svc.Policy(ctx)
	assert.Equal(t, 250.0, policy.BalancedCarbonWeight)
	assert.Equal(t, 0.5, policy.EfficiencyTimeWeight)
	assert.Equal(t, 10.0, policy.BalancedDurationWeight)
}

func TestService_MalformedPolicyIgnored(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository())
	ctx := context.Background()

	require.NoError(t, svc.SetFlag(ctx, &featureflags.Flag{
		Key:   featureflags.FlagPolicyOverrides,
		Value: "not an object",
	}))
	assert.Equal(t, transport.DefaultPolicy(), svc.Policy(ctx))
}

func TestService_InvalidateCache(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	svc := newService(repo)
	ctx := context.Background()

	assert.False(t, svc.LiveConditionsDisabled(ctx))

	// Written behind the service's back.
	require.NoError(t, repo.SetFlag(ctx, &featureflags.Flag{Key: featureflags.FlagLiveConditionsDisabled, Value: true}))
	assert.False(t, svc.LiveConditionsDisabled(ctx))

	svc.InvalidateCache()
	assert.True(t, svc.LiveConditionsDisabled(ctx))
}

type failingRepository struct {
	featureflags.InMemoryRepository
}

func (*failingRepository) GetFlag(context.Context, string) (*featureflags.Flag, error) {
	return nil, errors.New("database unavailable")
}

func (*failingRepository) GetAllFlags(context.Context) (map[string]*featureflags.Flag, error) {
	return nil, errors.New("database unavailable")
}

func TestService_FallbackToDefaults(t *testing.T) {
	svc := newService(&failingRepository{})
	ctx := context.Background()

	flag := svc.GetFlag(ctx, featureflags.FlagLiveConditionsDisabled)
	require.NotNil(t, flag)
	assert.False(t, flag.BoolValue(true))
	assert.Nil(t, svc.GetFlag(ctx, "unknown"))
	assert.Len(t, svc.GetAllFlags(ctx), 4)
}

func TestFlag_ValueHelpers(t *testing.T) {
	var nilFlag *featureflags.Flag
	assert.True(t, nilFlag.BoolValue(true))
	assert.Nil(t, nilFlag.StringsValue())
	assert.NoError(t, nilFlag.JSONValue(&struct{}{}))

	assert.True(t, (&featureflags.Flag{Value: 1.0}).BoolValue(false))
	assert.False(t, (&featureflags.Flag{Value: "yes"}).BoolValue(false))

	assert.Equal(t, []string{"bus"}, (&featureflags.Flag{Value: "bus"}).StringsValue())
	assert.Equal(t, []string{"a", "b"}, (&featureflags.Flag{Value: []any{"a", 3.0, "b"}}).StringsValue())
	assert.Nil(t, (&featureflags.Flag{Value: ""}).StringsValue())
}

func TestInMemoryRepository(t *testing.T) {
	repo := featureflags.NewInMemoryRepositoryWithFlags(map[string]*featureflags.Flag{
		"custom": {Key: "custom", Value: true},
	})
	ctx := context.Background()

	_, err := repo.GetFlag(ctx, "missing")
	assert.ErrorIs(t, err, featureflags.ErrFlagNotFound)

	// Returned flags are copies.
	got, err := repo.GetFlag(ctx, "custom")
	require.NoError(t, err)
	got.Value = false
	again, _ := repo.GetFlag(ctx, "custom")
	assert.Equal(t, true, again.Value)

	require.NoError(t, repo.DeleteFlag(ctx, "custom"))
	assert.ErrorIs(t, repo.DeleteFlag(ctx, "custom"), featureflags.ErrFlagNotFound)
}
