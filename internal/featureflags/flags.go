// Package featureflags holds runtime switches and policy overrides for the
// planner.
package featureflags

import (
	"encoding/json"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagDisabledModes removes the listed transport modes from every search.
	FlagDisabledModes = "disabled_modes"

	// FlagLiveConditionsDisabled skips condition lookups in transport mixes.
	FlagLiveConditionsDisabled = "live_conditions_disabled"

	// FlagPolicyOverrides is a JSON object overriding scoring weights.
	FlagPolicyOverrides = "policy_overrides"

	// FlagMonitoringAlertsDisabled stops the worker from publishing alerts.
	FlagMonitoringAlertsDisabled = "monitoring_alerts_disabled"
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BoolValue returns the flag value as a boolean, or defaultValue when the
// flag is nil or not boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return defaultValue
	}
}

// StringsValue returns the flag value as a list of strings. Non-string
// elements are skipped.
func (f *Flag) StringsValue() []string {
	if f == nil {
		return nil
	}
	switch v := f.Value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// JSONValue decodes the flag value into target. A nil flag leaves target
// untouched.
func (f *Flag) JSONValue(target any) error {
	if f == nil || f.Value == nil {
		return nil
	}
	data, err := json.Marshal(f.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// DefaultFlags returns the flags in effect when nothing is stored.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	return map[string]*Flag{
		FlagDisabledModes:            {Key: FlagDisabledModes, Value: []any{}, UpdatedAt: now},
		FlagLiveConditionsDisabled:   {Key: FlagLiveConditionsDisabled, Value: false, UpdatedAt: now},
		FlagPolicyOverrides:          {Key: FlagPolicyOverrides, Value: map[string]any{}, UpdatedAt: now},
		FlagMonitoringAlertsDisabled: {Key: FlagMonitoringAlertsDisabled, Value: false, UpdatedAt: now},
	}
}
