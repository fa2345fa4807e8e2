package models

import "time"

// HealthStatus is the health of the service or one of its dependencies.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Health is the body of the liveness and readiness checks.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    time.Time      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus reports the condition source and cache subsystems.
type SystemStatus struct {
	Status      HealthStatus      `json:"status"`
	Time        time.Time         `json:"time"`
	Subsystems  []SubsystemStatus `json:"subsystems"`
	Providers   []ProviderStatus  `json:"providers"`
	ActiveFlags []string          `json:"activeDegradationFlags,omitempty"`
}

// SubsystemStatus is the status of an internal dependency.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// ProviderStatus is the circuit state of an upstream condition source.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *time.Time   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time   `json:"lastFailureAt,omitempty"`
	Message       string       `json:"message,omitempty"`
}

// FeatureFlag is a runtime switch as exposed to operators.
type FeatureFlag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FeatureFlagList is the body of GET /v1/admin/feature-flags.
type FeatureFlagList struct {
	Flags []FeatureFlag `json:"flags"`
}

// FeatureFlagUpsert is the body of PUT /v1/admin/feature-flags.
type FeatureFlagUpsert struct {
	Flags []FeatureFlagInput `json:"flags" validate:"required,min=1,dive"`
}

// FeatureFlagInput sets one flag.
type FeatureFlagInput struct {
	Key   string `json:"key" validate:"required,oneof=disabled_modes live_conditions_disabled policy_overrides monitoring_alerts_disabled"`
	Value any    `json:"value"`
}
