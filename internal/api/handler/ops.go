package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/itinera/itinera/internal/api/models"
	"github.com/itinera/itinera/internal/api/response"
	"github.com/itinera/itinera/internal/featureflags"
	"github.com/itinera/itinera/internal/provider/resilience"
)

const readinessTimeout = 2 * time.Second

// Check probes one dependency. A nil error means it is usable.
type Check = func(ctx context.Context) error

// OpsConfig configures the operational endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Registry reports circuit state for the condition sources.
	Registry *resilience.Registry

	// Flags is used to list degradation switches that are currently on.
	Flags *featureflags.Service

	// Checks are run by the readiness probe, keyed by subsystem name.
	Checks map[string]Check
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
	now func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg, now: time.Now}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   h.now().UTC(),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Any failing check makes the
// service unready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.subsystems(r.Context())

	health := models.Health{Status: models.HealthStatusOK, Time: h.now().UTC()}
	details := make(map[string]any, len(subsystems))
	for _, s := range subsystems {
		details[s.Name] = s.Status
		if s.Status == models.HealthStatusFail {
			health.Status = models.HealthStatusFail
		}
	}
	if len(details) > 0 {
		health.Details = details
	}

	status := http.StatusOK
	if health.Status == models.HealthStatusFail {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := models.SystemStatus{
		Status:      models.HealthStatusOK,
		Time:        h.now().UTC(),
		Subsystems:  h.subsystems(ctx),
		Providers:   h.providers(),
		ActiveFlags: h.activeFlags(ctx),
	}

	for _, s := range out.Subsystems {
		out.Status = worst(out.Status, s.Status)
	}
	for _, p := range out.Providers {
		// An open circuit means conditions fall back to estimates.
		if p.Status != models.HealthStatusOK {
			out.Status = worst(out.Status, models.HealthStatusDegraded)
		}
	}
	if len(out.ActiveFlags) > 0 {
		out.Status = worst(out.Status, models.HealthStatusDegraded)
	}

	response.JSON(w, r, http.StatusOK, out)
}

func (h *OpsHandler) subsystems(ctx context.Context) []models.SubsystemStatus {
	names := make([]string, 0, len(h.cfg.Checks))
	for name := range h.cfg.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.SubsystemStatus, 0, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := h.cfg.Checks[name](checkCtx)
		cancel()

		s := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err != nil {
			s.Status = models.HealthStatusFail
			s.Detail = err.Error()
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	if h.cfg.Registry == nil {
		return []models.ProviderStatus{}
	}

	all := h.cfg.Registry.GetAllHealth()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, ph := range all {
		ps := models.ProviderStatus{
			Provider:      ph.Name,
			Status:        models.HealthStatusOK,
			CircuitState:  ph.CircuitState.String(),
			LastSuccessAt: ph.LastSuccessAt,
			LastFailureAt: ph.LastFailureAt,
		}
		switch ph.CircuitState {
		case gobreaker.StateOpen:
			ps.Status = models.HealthStatusFail
			ps.Message = ph.LastError
		case gobreaker.StateHalfOpen:
			ps.Status = models.HealthStatusDegraded
			ps.Message = ph.LastError
		}
		out = append(out, ps)
	}
	return out
}

func (h *OpsHandler) activeFlags(ctx context.Context) []string {
	if h.cfg.Flags == nil {
		return nil
	}

	var active []string
	if len(h.cfg.Flags.DisabledModes(ctx)) > 0 {
		active = append(active, featureflags.FlagDisabledModes)
	}
	if h.cfg.Flags.LiveConditionsDisabled(ctx) {
		active = append(active, featureflags.FlagLiveConditionsDisabled)
	}
	if h.cfg.Flags.MonitoringAlertsDisabled(ctx) {
		active = append(active, featureflags.FlagMonitoringAlertsDisabled)
	}
	return active
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
