package handler

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/itinera/itinera/internal/api/models"
	"github.com/itinera/itinera/internal/api/response"
	"github.com/itinera/itinera/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// List handles GET /v1/admin/feature-flags.
func (h *FeatureFlagsHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.service.GetAllFlags(r.Context())

	flags := make([]models.FeatureFlag, 0, len(all))
	for _, f := range all {
		flags = append(flags, models.FeatureFlag{Key: f.Key, Value: f.Value, UpdatedAt: f.UpdatedAt})
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i].Key < flags[j].Key })

	response.JSON(w, r, http.StatusOK, models.FeatureFlagList{Flags: flags})
}

// Upsert handles PUT /v1/admin/feature-flags.
func (h *FeatureFlagsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in models.FeatureFlagUpsert
	if !decode(w, r, &in) {
		return
	}

	flags := make([]*featureflags.Flag, len(in.Flags))
	for i, f := range in.Flags {
		if f.Value == nil {
			invalidField(w, r, "flags["+strconv.Itoa(i)+"].value", "is required")
			return
		}
		flags[i] = &featureflags.Flag{Key: f.Key, Value: f.Value}
	}

	if err := h.service.SetFlags(r.Context(), flags); err != nil {
		h.logger.Error().Err(err).Int("count", len(flags)).Msg("failed to store feature flags")
		response.ServiceUnavailable(w, r, "feature flags could not be stored")
		return
	}

	keys := make([]string, len(flags))
	for i, f := range flags {
		keys[i] = f.Key
	}
	h.logger.Info().Strs("keys", keys).Msg("feature flags updated")
	response.NoContent(w, r)
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
