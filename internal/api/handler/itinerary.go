package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/itinera/itinera/internal/api/models"
	"github.com/itinera/itinera/internal/api/response"
	"github.com/itinera/itinera/internal/conditions"
	"github.com/itinera/itinera/internal/itinerary"
	"github.com/itinera/itinera/internal/monitoring"
	"github.com/itinera/itinera/internal/planner"
)

// Planner is the engine behind the itinerary endpoints.
type Planner interface {
	OptimizeMultiCity(ctx context.Context, req planner.MultiCityRequest) (*planner.MultiCityResult, error)
	OptimizeTransportMix(ctx context.Context, req planner.TransportMixRequest) (*planner.TransportMixResult, error)
	GetCondition(ctx context.Context, origin, destination, mode string) (conditions.Snapshot, error)
	ScheduleItinerary(ctx context.Context, req planner.ScheduleRequest) (*planner.ScheduleResult, error)
	MonitorItinerary(ctx context.Context, req planner.MonitorRequest) (*monitoring.Report, error)
	SuggestAlternatives(ctx context.Context, req planner.AlternativesRequest) (*planner.AlternativesResult, error)
}

// ItineraryHandler serves the planning endpoints.
type ItineraryHandler struct {
	planner Planner
	logger  zerolog.Logger
}

// NewItineraryHandler creates an ItineraryHandler.
func NewItineraryHandler(p Planner, logger zerolog.Logger) *ItineraryHandler {
	return &ItineraryHandler{planner: p, logger: logger}
}

// Optimize handles POST /v1/itineraries:optimize.
func (h *ItineraryHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var in models.OptimizeItineraryRequest
	if !decode(w, r, &in) {
		return
	}

	res, err := h.planner.OptimizeMultiCity(r.Context(), planner.MultiCityRequest{
		Cities:    in.Cities,
		Start:     in.Start,
		End:       in.End,
		Objective: in.Objective,
		Modes:     in.Modes,
		Date:      in.Date,
		Limit:     in.Limit,
	})
	if err != nil {
		plannerError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.OptimizeItineraryResponse{
		ID:                  res.ID,
		Objective:           string(res.Objective),
		Regime:              string(res.Regime),
		TotalCities:         res.TotalCities,
		CandidatesEvaluated: res.CandidatesEvaluated,
		Routes:              toRankedRoutes(res.Routes),
		Warnings:            warnings(res.Warnings),
	})
}

// OptimizeTransport handles POST /v1/transport:optimize.
func (h *ItineraryHandler) OptimizeTransport(w http.ResponseWriter, r *http.Request) {
	var in models.TransportMixRequest
	if !decode(w, r, &in) {
		return
	}

	res, err := h.planner.OptimizeTransportMix(r.Context(), planner.TransportMixRequest{
		Origin:            in.Origin,
		Destination:       in.Destination,
		Date:              in.Date,
		Objective:         in.Objective,
		IncludeConditions: in.IncludeConditions,
		Limit:             in.Limit,
	})
	if err != nil {
		plannerError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.TransportMixResponse{
		ID:                 res.ID,
		Origin:             res.Origin,
		Destination:        res.Destination,
		DistanceKm:         res.DistanceKm,
		Objective:          string(res.Objective),
		ConditionsIncluded: res.ConditionsIncluded,
		Options:            toMixOptions(res.Options),
		Summary:            res.Summary,
		Warnings:           warnings(res.Warnings),
	})
}

// GetCondition handles GET /v1/conditions?origin=&destination=&mode=.
func (h *ItineraryHandler) GetCondition(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := models.ConditionQuery{
		Origin:      q.Get("origin"),
		Destination: q.Get("destination"),
		Mode:        q.Get("mode"),
	}
	if !check(w, r, in) {
		return
	}

	snap, err := h.planner.GetCondition(r.Context(), in.Origin, in.Destination, in.Mode)
	if err != nil {
		plannerError(w, r, h.logger, err)
		return
	}

	if !snap.ExpiresAt.IsZero() {
		if maxAge := int(time.Until(snap.ExpiresAt).Seconds()); maxAge > 0 {
			w.Header().Set("Cache-Control", "private, max-age="+strconv.Itoa(maxAge))
		}
	}
	response.JSON(w, r, http.StatusOK, snap)
}

// Schedule handles POST /v1/itineraries:schedule.
func (h *ItineraryHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var in models.ScheduleRequest
	if !decode(w, r, &in) {
		return
	}

	legs := make([]itinerary.ScheduleLeg, len(in.Legs))
	for i, l := range in.Legs {
		leg, err := fromLegInput(l.LegInput)
		if err != nil {
			invalidField(w, r, "legs["+strconv.Itoa(i)+"].mode", err.Error())
			return
		}
		legs[i] = itinerary.ScheduleLeg{LegOption: leg, LayoverHours: l.LayoverHours}
	}

	req := planner.ScheduleRequest{Legs: legs}
	if in.StartAt != nil {
		req.StartAt = *in.StartAt
	}

	res, err := h.planner.ScheduleItinerary(r.Context(), req)
	if err != nil {
		plannerError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toSchedule(res))
}

// Monitor handles POST /v1/itineraries:monitor.
func (h *ItineraryHandler) Monitor(w http.ResponseWriter, r *http.Request) {
	var in models.MonitorRequest
	if !decode(w, r, &in) {
		return
	}

	legs, err := fromTimedLegInputs(in.Legs)
	if err != nil {
		invalidField(w, r, "legs", err.Error())
		return
	}

	report, err := h.planner.MonitorItinerary(r.Context(), planner.MonitorRequest{
		ItineraryID:  in.ItineraryID,
		Legs:         legs,
		PollInterval: pollInterval(in.PollIntervalSeconds),
	})
	if err != nil {
		plannerError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toMonitor(report))
}

// Alternatives handles POST /v1/itineraries:alternatives.
func (h *ItineraryHandler) Alternatives(w http.ResponseWriter, r *http.Request) {
	var in models.AlternativesRequest
	if !decode(w, r, &in) {
		return
	}

	legs, err := fromLegInputs(in.Legs)
	if err != nil {
		invalidField(w, r, "legs", err.Error())
		return
	}

	res, err := h.planner.SuggestAlternatives(r.Context(), planner.AlternativesRequest{
		Legs:              legs,
		Conditions:        in.Conditions,
		IncludeConditions: in.IncludeConditions,
	})
	if err != nil {
		plannerError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAlternatives(res))
}
