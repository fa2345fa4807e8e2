// Package handler provides the HTTP handlers of the itinerary API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/itinera/itinera/internal/api/models"
	"github.com/itinera/itinera/internal/api/response"
	"github.com/itinera/itinera/internal/planner"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. On failure it writes
// the problem response and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		response.BadRequest(w, r, "invalid JSON body: "+err.Error(), nil)
		return false
	}
	return check(w, r, dst)
}

// check validates v, writing a 400 with field errors when it is invalid.
func check(w http.ResponseWriter, r *http.Request, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.BadRequest(w, r, err.Error(), nil)
		return false
	}

	fields := make([]models.FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = models.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fieldMessage(fe),
			Code:    strings.ToUpper(fe.Tag()),
		}
	}
	response.BadRequest(w, r, "request validation failed", fields)
	return false
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return "is required"
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "gtefield":
		return "must not be before " + strings.ToLower(fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// invalidField writes a 400 for a single bad field.
func invalidField(w http.ResponseWriter, r *http.Request, field, message string) {
	response.BadRequest(w, r, "request validation failed", []models.FieldError{
		{Field: field, Message: message, Code: "INVALID"},
	})
}

// plannerError maps engine errors onto problem responses.
func plannerError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var perr *planner.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case planner.KindEmptyRouteRequest:
			response.EmptyRoute(w, r, perr.Error())
			return
		case planner.KindInvalidRequest:
			response.BadRequest(w, r, perr.Error(), nil)
			return
		case planner.KindCanceled:
			response.RequestTimeout(w, r, perr.Error())
			return
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		response.RequestTimeout(w, r, err.Error())
		return
	}

	log.Error().Err(err).Str("path", r.URL.Path).Msg("planner request failed")
	response.InternalError(w, r, "the request could not be planned")
}

func warnings(ws []planner.Warning) []models.Warning {
	if len(ws) == 0 {
		return nil
	}
	out := make([]models.Warning, len(ws))
	for i, w := range ws {
		out[i] = models.Warning{Kind: string(w.Kind), Subject: w.Subject, Message: w.Message}
	}
	return out
}
