// Package response writes JSON and problem responses.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/itinera/itinera/internal/api/middleware"
	"github.com/itinera/itinera/internal/api/models"
)

func setRequestID(w http.ResponseWriter, r *http.Request) string {
	id := middleware.GetRequestID(r.Context())
	if id != "" {
		w.Header().Set(middleware.HeaderRequestID, id)
	}
	return id
}

// JSON writes data as a JSON body with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// NoContent writes a 204 response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Error writes a problem response for the current request.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.WithInstance(r.URL.Path).Write(w)
}

// BadRequest writes a 400 validation problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(setRequestID(w, r), detail, errors))
}

// EmptyRoute writes a 422 problem for a request with nothing to plan.
func EmptyRoute(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewEmptyRoute(setRequestID(w, r), detail))
}

// RequestTimeout writes a 408 problem.
func RequestTimeout(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewRequestTimeout(setRequestID(w, r), detail))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(setRequestID(w, r), detail))
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(setRequestID(w, r), detail))
}

// ServiceUnavailable writes a 503 problem.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(setRequestID(w, r), detail))
}
