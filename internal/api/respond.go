package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/pagination"
)

const staleIndexWarning = "doctor appointment index could not be updated; it will be repaired by the reconcile worker"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err through the taxonomy. Internal details are logged and
// never written to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		LoggerFrom(r.Context()).Error("request failed", zap.Error(err))
	}
	msg, details := apperr.Messages(err)
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("request body must be valid JSON")
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Invalid(name + " must be a valid UUID")
	}
	return id, nil
}

func pageParams(r *http.Request, maxLimit int) pagination.Params {
	q := r.URL.Query()
	return pagination.Parse(q.Get("page"), q.Get("limit"), maxLimit)
}

// warningsFor turns a stale doctor index into a response warning. Any other
// error is returned unchanged.
func warningsFor(err error) ([]string, error) {
	if err == nil {
		return nil, nil
	}
	if errors.Is(err, appointment.ErrDoctorIndexStale) {
		return []string{staleIndexWarning}, nil
	}
	return nil, err
}
