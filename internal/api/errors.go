package api

import (
	"encoding/json"
	"net/http"

	"github.com/trace-graph/internal/errors"
	"github.com/trace-graph/internal/logging"
	"github.com/trace-graph/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// respondServiceError categorizes a service-layer error and writes it out.
// Internal details stay in the logs; validation and not-found messages are
// safe to hand back as-is.
func respondServiceError(w http.ResponseWriter, err error) {
	catErr := errors.Categorize(err)

	if catErr.StatusCode >= http.StatusInternalServerError {
		logging.GetGlobalLogger().WithError(err).Error("Request failed")
	}

	respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, catErr.Details)
}
