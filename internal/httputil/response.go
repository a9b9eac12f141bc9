package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayush/places-api/internal/apperr"
	"github.com/ayush/places-api/internal/logging"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
}

const fallbackMessage = "Something went wrong, please try again."

// RespondJSON writes v as JSON with the given status code.
func RespondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("encode response", "error", err)
	}
}

// RespondError maps err to its status and writes {"message": ...}. The cause
// is logged, never sent.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Wrap(apperr.Unavailable, fallbackMessage, err)
	}

	logger := logging.FromContext(r.Context())
	status := ae.Status()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "kind", ae.Kind.String(), "error", ae.Error())
	} else {
		logger.Info("request rejected", "kind", ae.Kind.String(), "error", ae.Error())
	}

	RespondJSON(w, r, status, ErrorResponse{Message: ae.Message})
}
