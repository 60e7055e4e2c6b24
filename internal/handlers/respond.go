package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go-stamppdf/internal/apperr"
	"go-stamppdf/internal/logger"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn(context.Background(), "failed to encode response", logger.Fields{"error": err.Error()})
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeError answers with the status and public message of err. The full
// error is only logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	fields := logger.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"kind":   apperr.KindOf(err).String(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed", err, fields)
	} else {
		logger.Warn(r.Context(), "request rejected", fields)
	}
	writeMessage(w, status, apperr.PublicMessage(err))
}
