package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/garnizeh/recruit/internal/apperr"
)

// failedMessage is shown for storage and unexpected failures.
const failedMessage = "operation failed, no changes made"

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("err", err))
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, errorResponse{Error: msg, Details: details}, status)
}

// writeError maps the error taxonomy to a status code and JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *apperr.ValidationError
		ce *apperr.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		writeErrorMessage(w, http.StatusBadRequest, ve.Error(), ve.Details...)
	case errors.Is(err, apperr.ErrForbidden):
		writeErrorMessage(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, apperr.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ce):
		writeErrorMessage(w, http.StatusConflict, ce.Error(), ce.Details...)
	default:
		logger.Error("request failed",
			slog.String("request_id", RequestIDFrom(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		writeErrorMessage(w, http.StatusInternalServerError, failedMessage)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("body", "invalid request: %v", err)
	}
	return nil
}
