package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/flightkoy/questboard/internal/auth"
	"github.com/flightkoy/questboard/internal/questboard"
)

// Error codes returned in ErrorResponse.Error.
const (
	codeInvalidCredentials = "invalid_credentials"
	codeUsernameTaken      = "username_taken"
	codeUnauthorized       = "unauthorized"
	codeForbidden          = "forbidden"
	codeNotFound           = "not_found"
	codeInvalidRequest     = "invalid_request"
	codeInternal           = "internal"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, ErrorResponse{Error: code})
}

func writeInvalid(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: codeInvalidRequest, Message: msg})
}

// writeDomainError maps domain errors to statuses. Anything unrecognised is
// logged and reported as internal.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	switch {
	case errors.Is(err, questboard.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound)
	case errors.Is(err, questboard.ErrUsernameTaken):
		writeError(w, http.StatusConflict, codeUsernameTaken)
	case errors.Is(err, questboard.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials)
	case errors.Is(err, questboard.ErrForbidden):
		writeError(w, http.StatusForbidden, codeForbidden)
	case errors.Is(err, questboard.ErrInvalidRate),
		errors.Is(err, questboard.ErrInvalidStart),
		errors.Is(err, auth.ErrMissingFields):
		writeInvalid(w, err.Error())
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal)
	}
}
