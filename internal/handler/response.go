package handler

// RESPONSE HELPERS:
// Every handler writes JSON through writeJSON and errors through writeError,
// so the content type and the error shape are the same everywhere:
//
//	{"error": "Email is required"}
//
// writeError is also the one place domain errors become HTTP status codes.
// The service layer never sees net/http.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/bounty-portal/internal/apperror"
)

// internalErrorMessage is the only text a 500 ever carries.
const internalErrorMessage = "Internal server error"

// ErrorResponse is the error body returned by all JSON endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body. Once Encode writes, the
// headers are on the wire and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to a status code and a client-safe message.
//
// ERROR MAPPING:
//
//	apperror.ErrValidation → 400  message from the AppError
//	apperror.ErrForbidden  → 403  message from the AppError
//	apperror.ErrNotFound   → 404  message from the AppError
//	apperror.ErrConflict   → 409  message from the AppError
//	anything else          → 500  "Internal server error"
//
// errors.Is walks the whole chain, so a wrapped AppError still matches.
// Internal causes are logged by the layer that saw them, never echoed here.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := 0
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		}
		if status != 0 {
			writeJSON(w, status, ErrorResponse{Error: appErr.Message})
			return
		}
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: internalErrorMessage})
}
