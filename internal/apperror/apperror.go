// Package apperror defines the error taxonomy shared by the service and
// handler layers.
//
// The service layer returns these errors; the handler layer maps them to
// HTTP status codes. Nothing below the handler knows what a status code is.
//
//	ErrValidation → 400  (input the caller must fix)
//	ErrForbidden  → 403  (policy refused the request, e.g. email domain)
//	ErrNotFound   → 404
//	ErrConflict   → 409
//	ErrInternal   → 500  (store or query failure; details are logged, never returned)
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrInternal   = errors.New("internal error")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // Human-readable error message, safe to show to clients
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying failure, kept for logs only
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is works for
// apperror categories and for store errors underneath.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating a policy refused the request.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Internal wraps an unexpected failure. Message is what a client may see;
// cause is only for server-side logs.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrInternal,
		Message: message,
		Cause:   cause,
	}
}
