// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflicting update")
	ErrTooLarge     = errors.New("request body too large")
)

// Extender is implemented by errors that carry extra problem members.
type Extender interface {
	ProblemExtensions() map[string]any
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var ext map[string]any
	var extender Extender
	if errors.As(err, &extender) {
		ext = extender.ProblemExtensions()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		ProblemWith(w, ProblemDetail{Status: http.StatusNotFound, Title: "Not Found", Detail: err.Error(), Extensions: ext})
	case errors.Is(err, ErrDuplicate):
		ProblemWith(w, ProblemDetail{Status: http.StatusConflict, Title: "Duplicate", Detail: err.Error(), Extensions: ext})
	case errors.Is(err, ErrConflict):
		ProblemWith(w, ProblemDetail{Status: http.StatusConflict, Title: "Conflict", Detail: err.Error(), Extensions: ext})
	case errors.Is(err, ErrTooLarge):
		ProblemWith(w, ProblemDetail{Status: http.StatusRequestEntityTooLarge, Title: "Payload Too Large", Detail: err.Error()})
	case errors.Is(err, ErrValidation):
		ProblemWith(w, ProblemDetail{Status: http.StatusBadRequest, Title: "Validation Failed", Detail: err.Error(), Extensions: ext})
	case errors.Is(err, ErrForbidden):
		ProblemWith(w, ProblemDetail{Status: http.StatusForbidden, Title: "Forbidden", Detail: err.Error(), Extensions: ext})
	case errors.Is(err, ErrUnauthorized):
		ProblemWith(w, ProblemDetail{Status: http.StatusUnauthorized, Title: "Unauthorized", Detail: err.Error()})
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
