// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors shared by all domain modules. Handlers and services wrap
// these so RespondError can pick the status code without inspecting bodies.
var (
	// ErrUnauthenticated means the request carried no credential, or one
	// that no longer resolves to an active session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the principal is authenticated but the role or
	// ownership check failed.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the target resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput indicates a malformed or invalid request payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
)

// RespondError maps domain errors to RFC7807 responses. Anything outside the
// sentinel set is an infrastructure failure and surfaces as a bare 500 so a
// storage outage is never mistaken for an invalid credential.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthenticated", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidInput):
		Problem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
