// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/odyssey-ops/internal/shared"
)

// ErrValidation marks malformed request input.
var ErrValidation = errors.New("validation failed")

// StatusFor maps an access-layer error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, shared.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnsupportedOperation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrDependency):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807. Details of
// dependency and internal failures are not exposed.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	detail := ""
	switch status {
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
	default:
		detail = err.Error()
	}
	Problem(w, status, http.StatusText(status), detail)
}
