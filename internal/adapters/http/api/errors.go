package api

import (
	"errors"
	"net/http"

	"github.com/okian/gisc/internal/adapters/repository"
	"github.com/okian/gisc/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("limit exceeded")
)

// statusFor maps upstream errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, app.ErrActorNotAnalyzed):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, app.ErrNoReport):
		return http.StatusServiceUnavailable, "not_ready"
	case errors.Is(err, repository.ErrInvalidLimit), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
