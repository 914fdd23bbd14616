package prompts

import (
	"errors"
	"net/http"
)

// Domain errors for prompt registry operations.
var (
	ErrBuiltinDomain = errors.New("built-in general domain cannot be removed")
	ErrInvalidDomain = errors.New("domain name required")
	ErrNotFound      = errors.New("domain not registered")
)

// MapHTTPStatus maps prompt registry errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrBuiltinDomain) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidDomain) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
