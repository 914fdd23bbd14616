package governance

import (
	"errors"
	"net/http"
)

// ErrPaused indicates the entity is paused under human veto.
var ErrPaused = errors.New("entity is paused (human veto)")

// MapHTTPStatus maps governance errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrPaused) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
