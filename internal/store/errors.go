package store

import (
	"errors"
	"net/http"
)

// Domain errors for store operations.
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("record already exists")
	ErrVersionConflict = errors.New("strategy version conflict")
	ErrNoTransaction   = errors.New("operation requires a transaction")
	ErrInvalidRole     = errors.New("role required")
)

// MapHTTPStatus maps store errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRole):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
