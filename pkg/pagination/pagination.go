package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrInvalidLimit is returned when the limit parameter is not a positive integer.
var ErrInvalidLimit = errors.New("invalid limit")

// Limit reads the "limit" query parameter, applying the default when absent
// and clamping to the configured maximum.
func Limit(values url.Values, cfg Config) (int, error) {
	raw := values.Get("limit")
	if raw == "" {
		return cfg.DefaultLimit, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, raw)
	}
	return min(n, cfg.MaxLimit), nil
}

// List is a bounded list response.
type List[T any] struct {
	Data  []T `json:"data"`
	Limit int `json:"limit"`
	Count int `json:"count"`
}

// NewList wraps data with the limit it was read with. A nil slice encodes
// as an empty array.
func NewList[T any](data []T, limit int) List[T] {
	if data == nil {
		data = []T{}
	}
	return List[T]{Data: data, Limit: limit, Count: len(data)}
}
