// Package pagination bounds the number of records list endpoints return.
package pagination

import (
	"fmt"
	"os"
	"strconv"
)

// Default limits applied by Finalize.
const (
	DefaultLimit = 20
	DefaultMax   = 100
)

// Config holds list size limits.
type Config struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
}

// ConfigEnv names the environment variables that override Config. Empty
// names are ignored.
type ConfigEnv struct {
	DefaultLimit string
	MaxLimit     string
}

// Finalize applies defaults, environment variable overrides, and validation.
// A non-numeric override is an error.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.DefaultLimit == 0 {
		c.DefaultLimit = DefaultLimit
	}
	if c.MaxLimit == 0 {
		c.MaxLimit = DefaultMax
	}

	if env != nil {
		if err := envInt(env.DefaultLimit, &c.DefaultLimit); err != nil {
			return err
		}
		if err := envInt(env.MaxLimit, &c.MaxLimit); err != nil {
			return err
		}
	}

	switch {
	case c.DefaultLimit < 1:
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	case c.MaxLimit < 1:
		return fmt.Errorf("max_limit must be positive, got %d", c.MaxLimit)
	case c.DefaultLimit > c.MaxLimit:
		return fmt.Errorf("default_limit %d exceeds max_limit %d", c.DefaultLimit, c.MaxLimit)
	}
	return nil
}

// Merge applies non-zero values from the overlay configuration.
func (c *Config) Merge(overlay *Config) {
	if overlay.DefaultLimit != 0 {
		c.DefaultLimit = overlay.DefaultLimit
	}
	if overlay.MaxLimit != 0 {
		c.MaxLimit = overlay.MaxLimit
	}
}

func envInt(name string, dst *int) error {
	if name == "" {
		return nil
	}
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}
