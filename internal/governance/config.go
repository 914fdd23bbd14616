package governance

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Molt triggers.
const (
	TriggerSystem = "system"
	TriggerHuman  = "human"
)

// DefaultMoltRateLimit is the minimum interval between molts.
const DefaultMoltRateLimit = 60 * time.Second

// Config holds governance settings.
type Config struct {
	MoltRateLimit       string   `toml:"molt_rate_limit"`
	HumanVetoPaused     bool     `toml:"human_veto_paused"`
	AllowedMoltTriggers []string `toml:"allowed_molt_triggers"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MoltRateLimit       string
	HumanVetoPaused     string
	AllowedMoltTriggers string
}

// RateLimit returns MoltRateLimit as a time.Duration.
func (c *Config) RateLimit() time.Duration {
	d, err := time.ParseDuration(c.MoltRateLimit)
	if err != nil {
		return DefaultMoltRateLimit
	}
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MoltRateLimit != "" {
		c.MoltRateLimit = overlay.MoltRateLimit
	}
	if overlay.HumanVetoPaused {
		c.HumanVetoPaused = true
	}
	if len(overlay.AllowedMoltTriggers) > 0 {
		c.AllowedMoltTriggers = slices.Clone(overlay.AllowedMoltTriggers)
	}
}

func (c *Config) loadDefaults() {
	if c.MoltRateLimit == "" {
		c.MoltRateLimit = DefaultMoltRateLimit.String()
	}
	if len(c.AllowedMoltTriggers) == 0 {
		c.AllowedMoltTriggers = []string{TriggerSystem, TriggerHuman}
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MoltRateLimit != "" {
		if v := os.Getenv(env.MoltRateLimit); v != "" {
			c.MoltRateLimit = v
		}
	}
	if env.HumanVetoPaused != "" {
		if v := os.Getenv(env.HumanVetoPaused); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.HumanVetoPaused = b
			}
		}
	}
	if env.AllowedMoltTriggers != "" {
		if v := os.Getenv(env.AllowedMoltTriggers); v != "" {
			var triggers []string
			for t := range strings.SplitSeq(v, ",") {
				if t = strings.TrimSpace(t); t != "" {
					triggers = append(triggers, t)
				}
			}
			c.AllowedMoltTriggers = triggers
		}
	}
}

func (c *Config) validate() error {
	d, err := time.ParseDuration(c.MoltRateLimit)
	if err != nil {
		return fmt.Errorf("invalid molt_rate_limit: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("molt_rate_limit must not be negative")
	}
	for _, t := range c.AllowedMoltTriggers {
		if t != TriggerSystem && t != TriggerHuman {
			return fmt.Errorf("unknown molt trigger %q", t)
		}
	}
	return nil
}
