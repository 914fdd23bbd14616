package config

import (
	"fmt"
	"os"
	"regexp"
)

const (
	EnvEntityID      = "MOLTBLOCK_ENTITY_ID"
	EnvEntityVersion = "MOLTBLOCK_ENTITY_VERSION"
	EnvEntityDomain  = "MOLTBLOCK_DOMAIN"
)

var entityIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// EntityConfig identifies the entity whose memory, strategies and governance
// state the process operates on.
type EntityConfig struct {
	ID      string `toml:"id"`
	Version string `toml:"version"`
	Domain  string `toml:"domain"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *EntityConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.Validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *EntityConfig) Merge(overlay *EntityConfig) {
	if overlay.ID != "" {
		c.ID = overlay.ID
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.Domain != "" {
		c.Domain = overlay.Domain
	}
}

func (c *EntityConfig) loadDefaults() {
	if c.ID == "" {
		c.ID = "default"
	}
	if c.Version == "" {
		c.Version = "0.2.0"
	}
	if c.Domain == "" {
		c.Domain = "code"
	}
}

func (c *EntityConfig) loadEnv() {
	if v := os.Getenv(EnvEntityID); v != "" {
		c.ID = v
	}
	if v := os.Getenv(EnvEntityVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvEntityDomain); v != "" {
		c.Domain = v
	}
}

// Validate checks the entity id.
func (c *EntityConfig) Validate() error {
	if !entityIDPattern.MatchString(c.ID) {
		return fmt.Errorf("invalid id %q", c.ID)
	}
	return nil
}
