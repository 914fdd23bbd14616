package auth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config holds bearer token authentication settings for write requests.
type Config struct {
	Enabled bool `toml:"enabled"`
	// Issuer is the OpenID Connect issuer URL tokens must carry in "iss".
	Issuer string `toml:"issuer"`
	// ClientID is the audience tokens must carry in "aud".
	ClientID string `toml:"client_id"`
	// JWKSURL skips issuer discovery and fetches signing keys from this URL.
	JWKSURL string `toml:"jwks_url"`
	// AllowAnonymous accepts unauthenticated writes while auth is disabled.
	AllowAnonymous bool `toml:"allow_anonymous"`
}

// Env maps Config fields to environment variable names.
type Env struct {
	Enabled        string
	Issuer         string
	ClientID       string
	JWKSURL        string
	AllowAnonymous string
}

// Finalize applies environment overrides and validates the config.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}
	return c.validate()
}

// Merge applies overlay. Enabled and AllowAnonymous are only switched on by an
// overlay, so an overlay file without an [auth] table never disables auth.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.AllowAnonymous {
		c.AllowAnonymous = true
	}
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.JWKSURL != "" {
		c.JWKSURL = overlay.JWKSURL
	}
}

func (c *Config) loadEnv(env *Env) error {
	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{env.Enabled, &c.Enabled},
		{env.AllowAnonymous, &c.AllowAnonymous},
	} {
		if b.name == "" {
			continue
		}
		if v := os.Getenv(b.name); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", b.name, err)
			}
			*b.dst = parsed
		}
	}

	for _, s := range []struct {
		name string
		dst  *string
	}{
		{env.Issuer, &c.Issuer},
		{env.ClientID, &c.ClientID},
		{env.JWKSURL, &c.JWKSURL},
	} {
		if s.name == "" {
			continue
		}
		if v := os.Getenv(s.name); v != "" {
			*s.dst = v
		}
	}
	return nil
}

func (c *Config) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.AllowAnonymous {
		return errors.New("allow_anonymous cannot be combined with enabled")
	}
	if err := absoluteURL("issuer", c.Issuer); err != nil {
		return err
	}
	if c.ClientID == "" {
		return errors.New("client_id required")
	}
	if c.JWKSURL != "" {
		return absoluteURL("jwks_url", c.JWKSURL)
	}
	return nil
}

func absoluteURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("invalid %s %q", field, raw)
	}
	return nil
}
