package gateway

import (
	"fmt"
	"net/url"
	"time"
)

// Binding defaults.
const (
	DefaultTimeout    = 120 * time.Second
	DefaultMaxRetries = 2
	DefaultMaxTokens  = 2048
)

// Binding selects one OpenAI-compatible endpoint and the model to call on it.
type Binding struct {
	Backend           string `toml:"backend"`
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key,omitempty"`
	Model             string `toml:"model"`
	Timeout           string `toml:"timeout,omitempty"`
	MaxRetries        *int   `toml:"max_retries,omitempty"`
	RequestsPerMinute int    `toml:"requests_per_minute,omitempty"`
}

// TimeoutDuration returns Timeout as a time.Duration, or DefaultTimeout when unset.
func (b *Binding) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(b.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Retries returns the configured retry count, or DefaultMaxRetries when unset.
func (b *Binding) Retries() int {
	if b.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return max(*b.MaxRetries, 0)
}

// Merge overwrites non-zero fields from overlay.
func (b *Binding) Merge(overlay *Binding) {
	if overlay.Backend != "" {
		b.Backend = overlay.Backend
	}
	if overlay.BaseURL != "" {
		b.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		b.APIKey = overlay.APIKey
	}
	if overlay.Model != "" {
		b.Model = overlay.Model
	}
	if overlay.Timeout != "" {
		b.Timeout = overlay.Timeout
	}
	if overlay.MaxRetries != nil {
		b.MaxRetries = overlay.MaxRetries
	}
	if overlay.RequestsPerMinute != 0 {
		b.RequestsPerMinute = overlay.RequestsPerMinute
	}
}

// Validate checks that the binding names a usable endpoint.
func (b *Binding) Validate() error {
	if b.BaseURL == "" {
		return fmt.Errorf("base_url required")
	}
	u, err := url.Parse(b.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url")
	}
	if b.Timeout != "" {
		if _, err := time.ParseDuration(b.Timeout); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}
	if b.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative")
	}
	return nil
}

// Host returns the hostname of the binding's endpoint.
func (b *Binding) Host() string {
	u, err := url.Parse(b.BaseURL)
	if err != nil {
		return "unknown-host"
	}
	if h := u.Hostname(); h != "" {
		return h
	}
	return "unknown-host"
}
