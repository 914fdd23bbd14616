package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/moltblock/pkg/auth"
	"github.com/JaimeStill/moltblock/pkg/formatting"
	"github.com/JaimeStill/moltblock/pkg/middleware"
	"github.com/JaimeStill/moltblock/pkg/module"
	"github.com/JaimeStill/moltblock/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "MOLTBLOCK_CORS_ENABLED",
	Origins:          "MOLTBLOCK_CORS_ORIGINS",
	AllowedMethods:   "MOLTBLOCK_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "MOLTBLOCK_CORS_ALLOWED_HEADERS",
	AllowCredentials: "MOLTBLOCK_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "MOLTBLOCK_CORS_MAX_AGE",
}

var authEnv = &auth.Env{
	Enabled:        "MOLTBLOCK_AUTH_ENABLED",
	Issuer:         "MOLTBLOCK_AUTH_ISSUER",
	ClientID:       "MOLTBLOCK_AUTH_CLIENT_ID",
	JWKSURL:        "MOLTBLOCK_AUTH_JWKS_URL",
	AllowAnonymous: "MOLTBLOCK_AUTH_ALLOW_ANONYMOUS",
}

const EnvAPIAllowTestCode = "MOLTBLOCK_API_ALLOW_TEST_CODE"

var paginationEnv = &pagination.ConfigEnv{
	DefaultLimit: "MOLTBLOCK_API_DEFAULT_LIMIT",
	MaxLimit:     "MOLTBLOCK_API_MAX_LIMIT",
}

// APIConfig holds API routing, request size, authentication, CORS, and list
// limit settings.
type APIConfig struct {
	BasePath    string `toml:"base_path"`
	MaxBodySize string `toml:"max_body_size"`
	// AllowTestCode lets run requests carry test code, which the test
	// verifier executes on this host.
	AllowTestCode bool                  `toml:"allow_test_code"`
	Auth          auth.Config           `toml:"auth"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

// MaxBodySizeBytes returns MaxBodySize in bytes.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return 1 << 20
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}

	if err := module.ValidatePrefix(c.BasePath); err != nil {
		return fmt.Errorf("base_path: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxBodySize); err != nil {
		return fmt.Errorf("max_body_size: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}

	if overlay.AllowTestCode {
		c.AllowTestCode = true
	}

	c.Auth.Merge(&overlay.Auth)
	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
}

func (c *APIConfig) loadEnv() error {
	mergeString(&c.BasePath, os.Getenv("MOLTBLOCK_API_BASE_PATH"))
	mergeString(&c.MaxBodySize, os.Getenv("MOLTBLOCK_API_MAX_BODY_SIZE"))
	if v := os.Getenv(EnvAPIAllowTestCode); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAPIAllowTestCode, err)
		}
		c.AllowTestCode = allow
	}
	return nil
}
