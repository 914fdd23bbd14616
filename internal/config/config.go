package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/JaimeStill/moltblock/internal/governance"
	"github.com/JaimeStill/moltblock/pkg/database"
	"github.com/JaimeStill/moltblock/pkg/storage"
	"github.com/pelletier/go-toml/v2"
)

const (
	BaseConfigFile       = "moltblock.toml"
	OverlayConfigPattern = "moltblock.%s.toml"

	EnvMoltblockEnv             = "MOLTBLOCK_ENV"
	EnvMoltblockConfig          = "MOLTBLOCK_CONFIG"
	EnvMoltblockLogLevel        = "MOLTBLOCK_LOG_LEVEL"
	EnvMoltblockShutdownTimeout = "MOLTBLOCK_SHUTDOWN_TIMEOUT"
)

var databaseEnv = &database.Env{
	Driver:          "MOLTBLOCK_DB_DRIVER",
	Path:            "MOLTBLOCK_DB_PATH",
	Host:            "MOLTBLOCK_DB_HOST",
	Port:            "MOLTBLOCK_DB_PORT",
	Name:            "MOLTBLOCK_DB_NAME",
	User:            "MOLTBLOCK_DB_USER",
	Password:        "MOLTBLOCK_DB_PASSWORD",
	SSLMode:         "MOLTBLOCK_DB_SSL_MODE",
	MaxOpenConns:    "MOLTBLOCK_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "MOLTBLOCK_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "MOLTBLOCK_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "MOLTBLOCK_DB_CONN_TIMEOUT",
	BusyTimeout:     "MOLTBLOCK_DB_BUSY_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "MOLTBLOCK_STORAGE_CONTAINER_NAME",
	ConnectionString: "MOLTBLOCK_STORAGE_CONNECTION_STRING",
	AccountURL:       "MOLTBLOCK_STORAGE_ACCOUNT_URL",
	Prefix:           "MOLTBLOCK_STORAGE_PREFIX",
}

var governanceEnv = &governance.Env{
	MoltRateLimit:       "MOLTBLOCK_MOLT_RATE_LIMIT",
	HumanVetoPaused:     "MOLTBLOCK_HUMAN_VETO_PAUSED",
	AllowedMoltTriggers: "MOLTBLOCK_ALLOWED_MOLT_TRIGGERS",
}

// Config is the root configuration for a moltblock entity.
type Config struct {
	Entity          EntityConfig      `toml:"entity"`
	Agent           AgentConfig       `toml:"agent"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	Governance      governance.Config `toml:"governance"`
	Verifier        VerifierConfig    `toml:"verifier"`
	Server          ServerConfig      `toml:"server"`
	API             APIConfig         `toml:"api"`
	LogLevel        string            `toml:"log_level"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
}

// Env returns the MOLTBLOCK_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvMoltblockEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads the config file at path (or moltblock.toml, or the path named by
// MOLTBLOCK_CONFIG), applies any environment overlay found next to it, and
// finalizes all values. A missing default file is not an error: defaults and
// environment variables then provide all configuration. An explicit path
// must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		if v := os.Getenv(EnvMoltblockConfig); v != "" {
			path, explicit = v, true
		} else {
			path = BaseConfigFile
		}
	}

	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if explicit {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if overlay := overlayPath(path); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Parse decodes TOML data into a Config without finalizing it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	c.Entity.Merge(&overlay.Entity)
	c.Agent.Merge(&overlay.Agent)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Governance.Merge(&overlay.Governance)
	c.Verifier.Merge(&overlay.Verifier)
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
}

// Finalize applies defaults, environment variable overrides, and validation
// to the root config and every section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Entity.Finalize(); err != nil {
		return fmt.Errorf("entity: %w", err)
	}
	if err := c.Agent.Finalize(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Governance.Finalize(governanceEnv); err != nil {
		return fmt.Errorf("governance: %w", err)
	}
	if err := c.Verifier.Finalize(); err != nil {
		return fmt.Errorf("verifier: %w", err)
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvMoltblockLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvMoltblockShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
}

func (c *Config) validate() error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func overlayPath(base string) string {
	env := os.Getenv(EnvMoltblockEnv)
	if env == "" {
		return ""
	}
	path := filepath.Join(filepath.Dir(base), fmt.Sprintf(OverlayConfigPattern, env))
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
