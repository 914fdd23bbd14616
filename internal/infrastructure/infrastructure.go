// Package infrastructure provides core service initialization for application startup.
// It assembles the shared systems (logging, database, archive storage, metrics)
// that the CLI commands and the HTTP API build on.
package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JaimeStill/moltblock/internal/config"
	"github.com/JaimeStill/moltblock/internal/governance"
	"github.com/JaimeStill/moltblock/internal/store"
	"github.com/JaimeStill/moltblock/pkg/auth"
	"github.com/JaimeStill/moltblock/pkg/database"
	"github.com/JaimeStill/moltblock/pkg/lifecycle"
	"github.com/JaimeStill/moltblock/pkg/metrics"
	"github.com/JaimeStill/moltblock/pkg/storage"
)

// Infrastructure holds the core systems shared by every command and module.
type Infrastructure struct {
	Config    *config.Config
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	// Storage is nil when no archive backend is configured.
	Storage  storage.System
	Registry *prometheus.Registry
	Metrics  metrics.Recorder
	// TokenVerifier authenticates API writes. Nil when api.auth is disabled.
	TokenVerifier auth.TokenVerifier
}

// Option customizes New.
type Option func(*options)

type options struct {
	logOutput io.Writer
	storage   storage.System
	verifier  auth.TokenVerifier
}

// WithLogOutput sends log output to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithStorage overrides the configured archive backend.
func WithStorage(s storage.System) Option {
	return func(o *options) { o.storage = s }
}

// WithTokenVerifier overrides the verifier built from api.auth.
func WithTokenVerifier(v auth.TokenVerifier) Option {
	return func(o *options) { o.verifier = v }
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Infrastructure, error) {
	o := options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	logger := slog.New(slog.NewTextHandler(o.logOutput, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	archive := o.storage
	if archive == nil && cfg.Storage.Enabled() {
		archive, err = storage.New(&cfg.Storage, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
	}

	verifier := o.verifier
	if verifier == nil && cfg.API.Auth.Enabled {
		v, err := auth.NewVerifier(ctx, &cfg.API.Auth)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("auth init failed: %w", err)
		}
		verifier = v
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Infrastructure{
		Config:    cfg,
		Lifecycle: lifecycle.New(ctx),
		Logger:    logger,
		Database:  db,
		Storage:   archive,
		Registry:  reg,
		Metrics:   metrics.NewPrometheus(reg),

		TokenVerifier: verifier,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator
// and runs the startup hooks. The schema is migrated once the database is
// reachable.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}

	i.Lifecycle.OnStartup(func(ctx context.Context) error {
		return store.Migrate(ctx, i.Database, i.Logger)
	})

	return i.Lifecycle.Start()
}

// Shutdown runs the shutdown hooks within the configured timeout.
func (i *Infrastructure) Shutdown() error {
	return i.Lifecycle.Shutdown(i.Config.ShutdownTimeoutDuration())
}

// Store returns the durable store scoped to entityID, or to the configured
// entity when entityID is empty.
func (i *Infrastructure) Store(entityID string) *store.Store {
	if entityID == "" {
		entityID = i.Config.Entity.ID
	}
	return store.New(i.Database, entityID, i.Logger)
}

// Governor returns the governance system for the configured entity.
func (i *Infrastructure) Governor() *governance.Governor {
	return governance.New(
		i.Store(""),
		i.Config.Governance,
		i.Logger,
		governance.WithMetrics(i.Metrics),
	)
}

// Molt asks the governor to molt the configured entity. Without refs the most
// recent verified artifacts are snapshotted. An empty trigger is treated as
// human.
func (i *Infrastructure) Molt(ctx context.Context, trigger string, refs []string) (governance.MoltResult, error) {
	if trigger == "" {
		trigger = governance.TriggerHuman
	}

	if refs == nil {
		recent, err := i.Store("").RecentVerified(ctx, store.DefaultLimit)
		if err != nil {
			return governance.MoltResult{}, err
		}
		for _, v := range recent {
			refs = append(refs, v.ArtifactRef)
		}
	}

	return i.Governor().TriggerMolt(ctx, governance.MoltRequest{
		EntityVersion: i.Config.Entity.Version,
		GraphHash:     governance.DefaultMoltGraphHash,
		MemoryHash:    store.HashMemory(refs),
		ArtifactRefs:  refs,
		Trigger:       trigger,
	})
}
