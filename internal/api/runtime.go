package api

import (
	"github.com/JaimeStill/moltblock/internal/config"
	"github.com/JaimeStill/moltblock/internal/infrastructure"
	"github.com/JaimeStill/moltblock/internal/prompts"
	"github.com/JaimeStill/moltblock/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration and the
// prompt registry shared by the run executor and the prompts handler.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination    pagination.Config
	MaxBodySize   int64
	// AllowTestCode permits run requests that carry test code.
	AllowTestCode bool
	Prompts       *prompts.Registry
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Config:    infra.Config,
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Registry:  infra.Registry,
			Metrics:   infra.Metrics,

			TokenVerifier: infra.TokenVerifier,
		},
		Pagination:    cfg.API.Pagination,
		MaxBodySize:   cfg.API.MaxBodySizeBytes(),
		AllowTestCode: cfg.API.AllowTestCode,
		Prompts:       prompts.NewRegistry(),
	}
}
