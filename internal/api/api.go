// Package api assembles the HTTP API module: run submission, strategies,
// durable records, governance, inbox and prompt registry endpoints.
package api

import (
	"net/http"

	"github.com/JaimeStill/moltblock/internal/config"
	"github.com/JaimeStill/moltblock/internal/infrastructure"
	"github.com/JaimeStill/moltblock/pkg/auth"
	"github.com/JaimeStill/moltblock/pkg/middleware"
	"github.com/JaimeStill/moltblock/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, runtime, domain)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(auth.Require(runtime.TokenVerifier, cfg.API.Auth.AllowAnonymous, runtime.Logger))

	return m, nil
}
