package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/moltblock/internal/config"
	"github.com/JaimeStill/moltblock/internal/infrastructure"
)

// Server is the HTTP surface of one entity.
type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	router  http.Handler
	http    *httpServer
}

func NewServer(cmd *cobra.Command, cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cmd.Context(), cfg, infrastructure.WithLogOutput(cmd.ErrOrStderr()))
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		infra.Database.Close()
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"entity", cfg.Entity.ID,
		"env", cfg.Env(),
	)

	return &Server{
		infra:   infra,
		modules: modules,
		router:  router,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start migrates and starts the infrastructure, then begins listening.
func (s *Server) Start() (<-chan error, error) {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return nil, err
	}
	errc := s.http.Start(s.infra.Lifecycle)
	s.infra.Logger.Info("all subsystems ready")
	return errc, nil
}

func (s *Server) Shutdown() error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Shutdown()
}

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the entity HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			srv, err := NewServer(cmd, cfg)
			if err != nil {
				return err
			}

			errc, err := srv.Start()
			if err != nil {
				srv.Shutdown()
				return err
			}

			select {
			case <-cmd.Context().Done():
			case err = <-errc:
			}

			if serr := srv.Shutdown(); serr != nil && err == nil {
				err = serr
			}
			return err
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides configuration)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides configuration)")

	return cmd
}
