package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/moltblock/internal/config"
	"github.com/JaimeStill/moltblock/pkg/lifecycle"
)

type httpServer struct {
	http   *http.Server
	logger *slog.Logger
}

func newHTTPServer(cfg *config.ServerConfig, handler http.Handler, logger *slog.Logger) *httpServer {
	read, write, idle := cfg.Timeouts()
	return &httpServer{
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  read,
			WriteTimeout: write,
			IdleTimeout:  idle,
		},
		logger: logger.With("system", "http"),
	}
}

// Start listens in the background and registers a graceful shutdown hook.
// A listen failure other than a closed server is sent on the returned channel.
func (s *httpServer) Start(lc *lifecycle.Coordinator) <-chan error {
	errc := make(chan error, 1)

	go func() {
		s.logger.Info("server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
			errc <- err
		}
	}()

	lc.OnShutdown(func(ctx context.Context) error {
		s.logger.Info("shutting down server")
		if err := s.http.Shutdown(ctx); err != nil {
			return err
		}
		s.logger.Info("server shutdown complete")
		return nil
	})

	return errc
}
