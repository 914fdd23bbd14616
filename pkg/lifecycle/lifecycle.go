// Package lifecycle coordinates startup and shutdown of long-lived systems
// such as the database connection and the HTTP server.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Hook is a startup or shutdown function. The context passed to startup hooks
// is the coordinator context; shutdown hooks receive a context bounded by the
// shutdown timeout.
type Hook func(ctx context.Context) error

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator manages startup and shutdown hooks for the application lifecycle.
type Coordinator struct {
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	startup []Hook
	stop    []Hook
	ready   bool
	closed  bool
}

// New creates a Coordinator whose context derives from parent.
func New(parent context.Context) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup registers a hook executed concurrently by Start.
func (c *Coordinator) OnStartup(fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startup = append(c.startup, fn)
}

// OnShutdown registers a hook executed by Shutdown. Hooks run in reverse
// registration order so that later systems stop before the ones they depend on.
func (c *Coordinator) OnShutdown(fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stop = append(c.stop, fn)
}

// Start runs all startup hooks concurrently and marks the coordinator ready
// when every hook succeeds.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	hooks := append([]Hook(nil), c.startup...)
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(c.ctx)
	for _, hook := range hooks {
		g.Go(func() error {
			return hook(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	return nil
}

// Ready returns true after Start has completed successfully.
func (c *Coordinator) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready && !c.closed
}

// Shutdown cancels the coordinator context and runs shutdown hooks within the
// given timeout. Hook errors are joined. Calling Shutdown more than once is a no-op.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	hooks := append([]Hook(nil), c.stop...)
	c.mu.Unlock()

	c.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for i := len(hooks) - 1; i >= 0; i-- {
			if err := hooks[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
