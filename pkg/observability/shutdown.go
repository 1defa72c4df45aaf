package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ShutdownFunc releases one resource within the shutdown deadline
type ShutdownFunc func(context.Context) error

type hook struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager drains the HTTP servers and then releases resources in the
// reverse of their registration order, so a resource opened early (the
// store) outlives everything that was built on top of it.
type ShutdownManager struct {
	logger  logrus.FieldLogger
	servers []*http.Server
	timeout time.Duration

	mu    sync.Mutex
	hooks []hook
}

// NewShutdownManager creates a shutdown manager; a zero timeout means 30s
func NewShutdownManager(logger logrus.FieldLogger, timeout time.Duration, servers ...*http.Server) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		servers: servers,
		timeout: timeout,
	}
}

// AddServers adds servers to drain on shutdown
func (sm *ShutdownManager) AddServers(servers ...*http.Server) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.servers = append(sm.servers, servers...)
}

// Register adds a named shutdown step
func (sm *ShutdownManager) Register(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.hooks = append(sm.hooks, hook{name: name, fn: fn})
}

// Shutdown drains the servers concurrently, then runs the registered steps
// one by one, newest first. A failed step does not stop the others; every
// failure is returned. Steps still pending at the deadline are skipped.
func (sm *ShutdownManager) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	sm.mu.Lock()
	servers := append([]*http.Server(nil), sm.servers...)
	hooks := append([]hook(nil), sm.hooks...)
	sm.mu.Unlock()

	errs := sm.drain(ctx, servers)

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if ctx.Err() != nil {
			sm.logger.WithField("step", h.name).Warn("Shutdown deadline reached, skipping step")
			errs = append(errs, fmt.Errorf("%s: %w", h.name, ctx.Err()))
			continue
		}
		if err := sm.run(ctx, h); err != nil {
			sm.logger.WithError(err).WithField("step", h.name).Error("Shutdown step failed")
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	sm.logger.Info("Graceful shutdown complete")
	return nil
}

func (sm *ShutdownManager) drain(ctx context.Context, servers []*http.Server) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, server := range servers {
		wg.Add(1)
		go func(server *http.Server) {
			defer wg.Done()
			sm.logger.WithField("addr", server.Addr).Info("Draining HTTP server")
			if err := server.Shutdown(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("http server %s: %w", server.Addr, err))
				mu.Unlock()
			}
		}(server)
	}
	wg.Wait()
	return errs
}

// run executes one step, giving up on it when the deadline passes
func (sm *ShutdownManager) run(ctx context.Context, h hook) error {
	done := make(chan error, 1)
	go func() {
		done <- h.fn(ctx)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
