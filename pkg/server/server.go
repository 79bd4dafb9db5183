package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/cityfs/internal/logger"
	"github.com/marmos91/cityfs/pkg/adapter"
	"github.com/marmos91/cityfs/pkg/cityfs"
)

// DefaultShutdownTimeout bounds the Stop() calls issued during shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// ErrAlreadyServed is returned by a second call to Serve.
var ErrAlreadyServed = errors.New("serve has already been called on this server instance")

// CityServer manages the lifecycle of the presentation adapters that share
// one city filesystem.
//
// Lifecycle:
//  1. Creation: New() with the filesystem
//  2. Registration: AddAdapter() for each presentation
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: context cancellation or an adapter failure stops all adapters
//
// Thread safety:
// CityServer is safe for concurrent use. Serve() may only be called once.
//
// Example usage:
//
//	srv := server.New(fsys)
//	srv.AddAdapter(fuse.New(fuseConfig))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
type CityServer struct {
	fs *cityfs.FS

	// adapters contains all registered adapters in registration order
	adapters []adapter.Adapter

	// mu protects adapters and served
	mu sync.RWMutex

	served bool

	shutdownTimeout time.Duration
}

// New creates a CityServer around fs.
//
// Panics if fs is nil (programmer error).
func New(fs *cityfs.FS) *CityServer {
	if fs == nil {
		panic("filesystem cannot be nil")
	}

	return &CityServer{
		fs:              fs,
		adapters:        make([]adapter.Adapter, 0, 2),
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// SetShutdownTimeout overrides DefaultShutdownTimeout. Non-positive values
// are ignored.
func (s *CityServer) SetShutdownTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownTimeout = d
}

// AddAdapter injects the filesystem into a and registers it.
//
// Returns an error if another adapter already uses the same protocol or
// endpoint.
//
// Panics if a is nil or Serve() has already been called.
func (s *CityServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	endpoint := a.Endpoint()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if existing.Endpoint() == endpoint {
			return fmt.Errorf("endpoint %s already in use by %s adapter",
				endpoint, existing.Protocol())
		}
	}

	a.SetFilesystem(s.fs)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on %s", protocol, endpoint)

	return nil
}

// Serve starts all registered adapters and blocks until the context is
// cancelled or an adapter fails.
//
// On shutdown every adapter receives Stop() in reverse registration order,
// then Serve waits for all Serve goroutines to return.
//
// Returns:
//   - context.Canceled (or the context's error) on signal-driven shutdown
//   - the first adapter error, wrapped, if an adapter failed
//   - ErrAlreadyServed on a second call
func (s *CityServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true

	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	timeout := s.shutdownTimeout
	s.mu.Unlock()

	logger.Info("Starting cityfs with %d adapter(s)", len(adapters))

	// Buffered so failing adapters never block on send.
	errChan := make(chan adapterError, len(adapters))

	var wg sync.WaitGroup
	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on %s", protocol, a.Endpoint())

			err := a.Serve(ctx)
			switch {
			case err == nil:
				if ctx.Err() == nil {
					// Returning early without error still ends the presentation.
					errChan <- adapterError{protocol: protocol, err: errors.New("stopped unexpectedly")}
					return
				}
				logger.Info("%s adapter stopped", protocol)
			case errors.Is(err, context.Canceled) || ctx.Err() != nil:
				logger.Debug("%s adapter stopped gracefully", protocol)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		stopAllAdapters(adapters, timeout)
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		stopAllAdapters(adapters, timeout)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("cityfs stopped")

	return shutdownErr
}

type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters stops adapters in reverse registration order, logging
// and skipping failures.
func stopAllAdapters(adapters []adapter.Adapter, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		logger.Debug("Stopping %s adapter (%s)", protocol, adp.Endpoint())

		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		} else {
			logger.Debug("%s adapter stop signal sent", protocol)
		}
	}
}

// Adapters returns a snapshot of the registered adapters.
func (s *CityServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
