// Package webdav presents the city filesystem over read-only WebDAV, so it
// can be browsed from hosts without FUSE.
package webdav

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/webdav"

	"github.com/marmos91/cityfs/internal/logger"
	"github.com/marmos91/cityfs/pkg/cityfs"
)

// Config holds the WebDAV adapter configuration.
type Config struct {
	// Enabled controls whether the adapter is started.
	Enabled bool `mapstructure:"enabled"`

	// Port is the TCP port to listen on. 0 picks a free port.
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`

	// Prefix is the URL path the filesystem is served under, e.g. "/dav".
	Prefix string `mapstructure:"prefix"`
}

// WebDAVAdapter serves a *cityfs.FS through golang.org/x/net/webdav.
type WebDAVAdapter struct {
	config Config
	fs     *cityfs.FS

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	ready    chan struct{}
	stopOnce sync.Once
}

// New creates a WebDAV adapter.
func New(config Config) *WebDAVAdapter {
	return &WebDAVAdapter{config: config, ready: make(chan struct{})}
}

// NewHandler returns the WebDAV handler for fsys served under prefix.
func NewHandler(fsys *cityfs.FS, prefix string) http.Handler {
	return &webdav.Handler{
		Prefix:     strings.TrimRight(prefix, "/"),
		FileSystem: newFileSystem(fsys),
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				logger.Debug("WebDAV %s %s: %v", r.Method, r.URL.Path, err)
				return
			}
			logger.Debug("WebDAV %s %s", r.Method, r.URL.Path)
		},
	}
}

// SetFilesystem implements adapter.Adapter.
func (a *WebDAVAdapter) SetFilesystem(fs *cityfs.FS) {
	a.fs = fs
}

// Protocol implements adapter.Adapter.
func (a *WebDAVAdapter) Protocol() string {
	return "WebDAV"
}

// Endpoint implements adapter.Adapter.
func (a *WebDAVAdapter) Endpoint() string {
	return fmt.Sprintf(":%d", a.config.Port)
}

// Addr returns the bound address once Serve is listening, or nil.
func (a *WebDAVAdapter) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Ready is closed once the adapter is accepting connections.
func (a *WebDAVAdapter) Ready() <-chan struct{} {
	return a.ready
}

// Serve listens on the configured port and blocks until ctx is cancelled
// or the listener fails.
func (a *WebDAVAdapter) Serve(ctx context.Context) error {
	if a.fs == nil {
		return errors.New("filesystem not set")
	}

	listener, err := net.Listen("tcp", a.Endpoint())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.Endpoint(), err)
	}

	mux := http.NewServeMux()
	prefix := strings.TrimRight(a.config.Prefix, "/")
	mux.Handle(prefix+"/", NewHandler(a.fs, prefix))

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.mu.Lock()
	a.server = server
	a.listener = listener
	a.mu.Unlock()
	close(a.ready)

	logger.Info("WebDAV server listening on %s%s/", listener.Addr(), prefix)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Stop(shutdownCtx); err != nil {
			logger.Error("WebDAV shutdown: %v", err)
		}
	}()

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("WebDAV server: %w", err)
	}
	return ctx.Err()
}

// Stop shuts the HTTP server down gracefully. Safe to call before Serve.
func (a *WebDAVAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	server := a.server
	a.mu.Unlock()

	if server == nil {
		return nil
	}

	var err error
	a.stopOnce.Do(func() {
		err = server.Shutdown(ctx)
	})
	return err
}
