package adapter

import (
	"context"

	"github.com/marmos91/cityfs/pkg/cityfs"
)

// Adapter presents the city filesystem through one host mechanism (a FUSE
// mount, a WebDAV endpoint) and is managed by server.CityServer.
//
// Every adapter shares the same *cityfs.FS, so a file opened through one
// presentation sees the same dataset as every other.
//
// Lifecycle:
//  1. Creation: adapter is created with its own configuration
//  2. Filesystem injection: SetFilesystem() provides the shared FS
//  3. Startup: Serve() mounts or listens and blocks until shutdown
//  4. Shutdown: Stop() unmounts or closes listeners
//
// Thread safety:
// Implementations must be safe for concurrent use. SetFilesystem() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts presenting the filesystem and blocks until the context is
	// cancelled or an unrecoverable error occurs.
	//
	// If Serve returns before context cancellation, CityServer treats it as
	// a fatal error and stops all other adapters.
	//
	// Returns:
	//   - nil on graceful shutdown
	//   - context.Canceled if cancelled via context
	//   - error if startup fails (e.g. mount point missing, port in use)
	Serve(ctx context.Context) error

	// SetFilesystem injects the shared filesystem.
	//
	// Called exactly once by CityServer before Serve().
	SetFilesystem(fs *cityfs.FS)

	// Stop initiates graceful shutdown.
	//
	// Must be idempotent and safe to call concurrently with Serve(). ctx
	// bounds the shutdown.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable name for logging and metrics.
	//
	// Examples: "FUSE", "WebDAV"
	Protocol() string

	// Endpoint returns where the adapter presents the filesystem: a mount
	// point for FUSE, a listen address for network adapters. Two adapters
	// of one server must not share an endpoint.
	Endpoint() string
}
