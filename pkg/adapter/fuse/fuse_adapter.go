// Package fuse presents the city filesystem as a kernel FUSE mount.
package fuse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/marmos91/cityfs/internal/logger"
	"github.com/marmos91/cityfs/pkg/cityfs"
)

// Config holds the FUSE adapter configuration.
type Config struct {
	// Enabled controls whether the adapter is started.
	Enabled bool `mapstructure:"enabled"`

	// MountPoint is the directory the filesystem is mounted on. It is
	// created if missing.
	MountPoint string `mapstructure:"mount_point"`

	// AllowOther lets users other than the mounting user access the mount.
	// Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool `mapstructure:"allow_other"`

	// Debug logs every FUSE request.
	Debug bool `mapstructure:"debug"`

	// EntryTimeout is how long the kernel caches name lookups.
	EntryTimeout time.Duration `mapstructure:"entry_timeout" validate:"gte=0"`

	// AttrTimeout is how long the kernel caches attributes.
	AttrTimeout time.Duration `mapstructure:"attr_timeout" validate:"gte=0"`
}

// FUSEAdapter mounts a *cityfs.FS with go-fuse.
//
// Thread safety:
// Stop may be called concurrently with Serve and more than once.
type FUSEAdapter struct {
	config Config
	fs     *cityfs.FS

	mu       sync.Mutex
	server   *fuse.Server
	stopOnce sync.Once
}

// New creates a FUSE adapter.
func New(config Config) *FUSEAdapter {
	return &FUSEAdapter{config: config}
}

// SetFilesystem implements adapter.Adapter.
func (a *FUSEAdapter) SetFilesystem(fs *cityfs.FS) {
	a.fs = fs
}

// Protocol implements adapter.Adapter.
func (a *FUSEAdapter) Protocol() string {
	return "FUSE"
}

// Endpoint implements adapter.Adapter.
func (a *FUSEAdapter) Endpoint() string {
	return a.config.MountPoint
}

// Serve mounts the filesystem and blocks until ctx is cancelled or the
// mount is torn down externally (e.g. fusermount -u).
func (a *FUSEAdapter) Serve(ctx context.Context) error {
	if a.fs == nil {
		return errors.New("filesystem not set")
	}

	server, err := a.mount()
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.server = server
	a.mu.Unlock()

	logger.Info("FUSE filesystem mounted at %s", a.config.MountPoint)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if err := a.Stop(context.Background()); err != nil {
				logger.Error("Unmounting %s: %v", a.config.MountPoint, err)
			}
		case <-done:
		}
	}()

	server.Wait()
	close(done)

	logger.Info("FUSE filesystem unmounted from %s", a.config.MountPoint)
	return ctx.Err()
}

func (a *FUSEAdapter) mount() (*fuse.Server, error) {
	if a.config.MountPoint == "" {
		return nil, errors.New("mount point is required")
	}
	if err := os.MkdirAll(a.config.MountPoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mount point %s: %w", a.config.MountPoint, err)
	}

	entryTimeout := a.config.EntryTimeout
	attrTimeout := a.config.AttrTimeout

	root := &dirNode{fsys: a.fs, path: "/"}
	server, err := gofuse.Mount(a.config.MountPoint, root, &gofuse.Options{
		EntryTimeout: &entryTimeout,
		AttrTimeout:  &attrTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "cityfs",
			Name:       "cityfs",
			AllowOther: a.config.AllowOther,
			Debug:      a.config.Debug,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", a.config.MountPoint, err)
	}
	return server, nil
}

// Stop unmounts the filesystem. Safe to call before Serve.
func (a *FUSEAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	server := a.server
	a.mu.Unlock()

	if server == nil {
		return nil
	}

	var err error
	a.stopOnce.Do(func() {
		err = server.Unmount()
	})
	return err
}

// toErrno maps a facade error to the errno the kernel expects.
func toErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	switch cityfs.CodeOf(err) {
	case cityfs.ErrNotFound:
		return syscall.ENOENT
	case cityfs.ErrPermissionDenied:
		return syscall.EACCES
	case cityfs.ErrIsDirectory:
		return syscall.EISDIR
	case cityfs.ErrNotDirectory:
		return syscall.ENOTDIR
	case cityfs.ErrInvalidArgument:
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}
