package webdav

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"time"

	"golang.org/x/net/webdav"

	"github.com/marmos91/cityfs/pkg/cityfs"
)

const cityContentType = "text/plain; charset=utf-8"

// fileSystem adapts *cityfs.FS to webdav.FileSystem. Every mutating
// method fails with os.ErrPermission.
type fileSystem struct {
	fsys *cityfs.FS

	// modTime is reported for every entry; the dataset never changes
	// while mounted.
	modTime time.Time
}

var _ webdav.FileSystem = (*fileSystem)(nil)

func newFileSystem(fsys *cityfs.FS) *fileSystem {
	return &fileSystem{fsys: fsys, modTime: time.Now()}
}

func (f *fileSystem) Mkdir(context.Context, string, os.FileMode) error {
	return os.ErrPermission
}

func (f *fileSystem) RemoveAll(context.Context, string) error {
	return os.ErrPermission
}

func (f *fileSystem) Rename(context.Context, string, string) error {
	return os.ErrPermission
}

func (f *fileSystem) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	name = clean(name)
	attr, err := f.fsys.GetAttr(ctx, name)
	if err != nil {
		return nil, toOSError(err)
	}
	return f.info(path.Base(name), attr, int64(attr.Size)), nil
}

// OpenFile opens directories for listing and files for reading. Opening a
// file takes the weather snapshot and copies it into the handle, so one
// GET serves one consistent body.
func (f *fileSystem) OpenFile(ctx context.Context, name string, flag int, _ os.FileMode) (webdav.File, error) {
	name = clean(name)

	attr, err := f.fsys.GetAttr(ctx, name)
	if err != nil {
		if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
			return nil, os.ErrPermission
		}
		return nil, toOSError(err)
	}

	if attr.IsDir() {
		if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
			return nil, os.ErrPermission
		}
		entries, err := f.fsys.ReadDir(ctx, name)
		if err != nil {
			return nil, toOSError(err)
		}
		return &dirFile{fs: f, name: name, attr: attr, entries: entries}, nil
	}

	if err := f.fsys.Open(ctx, name, flag); err != nil {
		return nil, toOSError(err)
	}

	size, err := f.fsys.OpenSize(name)
	if err != nil {
		return nil, toOSError(err)
	}
	data, err := f.fsys.Read(ctx, name, 0, int(size))
	if err != nil {
		return nil, toOSError(err)
	}

	return &cityFile{
		Reader: bytes.NewReader(data),
		info:   f.info(path.Base(name), attr, int64(len(data))),
	}, nil
}

func (f *fileSystem) info(name string, attr cityfs.Attr, size int64) *fileInfo {
	if name == "/" || name == "." {
		name = "/"
	}
	return &fileInfo{name: name, attr: attr, size: size, modTime: f.modTime}
}

// cityFile is an open city file: a private copy of the snapshot.
type cityFile struct {
	*bytes.Reader
	info *fileInfo
}

var _ webdav.File = (*cityFile)(nil)

func (c *cityFile) Close() error { return nil }

func (c *cityFile) Write([]byte) (int, error) { return 0, os.ErrPermission }

func (c *cityFile) Readdir(int) ([]fs.FileInfo, error) {
	return nil, &os.PathError{Op: "readdir", Path: c.info.name, Err: os.ErrInvalid}
}

// Stat reports the snapshot size; http.ServeContent seeks to the end to
// find the length and must agree with it.
func (c *cityFile) Stat() (fs.FileInfo, error) {
	return c.info, nil
}

type dirFile struct {
	fs      *fileSystem
	name    string
	attr    cityfs.Attr
	entries []cityfs.DirEntry
	pos     int
}

var _ webdav.File = (*dirFile)(nil)

func (d *dirFile) Close() error { return nil }

func (d *dirFile) Read([]byte) (int, error) {
	return 0, &os.PathError{Op: "read", Path: d.name, Err: os.ErrInvalid}
}

func (d *dirFile) Seek(int64, int) (int64, error) {
	return 0, &os.PathError{Op: "seek", Path: d.name, Err: os.ErrInvalid}
}

func (d *dirFile) Write([]byte) (int, error) { return 0, os.ErrPermission }

func (d *dirFile) Readdir(count int) ([]fs.FileInfo, error) {
	remaining := d.entries[d.pos:]
	if count > 0 {
		if len(remaining) == 0 {
			return nil, io.EOF
		}
		if count < len(remaining) {
			remaining = remaining[:count]
		}
	}

	infos := make([]fs.FileInfo, 0, len(remaining))
	for _, e := range remaining {
		infos = append(infos, d.fs.info(e.Name, e.Attr, int64(e.Attr.Size)))
	}
	d.pos += len(remaining)
	return infos, nil
}

func (d *dirFile) Stat() (fs.FileInfo, error) {
	return d.fs.info(path.Base(d.name), d.attr, 0), nil
}

type fileInfo struct {
	name    string
	attr    cityfs.Attr
	size    int64
	modTime time.Time
}

var _ webdav.ContentTyper = (*fileInfo)(nil)

func (i *fileInfo) Name() string       { return i.name }
func (i *fileInfo) Size() int64        { return i.size }
func (i *fileInfo) Mode() os.FileMode  { return i.attr.FileMode() }
func (i *fileInfo) ModTime() time.Time { return i.modTime }
func (i *fileInfo) IsDir() bool        { return i.attr.IsDir() }
func (i *fileInfo) Sys() any           { return nil }

// ContentType answers PROPFIND without opening the file, which would
// otherwise trigger a weather lookup per listed city.
func (i *fileInfo) ContentType(context.Context) (string, error) {
	if i.attr.IsDir() {
		return "", webdav.ErrNotImplemented
	}
	return cityContentType, nil
}

func clean(name string) string {
	return path.Clean("/" + name)
}

func toOSError(err error) error {
	switch cityfs.CodeOf(err) {
	case cityfs.ErrNotFound:
		return os.ErrNotExist
	case cityfs.ErrPermissionDenied:
		return os.ErrPermission
	case cityfs.ErrIsDirectory, cityfs.ErrNotDirectory, cityfs.ErrInvalidArgument:
		return os.ErrInvalid
	default:
		return err
	}
}
