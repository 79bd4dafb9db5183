package fuse

import (
	"context"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/marmos91/cityfs/pkg/cityfs"
)

// Nodes carry only their virtual path; every callback asks the facade.

type dirNode struct {
	gofuse.Inode
	fsys *cityfs.FS
	path string
}

var _ gofuse.InodeEmbedder = (*dirNode)(nil)
var _ gofuse.NodeLookuper = (*dirNode)(nil)
var _ gofuse.NodeReaddirer = (*dirNode)(nil)
var _ gofuse.NodeGetattrer = (*dirNode)(nil)
var _ gofuse.NodeOpener = (*dirNode)(nil)

func (d *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	childPath := joinPath(d.path, name)

	attr, err := d.fsys.GetAttr(ctx, childPath)
	if err != nil {
		return nil, toErrno(err)
	}
	fillAttr(&out.Attr, attr)

	if attr.IsDir() {
		child := &dirNode{fsys: d.fsys, path: childPath}
		return d.NewInode(ctx, child, gofuse.StableAttr{Mode: syscall.S_IFDIR}), 0
	}

	child := &fileNode{fsys: d.fsys, path: childPath}
	return d.NewInode(ctx, child, gofuse.StableAttr{Mode: syscall.S_IFREG}), 0
}

func (d *dirNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	entries, err := d.fsys.ReadDir(ctx, d.path)
	if err != nil {
		return nil, toErrno(err)
	}

	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		mode := uint32(syscall.S_IFREG)
		if e.Attr.IsDir() {
			mode = syscall.S_IFDIR
		}
		out = append(out, fuse.DirEntry{Name: e.Name, Mode: mode})
	}
	return gofuse.NewListDirStream(out), 0
}

func (d *dirNode) Getattr(ctx context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := d.fsys.GetAttr(ctx, d.path)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

// Open allows opendir; reading a directory as a file is refused by the
// kernel before it reaches us.
func (d *dirNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EISDIR
	}
	return nil, 0, 0
}

type fileNode struct {
	gofuse.Inode
	fsys *cityfs.FS
	path string
}

var _ gofuse.InodeEmbedder = (*fileNode)(nil)
var _ gofuse.NodeGetattrer = (*fileNode)(nil)
var _ gofuse.NodeOpener = (*fileNode)(nil)
var _ gofuse.NodeReader = (*fileNode)(nil)

func (f *fileNode) Getattr(ctx context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := f.fsys.GetAttr(ctx, f.path)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

// Open snapshots the content. Direct I/O makes the kernel forward every
// read instead of clipping at the attribute size, which is shorter than
// the weather-enriched snapshot.
func (f *fileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if err := f.fsys.Open(ctx, f.path, int(flags)); err != nil {
		return nil, 0, toErrno(err)
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (f *fileNode) Read(ctx context.Context, _ gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := f.fsys.Read(ctx, f.path, off, len(dest))
	if err != nil {
		return nil, toErrno(err)
	}
	n := copy(dest, data)
	return fuse.ReadResultData(dest[:n]), 0
}

func fillAttr(out *fuse.Attr, attr cityfs.Attr) {
	out.Mode = attr.Mode
	out.Nlink = attr.Nlink
	out.Size = attr.Size
	out.Blocks = (attr.Size + 511) / 512
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}
