// Package cityfs is the read-only filesystem every presentation adapter
// talks to.
//
// FS composes the path resolver, the content generator and the open-file
// cache behind four operations that mirror what a filesystem host asks
// for: GetAttr, Open, Read and ReadDir. Adapters never see the dataset or
// the resolver directly.
//
// Size policy: a file's reported size is always the length of its
// placeholder content, so attribute queries never trigger a weather
// lookup. The content read after Open is usually longer; adapters must
// read until EOF rather than trusting the attribute size.
package cityfs

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/marmos91/cityfs/internal/logger"
	"github.com/marmos91/cityfs/pkg/alias"
	"github.com/marmos91/cityfs/pkg/content"
	"github.com/marmos91/cityfs/pkg/dataset"
	"github.com/marmos91/cityfs/pkg/opencache"
	"github.com/marmos91/cityfs/pkg/resolver"
	"github.com/marmos91/cityfs/pkg/weather"
)

// File type bits and permissions reported in Attr.Mode.
const (
	ModeDir     uint32 = 0o040000
	ModeRegular uint32 = 0o100000

	DirPerm  uint32 = 0o755
	FilePerm uint32 = 0o444

	dirNlink  = 3
	fileNlink = 1

	accessModeMask = os.O_RDONLY | os.O_WRONLY | os.O_RDWR
)

// Kind distinguishes directories from files.
type Kind int

const (
	KindDirectory Kind = iota
	KindFile
)

// Attr describes an entry.
type Attr struct {
	Kind  Kind
	Mode  uint32
	Nlink uint32
	Size  uint64
}

// IsDir reports whether the attributes describe a directory.
func (a Attr) IsDir() bool {
	return a.Kind == KindDirectory
}

// FileMode converts Mode to an os.FileMode.
func (a Attr) FileMode() os.FileMode {
	perm := os.FileMode(a.Mode & 0o777)
	if a.IsDir() {
		return os.ModeDir | perm
	}
	return perm
}

// DirEntry is one element of a directory listing.
type DirEntry struct {
	Name string
	Attr Attr
}

var dirAttr = Attr{Kind: KindDirectory, Mode: ModeDir | DirPerm, Nlink: dirNlink}

// Metrics observes FS operations. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// ObserveOperation records one operation ("getattr", "open", "read",
	// "readdir") with its status ("success" or an ErrorCode label) and
	// duration.
	ObserveOperation(operation, status string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, string, time.Duration) {}

// Config assembles an FS.
type Config struct {
	// Dataset is the read-only city dataset. Required.
	Dataset *dataset.Dataset

	// Aliases maps country codes to directory names. Nil uses identity.
	Aliases *alias.Table

	// Weather enriches content on open. Nil disables weather lookups,
	// in which case opened files hold their placeholder content.
	Weather weather.Provider

	// Extension is the city file suffix. Empty uses resolver.DefaultExtension.
	Extension string

	// Metrics observes operations. Nil disables observation.
	Metrics Metrics

	// CacheMetrics observes the open-file cache. Nil disables observation.
	CacheMetrics opencache.Metrics
}

// FS is the virtual city filesystem.
//
// Thread safety:
// All methods are safe for concurrent use. The only mutable state is the
// open-file cache, which has its own lock; weather lookups run without it.
type FS struct {
	resolver       *resolver.Resolver
	generator      *content.Generator
	cache          *opencache.Cache
	includeWeather bool
	metrics        Metrics
}

// New creates an FS from cfg.
func New(cfg Config) *FS {
	var metrics Metrics = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	return &FS{
		resolver:       resolver.New(cfg.Dataset, cfg.Aliases, cfg.Extension),
		generator:      content.NewGenerator(cfg.Dataset, cfg.Weather),
		cache:          opencache.New(cfg.CacheMetrics),
		includeWeather: cfg.Weather != nil,
		metrics:        metrics,
	}
}

// Resolver exposes the path resolver.
func (f *FS) Resolver() *resolver.Resolver {
	return f.resolver
}

// GetAttr returns the attributes of path.
func (f *FS) GetAttr(ctx context.Context, path string) (attr Attr, err error) {
	defer f.observe("getattr", time.Now(), &err)
	logger.Debug("GETATTR %s", path)

	switch r := f.resolver.Resolve(path).(type) {
	case resolver.Root, resolver.CountryDir:
		return dirAttr, nil
	case resolver.CityFile:
		return f.fileAttr(r, path)
	default:
		return Attr{}, newError(ErrNotFound, "no such file or directory", path)
	}
}

func (f *FS) fileAttr(r resolver.CityFile, path string) (Attr, error) {
	size, err := f.generator.PlaceholderSize(r.Code, r.City)
	if err != nil {
		logger.Error("Sizing %s: %v", path, err)
		return Attr{}, newError(ErrIO, err.Error(), path)
	}
	return Attr{
		Kind:  KindFile,
		Mode:  ModeRegular | FilePerm,
		Nlink: fileNlink,
		Size:  uint64(size),
	}, nil
}

// Open prepares path for reading. flags are os.OpenFile flags; any access
// mode other than read-only is refused before content is generated.
//
// Open performs the weather lookup and records the resulting snapshot;
// every later Read of path is served from it.
func (f *FS) Open(ctx context.Context, path string, flags int) (err error) {
	defer f.observe("open", time.Now(), &err)
	logger.Debug("OPEN %s flags=0x%x", path, flags)

	var city resolver.CityFile
	switch r := f.resolver.Resolve(path).(type) {
	case resolver.CityFile:
		city = r
	case resolver.Root, resolver.CountryDir:
		return newError(ErrIsDirectory, "is a directory", path)
	default:
		return newError(ErrNotFound, "no such file or directory", path)
	}

	if flags&accessModeMask != os.O_RDONLY {
		return newError(ErrPermissionDenied, "read-only filesystem", path)
	}

	text, err := f.generator.Generate(ctx, city.Code, city.City, f.includeWeather)
	if err != nil {
		logger.Error("Generating %s: %v", path, err)
		return newError(ErrIO, err.Error(), path)
	}

	f.cache.RecordOpen(path, []byte(text))
	return nil
}

// Read returns up to size bytes of the snapshot taken by the last Open of
// path, starting at offset. A path that was never opened reads as empty.
func (f *FS) Read(ctx context.Context, path string, offset int64, size int) (data []byte, err error) {
	defer f.observe("read", time.Now(), &err)
	logger.Debug("READ %s offset=%d size=%d", path, offset, size)

	data, err = f.cache.ReadAt(path, offset, size)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, opencache.ErrNoSnapshot):
		logger.Warn("READ %s without a prior open, returning no data", path)
		return []byte{}, nil
	case errors.Is(err, opencache.ErrInvalidOffset):
		return nil, newError(ErrInvalidArgument, err.Error(), path)
	default:
		return nil, newError(ErrIO, err.Error(), path)
	}
}

// OpenSize returns the length of the snapshot of an opened path.
func (f *FS) OpenSize(path string) (int64, error) {
	n, err := f.cache.Size(path)
	if err != nil {
		return 0, newError(ErrNotFound, "not open", path)
	}
	return int64(n), nil
}

// ReadDir lists path. The root lists countries in dataset order; a country
// lists its cities in ingestion order.
func (f *FS) ReadDir(ctx context.Context, path string) (entries []DirEntry, err error) {
	defer f.observe("readdir", time.Now(), &err)
	logger.Debug("READDIR %s", path)

	ds := f.resolver.Dataset()

	switch r := f.resolver.Resolve(path).(type) {
	case resolver.Root:
		codes := ds.CountryCodes()
		entries = make([]DirEntry, 0, len(codes))
		for _, code := range codes {
			entries = append(entries, DirEntry{
				Name: f.resolver.CountryEntryName(code),
				Attr: dirAttr,
			})
		}
		return entries, nil

	case resolver.CountryDir:
		country, ok := ds.Country(r.Code)
		if !ok {
			return nil, newError(ErrNotFound, "no such file or directory", path)
		}
		entries = make([]DirEntry, 0, country.Len())
		for _, name := range country.CityNames {
			attr, err := f.fileAttr(resolver.CityFile{Code: r.Code, City: name}, path)
			if err != nil {
				return nil, err
			}
			entries = append(entries, DirEntry{
				Name: f.resolver.CityEntryName(name),
				Attr: attr,
			})
		}
		return entries, nil

	case resolver.CityFile:
		return nil, newError(ErrNotDirectory, "not a directory", path)

	default:
		return nil, newError(ErrNotFound, "no such file or directory", path)
	}
}

func (f *FS) observe(operation string, start time.Time, err *error) {
	status := "success"
	if *err != nil {
		status = CodeOf(*err).String()
	}
	f.metrics.ObserveOperation(operation, status, time.Since(start))
}
