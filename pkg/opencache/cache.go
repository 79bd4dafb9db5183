// Package opencache holds the content snapshot taken when a city file is
// opened.
//
// Reads are served only from the snapshot, so every read of one open sees
// the same bytes no matter how the caller fragments them. A snapshot is
// replaced whole by the next open of the same path and is never freed.
package opencache

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNoSnapshot indicates a read of a path that was never opened.
	ErrNoSnapshot = errors.New("no snapshot recorded for path")

	// ErrInvalidOffset indicates a negative read offset.
	ErrInvalidOffset = errors.New("invalid offset")
)

// Metrics observes cache activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// RecordOpen is called for every snapshot stored.
	RecordOpen(size int)

	// RecordRead is called for every read; hit is false on ErrNoSnapshot.
	RecordRead(hit bool, bytes int)

	// SetEntries reports the current number of snapshots.
	SetEntries(n int)
}

type noopMetrics struct{}

func (noopMetrics) RecordOpen(int)       {}
func (noopMetrics) RecordRead(bool, int) {}
func (noopMetrics) SetEntries(int)       {}

// Cache maps virtual paths to content snapshots.
//
// Thread safety:
// All methods are safe for concurrent use. A single RWMutex guards the map;
// entries are immutable once stored.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	metrics Metrics
}

// New creates an empty Cache. A nil metrics disables observation.
func New(metrics Metrics) *Cache {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Cache{
		entries: make(map[string][]byte),
		metrics: metrics,
	}
}

// RecordOpen stores a private copy of content under path, replacing any
// previous snapshot.
func (c *Cache) RecordOpen(path string, content []byte) {
	snapshot := make([]byte, len(content))
	copy(snapshot, content)

	c.mu.Lock()
	c.entries[path] = snapshot
	n := len(c.entries)
	c.mu.Unlock()

	c.metrics.RecordOpen(len(snapshot))
	c.metrics.SetEntries(n)
}

// ReadAt returns up to maxLength bytes of the snapshot of path starting at
// offset. The result is empty when offset is at or past the end.
func (c *Cache) ReadAt(path string, offset int64, maxLength int) ([]byte, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOffset, offset)
	}

	c.mu.RLock()
	snapshot, ok := c.entries[path]
	c.mu.RUnlock()

	if !ok {
		c.metrics.RecordRead(false, 0)
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, path)
	}

	if maxLength < 0 {
		maxLength = 0
	}

	size := int64(len(snapshot))
	if offset >= size {
		c.metrics.RecordRead(true, 0)
		return []byte{}, nil
	}

	end := size
	if int64(maxLength) < size-offset {
		end = offset + int64(maxLength)
	}

	out := make([]byte, end-offset)
	copy(out, snapshot[offset:end])

	c.metrics.RecordRead(true, len(out))
	return out, nil
}

// Size returns the length of the snapshot of path.
func (c *Cache) Size(path string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot, ok := c.entries[path]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSnapshot, path)
	}
	return len(snapshot), nil
}

// Len returns the number of stored snapshots.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
