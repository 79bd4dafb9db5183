package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/cityfs/pkg/cityfs"
	"github.com/marmos91/cityfs/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter blocks in Serve until its context is cancelled, Stop is
// called, or serveErr is returned.
type fakeAdapter struct {
	protocol string
	endpoint string
	serveErr error

	mu      sync.Mutex
	fs      *cityfs.FS
	stopped chan struct{}
	once    sync.Once
	order   *[]string
	orderMu *sync.Mutex
}

func newFake(protocol, endpoint string) *fakeAdapter {
	return &fakeAdapter{protocol: protocol, endpoint: endpoint, stopped: make(chan struct{})}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	if f.serveErr != nil {
		return f.serveErr
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.stopped:
		return nil
	}
}

func (f *fakeAdapter) SetFilesystem(fs *cityfs.FS) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fs = fs
}

func (f *fakeAdapter) Stop(context.Context) error {
	f.once.Do(func() {
		if f.order != nil {
			f.orderMu.Lock()
			*f.order = append(*f.order, f.protocol)
			f.orderMu.Unlock()
		}
		close(f.stopped)
	})
	return nil
}

func (f *fakeAdapter) Protocol() string { return f.protocol }
func (f *fakeAdapter) Endpoint() string { return f.endpoint }

func testFS() *cityfs.FS {
	return cityfs.New(cityfs.Config{Dataset: dataset.FromRecords(nil)})
}

func TestAddAdapter(t *testing.T) {
	fsys := testFS()
	srv := New(fsys)

	a := newFake("FUSE", "/mnt/cities")
	require.NoError(t, srv.AddAdapter(a))
	assert.Same(t, fsys, a.fs)

	err := srv.AddAdapter(newFake("FUSE", "/mnt/other"))
	assert.ErrorContains(t, err, "already registered")

	err = srv.AddAdapter(newFake("WebDAV", "/mnt/cities"))
	assert.ErrorContains(t, err, "already in use")

	require.NoError(t, srv.AddAdapter(newFake("WebDAV", ":8080")))
	assert.Len(t, srv.Adapters(), 2)
}

func TestNew_PanicsOnNilFilesystem(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestServe_NoAdapters(t *testing.T) {
	err := New(testFS()).Serve(context.Background())
	assert.ErrorContains(t, err, "no adapters registered")
}

func TestServe_ContextCancelStopsAllInReverseOrder(t *testing.T) {
	srv := New(testFS())

	var order []string
	var orderMu sync.Mutex
	first := newFake("FUSE", "/mnt/cities")
	second := newFake("WebDAV", ":8080")
	for _, a := range []*fakeAdapter{first, second} {
		a.order = &order
		a.orderMu = &orderMu
		require.NoError(t, srv.AddAdapter(a))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	assert.Equal(t, []string{"WebDAV", "FUSE"}, order)
}

func TestServe_AdapterFailureStopsOthers(t *testing.T) {
	srv := New(testFS())

	healthy := newFake("FUSE", "/mnt/cities")
	broken := newFake("WebDAV", ":8080")
	broken.serveErr = errors.New("address already in use")

	require.NoError(t, srv.AddAdapter(healthy))
	require.NoError(t, srv.AddAdapter(broken))

	err := srv.Serve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, broken.serveErr)
	assert.Contains(t, err.Error(), "WebDAV")

	select {
	case <-healthy.stopped:
	default:
		t.Fatal("healthy adapter was not stopped")
	}
}

func TestServe_OnlyOnce(t *testing.T) {
	srv := New(testFS())
	require.NoError(t, srv.AddAdapter(newFake("FUSE", "/mnt/cities")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, srv.Serve(ctx), context.Canceled)

	assert.ErrorIs(t, srv.Serve(context.Background()), ErrAlreadyServed)
	assert.Panics(t, func() { _ = srv.AddAdapter(newFake("WebDAV", ":8080")) })
}
