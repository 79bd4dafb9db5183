package source

import (
	"compress/bzip2"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Decompress wraps rc with a decompressor chosen by the suffix of name:
// .gz, .zst, .lz4 or .bz2. Other names are returned unchanged. Closing the
// returned reader closes rc.
func Decompress(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".gz"):
		zr, err := gzip.NewReader(rc)
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", name, err)
		}
		return &wrappedReader{Reader: zr, close: func() error {
			_ = zr.Close()
			return rc.Close()
		}}, nil

	case strings.HasSuffix(lower, ".zst"):
		zr, err := zstd.NewReader(rc)
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("failed to open zstd stream %s: %w", name, err)
		}
		return &wrappedReader{Reader: zr, close: func() error {
			zr.Close()
			return rc.Close()
		}}, nil

	case strings.HasSuffix(lower, ".lz4"):
		return &wrappedReader{Reader: lz4.NewReader(rc), close: rc.Close}, nil

	case strings.HasSuffix(lower, ".bz2"):
		return &wrappedReader{Reader: bzip2.NewReader(rc), close: rc.Close}, nil

	default:
		return rc, nil
	}
}

type wrappedReader struct {
	io.Reader
	close func() error
}

func (w *wrappedReader) Close() error {
	return w.close()
}
