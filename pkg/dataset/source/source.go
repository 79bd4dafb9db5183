// Package source provides the ingestion collaborators that supply the raw
// city records: local files, S3 objects and HTTP URLs.
//
// Every source decompresses transparently based on the name's suffix, see
// Decompress.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrSourceNotFound indicates the file, object or URL does not exist.
var ErrSourceNotFound = errors.New("source not found")

// Source yields the raw bytes of the city dataset.
type Source interface {
	// Name identifies the source in logs (a path, s3:// or http URL).
	Name() string

	// Open returns a reader over the decompressed dataset. The caller
	// must close it.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads the dataset from a local file.
type FileSource struct {
	Path string
}

var _ Source = (*FileSource)(nil)

func (s *FileSource) Name() string { return s.Path }

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.Path, ErrSourceNotFound)
		}
		return nil, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}

	return Decompress(s.Path, f)
}

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the dataset from an S3 (or S3-compatible) object.
type S3Source struct {
	Client S3API
	Bucket string
	Key    string
}

var _ Source = (*S3Source)(nil)

func (s *S3Source) Name() string {
	return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key)
}

func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	result, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%s: %w", s.Name(), ErrSourceNotFound)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return Decompress(s.Key, result.Body)
}

// HTTPSource downloads the dataset from a URL.
type HTTPSource struct {
	URL string

	// Client is used for the request. Nil uses a client with a one
	// minute timeout.
	Client *http.Client
}

var _ Source = (*HTTPSource)(nil)

var defaultHTTPClient = &http.Client{Timeout: time.Minute}

func (s *HTTPSource) Name() string { return s.URL }

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		client = defaultHTTPClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset URL %q: %w", s.URL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", s.URL, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", s.URL, ErrSourceNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to download %s: unexpected status %s", s.URL, resp.Status)
	}

	return Decompress(req.URL.Path, resp.Body)
}
