package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ObjectOpener opens a GCS object for reading.
type ObjectOpener func(ctx context.Context, bucket, object string) (io.ReadCloser, error)

// GCSFetcher reads gs://bucket/object references.
type GCSFetcher struct {
	open   ObjectOpener
	client *storage.Client
}

// NewGCSFetcher uses application default credentials.
func NewGCSFetcher(ctx context.Context) (*GCSFetcher, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSFetcher{
		client: client,
		open: func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
			return client.Bucket(bucket).Object(object).NewReader(ctx)
		},
	}, nil
}

func NewGCSFetcherWithOpener(open ObjectOpener) *GCSFetcher {
	return &GCSFetcher{open: open}
}

func (f *GCSFetcher) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *GCSFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	bucket, object, err := splitBucketKey(ref, "gs")
	if err != nil {
		return nil, err
	}
	r, err := f.open(ctx, bucket, object)
	if err != nil {
		if isGCSNotFound(err) {
			return nil, notFound(ref, err)
		}
		return nil, transient(ref, err)
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, transient(ref, err)
	}
	return data, nil
}

func isGCSNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return true
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
