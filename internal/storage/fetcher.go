package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/docflow/internal/common"
)

// ErrObjectNotFound marks a content reference that resolves to nothing. It
// wraps common.ErrNotFound so processors can treat it as permanent.
var ErrObjectNotFound = fmt.Errorf("object not found: %w", common.ErrNotFound)

// Fetcher resolves a content reference to its bytes.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ref string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, ref string) ([]byte, error) { return f(ctx, ref) }

// Router dispatches on the reference scheme:
//
//	data:...;base64,...   inline data URL
//	base64:<payload>      raw inline base64
//	http(s)://...         HTTP GET
//	s3://bucket/key       S3 GetObject (when configured)
//	gs://bucket/object    GCS object reader (when configured)
//	file://... or a path  local file
type Router struct {
	http    Fetcher
	file    Fetcher
	s3      Fetcher
	gcs     Fetcher
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Router)

func WithS3(f Fetcher) Option { return func(r *Router) { r.s3 = f } }

func WithGCS(f Fetcher) Option { return func(r *Router) { r.gcs = f } }

func WithHTTPClient(c *http.Client) Option {
	return func(r *Router) { r.http = NewHTTPFetcher(c) }
}

// WithTimeout bounds each Fetch call.
func WithTimeout(d time.Duration) Option { return func(r *Router) { r.timeout = d } }

func NewRouter(logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		http:   NewHTTPFetcher(nil),
		file:   FileFetcher{},
		logger: logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Router) Fetch(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.NewValidationError("content reference is empty", nil)
	}

	ctx, cancel := common.WithOptionalTimeout(ctx, r.timeout)
	defer cancel()

	backend, scheme := r.route(ref)
	if backend == nil {
		return nil, common.NewValidationError(fmt.Sprintf("unsupported content reference scheme %q", scheme), nil)
	}

	start := time.Now()
	data, err := backend.Fetch(ctx, ref)
	if err != nil {
		r.logger.Warn("storage.fetch.failed",
			"scheme", scheme,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	r.logger.Debug("storage.fetch.ok",
		"scheme", scheme,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

func (r *Router) route(ref string) (Fetcher, string) {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "data:"):
		return InlineFetcher{}, "data"
	case strings.HasPrefix(lower, "base64:"):
		return InlineFetcher{}, "base64"
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return r.http, "http"
	case strings.HasPrefix(lower, "s3://"):
		return r.s3, "s3"
	case strings.HasPrefix(lower, "gs://"):
		return r.gcs, "gs"
	case strings.HasPrefix(lower, "file://"), !strings.Contains(ref, "://"):
		return r.file, "file"
	}
	scheme, _, _ := strings.Cut(ref, "://")
	return nil, scheme
}

func notFound(ref string, cause error) error {
	if cause == nil {
		cause = ErrObjectNotFound
	} else {
		cause = fmt.Errorf("%w: %w", ErrObjectNotFound, cause)
	}
	return common.NewAppError(common.CodeStorageFetch, "content not found: "+ref, cause)
}

func transient(ref string, cause error) error {
	return common.NewAppError(common.CodeStorageFetch, "fetch content: "+ref, fmt.Errorf("%w: %w", common.ErrTransient, cause))
}

// splitBucketKey parses "scheme://bucket/key".
func splitBucketKey(ref, scheme string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(ref, scheme+"://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", common.NewValidationError(fmt.Sprintf("malformed %s reference %q", scheme, ref), nil)
	}
	return bucket, key, nil
}
