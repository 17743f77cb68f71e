package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docflow/internal/common"
)

func TestRouterHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/doc.txt":
			_, _ = w.Write([]byte("hello"))
		case "/flaky":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewRouter(nil, WithHTTPClient(srv.Client()))

	data, err := r.Fetch(t.Context(), srv.URL+"/doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = r.Fetch(t.Context(), srv.URL+"/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, common.CodeStorageFetch, common.CodeOf(err))
	assert.False(t, common.IsRetryable(err))

	_, err = r.Fetch(t.Context(), srv.URL+"/flaky")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTransient)
	assert.True(t, common.IsRetryable(err))
}

func TestRouterFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	require.NoError(t, os.WriteFile(path, []byte("# note"), 0o600))

	r := NewRouter(nil)
	for _, ref := range []string{path, "file://" + path} {
		data, err := r.Fetch(t.Context(), ref)
		require.NoError(t, err, ref)
		assert.Equal(t, "# note", string(data))
	}

	_, err := r.Fetch(t.Context(), filepath.Join(dir, "nope.md"))
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestRouterInline(t *testing.T) {
	r := NewRouter(nil)

	data, err := r.Fetch(t.Context(), "data:text/plain;base64,aGVsbG8gd29ybGQ=")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	data, err = r.Fetch(t.Context(), "data:text/plain,hi%20there")
	require.NoError(t, err)
	assert.Equal(t, "hi there", string(data))

	data, err = r.Fetch(t.Context(), "base64:aGVsbG8")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = r.Fetch(t.Context(), "base64:!!!")
	assert.True(t, common.HasCode(err, common.CodeValidation))
}

func TestRouterRejectsUnknownAndUnconfigured(t *testing.T) {
	r := NewRouter(nil)

	_, err := r.Fetch(t.Context(), "ftp://host/file")
	assert.True(t, common.HasCode(err, common.CodeValidation))

	_, err = r.Fetch(t.Context(), "s3://bucket/key")
	assert.True(t, common.HasCode(err, common.CodeValidation))

	_, err = r.Fetch(t.Context(), "  ")
	assert.True(t, common.HasCode(err, common.CodeValidation))
}

func TestRouterTimeout(t *testing.T) {
	slow := FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		<-ctx.Done()
		return nil, transient(ref, ctx.Err())
	})
	r := NewRouter(nil, WithGCS(slow), WithTimeout(10*time.Millisecond))

	_, err := r.Fetch(t.Context(), "gs://bucket/object")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type fakeS3 struct {
	input *s3.GetObjectInput
	body  string
	err   error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Fetcher(t *testing.T) {
	api := &fakeS3{body: "pdf bytes"}
	r := NewRouter(nil, WithS3(NewS3FetcherWithClient(api)))

	data, err := r.Fetch(t.Context(), "s3://docs/users/u1/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
	assert.Equal(t, "docs", aws.ToString(api.input.Bucket))
	assert.Equal(t, "users/u1/report.pdf", aws.ToString(api.input.Key))

	api.err = &types.NoSuchKey{}
	_, err = r.Fetch(t.Context(), "s3://docs/missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	api.err = errors.New("connection reset")
	_, err = r.Fetch(t.Context(), "s3://docs/key")
	assert.ErrorIs(t, err, common.ErrTransient)

	_, err = r.Fetch(t.Context(), "s3://docs")
	assert.True(t, common.HasCode(err, common.CodeValidation))
}

func TestGCSFetcher(t *testing.T) {
	var gotBucket, gotObject string
	f := NewGCSFetcherWithOpener(func(_ context.Context, bucket, object string) (io.ReadCloser, error) {
		gotBucket, gotObject = bucket, object
		switch object {
		case "missing.pdf":
			return nil, storage.ErrObjectNotExist
		case "broken.pdf":
			return nil, errors.New("503")
		}
		return io.NopCloser(strings.NewReader("gcs bytes")), nil
	})
	r := NewRouter(nil, WithGCS(f))

	data, err := r.Fetch(t.Context(), "gs://bucket/a/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "gcs bytes", string(data))
	assert.Equal(t, "bucket", gotBucket)
	assert.Equal(t, "a/b.pdf", gotObject)

	_, err = r.Fetch(t.Context(), "gs://bucket/missing.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = r.Fetch(t.Context(), "gs://bucket/broken.pdf")
	assert.ErrorIs(t, err, common.ErrTransient)
}
