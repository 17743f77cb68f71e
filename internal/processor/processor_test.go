package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/entity"
	"github.com/joseph-ayodele/docflow/internal/events"
	"github.com/joseph-ayodele/docflow/internal/extract"
	"github.com/joseph-ayodele/docflow/internal/repository"
	"github.com/joseph-ayodele/docflow/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() {}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	store *repository.Store
	proc  *Processor
	pub   *recordingPublisher
}

func newHarness(t *testing.T, fetcher storage.Fetcher) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })
	require.NoError(t, repository.Migrate(ctx, db))

	store := repository.NewStore(db, nil)
	pub := &recordingPublisher{}
	proc := New(store, fetcher, extract.NewExtractor(extract.Config{}, nil), pub,
		Config{MaxRetries: 3, RetryDelay: time.Millisecond, FetchTimeout: time.Second}, nil)
	return &harness{store: store, proc: proc, pub: pub}
}

func (h *harness) createDoc(t *testing.T, ref, fileType string) *entity.Document {
	t.Helper()
	doc, err := h.store.Documents.Create(t.Context(), entity.Document{
		UserID:     "user-1",
		Title:      "notes",
		ContentRef: ref,
		FileType:   fileType,
		FileSize:   42,
	})
	require.NoError(t, err)
	return doc
}

func (h *harness) actions(t *testing.T, id string) []constants.ActivityAction {
	t.Helper()
	acts, err := h.store.Activities.ListByDocument(t.Context(), id)
	require.NoError(t, err)
	var out []constants.ActivityAction
	for _, a := range acts {
		out = append(out, a.Action)
	}
	return out
}

func staticFetcher(content string) storage.Fetcher {
	return storage.FetcherFunc(func(context.Context, string) ([]byte, error) {
		return []byte(content), nil
	})
}

func TestProcessDocumentSuccess(t *testing.T) {
	h := newHarness(t, staticFetcher("hello world"))
	doc := h.createDoc(t, "mem://notes", constants.MimeText)

	res := h.proc.ProcessDocument(t.Context(), doc.ID)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "hello world", res.Content)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, constants.MimeText, res.Metadata.FileType)
	assert.Equal(t, int64(42), res.Metadata.FileSize)
	assert.Equal(t, "notes", res.Metadata.Title)

	got, err := h.store.Documents.Get(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusCompleted, got.Status)

	v, err := h.store.Versions.Latest(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", v.Content)
	assert.Equal(t, InitialChangeNote, v.Changes)

	assert.Equal(t, []constants.ActivityAction{constants.ActionProcessed}, h.actions(t, doc.ID))
	assert.Equal(t, []string{events.TypeProcessing, events.TypeCompleted}, h.pub.types())
	assert.False(t, h.proc.InFlight(doc.ID))

	st := h.proc.GetProcessingStatus(t.Context(), doc.ID)
	assert.Equal(t, Status{Status: "completed", Progress: 100}, st)
}

func TestRetryThenSucceed(t *testing.T) {
	var calls atomic.Int32
	fetcher := storage.FetcherFunc(func(context.Context, string) ([]byte, error) {
		if calls.Add(1) < 3 {
			return nil, common.NewAppError(common.CodeStorageFetch, "fetch", common.ErrTransient)
		}
		return []byte("third time lucky"), nil
	})
	h := newHarness(t, fetcher)
	doc := h.createDoc(t, "mem://x", constants.MimeText)

	res := h.proc.ProcessDocument(t.Context(), doc.ID)
	require.True(t, res.Success, res.Error)
	assert.EqualValues(t, 3, calls.Load())

	got, err := h.store.Documents.Get(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusCompleted, got.Status)
	assert.Equal(t, []constants.ActivityAction{constants.ActionProcessed}, h.actions(t, doc.ID))
}

func TestRetryBoundThenError(t *testing.T) {
	var calls atomic.Int32
	fetcher := storage.FetcherFunc(func(context.Context, string) ([]byte, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	})
	h := newHarness(t, fetcher)
	doc := h.createDoc(t, "mem://x", constants.MimeText)

	res := h.proc.ProcessDocument(t.Context(), doc.ID)
	assert.False(t, res.Success)
	assert.Equal(t, "connection refused", res.Error)
	assert.EqualValues(t, 3, calls.Load())

	got, err := h.store.Documents.Get(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusError, got.Status)

	latest, err := h.store.Activities.LatestOf(t.Context(), doc.ID, constants.ActionError)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "connection refused", latest.DetailString("error"))
	attempts, ok := latest.Details["attempts"].([]any)
	require.True(t, ok)
	assert.Len(t, attempts, 3)

	_, err = h.store.Versions.Latest(t.Context(), doc.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	st := h.proc.GetProcessingStatus(t.Context(), doc.ID)
	assert.Equal(t, Status{Status: "error", Error: "connection refused", Progress: 0}, st)
	assert.Equal(t, []string{events.TypeProcessing, events.TypeFailed}, h.pub.types())
}

func TestMissingContentRefIsRetriedThenFails(t *testing.T) {
	var calls atomic.Int32
	fetcher := storage.FetcherFunc(func(context.Context, string) ([]byte, error) {
		calls.Add(1)
		return nil, nil
	})
	h := newHarness(t, fetcher)
	doc := h.createDoc(t, "", constants.MimeText)

	res := h.proc.ProcessDocument(t.Context(), doc.ID)
	assert.False(t, res.Success)
	assert.Equal(t, MsgMissingContentRef, res.Error)
	assert.EqualValues(t, 0, calls.Load())
}

func TestStorageNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	fetcher := storage.FetcherFunc(func(_ context.Context, ref string) ([]byte, error) {
		calls.Add(1)
		return nil, common.NewAppError(common.CodeStorageFetch, "content not found: "+ref, storage.ErrObjectNotFound)
	})
	h := newHarness(t, fetcher)
	doc := h.createDoc(t, "mem://gone", constants.MimeText)

	res := h.proc.ProcessDocument(t.Context(), doc.ID)
	assert.False(t, res.Success)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, "content not found: mem://gone", res.Error)
}

func TestUnknownDocument(t *testing.T) {
	h := newHarness(t, staticFetcher("x"))

	res := h.proc.ProcessDocument(t.Context(), "does-not-exist")
	assert.False(t, res.Success)
	assert.Equal(t, MsgDocumentNotFound, res.Error)

	st := h.proc.GetProcessingStatus(t.Context(), "does-not-exist")
	assert.Equal(t, Status{Status: "error", Error: MsgDocumentNotFound}, st)
}

func TestInvalidDocumentID(t *testing.T) {
	h := newHarness(t, staticFetcher("x"))
	res := h.proc.ProcessDocument(t.Context(), "bad/id")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestConcurrentCallsCreateOneVersion(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fetcher := storage.FetcherFunc(func(ctx context.Context, _ string) ([]byte, error) {
		once.Do(func() { close(entered) })
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []byte("content"), nil
	})
	h := newHarness(t, fetcher)
	doc := h.createDoc(t, "mem://slow", constants.MimeText)

	first := make(chan Result, 1)
	go func() { first <- h.proc.ProcessDocument(context.Background(), doc.ID) }()
	<-entered

	assert.True(t, h.proc.InFlight(doc.ID))
	second := h.proc.ProcessDocument(t.Context(), doc.ID)
	assert.False(t, second.Success)
	assert.True(t, second.AlreadyProcessing)
	assert.Equal(t, MsgAlreadyProcessing, second.Error)

	st := h.proc.GetProcessingStatus(t.Context(), doc.ID)
	assert.Equal(t, "processing", st.Status)
	assert.Equal(t, 50, st.Progress)

	close(release)
	res := <-first
	require.True(t, res.Success, res.Error)

	versions, err := h.store.Versions.ListByDocument(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestUnreadablePDFStillCompletes(t *testing.T) {
	h := newHarness(t, staticFetcher("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"))
	doc := h.createDoc(t, "mem://scan.pdf", constants.MimePDF)

	res := h.proc.ProcessDocument(t.Context(), doc.ID)
	require.True(t, res.Success, res.Error)
	assert.NotEmpty(t, res.Content)
}

func TestBinaryExtractionFailureIsTerminal(t *testing.T) {
	var calls atomic.Int32
	fetcher := storage.FetcherFunc(func(context.Context, string) ([]byte, error) {
		calls.Add(1)
		return []byte{0x00, 0x01, 0x02, 0xff}, nil
	})
	h := newHarness(t, fetcher)
	doc := h.createDoc(t, "mem://blob", constants.MimeOctet)

	res := h.proc.ProcessDocument(t.Context(), doc.ID)
	assert.False(t, res.Success)
	assert.EqualValues(t, 1, calls.Load())

	got, err := h.store.Documents.Get(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusError, got.Status)
}

func TestCancelledContextStillResolvesStatus(t *testing.T) {
	fetcher := storage.FetcherFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("flaky")
	})
	h := newHarness(t, fetcher)
	h.proc.cfg.RetryDelay = time.Hour
	doc := h.createDoc(t, "mem://x", constants.MimeText)

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	res := h.proc.ProcessDocument(ctx, doc.ID)
	assert.False(t, res.Success)

	got, err := h.store.Documents.Get(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusError, got.Status)
}

func TestProcessBatch(t *testing.T) {
	h := newHarness(t, staticFetcher("batch content"))
	a := h.createDoc(t, "mem://a", constants.MimeText)
	b := h.createDoc(t, "mem://b", constants.MimeText)

	results := h.proc.ProcessBatch(t.Context(), []string{a.ID, "missing", b.ID}, 2)
	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "missing", results[1].DocumentID)
	assert.True(t, results[2].Success)
}

func TestDocumentTextPrefersLatestVersion(t *testing.T) {
	h := newHarness(t, storage.NewRouter(nil))
	doc := h.createDoc(t, "data:text/plain;base64,aGVsbG8gd29ybGQ=", constants.MimeText)

	got, text, err := h.proc.DocumentText(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "hello world", text)

	_, err = h.store.Versions.Create(t.Context(), doc.ID, "stored text", InitialChangeNote)
	require.NoError(t, err)
	_, text, err = h.proc.DocumentText(t.Context(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "stored text", text)
}

func TestDocumentTextUnknownDocument(t *testing.T) {
	h := newHarness(t, storage.NewRouter(nil))
	_, _, err := h.proc.DocumentText(t.Context(), "nope")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
