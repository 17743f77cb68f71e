package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/async"
	"github.com/joseph-ayodele/docflow/internal/entity"
	"github.com/joseph-ayodele/docflow/internal/export"
	"github.com/joseph-ayodele/docflow/internal/extract"
	"github.com/joseph-ayodele/docflow/internal/llm"
	"github.com/joseph-ayodele/docflow/internal/processor"
	"github.com/joseph-ayodele/docflow/internal/repository"
	"github.com/joseph-ayodele/docflow/internal/storage"
)

type echoProvider struct {
	name string
	err  error
	last []llm.Message
}

func (p *echoProvider) Name() string { return p.name }

func (p *echoProvider) CompleteText(_ context.Context, prompt string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "echo: " + prompt, nil
}

func (p *echoProvider) CompleteChat(_ context.Context, msgs []llm.Message) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.last = msgs
	return "chat: " + msgs[len(msgs)-1].Content, nil
}

type fixture struct {
	conn     *grpc.ClientConn
	store    *repository.Store
	provider *echoProvider
}

func newFixture(t *testing.T, provider *echoProvider) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })
	require.NoError(t, repository.Migrate(ctx, db))
	store := repository.NewStore(db, nil)

	proc := processor.New(store, storage.NewRouter(nil), extract.NewExtractor(extract.Config{}, nil), nil,
		processor.Config{MaxRetries: 1, RetryDelay: time.Millisecond}, nil)
	completions := llm.NewService([]llm.Provider{provider}, nil,
		llm.Config{MaxRetries: 1, InitialDelay: time.Millisecond}, nil)
	queue := async.NewQueue(proc, nil, async.WithWorkers(1))
	t.Cleanup(func() { queue.Shutdown(context.Background()) })

	docs := NewDocumentServer(proc, completions, queue, export.NewService(store, nil), nil)
	srv, _ := NewGRPCServer(docs, nil)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &fixture{conn: conn, store: store, provider: provider}
}

func (f *fixture) call(t *testing.T, method string, req map[string]any) (map[string]any, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	require.NoError(t, err)
	out, err := Invoke(t.Context(), f.conn, method, in)
	if err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (f *fixture) createDoc(t *testing.T) *entity.Document {
	t.Helper()
	doc, err := f.store.Documents.Create(t.Context(), entity.Document{
		UserID:     "user-1",
		Title:      "greeting.txt",
		ContentRef: "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello there")),
		FileType:   constants.MimeText,
	})
	require.NoError(t, err)
	return doc
}

func TestHealthServing(t *testing.T) {
	f := newFixture(t, &echoProvider{name: "groq"})
	resp, err := healthpb.NewHealthClient(f.conn).Check(t.Context(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestProcessAndStatus(t *testing.T) {
	f := newFixture(t, &echoProvider{name: "groq"})
	doc := f.createDoc(t)

	out, err := f.call(t, MethodProcessDocument, map[string]any{"documentId": doc.ID})
	require.NoError(t, err)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "hello there", out["content"])

	st, err := f.call(t, MethodGetProcessingStatus, map[string]any{"documentId": doc.ID})
	require.NoError(t, err)
	assert.Equal(t, "completed", st["status"])
	assert.EqualValues(t, 100, st["progress"])
}

func TestProcessUnknownDocumentReturnsFailureResult(t *testing.T) {
	f := newFixture(t, &echoProvider{name: "groq"})
	out, err := f.call(t, MethodProcessDocument, map[string]any{"documentId": "missing"})
	require.NoError(t, err)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, processor.MsgDocumentNotFound, out["error"])
}

func TestProcessDocumentAsync(t *testing.T) {
	f := newFixture(t, &echoProvider{name: "groq"})
	doc := f.createDoc(t)

	out, err := f.call(t, MethodProcessDocumentAsync, map[string]any{"documentId": doc.ID})
	require.NoError(t, err)
	assert.Equal(t, true, out["accepted"])

	require.Eventually(t, func() bool {
		got, err := f.store.Documents.Get(t.Context(), doc.ID)
		return err == nil && got.Status == constants.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	_, err = f.call(t, MethodProcessDocumentAsync, map[string]any{"documentId": ""})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestComplete(t *testing.T) {
	f := newFixture(t, &echoProvider{name: "groq"})
	out, err := f.call(t, MethodComplete, map[string]any{"prompt": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out["text"])

	_, err = f.call(t, MethodComplete, map[string]any{"prompt": "hi", "preferredModel": "nope"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCompleteAllLimitedIsResourceExhausted(t *testing.T) {
	f := newFixture(t, &echoProvider{name: "groq", err: &llm.RateLimitError{Provider: "groq"}})
	_, err := f.call(t, MethodComplete, map[string]any{"prompt": "hi"})
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestChatValidatesMessages(t *testing.T) {
	f := newFixture(t, &echoProvider{name: "groq"})
	out, err := f.call(t, MethodChat, map[string]any{
		"messages": []any{map[string]any{"role": "user", "content": "ping"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "chat: ping", out["text"])

	_, err = f.call(t, MethodChat, map[string]any{
		"messages": []any{map[string]any{"role": "robot", "content": "ping"}},
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.call(t, MethodChat, map[string]any{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestChatAboutDocument(t *testing.T) {
	p := &echoProvider{name: "groq"}
	f := newFixture(t, p)
	doc := f.createDoc(t)

	out, err := f.call(t, MethodChatAboutDocument, map[string]any{
		"documentId": doc.ID,
		"messages":   []any{map[string]any{"role": "user", "content": "summarize"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "chat: summarize", out["text"])
	require.Len(t, p.last, 2)
	assert.Equal(t, llm.RoleSystem, p.last[0].Role)
	assert.Contains(t, p.last[0].Content, "greeting.txt")
	assert.Contains(t, p.last[0].Content, "hello there")

	_, err = f.call(t, MethodChatAboutDocument, map[string]any{
		"documentId": "missing",
		"messages":   []any{map[string]any{"role": "user", "content": "x"}},
	})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestExportDocument(t *testing.T) {
	f := newFixture(t, &echoProvider{name: "groq"})
	doc := f.createDoc(t)
	_, err := f.call(t, MethodProcessDocument, map[string]any{"documentId": doc.ID})
	require.NoError(t, err)

	out, err := f.call(t, MethodExportDocument, map[string]any{"documentId": doc.ID})
	require.NoError(t, err)
	assert.Equal(t, doc.ID+".xlsx", out["fileName"])

	raw, err := base64.StdEncoding.DecodeString(out["xlsx"].(string))
	require.NoError(t, err)
	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), export.VersionsSheet)

	_, err = f.call(t, MethodExportDocument, map[string]any{"documentId": "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}
