package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docflow/internal/processor"
)

type fakeProcessor struct {
	mu   sync.Mutex
	seen []string
}

func (f *fakeProcessor) ProcessDocument(_ context.Context, id string) processor.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, id)
	return processor.Result{DocumentID: id, Success: id != "bad"}
}

func TestQueueProcessesAndDrains(t *testing.T) {
	fp := &fakeProcessor{}
	var mu sync.Mutex
	results := map[string]bool{}
	q := NewQueue(fp, nil, WithWorkers(2), WithQueueSize(4), WithOnDone(func(j Job, r processor.Result) {
		mu.Lock()
		results[j.DocumentID] = r.Success
		mu.Unlock()
	}))

	for _, id := range []string{"a", "b", "bad", "c"} {
		require.NoError(t, q.Enqueue(t.Context(), Job{DocumentID: id}))
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.ElementsMatch(t, []string{"a", "b", "bad", "c"}, fp.seen)
	assert.Equal(t, map[string]bool{"a": true, "b": true, "bad": false, "c": true}, results)
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewQueue(&fakeProcessor{}, nil)
	q.Shutdown(t.Context())
	q.Shutdown(t.Context())
	assert.ErrorIs(t, q.Enqueue(t.Context(), Job{DocumentID: "x"}), ErrQueueClosed)
}

type blockingProcessor struct{ release chan struct{} }

func (b *blockingProcessor) ProcessDocument(context.Context, string) processor.Result {
	<-b.release
	return processor.Result{Success: true}
}

func TestEnqueueHonorsContextWhenFull(t *testing.T) {
	bp := &blockingProcessor{release: make(chan struct{})}
	q := NewQueue(bp, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(t.Context(), Job{DocumentID: "running"}))
	// Wait until the worker has taken the first job so the buffer slot is free.
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(t.Context(), Job{DocumentID: "buffered"}))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{DocumentID: "overflow"}), context.DeadlineExceeded)

	close(bp.release)
	q.Shutdown(t.Context())
}
