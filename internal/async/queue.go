package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docflow/internal/processor"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is the smallest useful unit of background work.
type Job struct {
	DocumentID  string
	SubmittedAt time.Time
	RequestID   string
}

// DocumentProcessor is what the workers drive.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, id string) processor.Result
}

// Queue runs ProcessDocument on a fixed worker pool.
type Queue struct {
	proc    DocumentProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  func(Job, processor.Result)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback run by the worker after each job.
func WithOnDone(fn func(Job, processor.Result)) Option {
	return func(q *Queue) { q.onDone = fn }
}

func NewQueue(proc DocumentProcessor, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res := q.proc.ProcessDocument(ctx, job.DocumentID)
					cancel()

					if res.Success {
						q.logger.Info("async.job.completed", "worker_id", workerID, "document_id", job.DocumentID,
							"queued_ms", time.Since(job.SubmittedAt).Milliseconds())
					} else {
						q.logger.Warn("async.job.failed", "worker_id", workerID, "document_id", job.DocumentID,
							"already_processing", res.AlreadyProcessing, "error", res.Error)
					}
					if q.onDone != nil {
						q.onDone(job, res)
					}
				}

				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue submits a job. When the buffer is full it blocks until a slot
// frees up or ctx ends.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", "document_id", job.DocumentID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("async.enqueue.ok", "document_id", job.DocumentID)
		return nil
	default:
	}

	q.logger.Warn("async.enqueue.backpressure", "document_id", job.DocumentID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
