package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/entity"
	"github.com/joseph-ayodele/docflow/internal/events"
	"github.com/joseph-ayodele/docflow/internal/extract"
	"github.com/joseph-ayodele/docflow/internal/repository"
	"github.com/joseph-ayodele/docflow/internal/storage"
)

// Messages surfaced in results and activities.
const (
	MsgAlreadyProcessing = "Document is already being processed"
	MsgMissingContentRef = "Document content URL not found"
	MsgDocumentNotFound  = "Document not found"
	InitialChangeNote    = "Initial processing"
)

type Config struct {
	MaxRetries   int           // total attempts
	RetryDelay   time.Duration // the wait after failed attempt n is RetryDelay*2^n
	FetchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{MaxRetries: 3, RetryDelay: time.Second, FetchTimeout: 30 * time.Second}
}

// Metadata describes a processed document.
type Metadata struct {
	FileType         string `json:"fileType"`
	FileSize         int64  `json:"fileSize"`
	Title            string `json:"title"`
	PageCount        int    `json:"pageCount,omitempty"`
	ProcessingTimeMs int64  `json:"processingTime"`
}

// Result is the outcome of one ProcessDocument call. Failures are reported
// here, never as a Go error.
type Result struct {
	DocumentID        string    `json:"documentId"`
	Success           bool      `json:"success"`
	AlreadyProcessing bool      `json:"alreadyProcessing,omitempty"`
	Content           string    `json:"content,omitempty"`
	Error             string    `json:"error,omitempty"`
	Metadata          *Metadata `json:"metadata,omitempty"`
}

// Status is the read-only view returned by GetProcessingStatus.
type Status struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Progress int    `json:"progress"`
}

// Processor drives a document from pending to completed or error. One
// instance per process; the in-flight set guarantees at most one run per
// document id within it.
type Processor struct {
	store     *repository.Store
	fetcher   storage.Fetcher
	extractor extract.TextExtractor
	events    events.Publisher
	cfg       Config
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func New(store *repository.Store, fetcher storage.Fetcher, extractor extract.TextExtractor, publisher events.Publisher, cfg Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Processor{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		events:    publisher,
		cfg:       cfg,
		logger:    logger,
		inflight:  make(map[string]struct{}),
	}
}

func (p *Processor) acquire(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[id]; busy {
		return false
	}
	p.inflight[id] = struct{}{}
	return true
}

func (p *Processor) release(id string) {
	p.mu.Lock()
	delete(p.inflight, id)
	p.mu.Unlock()
}

// InFlight reports whether id is being processed right now.
func (p *Processor) InFlight(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inflight[id]
	return ok
}

// run carries the per-call state that makes retried steps idempotent.
type run struct {
	id       string
	start    time.Time
	doc      *entity.Document
	version  *entity.Version
	logged   bool
	extract  extract.Result
	attempts int
	errs     *multierror.Error
}

// ProcessDocument runs the processing state machine for id. A cancelled ctx
// stops further retries; terminal status writes still happen.
func (p *Processor) ProcessDocument(ctx context.Context, id string) Result {
	if err := common.ValidateDocumentID(id); err != nil {
		return Result{DocumentID: id, Error: err.Error()}
	}
	if !p.acquire(id) {
		p.logger.Info("processor.skip.in_flight", "document_id", id)
		return Result{DocumentID: id, AlreadyProcessing: true, Error: MsgAlreadyProcessing}
	}
	defer p.release(id)

	r := &run{id: id, start: time.Now()}
	p.logger.Info("processor.start", "document_id", id, "max_retries", p.cfg.MaxRetries)
	p.publish(ctx, events.TypeProcessing, id, constants.StatusProcessing, "")

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.cfg.RetryDelay * 2
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = p.cfg.RetryDelay << 12
	eb.MaxElapsedTime = 0
	eb.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.cfg.MaxRetries-1)), ctx)

	operation := func() error {
		r.attempts++
		err := p.attempt(ctx, r)
		if err == nil {
			return nil
		}
		r.errs = multierror.Append(r.errs, fmt.Errorf("attempt %d: %w", r.attempts, err))
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		p.logger.Warn("processor.attempt.failed",
			"document_id", id,
			"attempt", r.attempts,
			"next_delay_ms", next.Milliseconds(),
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return p.fail(ctx, r, err)
	}
	return p.succeed(ctx, r)
}

// attempt runs one pass of fetch, extract and persist plus the completed
// transition. Steps that already succeeded in an earlier attempt are not
// repeated.
func (p *Processor) attempt(ctx context.Context, r *run) error {
	if err := p.store.Documents.UpdateStatus(ctx, r.id, constants.StatusProcessing); err != nil {
		return err
	}

	doc, err := p.store.Documents.Get(ctx, r.id)
	if err != nil {
		return err
	}
	r.doc = doc

	if r.version == nil {
		if doc.ContentRef == "" {
			return errors.New(MsgMissingContentRef)
		}

		fetchCtx, cancel := common.WithOptionalTimeout(ctx, p.cfg.FetchTimeout)
		data, err := p.fetcher.Fetch(fetchCtx, doc.ContentRef)
		cancel()
		if err != nil {
			return err
		}

		res, err := p.extractor.Extract(ctx, data, doc.FileType)
		if err != nil {
			return err
		}
		r.extract = res

		v, err := p.store.Versions.Create(ctx, r.id, res.Text, InitialChangeNote)
		if err != nil {
			return err
		}
		r.version = v
	}

	if !r.logged {
		details := map[string]any{
			"fileType":       doc.FileType,
			"fileSize":       doc.FileSize,
			"processingTime": time.Since(r.start).Milliseconds(),
			"method":         r.extract.Method,
			"versionId":      r.version.ID,
		}
		if r.extract.PageCount > 0 {
			details["pageCount"] = r.extract.PageCount
		}
		if _, err := p.store.Activities.Append(ctx, entity.Activity{
			DocumentID: r.id,
			UserID:     doc.UserID,
			Action:     constants.ActionProcessed,
			Details:    details,
		}); err != nil {
			return err
		}
		r.logged = true
	}

	return p.store.Documents.UpdateStatus(ctx, r.id, constants.StatusCompleted)
}

func (p *Processor) succeed(ctx context.Context, r *run) Result {
	elapsed := time.Since(r.start).Milliseconds()
	p.logger.Info("processor.completed",
		"document_id", r.id,
		"attempts", r.attempts,
		"method", r.extract.Method,
		"content_len", len(r.version.Content),
		"elapsed_ms", elapsed,
	)
	p.publish(ctx, events.TypeCompleted, r.id, constants.StatusCompleted, "")
	return Result{
		DocumentID: r.id,
		Success:    true,
		Content:    r.version.Content,
		Metadata: &Metadata{
			FileType:         r.doc.FileType,
			FileSize:         r.doc.FileSize,
			Title:            r.doc.Title,
			PageCount:        r.extract.PageCount,
			ProcessingTimeMs: elapsed,
		},
	}
}

// fail records the terminal error state. Writes use a context detached from
// cancellation so the document never stays in processing.
func (p *Processor) fail(ctx context.Context, r *run, last error) Result {
	wctx := context.WithoutCancel(ctx)
	msg := errorMessage(last)

	p.logger.Error("processor.failed",
		"document_id", r.id,
		"attempts", r.attempts,
		"error", last,
		"elapsed_ms", time.Since(r.start).Milliseconds(),
	)

	if err := p.store.Documents.UpdateStatus(wctx, r.id, constants.StatusError); err != nil {
		p.logger.Error("processor.status_update.failed", "document_id", r.id, "status", constants.StatusError, "error", err)
	}

	userID := ""
	if r.doc != nil {
		userID = r.doc.UserID
	}
	var attempts []string
	if r.errs != nil {
		for _, e := range r.errs.Errors {
			attempts = append(attempts, e.Error())
		}
	}
	if _, err := p.store.Activities.Append(wctx, entity.Activity{
		DocumentID: r.id,
		UserID:     userID,
		Action:     constants.ActionError,
		Details:    map[string]any{"error": msg, "attempts": attempts},
	}); err != nil {
		p.logger.Error("processor.activity.failed", "document_id", r.id, "action", constants.ActionError, "error", err)
	}

	p.publish(wctx, events.TypeFailed, r.id, constants.StatusError, msg)
	return Result{DocumentID: r.id, Error: msg}
}

// GetProcessingStatus reports status, progress and the latest outcome detail.
// It never mutates state.
func (p *Processor) GetProcessingStatus(ctx context.Context, id string) Status {
	doc, err := p.store.Documents.Get(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return Status{Status: string(constants.StatusError), Error: MsgDocumentNotFound}
		}
		p.logger.Error("processor.status.lookup_failed", "document_id", id, "error", err)
		return Status{Status: string(constants.StatusError), Error: err.Error()}
	}

	st := Status{Status: string(doc.Status), Progress: doc.Status.Progress()}
	latest, err := p.store.Activities.LatestOf(ctx, id, constants.ActionError, constants.ActionProcessed)
	if err != nil {
		p.logger.Warn("processor.status.activity_lookup_failed", "document_id", id, "error", err)
		return st
	}
	st.Error = latest.DetailString("error")
	return st
}

func (p *Processor) publish(ctx context.Context, typ, id string, status constants.DocumentStatus, msg string) {
	if err := p.events.Publish(ctx, events.New(typ, id, status, msg)); err != nil {
		p.logger.Warn("processor.event.failed", "document_id", id, "type", typ, "error", err)
	}
}

// retryable: validation, not-found and deterministic extraction failures end
// the loop at once.
func retryable(err error) bool {
	if common.HasCode(err, common.CodeExtractionFailure) {
		return false
	}
	return common.IsRetryable(err)
}

// errorMessage reduces err to the message stored on the ERROR activity.
func errorMessage(err error) string {
	if err == nil {
		return "Unknown error occurred"
	}
	if errors.Is(err, common.ErrNotFound) && common.CodeOf(err) == common.CodePersistence {
		return MsgDocumentNotFound
	}
	var ae *common.AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
