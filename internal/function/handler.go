// Package function adapts the document processor to CloudEvent triggers.
package function

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/processor"
)

// EntryPoint is the function name registered with the framework.
const EntryPoint = "ProcessDocument"

// Payload is the CloudEvent data accepted by the handler.
type Payload struct {
	DocumentID string `json:"documentId"`
}

type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, id string) processor.Result
}

type Handler struct {
	proc   DocumentProcessor
	logger *slog.Logger
}

func NewHandler(proc DocumentProcessor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{proc: proc, logger: logger}
}

// ProcessDocumentEvent runs the processor for the event's document. A failed
// result is returned as an error so the platform redelivers the event;
// malformed payloads and documents already being processed are not.
func (h *Handler) ProcessDocumentEvent(ctx context.Context, e cloudevents.Event) error {
	log := h.logger.With("event_id", e.ID(), "event_type", e.Type(), "source", e.Source())

	var p Payload
	if err := json.Unmarshal(e.Data(), &p); err != nil {
		log.Error("function.event.decode_failed", "error", err, "data", string(e.Data()))
		return nil
	}
	p.DocumentID = strings.TrimSpace(p.DocumentID)
	if err := common.ValidateDocumentID(p.DocumentID); err != nil {
		log.Error("function.event.invalid", "error", err)
		return nil
	}

	ctx = common.WithRequestID(ctx, e.ID())
	res := h.proc.ProcessDocument(ctx, p.DocumentID)
	switch {
	case res.Success:
		log.Info("function.processed", "document_id", p.DocumentID)
		return nil
	case res.AlreadyProcessing:
		log.Info("function.skipped", "document_id", p.DocumentID, "reason", res.Error)
		return nil
	case res.Error == processor.MsgDocumentNotFound:
		log.Warn("function.document_missing", "document_id", p.DocumentID)
		return nil
	}
	log.Error("function.process_failed", "document_id", p.DocumentID, "error", res.Error)
	return fmt.Errorf("process document %s: %w", p.DocumentID, errors.New(res.Error))
}
