package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docflow/internal/async"
	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/export"
	"github.com/joseph-ayodele/docflow/internal/llm"
	"github.com/joseph-ayodele/docflow/internal/processor"
)

type documentRequest struct {
	DocumentID string `json:"documentId"`
}

type completeRequest struct {
	Prompt         string `json:"prompt"`
	PreferredModel string `json:"preferredModel"`
}

type chatRequest struct {
	DocumentID     string          `json:"documentId"`
	Messages       json.RawMessage `json:"messages"`
	PreferredModel string          `json:"preferredModel"`
}

type textResponse struct {
	Text string `json:"text"`
}

type acceptedResponse struct {
	DocumentID string `json:"documentId"`
	Accepted   bool   `json:"accepted"`
}

type exportResponse struct {
	DocumentID string `json:"documentId"`
	FileName   string `json:"fileName"`
	XLSX       string `json:"xlsx"` // base64
}

// DocumentServer implements DocumentServiceServer over the processor, the
// completion service, the background queue and the exporter.
type DocumentServer struct {
	proc     *processor.Processor
	llm      *llm.Service
	queue    *async.Queue
	exporter *export.Service
	logger   *slog.Logger
}

func NewDocumentServer(proc *processor.Processor, completions *llm.Service, queue *async.Queue, exporter *export.Service, logger *slog.Logger) *DocumentServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentServer{proc: proc, llm: completions, queue: queue, exporter: exporter, logger: logger}
}

var _ DocumentServiceServer = (*DocumentServer)(nil)

func (s *DocumentServer) ProcessDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req documentRequest
	if err := decode(in, &req); err != nil {
		return nil, common.ToStatus(err)
	}
	res := s.proc.ProcessDocument(ctx, strings.TrimSpace(req.DocumentID))
	return encode(res)
}

func (s *DocumentServer) ProcessDocumentAsync(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.queue == nil {
		return nil, status.Error(codes.Unimplemented, "background processing is not enabled")
	}
	var req documentRequest
	if err := decode(in, &req); err != nil {
		return nil, common.ToStatus(err)
	}
	id := strings.TrimSpace(req.DocumentID)
	if err := common.ValidateDocumentID(id); err != nil {
		return nil, common.ToStatus(err)
	}
	if err := s.queue.Enqueue(ctx, async.Job{DocumentID: id, RequestID: common.RequestIDFromContext(ctx)}); err != nil {
		s.logger.Warn("server.enqueue.failed", "document_id", id, "error", err)
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return encode(acceptedResponse{DocumentID: id, Accepted: true})
}

func (s *DocumentServer) GetProcessingStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req documentRequest
	if err := decode(in, &req); err != nil {
		return nil, common.ToStatus(err)
	}
	return encode(s.proc.GetProcessingStatus(ctx, strings.TrimSpace(req.DocumentID)))
}

func (s *DocumentServer) Complete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req completeRequest
	if err := decode(in, &req); err != nil {
		return nil, common.ToStatus(err)
	}
	text, err := s.llm.Complete(ctx, req.Prompt, req.PreferredModel)
	if err != nil {
		s.logger.Warn("server.complete.failed", "preferred", req.PreferredModel, "error", err)
		return nil, common.ToStatus(err)
	}
	return encode(textResponse{Text: text})
}

func (s *DocumentServer) Chat(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, msgs, err := decodeChat(in)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	text, err := s.llm.Chat(ctx, msgs, req.PreferredModel)
	if err != nil {
		s.logger.Warn("server.chat.failed", "preferred", req.PreferredModel, "error", err)
		return nil, common.ToStatus(err)
	}
	return encode(textResponse{Text: text})
}

func (s *DocumentServer) ChatAboutDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, msgs, err := decodeChat(in)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	doc, content, err := s.proc.DocumentText(ctx, strings.TrimSpace(req.DocumentID))
	if err != nil {
		s.logger.Warn("server.chat_document.content_failed", "document_id", req.DocumentID, "error", err)
		return nil, common.ToStatus(err)
	}
	text, err := s.llm.ChatAboutDocument(ctx, doc.Title, content, msgs, req.PreferredModel)
	if err != nil {
		s.logger.Warn("server.chat_document.failed", "document_id", doc.ID, "error", err)
		return nil, common.ToStatus(err)
	}
	return encode(textResponse{Text: text})
}

func (s *DocumentServer) ExportDocument(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req documentRequest
	if err := decode(in, &req); err != nil {
		return nil, common.ToStatus(err)
	}
	id := strings.TrimSpace(req.DocumentID)
	xlsx, err := s.exporter.ExportDocumentXLSX(ctx, id)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "document_id", id, "err", err)
		return nil, common.ToStatus(err)
	}
	return encode(exportResponse{
		DocumentID: id,
		FileName:   id + ".xlsx",
		XLSX:       base64.StdEncoding.EncodeToString(xlsx),
	})
}

func decodeChat(in *structpb.Struct) (chatRequest, []llm.Message, error) {
	var req chatRequest
	if err := decode(in, &req); err != nil {
		return req, nil, err
	}
	if len(req.Messages) == 0 {
		return req, nil, common.NewValidationError("messages are required", nil)
	}
	if err := llm.ValidateMessagesJSON(req.Messages); err != nil {
		return req, nil, err
	}
	var msgs []llm.Message
	if err := json.Unmarshal(req.Messages, &msgs); err != nil {
		return req, nil, common.NewValidationError("malformed messages", err)
	}
	return req, msgs, nil
}
