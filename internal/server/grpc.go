package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/docflow/internal/common"
)

// Metadata keys read from incoming calls.
const (
	RequestIDHeader = "x-request-id"
	UserIDHeader    = "x-user-id"
)

// NewGRPCServer builds a server with the document service and the standard
// health service registered. The returned health server starts SERVING.
func NewGRPCServer(docs DocumentServiceServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(loggingInterceptor(logger))}, opts...)
	srv := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	RegisterDocumentServiceServer(srv, docs)
	return srv, hs
}

// loggingInterceptor tags the context with request and user ids and logs
// each call's outcome.
func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		requestID := firstMetadata(ctx, RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, requestID)
		if userID := firstMetadata(ctx, UserIDHeader); userID != "" {
			ctx = common.WithUserID(ctx, userID)
		}

		resp, err := next(ctx, req)
		attrs := []any{
			"method", info.FullMethod,
			"request_id", requestID,
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.Warn("grpc.call.failed", append(attrs, "code", status.Code(err).String(), "error", err)...)
		} else {
			logger.Debug("grpc.call.ok", attrs...)
		}
		return resp, err
	}
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}
