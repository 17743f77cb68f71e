package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/joseph-ayodele/docflow/internal/app"
	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/function"
)

var (
	handler *function.Handler
	once    sync.Once
	initErr error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent(function.EntryPoint, processDocument)
}

func processDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		cfg, err := common.LoadConfig(os.Getenv("DOCFLOW_CONFIG"))
		if err != nil {
			initErr = err
			return
		}
		if err := cfg.Validate(true); err != nil {
			initErr = err
			return
		}
		a, err := app.New(context.Background(), cfg, slog.Default(), app.WithoutLLM())
		if err != nil {
			initErr = err
			return
		}
		handler = function.NewHandler(a.Processor, slog.Default())
	})
	if initErr != nil {
		slog.Error("function.init.failed", "error", initErr)
		return initErr
	}
	return handler.ProcessDocumentEvent(ctx, e)
}

// main serves the function locally; on the platform the framework calls init.
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.StartHostPort("", port); err != nil {
		slog.Error("funcframework.start.failed", "error", err)
		os.Exit(1)
	}
}
