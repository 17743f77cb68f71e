// Package app wires configuration into the running components shared by the
// CLI, the gRPC server and the Cloud Function.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/hashicorp/go-multierror"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/events"
	"github.com/joseph-ayodele/docflow/internal/export"
	"github.com/joseph-ayodele/docflow/internal/extract"
	"github.com/joseph-ayodele/docflow/internal/ingest"
	"github.com/joseph-ayodele/docflow/internal/llm"
	"github.com/joseph-ayodele/docflow/internal/llm/bedrock"
	"github.com/joseph-ayodele/docflow/internal/llm/gemini"
	"github.com/joseph-ayodele/docflow/internal/llm/groq"
	"github.com/joseph-ayodele/docflow/internal/processor"
	"github.com/joseph-ayodele/docflow/internal/ratelimit"
	"github.com/joseph-ayodele/docflow/internal/repository"
	"github.com/joseph-ayodele/docflow/internal/storage"
)

type App struct {
	Config *common.Config
	Logger *slog.Logger

	DB        *repository.DB // nil for firestore
	Store     *repository.Store
	Fetcher   *storage.Router
	Extractor *extract.Extractor
	Publisher events.Publisher
	Processor *processor.Processor
	LLM       *llm.Service
	Exporter  *export.Service
	Ingestor  *ingest.FSIngestor

	closers []func() error
}

type Option func(*options)

type options struct {
	migrate bool
	skipLLM bool
}

// WithMigrate creates missing tables after connecting. SQLite always migrates.
func WithMigrate() Option { return func(o *options) { o.migrate = true } }

// WithoutLLM skips provider construction for commands that never complete text.
func WithoutLLM() Option { return func(o *options) { o.skipLLM = true } }

// New builds every component from cfg. Close releases what it opened, even
// when New fails part way.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	a := &App{Config: cfg, Logger: logger}

	if err := a.openStore(ctx, o.migrate); err != nil {
		return a, err
	}

	router, err := a.buildFetcher(ctx)
	if err != nil {
		return a, err
	}
	a.Fetcher = router
	a.Extractor = extract.NewExtractor(extract.Config{PDFStrategy: cfg.Extract.PDFStrategy}, logger)

	a.Publisher = events.NopPublisher{}
	if len(cfg.Events.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.Events.Brokers, Topic: cfg.Events.Topic}, logger)
		if err != nil {
			return a, common.NewAppError(common.CodeConfig, "kafka publisher", err)
		}
		a.Publisher = kp
		a.closers = append(a.closers, func() error { kp.Close(); return nil })
	}

	a.Processor = processor.New(a.Store, a.Fetcher, a.Extractor, a.Publisher, processor.Config{
		MaxRetries:   cfg.Processing.MaxRetries,
		RetryDelay:   cfg.Processing.RetryDelay,
		FetchTimeout: cfg.Processing.FetchTimeout,
	}, logger)
	a.Exporter = export.NewService(a.Store, logger)
	a.Ingestor = ingest.NewFSIngestor(a.Store, logger)

	if !o.skipLLM {
		providers := a.buildProviders(ctx)
		names := make([]string, 0, len(providers))
		for _, p := range providers {
			names = append(names, p.Name())
		}
		a.LLM = llm.NewService(providers,
			ratelimit.NewManager(names, ratelimit.WithCooldown(cfg.LLM.Cooldown)),
			llm.Config{
				MaxRetries:   cfg.LLM.MaxRetries,
				InitialDelay: cfg.LLM.InitialDelay,
				CallTimeout:  cfg.LLM.CallTimeout,
			}, logger)
	}

	logger.Info("app.ready",
		"db_driver", cfg.Database.Driver,
		"providers", cfg.LLM.Providers,
		"kafka", len(cfg.Events.Brokers) > 0,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context, migrate bool) error {
	cfg := a.Config.Database
	switch cfg.Driver {
	case "firestore":
		client, err := repository.NewFirestoreClient(ctx, cfg.FirestoreProject)
		if err != nil {
			return common.NewAppError(common.CodeConfig, "firestore", err)
		}
		a.closers = append(a.closers, func() error { return closeFirestore(client) })
		a.Store = repository.NewFirestoreStore(client, a.Logger)
		return nil
	case "sqlite":
		db, err := repository.OpenSQLite(ctx, cfg.DSN, a.Logger)
		if err != nil {
			return err
		}
		a.attachDB(db)
		migrate = true
	default:
		db, err := repository.Open(ctx, repository.Config{
			DSN:              cfg.DSN,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			MaxConnLifetime:  cfg.MaxConnLifetime,
			MaxConnIdleTime:  cfg.MaxConnIdleTime,
			DialTimeout:      cfg.DialTimeout,
			StatementTimeout: cfg.StatementTimeout,
		}, a.Logger)
		if err != nil {
			return err
		}
		a.attachDB(db)
	}

	if migrate {
		if err := repository.Migrate(ctx, a.DB); err != nil {
			return err
		}
		a.Logger.Info("app.migrated", "driver", cfg.Driver)
	}
	a.Store = repository.NewStore(a.DB, a.Logger)
	return nil
}

func (a *App) attachDB(db *repository.DB) {
	a.DB = db
	a.closers = append(a.closers, func() error { repository.Close(db, a.Logger); return nil })
}

func closeFirestore(c *firestore.Client) error { return c.Close() }

func (a *App) buildFetcher(ctx context.Context) (*storage.Router, error) {
	cfg := a.Config.Storage
	var opts []storage.Option
	if cfg.EnableS3 {
		f, err := storage.NewS3Fetcher(ctx, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			return nil, common.NewAppError(common.CodeConfig, "s3 fetcher", err)
		}
		opts = append(opts, storage.WithS3(f))
	}
	if cfg.EnableGCS {
		f, err := storage.NewGCSFetcher(ctx)
		if err != nil {
			return nil, common.NewAppError(common.CodeConfig, "gcs fetcher", err)
		}
		a.closers = append(a.closers, f.Close)
		opts = append(opts, storage.WithGCS(f))
	}
	opts = append(opts, storage.WithTimeout(a.Config.Processing.FetchTimeout))
	return storage.NewRouter(a.Logger, opts...), nil
}

// buildProviders constructs the configured providers in failover order. A
// provider that cannot be built is logged and left out; the completion
// service then fails over past it.
func (a *App) buildProviders(ctx context.Context) []llm.Provider {
	cfg := a.Config.LLM
	var out []llm.Provider
	for _, name := range cfg.Providers {
		p, ok := constants.CanonicalProvider(name)
		if !ok {
			a.Logger.Warn("app.provider.unknown", "provider", name)
			continue
		}
		switch p {
		case constants.ProviderGroq:
			if cfg.Groq.APIKey == "" {
				a.Logger.Warn("app.provider.skipped", "provider", name, "reason", "GROQ_API_KEY not set")
				continue
			}
			out = append(out, groq.NewClient(groq.Config{
				APIKey:      cfg.Groq.APIKey,
				BaseURL:     cfg.Groq.BaseURL,
				Model:       cfg.Groq.Model,
				Temperature: cfg.Groq.Temperature,
				MaxTokens:   cfg.Groq.MaxTokens,
				Timeout:     cfg.CallTimeout,
			}, a.Logger))
		case constants.ProviderGemini:
			c, err := gemini.NewClient(ctx, gemini.Config{
				Project: cfg.Gemini.Project,
				Region:  cfg.Gemini.Region,
				Model:   cfg.Gemini.Model,
			}, a.Logger)
			if err != nil {
				a.Logger.Warn("app.provider.skipped", "provider", name, "error", err)
				continue
			}
			a.closers = append(a.closers, c.Close)
			out = append(out, c)
		case constants.ProviderBedrock:
			c, err := bedrock.NewClient(ctx, bedrock.Config{
				Region:    cfg.Bedrock.Region,
				Model:     cfg.Bedrock.Model,
				MaxTokens: cfg.Bedrock.MaxTokens,
			}, a.Logger)
			if err != nil {
				a.Logger.Warn("app.provider.skipped", "provider", name, "error", err)
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var result *multierror.Error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	a.closers = nil
	if err := result.ErrorOrNil(); err != nil {
		a.Logger.Warn("app.close.failed", "error", err)
		return err
	}
	return nil
}

// Describe is a one-line summary for startup logs and the CLI.
func (a *App) Describe() string {
	return fmt.Sprintf("driver=%s providers=%v", a.Config.Database.Driver, a.Config.LLM.Providers)
}
