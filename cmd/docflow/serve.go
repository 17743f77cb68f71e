package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/joseph-ayodele/docflow/internal/app"
	"github.com/joseph-ayodele/docflow/internal/async"
	"github.com/joseph-ayodele/docflow/internal/repository"
	"github.com/joseph-ayodele/docflow/internal/server"
)

var (
	serveAddr    string
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC document service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.Default()
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var opts []app.Option
		if serveMigrate {
			opts = append(opts, app.WithMigrate())
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.New(ctx, cfg, logger, opts...)
		if err != nil {
			_ = a.Close()
			return err
		}
		defer a.Close()

		if a.DB != nil {
			if err := repository.HealthCheck(ctx, a.DB, 5*time.Second, logger); err != nil {
				return err
			}
		}

		pc := a.Config.Processing
		queue := async.NewQueue(a.Processor, logger,
			async.WithWorkers(pc.Workers),
			async.WithQueueSize(pc.QueueSize),
			async.WithProcessTimeout(pc.ProcessTimeout),
		)

		docs := server.NewDocumentServer(a.Processor, a.LLM, queue, a.Exporter, logger)
		grpcServer, hs := server.NewGRPCServer(docs, logger)

		addr := a.Config.Server.GRPCAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", addr, "error", err)
			return err
		}
		logger.Info("grpc.serving", "addr", lis.Addr().String(), "app", a.Describe())

		errCh := make(chan error, 1)
		go func() {
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				logger.Error("grpc.serve.failed", "error", err)
				return err
			}
		}

		logger.Info("shutting down...")
		hs.Shutdown()
		stopped := make(chan struct{})
		go func() { grpcServer.GracefulStop(); close(stopped) }()
		select {
		case <-stopped:
		case <-time.After(15 * time.Second):
			grpcServer.Stop()
		}

		drainCtx, cancel := context.WithTimeout(context.Background(), pc.ProcessTimeout)
		defer cancel()
		queue.Shutdown(drainCtx)
		logger.Info("stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from GRPC_ADDR)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Create missing tables before serving")
	rootCmd.AddCommand(serveCmd)
}
