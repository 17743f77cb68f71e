package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docflow/internal/app"
	"github.com/joseph-ayodele/docflow/internal/async"
	"github.com/joseph-ayodele/docflow/internal/ingest"
	"github.com/joseph-ayodele/docflow/internal/processor"
)

var (
	ingestUser       string
	ingestSkipHidden bool
	ingestProcess    bool
	watchDebounce    time.Duration
	watchInitialScan bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Register a file or directory tree as pending documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.WithoutLLM())
		if err != nil {
			return err
		}
		defer a.Close()

		fi, err := os.Stat(args[0])
		if err != nil {
			return err
		}

		var results []ingest.IngestionResult
		if fi.IsDir() {
			var stats ingest.DirStats
			results, stats, err = a.Ingestor.IngestDirectory(cmd.Context(), ingestUser, args[0], ingestSkipHidden)
			if err != nil {
				return err
			}
			slog.Info("ingest.summary", "matched", stats.Matched, "succeeded", stats.Succeeded,
				"deduplicated", stats.Deduplicated, "failed", stats.Failed)
		} else {
			r, err := a.Ingestor.IngestPath(cmd.Context(), ingestUser, args[0])
			if err != nil {
				return err
			}
			results = append(results, r)
		}

		if ingestProcess {
			var ids []string
			for _, r := range results {
				if r.DocumentID != "" && !r.Deduplicated {
					ids = append(ids, r.DocumentID)
				}
			}
			processed := a.Processor.ProcessBatch(cmd.Context(), ids, a.Config.Processing.Workers)
			return printJSON(cmd, map[string]any{"ingested": results, "processed": processed})
		}
		return printJSON(cmd, results)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Watch directories, ingest new files and process them in the background",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.Default()
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := app.New(ctx, cfg, logger, app.WithoutLLM())
		if err != nil {
			_ = a.Close()
			return err
		}
		defer a.Close()

		pc := a.Config.Processing
		queue := async.NewQueue(a.Processor, logger,
			async.WithWorkers(pc.Workers),
			async.WithQueueSize(pc.QueueSize),
			async.WithProcessTimeout(pc.ProcessTimeout),
			async.WithOnDone(func(j async.Job, r processor.Result) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tsuccess=%t\t%s\n", j.DocumentID, r.Success, r.Error)
			}),
		)
		defer func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), pc.ProcessTimeout)
			defer cancel()
			queue.Shutdown(drainCtx)
		}()

		paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       args,
			InitialScan: watchInitialScan,
			Debounce:    watchDebounce,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		logger.Info("watch.started", "roots", args)

		for {
			select {
			case p, ok := <-paths:
				if !ok {
					return nil
				}
				res, err := a.Ingestor.IngestPath(ctx, ingestUser, p)
				if err != nil {
					logger.Warn("watch.ingest.failed", "path", p, "error", err)
					continue
				}
				if res.Deduplicated {
					continue
				}
				if err := queue.Enqueue(ctx, async.Job{DocumentID: res.DocumentID}); err != nil {
					logger.Warn("watch.enqueue.failed", "document_id", res.DocumentID, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("watch.error", "error", err)
			case <-ctx.Done():
				return nil
			}
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{ingestCmd, watchCmd} {
		c.Flags().StringVarP(&ingestUser, "user", "u", "local", "Owner user id for created documents")
	}
	ingestCmd.Flags().BoolVar(&ingestSkipHidden, "skip-hidden", true, "Skip dot files and directories")
	ingestCmd.Flags().BoolVar(&ingestProcess, "process", false, "Process newly created documents right away")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Coalesce bursts of file events")
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", false, "Ingest files already present")
	rootCmd.AddCommand(ingestCmd, watchCmd)
}
