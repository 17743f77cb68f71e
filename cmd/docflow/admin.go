package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docflow/internal/app"
	"github.com/joseph-ayodele/docflow/internal/repository"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export [document-id]",
	Short: "Write a document's versions and activity log to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.WithoutLLM())
		if err != nil {
			return err
		}
		defer a.Close()

		xlsx, err := a.Exporter.ExportDocumentXLSX(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := exportOut
		if out == "" {
			out = args[0] + ".xlsx"
		}
		if err := os.WriteFile(out, xlsx, 0o644); err != nil {
			return err
		}
		slog.Info("export.written", "path", out, "bytes", len(xlsx))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the documents, versions and activities tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.WithoutLLM(), app.WithMigrate())
		if err != nil {
			return err
		}
		defer a.Close()
		if a.DB == nil {
			slog.Info("migrate.skipped", "driver", a.Config.Database.Driver)
		}
		return nil
	},
}

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Ping the configured SQL database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		var db *repository.DB
		switch cfg.Database.Driver {
		case "sqlite":
			db, err = repository.OpenSQLite(cmd.Context(), cfg.Database.DSN, slog.Default())
		case "postgres":
			db, err = repository.Open(cmd.Context(), repository.Config{
				DSN:         cfg.Database.DSN,
				MaxConns:    2,
				MinConns:    1,
				DialTimeout: cfg.Database.DialTimeout,
			}, slog.Default())
		default:
			return fmt.Errorf("dbhealth supports sql drivers only, got %q", cfg.Database.Driver)
		}
		if err != nil {
			return err
		}
		defer repository.Close(db, slog.Default())

		start := time.Now()
		if err := repository.HealthCheck(cmd.Context(), db, time.Second, slog.Default()); err != nil {
			return fmt.Errorf("DB health: FAIL (%w)", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "DB health: OK (%s)\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output path (default <document-id>.xlsx)")
	rootCmd.AddCommand(exportCmd, migrateCmd, dbhealthCmd)
}
