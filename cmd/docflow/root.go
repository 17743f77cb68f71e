package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docflow/internal/app"
	"github.com/joseph-ayodele/docflow/internal/common"
)

var (
	verbose    bool
	logJSON    bool
	configPath string
	dbDriver   string
)

var rootCmd = &cobra.Command{
	Use:   "docflow",
	Short: "Document processing and AI completion service",
	Long: `docflow turns uploaded documents into extracted text versions, keeps an
activity log per document and answers prompts and chats through a failover
chain of language-model providers.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		opts := &slog.HandlerOptions{Level: level}
		var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if logJSON {
			h = slog.NewJSONHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(h))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit JSON logs")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("DOCFLOW_CONFIG"), "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "Override database driver (postgres|sqlite|firestore)")
}

func loadConfig() (*common.Config, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if err := cfg.Validate(true); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp loads configuration and builds the components for one command run.
func openApp(cmd *cobra.Command, opts ...app.Option) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), cfg, slog.Default(), opts...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
