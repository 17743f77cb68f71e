package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docflow/internal/app"
)

var processConcurrency int

var processCmd = &cobra.Command{
	Use:   "process [document-id...]",
	Short: "Process documents now and print the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.WithoutLLM())
		if err != nil {
			return err
		}
		defer a.Close()

		results := a.Processor.ProcessBatch(cmd.Context(), args, processConcurrency)
		if err := printJSON(cmd, results); err != nil {
			return err
		}
		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed", failed, len(results))
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show a document's processing status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, app.WithoutLLM())
		if err != nil {
			return err
		}
		defer a.Close()
		return printJSON(cmd, a.Processor.GetProcessingStatus(cmd.Context(), args[0]))
	},
}

func init() {
	processCmd.Flags().IntVar(&processConcurrency, "concurrency", 4, "Documents processed in parallel")
	rootCmd.AddCommand(processCmd, statusCmd)
}
