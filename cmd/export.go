package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/recipestack/scanreview/internal/config"
	"github.com/recipestack/scanreview/internal/export"
	"github.com/recipestack/scanreview/internal/scanapi"
)

func newExportCmd() *cobra.Command {
	var configPath string
	var output string

	cmd := &cobra.Command{
		Use:   "export <book-scan-id>",
		Short: "Export a book's approved recipes",
		Long: `Exports the approved classification records of a book scan.

The output format is chosen by file extension: .parquet or .jsonl.`,
		Example: `  # Export to Parquet
  scanreview export book-42 --output recipes.parquet

  # Export to JSONL
  scanreview export book-42 --output recipes.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			bookID := args[0]

			client := scanapi.NewClient(cfg.BackendURL)
			records, err := client.ListRecords(cmd.Context(), bookID)
			if err != nil {
				return fmt.Errorf("failed to list records for book %s: %w", bookID, err)
			}

			rows := export.Rows(records)
			if len(rows) == 0 {
				return fmt.Errorf("book %s has no approved recipes", bookID)
			}
			if err := export.Write(output, rows); err != nil {
				return err
			}

			slog.Info("Export complete", "book", bookID, "rows", len(rows), "output", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVarP(&output, "output", "o", "recipes.parquet", "Output file (.parquet or .jsonl)")

	return cmd
}
