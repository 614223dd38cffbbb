package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scanreview",
		Short: "Review workbench for the cookbook scan pipeline",
		Long: `Scanreview is the operator-facing side of the cookbook scan pipeline.

It serves the review workbench API for correcting page segmentation and
approving classified recipes, and exports approved recipes for downstream
use.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}
