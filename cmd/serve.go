package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/recipestack/scanreview/internal/config"
	"github.com/recipestack/scanreview/internal/handlers"
	"github.com/recipestack/scanreview/internal/reconcile"
	"github.com/recipestack/scanreview/internal/review"
	"github.com/recipestack/scanreview/internal/scanapi"
	"github.com/recipestack/scanreview/internal/taxonomy"
	"github.com/recipestack/scanreview/internal/workflow"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the review workbench API",
		Long: `Starts the review workbench API and the status subscriber.

The API drives segmentation correction and classification approval
against the scan pipeline; the subscriber keeps the review cache in sync
with pipeline status pushes.`,
		Example: `  # Start with settings from the environment
  scanreview serve

  # Start with a config file
  scanreview serve --config scanreview.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			client := scanapi.NewClient(cfg.BackendURL)
			store := review.NewStore(client)
			wf := workflow.New(store, client)
			suggester := suggesterFor(cfg)
			handler := handlers.New(store, wf, client, suggester)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/books", handler.HandleBooks)
			mux.HandleFunc("/api/books/", handler.HandleBookDetail)
			mux.HandleFunc("/api/pages", handler.HandlePages)
			mux.HandleFunc("/api/pages/", handler.HandlePageDetail)
			mux.HandleFunc("/api/records", handler.HandleRecords)
			mux.HandleFunc("/api/records/", handler.HandleRecordDetail)
			mux.HandleFunc("/api/upload", handler.HandleUpload)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// The subscriber lives for the lifetime of the server.
			subCtx, cancelSub := context.WithCancel(context.Background())
			defer cancelSub()
			subscriber := reconcile.NewSubscriber(statusFeedURL(cfg), reconcile.New(store))
			go func() {
				if err := subscriber.Run(subCtx); err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("Status subscriber stopped", "err", err)
				}
			}()

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Review workbench available", "addr", addr, "backend", cfg.BackendURL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				cancelSub()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")

	return cmd
}

func suggesterFor(cfg *config.Config) taxonomy.Suggester {
	if cfg.GeminiAPIKey == "" {
		return taxonomy.Static{}
	}
	return taxonomy.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
}

// statusFeedURL derives the websocket endpoint from the backend base URL
// when no explicit feed URL is configured.
func statusFeedURL(cfg *config.Config) string {
	if cfg.StatusFeedURL != "" {
		return cfg.StatusFeedURL
	}
	feed := cfg.BackendURL
	feed = strings.Replace(feed, "https://", "wss://", 1)
	feed = strings.Replace(feed, "http://", "ws://", 1)
	return strings.TrimSuffix(feed, "/") + "/ws/status"
}
