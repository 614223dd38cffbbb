// Package handlers exposes the review workbench over HTTP. It is a thin
// surface: all session state lives in the review store, all persistence
// goes through the workflow and the pipeline client.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/recipestack/scanreview/internal/review"
	"github.com/recipestack/scanreview/internal/scanapi"
	"github.com/recipestack/scanreview/internal/taxonomy"
	"github.com/recipestack/scanreview/internal/workflow"
)

type Handler struct {
	store     *review.Store
	workflow  *workflow.Workflow
	client    *scanapi.Client
	suggester taxonomy.Suggester
}

func New(store *review.Store, wf *workflow.Workflow, client *scanapi.Client, suggester taxonomy.Suggester) *Handler {
	return &Handler{
		store:     store,
		workflow:  wf,
		client:    client,
		suggester: suggester,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeWorkflowError maps the workflow's local validation errors to client
// status codes; anything else is a backend failure.
func (h *Handler) writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrInvalidPageNumber),
		errors.Is(err, workflow.ErrDuplicatePage):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, workflow.ErrPageNotFound),
		errors.Is(err, workflow.ErrRecordNotFound):
		h.writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, workflow.ErrWrongPhase):
		h.writeError(w, err.Error(), http.StatusConflict)
	default:
		h.writeError(w, err.Error(), http.StatusBadGateway)
	}
}
