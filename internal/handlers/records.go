package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/recipestack/scanreview/internal/models"
	"github.com/recipestack/scanreview/internal/taxonomy"
	"github.com/recipestack/scanreview/internal/workflow"
)

func (h *Handler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.store.Records())
}

type approvalRequest struct {
	Phase      workflow.Phase `json:"phase"`
	RecipeText string         `json:"recipe_text"`
	Categories []string       `json:"categories"`
	Tags       []string       `json:"tags"`
}

// HandleRecordDetail routes /api/records/{id} and its approval, redo,
// grouping and suggestion sub-resources.
func (h *Handler) HandleRecordDetail(w http.ResponseWriter, r *http.Request) {
	recordID, action, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/api/records/"), "/")
	if recordID == "" {
		h.writeError(w, "Record ID required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == "GET":
		if err := h.store.FetchRecordIfNeeded(r.Context(), recordID); err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
		record, ok := h.store.Record(recordID)
		if !ok {
			h.writeError(w, "Record not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, record)
	case action == "" && r.Method == "DELETE":
		if err := h.client.DeleteRecord(r.Context(), recordID); err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case action == "approve" && r.Method == "POST":
		h.handleApprove(w, r, recordID)
	case action == "redo" && r.Method == "POST":
		if err := h.workflow.Redo(r.Context(), recordID); err != nil {
			h.writeWorkflowError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	case action == "edit" && r.Method == "POST":
		h.store.StartRecordEditing(recordID)
		h.writeJSON(w, map[string]string{"editing": recordID})
	case action == "close" && r.Method == "POST":
		if h.store.EditingRecordID() == recordID {
			h.store.StopRecordEditing()
		}
		w.WriteHeader(http.StatusNoContent)
	case strings.HasPrefix(action, "pages"):
		h.handleGroupingPages(w, r, recordID, action)
	case action == "suggestions" && r.Method == "GET":
		h.handleSuggestions(w, r, recordID)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleApprove dispatches one approval by phase. The body carries only
// what the phase needs; unknown phases are rejected.
func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request, recordID string) {
	var body approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	switch body.Phase {
	case workflow.PhaseGroup:
		err = h.workflow.ApproveGrouping(r.Context(), recordID)
	case workflow.PhaseRecipe:
		err = h.workflow.ApproveRecipe(r.Context(), recordID, body.RecipeText)
	case workflow.PhaseTaxonomy:
		err = h.workflow.ApproveTaxonomy(r.Context(), recordID, body.Categories, body.Tags)
	default:
		h.writeError(w, "Unknown approval phase: "+string(body.Phase), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGroupingPages adds a page by number (POST pages) or removes one
// by identifier (DELETE pages/{pageID}).
func (h *Handler) handleGroupingPages(w http.ResponseWriter, r *http.Request, recordID, action string) {
	switch r.Method {
	case "POST":
		var body struct {
			PageNumber int `json:"page_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.workflow.AddPageByNumber(r.Context(), recordID, body.PageNumber); err != nil {
			h.writeWorkflowError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "DELETE":
		pageID := strings.TrimPrefix(action, "pages/")
		if pageID == "" || pageID == "pages" {
			h.writeError(w, "Page ID required", http.StatusBadRequest)
			return
		}
		if err := h.workflow.RemovePage(r.Context(), recordID, pageID); err != nil {
			h.writeWorkflowError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSuggestions proposes taxonomy values for the record's reviewed
// recipe, falling back to the static defaults when the model fails.
func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request, recordID string) {
	record, ok := h.store.Record(recordID)
	if !ok {
		h.writeError(w, "Record not found", http.StatusNotFound)
		return
	}
	recipe := models.Recipe{}
	if record.ValidationResult != nil {
		recipe = *record.ValidationResult
	}
	h.writeJSON(w, taxonomy.SuggestOrDefault(r.Context(), h.suggester, recipe))
}
