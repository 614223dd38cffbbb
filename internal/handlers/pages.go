package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/recipestack/scanreview/internal/models"
)

func (h *Handler) HandlePages(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.store.Pages())
}

// HandlePageDetail routes /api/pages/{id} and its sub-resources: the
// in-progress segment list, the editor pointer, OCR data, approval and
// reprocessing triggers.
func (h *Handler) HandlePageDetail(w http.ResponseWriter, r *http.Request) {
	pageID, action, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/api/pages/"), "/")
	if pageID == "" {
		h.writeError(w, "Page ID required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == "GET":
		page, ok := h.store.Page(pageID)
		if !ok {
			h.writeError(w, "Page not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, page)
	case action == "" && r.Method == "DELETE":
		if err := h.client.DeletePage(r.Context(), pageID); err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case action == "segments":
		h.handleSegments(w, r, pageID)
	case action == "edit" && r.Method == "POST":
		h.store.StartEditing(pageID)
		h.writeJSON(w, map[string]string{"editing": pageID})
	case action == "close" && r.Method == "POST":
		if h.store.EditingPageID() == pageID {
			h.store.StopEditing()
		}
		w.WriteHeader(http.StatusNoContent)
	case action == "ocr" && r.Method == "GET":
		ocr, err := h.client.GetOCRData(r.Context(), pageID)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
		h.writeJSON(w, ocr)
	case action == "approve" && r.Method == "POST":
		if err := h.workflow.ApproveSegmentation(r.Context(), pageID); err != nil {
			h.writeWorkflowError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case action == "redo-ocr" && r.Method == "POST":
		if err := h.workflow.RedoOCR(r.Context(), pageID); err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	case action == "redo-segmentation" && r.Method == "POST":
		if err := h.workflow.RedoSegmentation(r.Context(), pageID); err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	case action == "page-number" && r.Method == "POST":
		target, err := strconv.Atoi(r.URL.Query().Get("target"))
		if err != nil {
			h.writeError(w, "target must be an integer", http.StatusBadRequest)
			return
		}
		if err := h.workflow.UpdatePageNumber(r.Context(), pageID, target); err != nil {
			h.writeWorkflowError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSegments reads or replaces the page's in-progress segment list.
// Writes are purely local; nothing reaches the pipeline until approval.
func (h *Handler) handleSegments(w http.ResponseWriter, r *http.Request, pageID string) {
	switch r.Method {
	case "GET":
		segs, ok := h.store.TempSegments(pageID)
		if !ok {
			h.writeError(w, "Page not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, segs)
	case "PUT":
		var segs []models.Segment
		if err := json.NewDecoder(r.Body).Decode(&segs); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		h.store.SetTempSegments(pageID, segs)
		h.store.SetManualSegmentation(pageID, len(segs) > 0)
		segs, _ = h.store.TempSegments(pageID)
		h.writeJSON(w, segs)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
