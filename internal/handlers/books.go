package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

func (h *Handler) HandleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		books, err := h.client.ListBookScans(r.Context())
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
		h.writeJSON(w, books)
	case "POST":
		var body struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		book, err := h.client.CreateBookScan(r.Context(), body.Title)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
		h.writeJSON(w, book)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleBookDetail routes /api/books/{id} and its select/classify
// sub-resources.
func (h *Handler) HandleBookDetail(w http.ResponseWriter, r *http.Request) {
	bookID, action, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/api/books/"), "/")
	if bookID == "" {
		h.writeError(w, "Book ID required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "select" && r.Method == "POST":
		if err := h.store.SelectBook(r.Context(), bookID); err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
		h.writeJSON(w, map[string]string{"selected": bookID})
	case action == "classify" && r.Method == "POST":
		if err := h.client.ClassifyBook(r.Context(), bookID); err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	case action == "" && r.Method == "DELETE":
		if err := h.client.DeleteBookScan(r.Context(), bookID); err != nil {
			h.writeError(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
