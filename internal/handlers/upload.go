package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// maxUploadMemory bounds the in-memory portion of a multipart parse;
// larger parts spill to disk.
const maxUploadMemory = 32 << 20

// HandleUpload forwards scanned page images to the pipeline for the
// selected book. Files are staged locally and passed through unchanged;
// the pipeline assigns page numbers and starts OCR.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bookID := h.store.SelectedBookID()
	if bookID == "" {
		h.writeError(w, "No book selected", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.writeError(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.writeError(w, "No files in upload", http.StatusBadRequest)
		return
	}

	stagingDir, err := os.MkdirTemp("", "scanreview-upload-")
	if err != nil {
		h.writeError(w, "Failed to stage upload: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(stagingDir)

	paths := make([]string, 0, len(files))
	for i, header := range files {
		path, err := stageFile(stagingDir, i, header)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		paths = append(paths, path)
	}

	if err := h.client.UploadPages(r.Context(), bookID, paths); err != nil {
		h.writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	if err := h.store.RefetchPages(r.Context()); err != nil {
		h.writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, map[string]any{"uploaded": len(paths)})
}

func stageFile(dir string, index int, header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to read upload %s: %w", header.Filename, err)
	}
	defer src.Close()

	path := filepath.Join(dir, fmt.Sprintf("%03d_%s", index, filepath.Base(header.Filename)))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to stage upload %s: %w", header.Filename, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to stage upload %s: %w", header.Filename, err)
	}
	return path, nil
}
