package scanapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recipestack/scanreview/internal/models"
)

func TestListPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recipescanner/book_scans/book-1/pages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Method != "GET" {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":"p-1","page_number":3,"status":"QUEUED","page_type":"text"}]`)
	}))
	defer server.Close()

	pages, err := NewClient(server.URL).ListPages(context.Background(), "book-1")
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if len(pages) != 1 || pages[0].ID != "p-1" || *pages[0].PageNumber != 3 {
		t.Errorf("pages = %+v", pages)
	}
}

func TestApproveSegmentationBody(t *testing.T) {
	var got models.SegmentationApproval
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recipescanner/approve_segmentation/p-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("body: %v", err)
		}
	}))
	defer server.Close()

	approval := models.SegmentationApproval{
		Approved: true,
		Segmentation: models.SegmentationResult{
			SegmentationDone: true,
			PageSegments:     []models.Segment{{ID: 0}},
		},
	}
	if err := NewClient(server.URL).ApproveSegmentation(context.Background(), "p-1", approval); err != nil {
		t.Fatalf("ApproveSegmentation: %v", err)
	}
	if !got.Approved || !got.Segmentation.SegmentationDone || len(got.Segmentation.PageSegments) != 1 {
		t.Errorf("server saw %+v", got)
	}
}

func TestUpdatePageNumberQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recipescanner/update_page_number/p-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if target := r.URL.Query().Get("target_number"); target != "7" {
			t.Errorf("target_number = %s", target)
		}
	}))
	defer server.Close()

	if err := NewClient(server.URL).UpdatePageNumber(context.Background(), "p-1", 7); err != nil {
		t.Fatalf("UpdatePageNumber: %v", err)
	}
}

func TestUploadPagesMultipart(t *testing.T) {
	var names []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recipescanner/upload/book-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart: %v", err)
			return
		}
		for _, header := range r.MultipartForm.File["files"] {
			names = append(names, header.Filename)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	paths := make([]string, 0, 2)
	for _, name := range []string{"scan_001.jpg", "scan_002.jpg"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("jpeg bytes"), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}

	if err := NewClient(server.URL).UploadPages(context.Background(), "book-1", paths); err != nil {
		t.Fatalf("UploadPages: %v", err)
	}
	if len(names) != 2 || names[0] != "scan_001.jpg" || names[1] != "scan_002.jpg" {
		t.Errorf("uploaded names = %v", names)
	}
}

func TestErrorIncludesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "page is locked", http.StatusConflict)
	}))
	defer server.Close()

	err := NewClient(server.URL).RedoOCR(context.Background(), "p-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "page is locked") {
		t.Errorf("err = %v", err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recipescanner/classification_records/r-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"r-1","status":"NEEDS_REVIEW","title":"Stew","text_pages":[{"id":"p-1","page_number":2}],"image_pages":[],"validation_result":{"title":"Stew","source":null},"created_at":"2026-01-02T10:00:00Z","updated_at":"2026-01-02T10:00:00Z"}`)
	}))
	defer server.Close()

	record, err := NewClient(server.URL).GetRecord(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if record.Status != models.RecordNeedsReview || record.Title == nil || *record.Title != "Stew" {
		t.Errorf("record = %+v", record)
	}
	if record.ValidationResult == nil || record.ValidationResult.Source != nil {
		t.Errorf("validation result = %+v", record.ValidationResult)
	}
}
