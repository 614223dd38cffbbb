// Package scanapi is the HTTP client for the scan pipeline backend. The
// backend owns all durable state; this client only fetches and persists on
// behalf of the review workbench.
package scanapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/recipestack/scanreview/internal/models"
)

// Client talks to the recipe scanner backend API.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListBookScans fetches all book scans.
func (c *Client) ListBookScans(ctx context.Context) ([]models.BookScan, error) {
	var scans []models.BookScan
	if err := c.getJSON(ctx, "/recipescanner/book_scans", &scans); err != nil {
		return nil, err
	}
	return scans, nil
}

// CreateBookScan creates a new book scan with the given title.
func (c *Client) CreateBookScan(ctx context.Context, title string) (models.BookScan, error) {
	var scan models.BookScan
	err := c.postJSON(ctx, "/recipescanner/book_scans", map[string]string{"title": title}, &scan)
	return scan, err
}

// DeleteBookScan deletes a book scan and everything under it.
func (c *Client) DeleteBookScan(ctx context.Context, scanID string) error {
	return c.do(ctx, http.MethodDelete, "/recipescanner/book_scans/"+url.PathEscape(scanID), nil, nil)
}

// ListPages fetches all pages for a book.
func (c *Client) ListPages(ctx context.Context, bookID string) ([]models.Page, error) {
	var pages []models.Page
	path := fmt.Sprintf("/recipescanner/book_scans/%s/pages", url.PathEscape(bookID))
	if err := c.getJSON(ctx, path, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// GetOCRData fetches the OCR result for a page.
func (c *Client) GetOCRData(ctx context.Context, pageID string) (models.OCRResult, error) {
	var ocr models.OCRResult
	err := c.getJSON(ctx, "/recipescanner/ocr_data/"+url.PathEscape(pageID), &ocr)
	return ocr, err
}

// ApproveSegmentation persists the operator's segment edits for a page.
func (c *Client) ApproveSegmentation(ctx context.Context, pageID string, approval models.SegmentationApproval) error {
	return c.postJSON(ctx, "/recipescanner/approve_segmentation/"+url.PathEscape(pageID), approval, nil)
}

// RedoOCR requests the pipeline rerun OCR for a page.
func (c *Client) RedoOCR(ctx context.Context, pageID string) error {
	return c.postJSON(ctx, "/recipescanner/trigger_ocr/"+url.PathEscape(pageID), nil, nil)
}

// RedoSegmentation requests the pipeline rerun segmentation for a page.
func (c *Client) RedoSegmentation(ctx context.Context, pageID string) error {
	return c.postJSON(ctx, "/recipescanner/trigger_seg/"+url.PathEscape(pageID), nil, nil)
}

// UpdatePageNumber moves a page to the given page number.
func (c *Client) UpdatePageNumber(ctx context.Context, pageID string, target int) error {
	path := fmt.Sprintf("/recipescanner/update_page_number/%s?target_number=%d", url.PathEscape(pageID), target)
	return c.postJSON(ctx, path, nil, nil)
}

// DeletePage removes a page from its book.
func (c *Client) DeletePage(ctx context.Context, pageID string) error {
	return c.do(ctx, http.MethodDelete, "/recipescanner/images/"+url.PathEscape(pageID), nil, nil)
}

// UploadPages uploads scanned page images to a book. Files are sent as one
// multipart request under the "files" field.
func (c *Client) UploadPages(ctx context.Context, bookID string, paths []string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", p, err)
		}
		part, err := writer.CreateFormFile("files", filepath.Base(p))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to write multipart for %s: %w", p, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/recipescanner/upload/"+url.PathEscape(bookID), &body)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// ListRecords fetches all classification records for a book.
func (c *Client) ListRecords(ctx context.Context, bookID string) ([]models.ClassificationRecord, error) {
	var records []models.ClassificationRecord
	path := fmt.Sprintf("/recipescanner/book_scans/%s/classification_records", url.PathEscape(bookID))
	if err := c.getJSON(ctx, path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetRecord fetches one classification record in full.
func (c *Client) GetRecord(ctx context.Context, recordID string) (models.ClassificationRecord, error) {
	var record models.ClassificationRecord
	err := c.getJSON(ctx, "/recipescanner/classification_records/"+url.PathEscape(recordID), &record)
	return record, err
}

// ApproveRecord posts a phase-specific approval payload for a record.
func (c *Client) ApproveRecord(ctx context.Context, recordID string, approval any) error {
	return c.postJSON(ctx, "/recipescanner/approve_classification/"+url.PathEscape(recordID), approval, nil)
}

// RedoRecord requests the pipeline restart classification for a record.
func (c *Client) RedoRecord(ctx context.Context, recordID string) error {
	return c.postJSON(ctx, "/recipescanner/trigger_classification/"+url.PathEscape(recordID), nil, nil)
}

// ClassifyBook kicks off classification over a whole book scan.
func (c *Client) ClassifyBook(ctx context.Context, bookID string) error {
	return c.postJSON(ctx, "/recipescanner/classify_book_scan/"+url.PathEscape(bookID), nil, nil)
}

// AddPageToRecord adds a page to a record's grouping.
func (c *Client) AddPageToRecord(ctx context.Context, recordID, pageID string) error {
	path := fmt.Sprintf("/recipescanner/classification_records/%s/pages/%s",
		url.PathEscape(recordID), url.PathEscape(pageID))
	return c.postJSON(ctx, path, nil, nil)
}

// RemovePageFromRecord removes a page from a record's grouping.
func (c *Client) RemovePageFromRecord(ctx context.Context, recordID, pageID string) error {
	path := fmt.Sprintf("/recipescanner/classification_records/%s/pages/%s",
		url.PathEscape(recordID), url.PathEscape(pageID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// DeleteRecord deletes a classification record.
func (c *Client) DeleteRecord(ctx context.Context, recordID string) error {
	return c.do(ctx, http.MethodDelete, "/recipescanner/classification_records/"+url.PathEscape(recordID), nil, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(data))
}
