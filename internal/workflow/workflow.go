// Package workflow drives the approval state machine for pages and
// classification records. Transitions are server-authoritative: this
// package only validates input, builds phase-specific approval payloads
// and reflects the result in the review cache.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/recipestack/scanreview/internal/models"
	"github.com/recipestack/scanreview/internal/review"
)

var (
	// ErrInvalidPageNumber rejects non-positive page-number targets before
	// any network call.
	ErrInvalidPageNumber = errors.New("page number must be a positive integer")
	// ErrPageNotFound means the requested page number is not in the
	// currently loaded book.
	ErrPageNotFound = errors.New("page not found in this book")
	// ErrDuplicatePage means the page is already part of the record's group.
	ErrDuplicatePage = errors.New("page already in group")
	// ErrRecordNotFound means the record is not in the cache.
	ErrRecordNotFound = errors.New("classification record not found")
	// ErrWrongPhase means the record's status does not allow the requested
	// approval.
	ErrWrongPhase = errors.New("record is not in the required phase")
)

// Phase names the three approval phases of a classification record.
type Phase string

const (
	PhaseGroup    Phase = "group"
	PhaseRecipe   Phase = "recipe"
	PhaseTaxonomy Phase = "taxonomy"
)

// PhaseForStatus maps a record status to the approval phase it accepts.
func PhaseForStatus(status models.RecordStatus) (Phase, bool) {
	switch status {
	case models.RecordReviewGrouping:
		return PhaseGroup, true
	case models.RecordNeedsReview:
		return PhaseRecipe, true
	case models.RecordNeedsTaxonomy:
		return PhaseTaxonomy, true
	default:
		return "", false
	}
}

// GroupApproval approves the page grouping of a record, carrying the full
// current page list.
type GroupApproval struct {
	Phase    Phase            `json:"phase"`
	Approved bool             `json:"approved"`
	NewGroup []models.PageRef `json:"new_group"`
}

// RecipeApproval approves the reviewed recipe content. Recipe is nil when
// the operator made no edits, so the server keeps its derived content.
type RecipeApproval struct {
	Phase    Phase          `json:"phase"`
	Approved bool           `json:"approved"`
	Recipe   *models.Recipe `json:"recipe"`
}

// TaxonomyApproval approves categories and tags. Source is never
// operator-supplied; it is immutable at this phase and always null here.
type TaxonomyApproval struct {
	Phase      Phase    `json:"phase"`
	Approved   bool     `json:"approved"`
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
	Source     *string  `json:"source"`
}

// Backend is the slice of the pipeline API the workflow persists through.
type Backend interface {
	ApproveSegmentation(ctx context.Context, pageID string, approval models.SegmentationApproval) error
	RedoOCR(ctx context.Context, pageID string) error
	RedoSegmentation(ctx context.Context, pageID string) error
	UpdatePageNumber(ctx context.Context, pageID string, target int) error
	ApproveRecord(ctx context.Context, recordID string, approval any) error
	RedoRecord(ctx context.Context, recordID string) error
	AddPageToRecord(ctx context.Context, recordID, pageID string) error
	RemovePageFromRecord(ctx context.Context, recordID, pageID string) error
}

// Workflow coordinates approvals between the review cache and the backend.
type Workflow struct {
	store   *review.Store
	backend Backend
}

// New creates a workflow over the given store and backend.
func New(store *review.Store, backend Backend) *Workflow {
	return &Workflow{store: store, backend: backend}
}

// RecipeDraft renders a record's parsed recipe as the indented JSON text
// the operator edits in the review phase.
func RecipeDraft(record models.ClassificationRecord) string {
	var content any = map[string]any{}
	if record.ValidationResult != nil {
		content = record.ValidationResult
	}
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// BuildRecipeApproval builds the review-phase payload. The parsed recipe
// is included only when the trimmed edited text differs from the trimmed
// originally loaded text. Malformed JSON is a local validation error.
func BuildRecipeApproval(edited, original string) (RecipeApproval, error) {
	approval := RecipeApproval{Phase: PhaseRecipe, Approved: true}
	if strings.TrimSpace(edited) == strings.TrimSpace(original) {
		return approval, nil
	}

	var recipe models.Recipe
	if err := json.Unmarshal([]byte(edited), &recipe); err != nil {
		return RecipeApproval{}, fmt.Errorf("invalid recipe JSON: %w", err)
	}
	approval.Recipe = &recipe
	return approval, nil
}

// BuildTaxonomyApproval builds the taxonomy-phase payload. Categories and
// tags are sent as given, possibly empty; the source is always null.
func BuildTaxonomyApproval(categories, tags []string) TaxonomyApproval {
	return TaxonomyApproval{
		Phase:      PhaseTaxonomy,
		Approved:   true,
		Categories: categories,
		Tags:       tags,
		Source:     nil,
	}
}

// BuildSegmentationApproval builds the approve-segmentation payload from a
// page's in-progress segments. An empty list means the whole page is one
// unit.
func BuildSegmentationApproval(segs []models.Segment) models.SegmentationApproval {
	if segs == nil {
		segs = []models.Segment{}
	}
	return models.SegmentationApproval{
		Approved: true,
		Segmentation: models.SegmentationResult{
			SegmentationDone: len(segs) > 0,
			PageSegments:     segs,
		},
	}
}

// ApproveSegmentation persists the in-progress segments of a page and
// closes its inspector on success.
func (w *Workflow) ApproveSegmentation(ctx context.Context, pageID string) error {
	segs, _ := w.store.TempSegments(pageID)
	if err := w.backend.ApproveSegmentation(ctx, pageID, BuildSegmentationApproval(segs)); err != nil {
		return fmt.Errorf("segmentation approval for page %s failed: %w", pageID, err)
	}
	if w.store.EditingPageID() == pageID {
		w.store.StopEditing()
	}
	return nil
}

// RedoOCR asks the pipeline to rerun OCR for a page.
func (w *Workflow) RedoOCR(ctx context.Context, pageID string) error {
	return w.backend.RedoOCR(ctx, pageID)
}

// RedoSegmentation asks the pipeline to rerun segmentation for a page.
func (w *Workflow) RedoSegmentation(ctx context.Context, pageID string) error {
	return w.backend.RedoSegmentation(ctx, pageID)
}

// UpdatePageNumber moves a page to a new page number. Non-positive targets
// are rejected locally.
func (w *Workflow) UpdatePageNumber(ctx context.Context, pageID string, target int) error {
	if target <= 0 {
		return ErrInvalidPageNumber
	}
	if err := w.backend.UpdatePageNumber(ctx, pageID, target); err != nil {
		return fmt.Errorf("page number update failed: %w", err)
	}
	return w.store.RefetchPages(ctx)
}

// ApproveGrouping approves a record's page grouping with its full current
// page list.
func (w *Workflow) ApproveGrouping(ctx context.Context, recordID string) error {
	record, err := w.recordInPhase(recordID, models.RecordReviewGrouping)
	if err != nil {
		return err
	}
	approval := GroupApproval{Phase: PhaseGroup, Approved: true, NewGroup: record.TextPages}
	return w.approve(ctx, recordID, approval)
}

// ApproveRecipe approves the reviewed recipe JSON for a record in the
// review phase.
func (w *Workflow) ApproveRecipe(ctx context.Context, recordID, editedJSON string) error {
	record, err := w.recordInPhase(recordID, models.RecordNeedsReview)
	if err != nil {
		return err
	}
	approval, err := BuildRecipeApproval(editedJSON, RecipeDraft(record))
	if err != nil {
		return err
	}
	return w.approve(ctx, recordID, approval)
}

// ApproveTaxonomy approves categories and tags for a record in the
// taxonomy phase.
func (w *Workflow) ApproveTaxonomy(ctx context.Context, recordID string, categories, tags []string) error {
	if _, err := w.recordInPhase(recordID, models.RecordNeedsTaxonomy); err != nil {
		return err
	}
	return w.approve(ctx, recordID, BuildTaxonomyApproval(categories, tags))
}

func (w *Workflow) approve(ctx context.Context, recordID string, approval any) error {
	if err := w.backend.ApproveRecord(ctx, recordID, approval); err != nil {
		return fmt.Errorf("approval for record %s failed: %w", recordID, err)
	}
	if w.store.EditingRecordID() == recordID {
		w.store.StopRecordEditing()
	}
	return nil
}

// Redo requests reprocessing of a record, available from any phase, and
// closes its inspector since identity and content may change.
func (w *Workflow) Redo(ctx context.Context, recordID string) error {
	if err := w.backend.RedoRecord(ctx, recordID); err != nil {
		return fmt.Errorf("redo for record %s failed: %w", recordID, err)
	}
	if w.store.EditingRecordID() == recordID {
		w.store.StopRecordEditing()
	}
	return nil
}

// AddPageByNumber adds the page with the given page number to a record's
// grouping. Unknown numbers and duplicates are local validation errors.
func (w *Workflow) AddPageByNumber(ctx context.Context, recordID string, pageNumber int) error {
	if pageNumber <= 0 {
		return ErrInvalidPageNumber
	}

	var page *models.Page
	for _, p := range w.store.Pages() {
		if p.PageNumber != nil && *p.PageNumber == pageNumber {
			page = &p
			break
		}
	}
	if page == nil {
		return fmt.Errorf("%w: number %d", ErrPageNotFound, pageNumber)
	}

	record, ok := w.store.Record(recordID)
	if !ok {
		return ErrRecordNotFound
	}
	for _, ref := range append(record.TextPages, record.ImagePages...) {
		if ref.ID == page.ID {
			return ErrDuplicatePage
		}
	}

	if err := w.backend.AddPageToRecord(ctx, recordID, page.ID); err != nil {
		return fmt.Errorf("failed to add page %s to record %s: %w", page.ID, recordID, err)
	}
	w.refreshRecords(ctx)
	return nil
}

// RemovePage removes a page from a record's grouping.
func (w *Workflow) RemovePage(ctx context.Context, recordID, pageID string) error {
	if err := w.backend.RemovePageFromRecord(ctx, recordID, pageID); err != nil {
		return fmt.Errorf("failed to remove page %s from record %s: %w", pageID, recordID, err)
	}
	w.refreshRecords(ctx)
	return nil
}

// refreshRecords refetches the record list after a grouping edit. Failures
// are non-fatal; the next successful refresh corrects the view.
func (w *Workflow) refreshRecords(ctx context.Context) {
	if err := w.store.RefetchRecords(ctx); err != nil {
		slog.Warn("record refresh after grouping edit failed", "err", err)
	}
}

// PrevRecord returns the record before the given one in display order.
func (w *Workflow) PrevRecord(recordID string) (string, bool) {
	return w.neighborRecord(recordID, -1)
}

// NextRecord returns the record after the given one in display order.
func (w *Workflow) NextRecord(recordID string) (string, bool) {
	return w.neighborRecord(recordID, +1)
}

func (w *Workflow) neighborRecord(recordID string, delta int) (string, bool) {
	records := w.store.Records()
	for i, r := range records {
		if r.ID == recordID {
			j := i + delta
			if j < 0 || j >= len(records) {
				return "", false
			}
			return records[j].ID, true
		}
	}
	return "", false
}

// PrevTextPage returns the closest preceding text page in display order,
// skipping image pages.
func (w *Workflow) PrevTextPage(pageID string) (string, bool) {
	return w.neighborTextPage(pageID, -1)
}

// NextTextPage returns the closest following text page in display order,
// skipping image pages.
func (w *Workflow) NextTextPage(pageID string) (string, bool) {
	return w.neighborTextPage(pageID, +1)
}

func (w *Workflow) neighborTextPage(pageID string, delta int) (string, bool) {
	pages := w.store.Pages()
	idx := -1
	for i, p := range pages {
		if p.ID == pageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", false
	}
	for j := idx + delta; j >= 0 && j < len(pages); j += delta {
		if pages[j].PageType == models.PageTypeText {
			return pages[j].ID, true
		}
	}
	return "", false
}

func (w *Workflow) recordInPhase(recordID string, status models.RecordStatus) (models.ClassificationRecord, error) {
	record, ok := w.store.Record(recordID)
	if !ok {
		return models.ClassificationRecord{}, ErrRecordNotFound
	}
	if record.Status != status {
		return models.ClassificationRecord{}, fmt.Errorf("%w: have %s, need %s", ErrWrongPhase, record.Status, status)
	}
	return record, nil
}
