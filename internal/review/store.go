package review

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/recipestack/scanreview/internal/models"
)

// Loader fetches authoritative state from the scan pipeline backend. The
// store calls it on book selection and whenever a push event references an
// identifier it does not know.
type Loader interface {
	ListPages(ctx context.Context, bookID string) ([]models.Page, error)
	ListRecords(ctx context.Context, bookID string) ([]models.ClassificationRecord, error)
	GetRecord(ctx context.Context, recordID string) (models.ClassificationRecord, error)
}

// Store is the single source of truth for what the operator currently
// sees: the selected book's pages and classification records, the
// in-progress segment overrides, and which item is open for editing.
//
// All mutations are applied under one lock, so every operation observes a
// fully applied previous mutation. In-progress overrides are seeded once
// per page and never overwritten by a refresh.
type Store struct {
	mu     sync.RWMutex
	loader Loader

	selectedBookID  string
	pages           []models.Page
	records         []models.ClassificationRecord
	editingPageID   string
	editingRecordID string

	tempSegments       map[string][]models.Segment
	manualSegmentation map[string]bool
}

// NewStore creates an empty store backed by the given loader.
func NewStore(loader Loader) *Store {
	return &Store{
		loader:             loader,
		tempSegments:       make(map[string][]models.Segment),
		manualSegmentation: make(map[string]bool),
	}
}

// SelectBook replaces the selected book, discards the review session for
// the previous one, and reloads pages and records. A reload failure is
// returned to the caller; the cleared state stands until the next
// successful refresh.
func (s *Store) SelectBook(ctx context.Context, bookID string) error {
	s.mu.Lock()
	s.selectedBookID = bookID
	s.pages = nil
	s.records = nil
	s.editingPageID = ""
	s.editingRecordID = ""
	s.tempSegments = make(map[string][]models.Segment)
	s.manualSegmentation = make(map[string]bool)
	s.mu.Unlock()

	if bookID == "" {
		return nil
	}
	if err := s.RefetchPages(ctx); err != nil {
		return err
	}
	return s.RefetchRecords(ctx)
}

// SelectedBookID returns the currently selected book, or "".
func (s *Store) SelectedBookID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedBookID
}

// SetPages installs a freshly fetched page list. For each incoming page a
// segment override is seeded from the server-reported segments only if no
// local override exists yet; a refresh never discards in-progress edits.
func (s *Store) SetPages(pages []models.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range pages {
		if _, ok := s.tempSegments[p.ID]; !ok {
			s.tempSegments[p.ID] = models.CloneSegments(p.PageSegments)
			if s.tempSegments[p.ID] == nil {
				s.tempSegments[p.ID] = []models.Segment{}
			}
		}
		if _, ok := s.manualSegmentation[p.ID]; !ok {
			s.manualSegmentation[p.ID] = p.SegmentationDone
		}
	}

	s.pages = sortPages(pages)
}

// Pages returns the cached pages in display order.
func (s *Store) Pages() []models.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Page(nil), s.pages...)
}

// Page looks up a cached page by identifier.
func (s *Store) Page(id string) (models.Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pages {
		if p.ID == id {
			return p, true
		}
	}
	return models.Page{}, false
}

// SetTempSegments replaces the in-progress segment list for a page. Pure
// local mutation; nothing is persisted until the page is approved.
func (s *Store) SetTempSegments(pageID string, segs []models.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cloned := models.CloneSegments(segs)
	if cloned == nil {
		cloned = []models.Segment{}
	}
	s.tempSegments[pageID] = cloned
}

// TempSegments returns a copy of the in-progress segment list for a page.
func (s *Store) TempSegments(pageID string) ([]models.Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	segs, ok := s.tempSegments[pageID]
	if !ok {
		return nil, false
	}
	return models.CloneSegments(segs), true
}

// SetManualSegmentation marks whether a page's current segmentation was
// hand-drawn (true) or is the machine-derived full-page default (false).
func (s *Store) SetManualSegmentation(pageID string, manual bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manualSegmentation[pageID] = manual
}

// ManualSegmentation reports the manual-segmentation flag for a page.
func (s *Store) ManualSegmentation(pageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manualSegmentation[pageID]
}

// StartEditing opens a page in the inspector. Only one page is open at a
// time.
func (s *Store) StartEditing(pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingPageID = pageID
}

// StopEditing closes the page inspector.
func (s *Store) StopEditing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingPageID = ""
}

// EditingPageID returns the page open in the inspector, or "".
func (s *Store) EditingPageID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editingPageID
}

// SetRecords installs a freshly fetched record list, sorted by the lowest
// page number among each record's contributing pages.
func (s *Store) SetRecords(records []models.ClassificationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = sortRecords(records)
}

// Records returns the cached classification records in display order.
func (s *Store) Records() []models.ClassificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.ClassificationRecord(nil), s.records...)
}

// Record looks up a cached record by identifier.
func (s *Store) Record(id string) (models.ClassificationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.ClassificationRecord{}, false
}

// StartRecordEditing opens a record in the inspector.
func (s *Store) StartRecordEditing(recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingRecordID = recordID
}

// StopRecordEditing closes the record inspector.
func (s *Store) StopRecordEditing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingRecordID = ""
}

// EditingRecordID returns the record open in the inspector, or "".
func (s *Store) EditingRecordID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editingRecordID
}

// FetchRecordIfNeeded fetches the full record unless the cached entry is
// already complete. Idempotent: complete entries are never refetched.
func (s *Store) FetchRecordIfNeeded(ctx context.Context, recordID string) error {
	if existing, ok := s.Record(recordID); ok && recordComplete(existing) {
		return nil
	}

	record, err := s.loader.GetRecord(ctx, recordID)
	if err != nil {
		return fmt.Errorf("failed to fetch record %s: %w", recordID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]models.ClassificationRecord, 0, len(s.records)+1)
	for _, r := range s.records {
		if r.ID != recordID {
			kept = append(kept, r)
		}
	}
	s.records = sortRecords(append(kept, record))
	return nil
}

// UpdatePageStatus patches the status of a known page in place, leaving
// every other field and all session overrides untouched. An unknown page
// identifier means the pipeline spawned a page the cache has never seen,
// so the full page list is refetched for the selected book.
func (s *Store) UpdatePageStatus(ctx context.Context, pageID string, status models.PageStatus) error {
	s.mu.Lock()
	for i := range s.pages {
		if s.pages[i].ID == pageID {
			s.pages[i].Status = status
			s.pages = sortPages(s.pages)
			s.mu.Unlock()
			return nil
		}
	}
	bookID := s.selectedBookID
	s.mu.Unlock()

	if bookID == "" {
		return nil
	}
	return s.RefetchPages(ctx)
}

// UpdateRecordStatus is the record-side counterpart of UpdatePageStatus.
func (s *Store) UpdateRecordStatus(ctx context.Context, recordID string, status models.RecordStatus) error {
	s.mu.Lock()
	for i := range s.records {
		if s.records[i].ID == recordID {
			s.records[i].Status = status
			s.mu.Unlock()
			return nil
		}
	}
	bookID := s.selectedBookID
	s.mu.Unlock()

	if bookID == "" {
		return nil
	}
	return s.RefetchRecords(ctx)
}

// RefetchPages replaces the page list wholesale from the backend. On
// failure the previous contents are left untouched.
func (s *Store) RefetchPages(ctx context.Context) error {
	bookID := s.SelectedBookID()
	pages, err := s.loader.ListPages(ctx, bookID)
	if err != nil {
		return fmt.Errorf("failed to fetch pages for book %s: %w", bookID, err)
	}
	s.SetPages(pages)
	return nil
}

// RefetchRecords replaces the record list wholesale from the backend. On
// failure the previous contents are left untouched.
func (s *Store) RefetchRecords(ctx context.Context) error {
	bookID := s.SelectedBookID()
	records, err := s.loader.ListRecords(ctx, bookID)
	if err != nil {
		return fmt.Errorf("failed to fetch records for book %s: %w", bookID, err)
	}
	s.SetRecords(records)
	return nil
}

// recordComplete is the policy deciding whether a cached record needs no
// refetch: both page lists populated and a creation timestamp present.
// A record with legitimately zero image pages will refetch every time;
// kept until backend semantics say otherwise.
func recordComplete(r models.ClassificationRecord) bool {
	return len(r.TextPages) > 0 && len(r.ImagePages) > 0 && !r.CreatedAt.IsZero()
}

// sortPages orders pages ascending by page number, pages without a number
// last, stable otherwise.
func sortPages(pages []models.Page) []models.Page {
	out := append([]models.Page(nil), pages...)
	sort.SliceStable(out, func(i, j int) bool {
		return pageSortKey(out[i].PageNumber) < pageSortKey(out[j].PageNumber)
	})
	return out
}

// sortRecords orders records ascending by the lowest page number among
// their contributing pages, records with no pages last.
func sortRecords(records []models.ClassificationRecord) []models.ClassificationRecord {
	out := append([]models.ClassificationRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return recordSortKey(out[i]) < recordSortKey(out[j])
	})
	return out
}

const sortLast = int(^uint(0) >> 1)

func pageSortKey(n *int) int {
	if n == nil {
		return sortLast
	}
	return *n
}

func recordSortKey(r models.ClassificationRecord) int {
	key := sortLast
	for _, p := range r.TextPages {
		key = min(key, pageSortKey(p.PageNumber))
	}
	for _, p := range r.ImagePages {
		key = min(key, pageSortKey(p.PageNumber))
	}
	return key
}
