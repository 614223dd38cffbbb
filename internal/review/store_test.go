package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recipestack/scanreview/internal/models"
)

type fakeLoader struct {
	pages   []models.Page
	records []models.ClassificationRecord
	record  models.ClassificationRecord
	err     error

	listPagesCalls   int
	listRecordsCalls int
	getRecordCalls   int
}

func (f *fakeLoader) ListPages(ctx context.Context, bookID string) ([]models.Page, error) {
	f.listPagesCalls++
	return f.pages, f.err
}

func (f *fakeLoader) ListRecords(ctx context.Context, bookID string) ([]models.ClassificationRecord, error) {
	f.listRecordsCalls++
	return f.records, f.err
}

func (f *fakeLoader) GetRecord(ctx context.Context, recordID string) (models.ClassificationRecord, error) {
	f.getRecordCalls++
	return f.record, f.err
}

func intPtr(n int) *int { return &n }

func pageWithSegments(id string, number *int, segs []models.Segment) models.Page {
	return models.Page{
		ID:           id,
		BookScanID:   "book-1",
		PageNumber:   number,
		PageSegments: segs,
		PageType:     models.PageTypeText,
		Status:       models.PageNeedsReview,
	}
}

func TestSetPagesSortsMissingNumbersLast(t *testing.T) {
	s := NewStore(&fakeLoader{})

	s.SetPages([]models.Page{
		pageWithSegments("p-nil", nil, nil),
		pageWithSegments("p-3", intPtr(3), nil),
		pageWithSegments("p-1", intPtr(1), nil),
	})

	got := s.Pages()
	wantOrder := []string{"p-1", "p-3", "p-nil"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestSetPagesSeedsOverridesOnlyOnce(t *testing.T) {
	s := NewStore(&fakeLoader{})

	serverSegs := []models.Segment{{ID: 0, Title: "machine"}}
	s.SetPages([]models.Page{pageWithSegments("p-1", intPtr(1), serverSegs)})

	segs, ok := s.TempSegments("p-1")
	if !ok || len(segs) != 1 || segs[0].Title != "machine" {
		t.Fatalf("expected seeded machine segments, got %v (ok=%v)", segs, ok)
	}

	// Operator edits locally.
	s.SetTempSegments("p-1", []models.Segment{{ID: 7, Title: "manual"}})

	// A refresh with different upstream data must not clobber the edit.
	s.SetPages([]models.Page{pageWithSegments("p-1", intPtr(1), []models.Segment{{ID: 0, Title: "newer machine"}})})

	segs, _ = s.TempSegments("p-1")
	if len(segs) != 1 || segs[0].ID != 7 || segs[0].Title != "manual" {
		t.Errorf("local override was overwritten by refresh: %v", segs)
	}
}

func TestSetPagesSeedsManualFlagOnlyOnce(t *testing.T) {
	s := NewStore(&fakeLoader{})

	page := pageWithSegments("p-1", intPtr(1), nil)
	page.SegmentationDone = true
	s.SetPages([]models.Page{page})

	if !s.ManualSegmentation("p-1") {
		t.Fatal("expected manual flag seeded from segmentation_done")
	}

	s.SetManualSegmentation("p-1", false)
	s.SetPages([]models.Page{page})

	if s.ManualSegmentation("p-1") {
		t.Error("refresh overwrote local manual-segmentation flag")
	}
}

func TestSelectBookClearsSession(t *testing.T) {
	loader := &fakeLoader{pages: []models.Page{pageWithSegments("p-1", intPtr(1), nil)}}
	s := NewStore(loader)

	s.SetPages([]models.Page{pageWithSegments("p-old", intPtr(1), nil)})
	s.SetTempSegments("p-old", []models.Segment{{ID: 1}})
	s.StartEditing("p-old")
	s.StartRecordEditing("r-old")

	if err := s.SelectBook(context.Background(), "book-2"); err != nil {
		t.Fatalf("SelectBook: %v", err)
	}

	if s.EditingPageID() != "" || s.EditingRecordID() != "" {
		t.Error("editor pointers survived book switch")
	}
	if _, ok := s.TempSegments("p-old"); ok {
		t.Error("segment override survived book switch")
	}
	if got := s.Pages(); len(got) != 1 || got[0].ID != "p-1" {
		t.Errorf("expected reloaded pages, got %v", got)
	}
}

func TestRefetchFailureKeepsPreviousState(t *testing.T) {
	loader := &fakeLoader{}
	s := NewStore(loader)
	s.SetPages([]models.Page{pageWithSegments("p-1", intPtr(1), nil)})

	loader.err = errors.New("backend down")
	if err := s.RefetchPages(context.Background()); err == nil {
		t.Fatal("expected error from failed refetch")
	}

	if got := s.Pages(); len(got) != 1 || got[0].ID != "p-1" {
		t.Errorf("failed refetch mutated cache: %v", got)
	}
}

func TestUpdatePageStatusKnownPage(t *testing.T) {
	loader := &fakeLoader{}
	s := NewStore(loader)
	s.SetPages([]models.Page{
		pageWithSegments("p-1", intPtr(1), nil),
		pageWithSegments("p-2", intPtr(2), nil),
	})
	s.SetTempSegments("p-1", []models.Segment{{ID: 3, Title: "edit"}})

	if err := s.UpdatePageStatus(context.Background(), "p-1", models.PageApproved); err != nil {
		t.Fatalf("UpdatePageStatus: %v", err)
	}

	p, _ := s.Page("p-1")
	if p.Status != models.PageApproved {
		t.Errorf("status = %s, want APPROVED", p.Status)
	}
	other, _ := s.Page("p-2")
	if other.Status != models.PageNeedsReview {
		t.Errorf("unrelated page status changed: %s", other.Status)
	}
	segs, _ := s.TempSegments("p-1")
	if len(segs) != 1 || segs[0].Title != "edit" {
		t.Errorf("status patch disturbed segment override: %v", segs)
	}
	if loader.listPagesCalls != 0 {
		t.Errorf("known page must not trigger a refetch, got %d calls", loader.listPagesCalls)
	}
}

func TestUpdatePageStatusUnknownPageRefetches(t *testing.T) {
	loader := &fakeLoader{pages: []models.Page{
		pageWithSegments("p-1", intPtr(1), nil),
		pageWithSegments("p-9", intPtr(9), nil),
	}}
	s := NewStore(loader)
	if err := s.SelectBook(context.Background(), "book-1"); err != nil {
		t.Fatalf("SelectBook: %v", err)
	}
	loader.listPagesCalls = 0

	if err := s.UpdatePageStatus(context.Background(), "unknown-page-9", models.PageOCRDone); err != nil {
		t.Fatalf("UpdatePageStatus: %v", err)
	}

	if loader.listPagesCalls != 1 {
		t.Errorf("expected exactly one full refetch, got %d", loader.listPagesCalls)
	}
	if _, ok := s.Page("p-9"); !ok {
		t.Error("refetched page list not installed")
	}
}

func TestSetRecordsSortsByLowestPageNumber(t *testing.T) {
	s := NewStore(&fakeLoader{})

	s.SetRecords([]models.ClassificationRecord{
		{ID: "r-none"},
		{ID: "r-5", TextPages: []models.PageRef{{ID: "p", PageNumber: intPtr(5)}}},
		{ID: "r-2", ImagePages: []models.PageRef{{ID: "q", PageNumber: intPtr(2)}}},
	})

	got := s.Records()
	wantOrder := []string{"r-2", "r-5", "r-none"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestFetchRecordIfNeeded(t *testing.T) {
	complete := models.ClassificationRecord{
		ID:         "r-1",
		TextPages:  []models.PageRef{{ID: "p-1", PageNumber: intPtr(1)}},
		ImagePages: []models.PageRef{{ID: "p-2", PageNumber: intPtr(2)}},
		CreatedAt:  time.Now(),
	}

	t.Run("complete record is not refetched", func(t *testing.T) {
		loader := &fakeLoader{}
		s := NewStore(loader)
		s.SetRecords([]models.ClassificationRecord{complete})

		if err := s.FetchRecordIfNeeded(context.Background(), "r-1"); err != nil {
			t.Fatalf("FetchRecordIfNeeded: %v", err)
		}
		if loader.getRecordCalls != 0 {
			t.Errorf("complete record was refetched %d times", loader.getRecordCalls)
		}
	})

	// A record with zero image pages never counts as complete; policy kept
	// until backend semantics confirm otherwise.
	t.Run("partial record is replaced", func(t *testing.T) {
		loader := &fakeLoader{record: complete}
		s := NewStore(loader)
		partial := models.ClassificationRecord{ID: "r-1", TextPages: complete.TextPages}
		s.SetRecords([]models.ClassificationRecord{partial})

		if err := s.FetchRecordIfNeeded(context.Background(), "r-1"); err != nil {
			t.Fatalf("FetchRecordIfNeeded: %v", err)
		}
		if loader.getRecordCalls != 1 {
			t.Fatalf("expected one fetch, got %d", loader.getRecordCalls)
		}
		got, ok := s.Record("r-1")
		if !ok || len(got.ImagePages) != 1 {
			t.Errorf("partial entry not replaced: %+v", got)
		}
		if len(s.Records()) != 1 {
			t.Errorf("duplicate record entries after merge: %d", len(s.Records()))
		}
	})

	t.Run("fetch failure leaves cache untouched", func(t *testing.T) {
		loader := &fakeLoader{err: errors.New("boom")}
		s := NewStore(loader)
		partial := models.ClassificationRecord{ID: "r-1"}
		s.SetRecords([]models.ClassificationRecord{partial})

		if err := s.FetchRecordIfNeeded(context.Background(), "r-1"); err == nil {
			t.Fatal("expected error")
		}
		if got, ok := s.Record("r-1"); !ok || got.ID != "r-1" {
			t.Errorf("cache mutated on failed fetch: %+v", got)
		}
	})
}

func TestTempSegmentsReturnsCopy(t *testing.T) {
	s := NewStore(&fakeLoader{})
	s.SetTempSegments("p-1", []models.Segment{{
		ID:            1,
		BoundingBoxes: []models.BoundingBox{{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2}}},
	}})

	segs, _ := s.TempSegments("p-1")
	segs[0].BoundingBoxes[0][0].X = 999

	again, _ := s.TempSegments("p-1")
	if again[0].BoundingBoxes[0][0].X == 999 {
		t.Error("TempSegments leaked internal state")
	}
}
