// Package segedit implements the interactive segmentation editor core:
// drawing, moving, resizing, merging, splitting and deleting bounding
// boxes on a page's in-progress segment list. The editor is driven by a
// single synchronous Dispatch over tagged events, independent of any UI
// toolkit; a canvas adapter translates pointer/keyboard input into events.
package segedit

import (
	"errors"
	"fmt"

	"github.com/recipestack/scanreview/internal/geometry"
	"github.com/recipestack/scanreview/internal/models"
	"github.com/recipestack/scanreview/internal/review"
)

var (
	// ErrUnknownSegment is returned when an event references a segment or
	// box index the page does not have.
	ErrUnknownSegment = errors.New("unknown segment or box index")
)

// Event is one editor action. Pointer coordinates are in display space;
// the editor converts them to image space before anything is stored.
type Event interface{ event() }

// PointerDown starts a draw gesture when draw mode is on.
type PointerDown struct{ X, Y float64 }

// PointerMove extends the in-progress draw rectangle.
type PointerMove struct{ X, Y float64 }

// PointerUp commits the draw gesture, discarding sub-threshold drags.
type PointerUp struct{}

// SetDrawMode toggles draw mode. Entering draw mode marks the page as
// manually segmented.
type SetDrawMode struct{ Enabled bool }

// SelectBox selects one bounding box of one segment.
type SelectBox struct {
	SegmentID int
	BoxIndex  int
}

// ClearSelection drops the current selection.
type ClearSelection struct{}

// MoveBox repositions a single bounding box, leaving its size and any
// sibling boxes of the segment untouched.
type MoveBox struct {
	SegmentID int
	BoxIndex  int
	X, Y      float64
}

// ResizeBox replaces a single bounding box with a new rectangle. Sizes
// are clamped to the editor minimum on both axes.
type ResizeBox struct {
	SegmentID int
	BoxIndex  int
	X, Y      float64
	Width     float64
	Height    float64
}

// MergeSelected merges the selected segment into its immediate
// predecessor by list order. No-op for the first segment.
type MergeSelected struct{}

// SplitSelected splits the selected segment into one segment per
// bounding box.
type SplitSelected struct{}

// DeleteSelected removes the selected segment, keyboard shortcut
// included.
type DeleteSelected struct{}

// ResetFullPage clears all segments and the manual-segmentation flag,
// returning the page to single-implicit-region state.
type ResetFullPage struct{}

func (PointerDown) event()    {}
func (PointerMove) event()    {}
func (PointerUp) event()      {}
func (SetDrawMode) event()    {}
func (SelectBox) event()      {}
func (ClearSelection) event() {}
func (MoveBox) event()        {}
func (ResizeBox) event()      {}
func (MergeSelected) event()  {}
func (SplitSelected) event()  {}
func (DeleteSelected) event() {}
func (ResetFullPage) event()  {}

// Selection identifies one bounding box within one segment.
type Selection struct {
	SegmentID int
	BoxIndex  int
}

// Editor edits the in-progress segment list of a single page. All stored
// geometry is in image pixel space regardless of the display scale.
type Editor struct {
	store  *review.Store
	pageID string
	scale  float64

	drawMode  bool
	selection *Selection
	drawStart *geometry.Point
	drawRect  *geometry.Rect
}

// NewEditor creates an editor for a page rendered at
// displayScale = targetWidth / imageWidth.
func NewEditor(store *review.Store, pageID string, imageWidth, targetWidth float64) *Editor {
	scale := 1.0
	if imageWidth > 0 {
		scale = targetWidth / imageWidth
	}
	return &Editor{store: store, pageID: pageID, scale: scale}
}

// Scale returns the display scale the editor converts pointer input with.
func (e *Editor) Scale() float64 { return e.scale }

// DrawMode reports whether draw mode is on.
func (e *Editor) DrawMode() bool { return e.drawMode }

// Selection returns the current selection, or nil.
func (e *Editor) Selection() *Selection {
	if e.selection == nil {
		return nil
	}
	sel := *e.selection
	return &sel
}

// DrawingRect returns the in-progress draw rectangle in image space, or
// nil when no draw gesture is active.
func (e *Editor) DrawingRect() *geometry.Rect {
	if e.drawRect == nil {
		return nil
	}
	r := *e.drawRect
	return &r
}

// Dispatch applies one event synchronously. The segment list is read from
// and written back to the review store, so the mutation is fully applied
// before the next event is processed.
func (e *Editor) Dispatch(ev Event) error {
	switch ev := ev.(type) {
	case PointerDown:
		e.pointerDown(ev)
	case PointerMove:
		e.pointerMove(ev)
	case PointerUp:
		e.pointerUp()
	case SetDrawMode:
		e.drawMode = ev.Enabled
		if ev.Enabled {
			e.store.SetManualSegmentation(e.pageID, true)
		}
	case SelectBox:
		return e.selectBox(ev)
	case ClearSelection:
		e.selection = nil
	case MoveBox:
		return e.moveBox(ev)
	case ResizeBox:
		return e.resizeBox(ev)
	case MergeSelected:
		e.mergeSelected()
	case SplitSelected:
		e.splitSelected()
	case DeleteSelected:
		e.deleteSelected()
	case ResetFullPage:
		e.store.SetTempSegments(e.pageID, nil)
		e.store.SetManualSegmentation(e.pageID, false)
		e.drawMode = false
		e.selection = nil
		e.drawStart = nil
		e.drawRect = nil
	default:
		return fmt.Errorf("unhandled editor event %T", ev)
	}
	return nil
}

func (e *Editor) segments() []models.Segment {
	segs, _ := e.store.TempSegments(e.pageID)
	return segs
}

func (e *Editor) toImage(x, y float64) geometry.Point {
	return geometry.Point{X: x / e.scale, Y: y / e.scale}
}

func (e *Editor) pointerDown(ev PointerDown) {
	if !e.drawMode {
		return
	}
	p := e.toImage(ev.X, ev.Y)
	e.drawStart = &p
	e.drawRect = &geometry.Rect{X: p.X, Y: p.Y}
}

func (e *Editor) pointerMove(ev PointerMove) {
	if !e.drawMode || e.drawStart == nil {
		return
	}
	r := geometry.DragRect(*e.drawStart, e.toImage(ev.X, ev.Y))
	e.drawRect = &r
}

func (e *Editor) pointerUp() {
	defer func() {
		e.drawStart = nil
		e.drawRect = nil
	}()

	if !e.drawMode || e.drawRect == nil {
		return
	}
	if e.drawRect.Width <= geometry.MinBoxSize || e.drawRect.Height <= geometry.MinBoxSize {
		return
	}

	segs := e.segments()
	seg := models.Segment{
		ID:                  NextSegmentID(segs),
		BoundingBoxes:       []models.BoundingBox{geometry.RectToBox(*e.drawRect)},
		AssociatedOCRBlocks: []int{},
	}
	e.store.SetTempSegments(e.pageID, append(segs, seg))
}

func (e *Editor) selectBox(ev SelectBox) error {
	for _, s := range e.segments() {
		if s.ID == ev.SegmentID {
			if ev.BoxIndex < 0 || ev.BoxIndex >= len(s.BoundingBoxes) {
				return ErrUnknownSegment
			}
			e.selection = &Selection{SegmentID: ev.SegmentID, BoxIndex: ev.BoxIndex}
			return nil
		}
	}
	return ErrUnknownSegment
}

func (e *Editor) moveBox(ev MoveBox) error {
	return e.updateBox(ev.SegmentID, ev.BoxIndex, func(r geometry.Rect) geometry.Rect {
		p := e.toImage(ev.X, ev.Y)
		r.X = p.X
		r.Y = p.Y
		return geometry.ClampSize(r)
	})
}

func (e *Editor) resizeBox(ev ResizeBox) error {
	return e.updateBox(ev.SegmentID, ev.BoxIndex, func(geometry.Rect) geometry.Rect {
		p := e.toImage(ev.X, ev.Y)
		return geometry.ClampSize(geometry.Rect{
			X:      p.X,
			Y:      p.Y,
			Width:  ev.Width / e.scale,
			Height: ev.Height / e.scale,
		})
	})
}

// updateBox rewrites one bounding box of one segment, leaving sibling
// boxes untouched.
func (e *Editor) updateBox(segID, boxIdx int, fn func(geometry.Rect) geometry.Rect) error {
	segs := e.segments()
	for i, s := range segs {
		if s.ID != segID {
			continue
		}
		if boxIdx < 0 || boxIdx >= len(s.BoundingBoxes) {
			return ErrUnknownSegment
		}
		rect := fn(geometry.BoxToRect(s.BoundingBoxes[boxIdx]))
		segs[i].BoundingBoxes[boxIdx] = geometry.RectToBox(rect)
		e.store.SetTempSegments(e.pageID, segs)
		return nil
	}
	return ErrUnknownSegment
}

func (e *Editor) mergeSelected() {
	if e.selection == nil {
		return
	}
	segs := MergeWithPredecessor(e.segments(), e.selection.SegmentID)
	if segs == nil {
		return
	}
	e.store.SetTempSegments(e.pageID, segs)
	e.selection = nil
}

func (e *Editor) splitSelected() {
	if e.selection == nil {
		return
	}
	segs := e.segments()
	split := SplitSegment(segs, e.selection.SegmentID)
	if split == nil {
		return
	}
	e.store.SetTempSegments(e.pageID, resolveIDCollisions(split))
	e.selection = nil
}

func (e *Editor) deleteSelected() {
	if e.selection == nil {
		return
	}
	segs := e.segments()
	kept := segs[:0]
	for _, s := range segs {
		if s.ID != e.selection.SegmentID {
			kept = append(kept, s)
		}
	}
	e.store.SetTempSegments(e.pageID, kept)
	e.selection = nil
}

// NextSegmentID returns one greater than the maximum identifier on the
// page, or 0 when the page has no segments yet.
func NextSegmentID(segs []models.Segment) int {
	if len(segs) == 0 {
		return 0
	}
	maxID := 0
	for _, s := range segs {
		maxID = max(maxID, s.ID)
	}
	return maxID + 1
}

// MergeWithPredecessor merges the segment with the given id into its
// immediate predecessor by list order: box lists and OCR-block lists are
// concatenated, the predecessor keeps its identifier and title, and the
// merged segment replaces both at the predecessor's position. Returns nil
// when the segment is missing or has no predecessor.
func MergeWithPredecessor(segs []models.Segment, segID int) []models.Segment {
	idx := -1
	for i, s := range segs {
		if s.ID == segID {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return nil
	}

	prev := segs[idx-1].Clone()
	curr := segs[idx]
	prev.BoundingBoxes = append(prev.BoundingBoxes, curr.BoundingBoxes...)
	prev.AssociatedOCRBlocks = append(prev.AssociatedOCRBlocks, curr.AssociatedOCRBlocks...)

	out := make([]models.Segment, 0, len(segs)-1)
	out = append(out, segs[:idx-1]...)
	out = append(out, prev)
	out = append(out, segs[idx+1:]...)
	return out
}

// SplitSegment splits the segment with the given id into one segment per
// bounding box, each inheriting the title and the full OCR-block list.
// Split identifiers restart at 0, matching the historical behavior; the
// caller resolves collisions with surviving page-level identifiers before
// committing. Returns nil when the segment is missing.
func SplitSegment(segs []models.Segment, segID int) []models.Segment {
	var target *models.Segment
	for i := range segs {
		if segs[i].ID == segID {
			target = &segs[i]
			break
		}
	}
	if target == nil {
		return nil
	}

	out := make([]models.Segment, 0, len(segs)-1+len(target.BoundingBoxes))
	for _, s := range segs {
		if s.ID != segID {
			out = append(out, s)
		}
	}
	for i, bb := range target.BoundingBoxes {
		out = append(out, models.Segment{
			ID:                  i,
			Title:               target.Title,
			BoundingBoxes:       []models.BoundingBox{append(models.BoundingBox(nil), bb...)},
			AssociatedOCRBlocks: append([]int(nil), target.AssociatedOCRBlocks...),
		})
	}
	return out
}

// resolveIDCollisions renumbers duplicate segment identifiers from the
// page maximum upward, first occurrence wins. Split results restart at 0,
// which can collide with surviving segments after merge/split sequences.
func resolveIDCollisions(segs []models.Segment) []models.Segment {
	maxID := -1
	for _, s := range segs {
		maxID = max(maxID, s.ID)
	}

	seen := make(map[int]bool, len(segs))
	for i := range segs {
		if seen[segs[i].ID] {
			maxID++
			segs[i].ID = maxID
		}
		seen[segs[i].ID] = true
	}
	return segs
}
