package geometry

import (
	"math"

	"github.com/recipestack/scanreview/internal/models"
)

// MinBoxSize is the smallest box dimension, in image pixels, the editor
// accepts. Drags smaller than this are discarded and resizes are clamped.
const MinBoxSize = 5

// Rect is an axis-aligned rectangle in image pixel coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a position in image pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoxToRect reduces a bounding polygon to its axis-aligned bounding
// rectangle.
func BoxToRect(box models.BoundingBox) Rect {
	if len(box) == 0 {
		return Rect{}
	}
	minX, maxX := box[0].X, box[0].X
	minY, maxY := box[0].Y, box[0].Y
	for _, v := range box[1:] {
		minX = min(minX, v.X)
		maxX = max(maxX, v.X)
		minY = min(minY, v.Y)
		maxY = max(maxY, v.Y)
	}
	return Rect{
		X:      float64(minX),
		Y:      float64(minY),
		Width:  float64(maxX - minX),
		Height: float64(maxY - minY),
	}
}

// RectToBox converts a rectangle to a 4-vertex polygon in the fixed order
// top-left, top-right, bottom-right, bottom-left. Coordinates are rounded
// to whole image pixels.
func RectToBox(r Rect) models.BoundingBox {
	x0 := int(math.Round(r.X))
	y0 := int(math.Round(r.Y))
	x1 := int(math.Round(r.X + r.Width))
	y1 := int(math.Round(r.Y + r.Height))
	return models.BoundingBox{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
	}
}

// DragRect normalizes a drag gesture from start to cur into a rectangle
// with non-negative extent, whichever of the four directions the drag went.
func DragRect(start, cur Point) Rect {
	return Rect{
		X:      math.Min(start.X, cur.X),
		Y:      math.Min(start.Y, cur.Y),
		Width:  math.Abs(cur.X - start.X),
		Height: math.Abs(cur.Y - start.Y),
	}
}

// BlockRects extracts the bounding rectangles of OCR text blocks. Blocks
// without exactly four vertices are skipped.
func BlockRects(ocr *models.OCRResult) []Rect {
	if ocr == nil {
		return nil
	}
	rects := make([]Rect, 0, len(ocr.Blocks))
	for _, block := range ocr.Blocks {
		v := block.BoundingBox.Vertices
		if len(v) != 4 {
			continue
		}
		rects = append(rects, BoxToRect(models.BoundingBox(v)))
	}
	return rects
}

// Contains reports whether an OCR block rectangle lies within a segment
// rectangle, with a 10% tolerance on each edge to absorb OCR box jitter at
// segment boundaries. Advisory only; never mutates geometry.
func Contains(block, seg Rect) bool {
	return block.X >= seg.X*0.9 &&
		block.Y >= seg.Y*0.9 &&
		block.X+block.Width <= (seg.X+seg.Width)*1.1 &&
		block.Y+block.Height <= (seg.Y+seg.Height)*1.1
}

// ClampSize enforces the minimum box size on both axes.
func ClampSize(r Rect) Rect {
	r.Width = math.Max(float64(MinBoxSize), r.Width)
	r.Height = math.Max(float64(MinBoxSize), r.Height)
	return r
}
