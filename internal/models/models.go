package models

import "time"

// PageStatus tracks a scanned page through the OCR/segmentation pipeline.
type PageStatus string

const (
	PageQueued      PageStatus = "QUEUED"
	PageOCRDone     PageStatus = "OCR_DONE"
	PageNeedsReview PageStatus = "NEEDS_REVIEW"
	PageApproved    PageStatus = "APPROVED"
	PageFailed      PageStatus = "failed"
)

// PageType distinguishes text pages (OCR + segmentation) from photo pages.
type PageType string

const (
	PageTypeText  PageType = "text"
	PageTypeImage PageType = "image"
)

// RecordStatus tracks a classification record through its approval phases.
type RecordStatus string

const (
	RecordQueued         RecordStatus = "QUEUED"
	RecordReviewGrouping RecordStatus = "REVIEW_GROUPING"
	RecordNeedsReview    RecordStatus = "NEEDS_REVIEW"
	RecordNeedsTaxonomy  RecordStatus = "NEEDS_TAXONOMY"
	RecordApproved       RecordStatus = "APPROVED"
)

// Vertex is one polygon corner in image pixel coordinates.
type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BoundingBox is a 4-vertex polygon in the fixed order
// top-left, top-right, bottom-right, bottom-left.
type BoundingBox []Vertex

// Segment is one region of interest within a page. A segment may own more
// than one disjoint bounding box. IDs are unique within the page only.
type Segment struct {
	ID                  int           `json:"id"`
	Title               string        `json:"title"`
	BoundingBoxes       []BoundingBox `json:"bounding_boxes"`
	AssociatedOCRBlocks []int         `json:"associated_ocr_blocks"`
}

// Clone returns a deep copy of the segment.
func (s Segment) Clone() Segment {
	out := s
	out.BoundingBoxes = make([]BoundingBox, len(s.BoundingBoxes))
	for i, bb := range s.BoundingBoxes {
		out.BoundingBoxes[i] = append(BoundingBox(nil), bb...)
	}
	if s.AssociatedOCRBlocks != nil {
		out.AssociatedOCRBlocks = make([]int, len(s.AssociatedOCRBlocks))
		copy(out.AssociatedOCRBlocks, s.AssociatedOCRBlocks)
	}
	return out
}

// CloneSegments deep-copies a segment list.
func CloneSegments(segs []Segment) []Segment {
	if segs == nil {
		return nil
	}
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i] = s.Clone()
	}
	return out
}

// Page is one scanned image belonging to a book scan.
type Page struct {
	ID               string     `json:"id"`
	BookScanID       string     `json:"bookScanID"`
	Filename         string     `json:"filename"`
	PageNumber       *int       `json:"page_number"`
	ScanDate         time.Time  `json:"scanDate"`
	OCRPath          string     `json:"ocr_path,omitempty"`
	Title            string     `json:"title,omitempty"`
	PageSegments     []Segment  `json:"page_segments"`
	SegmentationDone bool       `json:"segmentation_done"`
	PageType         PageType   `json:"page_type"`
	Status           PageStatus `json:"status"`
}

// PageRef is the lightweight page reference carried by classification
// records and grouping approvals.
type PageRef struct {
	ID         string `json:"id"`
	PageNumber *int   `json:"page_number"`
}

// Ingredient is one parsed recipe ingredient.
type Ingredient struct {
	Name        string `json:"name"`
	Quantity    string `json:"quantity,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Preparation string `json:"preparation,omitempty"`
}

// Instruction is one parsed recipe step.
type Instruction struct {
	Step        int    `json:"step"`
	Instruction string `json:"instruction"`
}

// Recipe is the parsed recipe content held in a record's validation result.
// Source identifies where the recipe came from and is immutable once set.
type Recipe struct {
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Servings     string        `json:"servings,omitempty"`
	PrepTime     string        `json:"prep_time,omitempty"`
	CookTime     string        `json:"cook_time,omitempty"`
	Source       *string       `json:"source"`
	Ingredients  []Ingredient  `json:"ingredients,omitempty"`
	Instructions []Instruction `json:"instructions,omitempty"`
}

// ClassificationRecord is a candidate recipe assembled from one or more
// pages, progressing through grouping, review and taxonomy approval.
type ClassificationRecord struct {
	ID               string       `json:"id"`
	BookScanID       string       `json:"book_scan_id"`
	RecipeID         string       `json:"recipe_id,omitempty"`
	Title            *string      `json:"title"`
	ThumbnailPath    string       `json:"thumbnail_path,omitempty"`
	Status           RecordStatus `json:"status"`
	Approved         bool         `json:"approved"`
	TextPages        []PageRef    `json:"text_pages"`
	ImagePages       []PageRef    `json:"image_pages"`
	ValidationResult *Recipe      `json:"validation_result"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	ErrorMessage     string       `json:"error_message,omitempty"`
}

// BookScan is one scanned cookbook.
type BookScan struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// OCRBlockGeometry holds the detected polygon of one OCR text block.
type OCRBlockGeometry struct {
	Vertices []Vertex `json:"vertices"`
}

// OCRBlock is one text block detected by the OCR pipeline.
type OCRBlock struct {
	BoundingBox OCRBlockGeometry `json:"boundingBox"`
	Text        string           `json:"text,omitempty"`
	Confidence  float64          `json:"confidence,omitempty"`
}

// OCRResult is the full OCR output for one page.
type OCRResult struct {
	PageID   string     `json:"page_id"`
	FullText string     `json:"full_text"`
	Blocks   []OCRBlock `json:"blocks"`
}

// SegmentationResult carries the segment list sent on segmentation
// approval. SegmentationDone false means the whole page is treated as one
// unit downstream.
type SegmentationResult struct {
	SegmentationDone bool      `json:"segmentation_done"`
	PageSegments     []Segment `json:"page_segments"`
}

// SegmentationApproval is the approve-segmentation request body.
type SegmentationApproval struct {
	Approved     bool               `json:"approved"`
	Segmentation SegmentationResult `json:"segmentation"`
}

// Event kinds delivered on the status push channel. Pipeline workers emit
// "image" for page events while the approval path emits "page"; both map
// to pages.
const (
	EventKindPage      = "page"
	EventKindPageAlias = "image"
	EventKindRecord    = "record"
)

// HeartbeatMessage is the keepalive sentinel carried in StatusEvent.Message.
const HeartbeatMessage = "ping"

// StatusEvent is one status-change push from the pipeline. Delivery is
// unordered with respect to client-initiated requests and not necessarily
// exactly once.
type StatusEvent struct {
	Kind    string `json:"type"`
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Heartbeat reports whether the event is a keepalive payload to be
// discarded without touching cache state.
func (e StatusEvent) Heartbeat() bool {
	return e.Message == HeartbeatMessage
}
