package export

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/recipestack/scanreview/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func approvedRecord() models.ClassificationRecord {
	return models.ClassificationRecord{
		ID:         "r-1",
		BookScanID: "b-1",
		RecipeID:   "rec-1",
		Status:     models.RecordApproved,
		TextPages:  []models.PageRef{{ID: "p-1", PageNumber: intPtr(3)}},
		ImagePages: []models.PageRef{{ID: "p-2", PageNumber: intPtr(4)}},
		UpdatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ValidationResult: &models.Recipe{
			Title:       "Lentil Soup",
			Servings:    "4",
			Source:      strPtr("page 3"),
			Ingredients: []models.Ingredient{{Name: "lentils", Quantity: "2", Unit: "cups"}},
			Instructions: []models.Instruction{
				{Step: 1, Instruction: "Rinse the lentils."},
			},
		},
	}
}

func TestRowsSkipsUnapprovedAndEmpty(t *testing.T) {
	records := []models.ClassificationRecord{
		approvedRecord(),
		{ID: "r-2", Status: models.RecordNeedsReview, ValidationResult: &models.Recipe{Title: "x"}},
		{ID: "r-3", Status: models.RecordApproved}, // no parsed recipe
	}

	rows := Rows(records)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.RecordID != "r-1" || row.Title != "Lentil Soup" || row.Source != "page 3" {
		t.Errorf("row = %+v", row)
	}
	if row.PageCount != 2 {
		t.Errorf("page count = %d, want 2", row.PageCount)
	}
	if row.ApprovedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("approved at = %s", row.ApprovedAt)
	}

	var ingredients []models.Ingredient
	if err := json.Unmarshal([]byte(row.Ingredients), &ingredients); err != nil {
		t.Fatalf("ingredients column is not JSON: %v", err)
	}
	if len(ingredients) != 1 || ingredients[0].Name != "lentils" {
		t.Errorf("ingredients = %+v", ingredients)
	}
}

func TestWriteJSONLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	rows := Rows([]models.ClassificationRecord{approvedRecord()})

	if err := Write(path, rows); err != nil {
		t.Fatalf("Write: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	var got []Row
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var row Row
		if err := json.Unmarshal(scanner.Bytes(), &row); err != nil {
			t.Fatalf("bad line: %v", err)
		}
		got = append(got, row)
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}

	if len(got) != 1 || got[0] != rows[0] {
		t.Errorf("round trip = %+v, want %+v", got, rows)
	}
}

func TestWriteRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := Write(path, nil); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
