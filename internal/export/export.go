// Package export writes approved recipes to disk for downstream use.
// Output format is chosen by file extension: Parquet for analytics
// tooling, JSONL for everything else.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/recipestack/scanreview/internal/models"
)

// Row is one approved recipe flattened for columnar output. Nested
// ingredient and instruction lists are carried as JSON strings so the
// schema stays flat.
type Row struct {
	RecordID     string `parquet:"record_id" json:"record_id"`
	BookScanID   string `parquet:"book_scan_id" json:"book_scan_id"`
	RecipeID     string `parquet:"recipe_id" json:"recipe_id"`
	Title        string `parquet:"title" json:"title"`
	Description  string `parquet:"description" json:"description"`
	Servings     string `parquet:"servings" json:"servings"`
	PrepTime     string `parquet:"prep_time" json:"prep_time"`
	CookTime     string `parquet:"cook_time" json:"cook_time"`
	Source       string `parquet:"source" json:"source"`
	Ingredients  string `parquet:"ingredients_json" json:"ingredients_json"`
	Instructions string `parquet:"instructions_json" json:"instructions_json"`
	PageCount    int32  `parquet:"page_count" json:"page_count"`
	ApprovedAt   string `parquet:"approved_at" json:"approved_at"`
}

// Rows flattens the approved records among the given list. Records that
// are not approved or carry no parsed recipe are skipped.
func Rows(records []models.ClassificationRecord) []Row {
	var rows []Row
	for _, record := range records {
		if record.Status != models.RecordApproved || record.ValidationResult == nil {
			continue
		}
		rows = append(rows, flatten(record))
	}
	return rows
}

func flatten(record models.ClassificationRecord) Row {
	recipe := record.ValidationResult
	row := Row{
		RecordID:    record.ID,
		BookScanID:  record.BookScanID,
		RecipeID:    record.RecipeID,
		Title:       recipe.Title,
		Description: recipe.Description,
		Servings:    recipe.Servings,
		PrepTime:    recipe.PrepTime,
		CookTime:    recipe.CookTime,
		PageCount:   int32(len(record.TextPages) + len(record.ImagePages)),
		ApprovedAt:  record.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if recipe.Source != nil {
		row.Source = *recipe.Source
	}
	row.Ingredients = mustJSON(recipe.Ingredients)
	row.Instructions = mustJSON(recipe.Instructions)
	return row
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

// Write writes rows to the given path, choosing the format from the file
// extension.
func Write(path string, rows []Row) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return writeParquet(path, rows)
	case ".jsonl", ".json":
		return writeJSONL(path, rows)
	default:
		return fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func writeParquet(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Row](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	slog.Debug("Wrote parquet export", "path", path, "rows", len(rows))
	return nil
}

func writeJSONL(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for i, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	slog.Debug("Wrote JSONL export", "path", path, "rows", len(rows))
	return nil
}
