// Package taxonomy produces category and tag suggestions for the final
// approval phase. Suggestions are advisory: operators pick any subset,
// and an empty selection is valid.
package taxonomy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/recipestack/scanreview/internal/models"
)

// Default choices offered when no model-derived suggestions are
// available.
var (
	DefaultCategories = []string{"Breakfast", "Lunch", "Dinner", "Snacks", "Dessert"}
	DefaultTags       = []string{"scanned", "vegetarian", "vegan", "low-carb"}
)

// Suggestion is one set of proposed categories and tags.
type Suggestion struct {
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
}

// Suggester proposes taxonomy values for a reviewed recipe.
type Suggester interface {
	Suggest(ctx context.Context, recipe models.Recipe) (Suggestion, error)
}

// Static always returns the default choices.
type Static struct{}

// Suggest returns copies of the default categories and tags.
func (Static) Suggest(ctx context.Context, recipe models.Recipe) (Suggestion, error) {
	return Suggestion{
		Categories: append([]string(nil), DefaultCategories...),
		Tags:       append([]string(nil), DefaultTags...),
	}, nil
}

// Gemini asks a Gemini model for taxonomy values fitting the recipe.
type Gemini struct {
	APIKey string
	Model  string
}

// NewGemini creates a Gemini suggester for the given model name.
func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{APIKey: apiKey, Model: model}
}

// Suggest prompts the model with the recipe content and parses a JSON
// object of categories and tags from the response.
func (g *Gemini) Suggest(ctx context.Context, recipe models.Recipe) (Suggestion, error) {
	if g.APIKey == "" {
		return Suggestion{}, fmt.Errorf("gemini API key not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.Model)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(recipe)))
	if err != nil {
		return Suggestion{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return Suggestion{}, fmt.Errorf("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Suggestion{}, fmt.Errorf("empty content returned from Gemini")
	}
	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return Suggestion{}, fmt.Errorf("unexpected response format from Gemini")
	}

	return parseSuggestion(string(txt))
}

// SuggestOrDefault returns model suggestions, falling back to the static
// defaults when the model is unavailable or answers garbage.
func SuggestOrDefault(ctx context.Context, s Suggester, recipe models.Recipe) Suggestion {
	suggestion, err := s.Suggest(ctx, recipe)
	if err != nil {
		slog.Warn("taxonomy suggestion failed, using defaults", "err", err)
		suggestion, _ = Static{}.Suggest(ctx, recipe)
	}
	return suggestion
}

func buildPrompt(recipe models.Recipe) string {
	var b strings.Builder
	b.WriteString("Suggest categories and dietary tags for this recipe.\n")
	b.WriteString("Respond with only a JSON object of the form ")
	b.WriteString(`{"categories": [...], "tags": [...]}.` + "\n")
	fmt.Fprintf(&b, "Pick categories from: %s.\n", strings.Join(DefaultCategories, ", "))
	fmt.Fprintf(&b, "Pick tags from: %s.\n\n", strings.Join(DefaultTags, ", "))
	fmt.Fprintf(&b, "Title: %s\n", recipe.Title)
	if recipe.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", recipe.Description)
	}
	for _, ing := range recipe.Ingredients {
		fmt.Fprintf(&b, "Ingredient: %s\n", ing.Name)
	}
	return b.String()
}

// parseSuggestion extracts the JSON object from a model response, which
// may arrive fenced in markdown.
func parseSuggestion(text string) (Suggestion, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &suggestion); err != nil {
		return Suggestion{}, fmt.Errorf("failed to parse suggestion JSON: %w", err)
	}
	return suggestion, nil
}
