package taxonomy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/recipestack/scanreview/internal/models"
)

func TestStaticSuggest(t *testing.T) {
	s, err := Static{}.Suggest(context.Background(), models.Recipe{Title: "Stew"})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Categories) != 5 || s.Categories[4] != "Dessert" {
		t.Errorf("categories = %v", s.Categories)
	}
	if len(s.Tags) != 4 || s.Tags[0] != "scanned" {
		t.Errorf("tags = %v", s.Tags)
	}

	// Mutating the result must not affect the defaults.
	s.Categories[0] = "Brunch"
	if DefaultCategories[0] != "Breakfast" {
		t.Error("default categories were mutated through a returned copy")
	}
}

func TestParseSuggestion(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Suggestion
		wantErr bool
	}{
		{
			name: "plain JSON",
			text: `{"categories": ["Dessert"], "tags": ["vegan"]}`,
			want: Suggestion{Categories: []string{"Dessert"}, Tags: []string{"vegan"}},
		},
		{
			name: "markdown fenced",
			text: "```json\n{\"categories\": [\"Lunch\"], \"tags\": []}\n```",
			want: Suggestion{Categories: []string{"Lunch"}, Tags: []string{}},
		},
		{
			name:    "not JSON",
			text:    "sure! here are some ideas",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSuggestion(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got.Categories) != len(tt.want.Categories) || len(got.Tags) != len(tt.want.Tags) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			for i := range tt.want.Categories {
				if got.Categories[i] != tt.want.Categories[i] {
					t.Errorf("category %d = %s, want %s", i, got.Categories[i], tt.want.Categories[i])
				}
			}
		})
	}
}

type failingSuggester struct{}

func (failingSuggester) Suggest(ctx context.Context, recipe models.Recipe) (Suggestion, error) {
	return Suggestion{}, errors.New("model unavailable")
}

func TestSuggestOrDefaultFallsBack(t *testing.T) {
	s := SuggestOrDefault(context.Background(), failingSuggester{}, models.Recipe{Title: "Stew"})
	if len(s.Categories) != len(DefaultCategories) {
		t.Errorf("fallback categories = %v", s.Categories)
	}
	if len(s.Tags) != len(DefaultTags) {
		t.Errorf("fallback tags = %v", s.Tags)
	}
}

func TestBuildPromptIncludesRecipeContent(t *testing.T) {
	prompt := buildPrompt(models.Recipe{
		Title:       "Lentil Soup",
		Ingredients: []models.Ingredient{{Name: "lentils"}},
	})
	for _, want := range []string{"Lentil Soup", "lentils", "Dessert", "vegan"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
