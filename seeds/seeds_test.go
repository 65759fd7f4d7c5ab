package seeds

import (
	"strings"
	"testing"
)

func titles(seeds []Seed) []string {
	out := make([]string, len(seeds))
	for i, s := range seeds {
		out[i] = s.Title
	}
	return out
}

func TestDefault(t *testing.T) {
	all := Default().All()
	if len(all) != 20 {
		t.Fatalf("catalogue has %d seeds, want 20", len(all))
	}
	for _, s := range all {
		if !strings.HasPrefix(strings.ToLower(s.Prompt), "you are a text") {
			t.Errorf("%s: prompt should be a complete game prompt", s.Title)
		}
		if strings.Contains(s.Prompt, "\n") {
			t.Errorf("%s: prompt should be folded to one line", s.Title)
		}
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantFirst string
	}{
		{"exact title", "Steampunk", "Steampunk"},
		{"lower case", "wild west", "Wild West"},
		{"diacritics", "pokemon", "Pokémon"},
		{"fuzzy", "cybrpnk", "Cyberpunk 2077"},
		{"multiple terms", "elder scrolls", "The Elder Scrolls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Default().Search(tt.query)
			if len(got) == 0 {
				t.Fatalf("Search(%q) returned nothing", tt.query)
			}
			if got[0].Title != tt.wantFirst {
				t.Errorf("Search(%q) first = %q, want %q (all: %v)", tt.query, got[0].Title, tt.wantFirst, titles(got))
			}
		})
	}
}

func TestSearch_EmptyQueryReturnsAll(t *testing.T) {
	if got := Default().Search("   "); len(got) != len(Default().All()) {
		t.Errorf("empty query returned %d seeds", len(got))
	}
}

func TestSearch_NoMatch(t *testing.T) {
	if got := Default().Search("qqqxzj"); len(got) != 0 {
		t.Errorf("expected no matches, got %v", titles(got))
	}
}

func TestFind(t *testing.T) {
	s, ok := Default().Find("time travel")
	if !ok || s.Title != "Time Travel" {
		t.Errorf("Find() = %+v, %v", s, ok)
	}
	if _, ok := Default().Find("Nope"); ok {
		t.Error("Find() should miss unknown titles")
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := Load([]byte("seeds: [{title: x}]")); err == nil {
		t.Error("expected error for seed without prompt")
	}
	if _, err := Load([]byte("seeds: {")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
