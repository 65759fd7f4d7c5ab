// Package seeds provides the catalogue of seed prompts a player can start a
// world from, with fuzzy search over titles and descriptions.
package seeds

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
	"gopkg.in/yaml.v3"
)

//go:embed seeds.yaml
var catalogueYAML []byte

// Seed is a ready-made world prompt.
type Seed struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Prompt      string `yaml:"prompt"`
}

// Catalogue is an ordered list of seeds.
type Catalogue struct {
	seeds []Seed
}

var (
	defaultCatalogue     *Catalogue
	defaultCatalogueOnce sync.Once

	algoOnce sync.Once
)

// Default returns the embedded catalogue.
func Default() *Catalogue {
	defaultCatalogueOnce.Do(func() {
		c, err := Load(catalogueYAML)
		if err != nil {
			panic(fmt.Sprintf("seeds: embedded catalogue is invalid: %v", err))
		}
		defaultCatalogue = c
	})
	return defaultCatalogue
}

// Load parses a YAML catalogue. Seeds without a title or prompt are rejected.
func Load(data []byte) (*Catalogue, error) {
	var doc struct {
		Seeds []Seed `yaml:"seeds"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seeds: %w", err)
	}
	for i, s := range doc.Seeds {
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Prompt) == "" {
			return nil, fmt.Errorf("seed %d: title and prompt are required", i)
		}
	}
	return &Catalogue{seeds: doc.Seeds}, nil
}

// All returns every seed in catalogue order.
func (c *Catalogue) All() []Seed {
	return append([]Seed(nil), c.seeds...)
}

// Find returns the seed with the given title, ignoring case.
func (c *Catalogue) Find(title string) (Seed, bool) {
	for _, s := range c.seeds {
		if strings.EqualFold(s.Title, strings.TrimSpace(title)) {
			return s, true
		}
	}
	return Seed{}, false
}

// Search returns the seeds matching every whitespace-separated term of
// query, best match first. Matching is fuzzy, case-insensitive and ignores
// diacritics in the seed text. An empty query returns the whole catalogue.
func (c *Catalogue) Search(query string) []Seed {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return c.All()
	}
	algoOnce.Do(func() { algo.Init("default") })

	type scored struct {
		seed  Seed
		score int
	}
	var (
		matches []scored
		slab    = util.MakeSlab(100*1024, 2048)
	)
	for _, s := range c.seeds {
		// The title is matched on its own so title hits outrank description hits.
		title := util.ToChars([]byte(s.Title))
		text := util.ToChars([]byte(s.Title + " " + s.Description))

		total := 0
		matched := true
		for _, term := range terms {
			pattern := []rune(term)
			if res, _ := algo.FuzzyMatchV2(false, true, true, &title, pattern, false, slab); res.Start >= 0 {
				total += res.Score * 2
				continue
			}
			res, _ := algo.FuzzyMatchV2(false, true, true, &text, pattern, false, slab)
			if res.Start < 0 {
				matched = false
				break
			}
			total += res.Score
		}
		if matched {
			matches = append(matches, scored{seed: s, score: total})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].score > matches[b].score
	})
	out := make([]Seed, len(matches))
	for i, m := range matches {
		out[i] = m.seed
	}
	return out
}
