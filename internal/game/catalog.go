package game

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// CatalogFile represents the top-level YAML structure.
type CatalogFile struct {
	Connections []CardEntry   `yaml:"connections"`
	Anchors     []AnchorEntry `yaml:"anchors"`
}

// CardEntry represents one connection card and how many copies the deck holds.
type CardEntry struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Reference string `yaml:"reference"`
	Category  string `yaml:"category"`
	Special   string `yaml:"special,omitempty"`
	Count     int    `yaml:"count,omitempty"`
}

// AnchorEntry represents one anchor card.
type AnchorEntry struct {
	ID        string   `yaml:"id"`
	Text      string   `yaml:"text"`
	Reference string   `yaml:"reference"`
	Themes    []string `yaml:"themes"`
}

// Catalog is the fixed, finite set of cards a match is played with.
type Catalog struct {
	Connections []*Card
	Anchors     []*AnchorCard
}

// DefaultCatalog returns the built-in catalog (34 connection cards).
func DefaultCatalog() *Catalog {
	cat, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return cat
}

// LoadCatalog reads a catalog YAML file from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML. Entries with a count above one expand into
// distinct cards with suffixed IDs so every card stays individually trackable.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cf CatalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}

	cat := &Catalog{}
	seen := make(map[string]bool)
	for _, entry := range cf.Connections {
		kind, err := parseSpecialKind(entry.Special)
		if err != nil {
			return nil, fmt.Errorf("card %q: %w", entry.ID, err)
		}
		count := entry.Count
		if count <= 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			id := entry.ID
			if count > 1 {
				id = fmt.Sprintf("%s-%d", entry.ID, i+1)
			}
			if id == "" {
				return nil, fmt.Errorf("card %q has no id", entry.Title)
			}
			if seen[id] {
				return nil, fmt.Errorf("duplicate card id %q", id)
			}
			seen[id] = true
			cat.Connections = append(cat.Connections, &Card{
				ID:        id,
				Title:     entry.Title,
				Reference: entry.Reference,
				Category:  entry.Category,
				Special:   kind,
			})
		}
	}
	for _, entry := range cf.Anchors {
		if entry.ID == "" {
			return nil, fmt.Errorf("anchor %q has no id", entry.Text)
		}
		themes := make([]string, len(entry.Themes))
		copy(themes, entry.Themes)
		cat.Anchors = append(cat.Anchors, &AnchorCard{
			ID:        entry.ID,
			Text:      entry.Text,
			Reference: entry.Reference,
			Themes:    themes,
		})
	}
	if len(cat.Anchors) == 0 {
		return nil, fmt.Errorf("catalog has no anchor cards")
	}
	return cat, nil
}

// Lookup finds a connection card by ID.
func (c *Catalog) Lookup(id string) *Card {
	for _, card := range c.Connections {
		if card.ID == id {
			return card
		}
	}
	return nil
}
