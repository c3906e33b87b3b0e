// internal/content/store.go
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"faq-chatbot/internal/common/logger"

	"github.com/xeipuuv/gojsonschema"
)

// Category is one fixed knowledge domain with its grounding text.
type Category struct {
	Name          string
	Description   string
	GroundingText string
}

// manifestSchema validates the knowledge-base manifest before any file is read.
const manifestSchema = `{
	"type": "object",
	"properties": {
		"categories": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"name":        {"type": "string", "minLength": 1, "pattern": "^[a-z][a-z0-9_]*$"},
					"file":        {"type": "string", "minLength": 1},
					"description": {"type": "string"}
				},
				"required": ["name", "file"],
				"additionalProperties": false
			}
		}
	},
	"required": ["categories"],
	"additionalProperties": false
}`

type manifest struct {
	Categories []manifestEntry `json:"categories"`
}

type manifestEntry struct {
	Name        string `json:"name"`
	File        string `json:"file"`
	Description string `json:"description,omitempty"`
}

// Store is the immutable-after-load mapping from category name to grounding
// text. Built once at startup; safe for concurrent reads without locking.
type Store struct {
	categories map[string]Category
	order      []string
}

// NewStore builds a store directly from categories, bypassing the manifest.
func NewStore(categories []Category) *Store {
	store := &Store{categories: make(map[string]Category, len(categories))}
	for _, cat := range categories {
		store.categories[cat.Name] = cat
		store.order = append(store.order, cat.Name)
	}
	sort.Strings(store.order)
	return store
}

// Load reads the manifest from dir, validates it, and loads every category's
// grounding file. Categories are never added or removed without a restart.
func Load(dir, manifestName string, log logger.Logger) (*Store, error) {
	manifestPath := filepath.Join(dir, manifestName)
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}
	if !result.Valid() {
		var details string
		for _, desc := range result.Errors() {
			details += desc.String() + "; "
		}
		return nil, fmt.Errorf("invalid manifest %s: %s", manifestPath, details)
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	store := &Store{categories: make(map[string]Category, len(m.Categories))}
	for _, entry := range m.Categories {
		if _, dup := store.categories[entry.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q in manifest", entry.Name)
		}

		text, err := os.ReadFile(filepath.Join(dir, entry.File))
		if err != nil {
			return nil, fmt.Errorf("read grounding file for category %q: %w", entry.Name, err)
		}

		if len(text) == 0 {
			log.Warn("category has empty grounding content", map[string]interface{}{
				"category": entry.Name,
				"file":     entry.File,
			})
		}

		store.categories[entry.Name] = Category{
			Name:          entry.Name,
			Description:   entry.Description,
			GroundingText: string(text),
		}
		store.order = append(store.order, entry.Name)

		log.Info("loaded knowledge category", map[string]interface{}{
			"category": entry.Name,
			"bytes":    len(text),
		})
	}

	sort.Strings(store.order)
	return store, nil
}

// Categories returns the full category set in stable (sorted) order.
func (s *Store) Categories() []Category {
	out := make([]Category, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.categories[name])
	}
	return out
}

// Get returns the category by name.
func (s *Store) Get(name string) (Category, bool) {
	c, ok := s.categories[name]
	return c, ok
}

// Has reports whether name is a known category.
func (s *Store) Has(name string) bool {
	_, ok := s.categories[name]
	return ok
}

// Names returns the sorted category names.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
