package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/arkitecto/internal/model"
)

var (
	// ErrInvalidConfiguration is returned when a catalog fails validation at startup
	ErrInvalidConfiguration = errors.New("invalid catalog configuration")

	// ErrCategoryNotFound is returned by Lookup for unknown keys
	ErrCategoryNotFound = errors.New("category not found")
)

// Fallback designates the sample returned when a query matches nothing
type Fallback struct {
	CategoryKey string // Category the sample is taken from
	Sample      int    // Number of leading items
	Label       string // Category label attached to the sample (e.g. "Terminaciones")
}

// Store is the immutable APU catalog.
// It is safe for concurrent use: nothing is mutated after New returns.
type Store struct {
	categories []model.Category
	index      map[string]int
	keywords   []model.Keyword
	fallback   Fallback
}

// New validates and freezes a catalog
func New(categories []model.Category, keywords []model.Keyword, fallback Fallback) (*Store, error) {
	s := &Store{
		categories: make([]model.Category, 0, len(categories)),
		index:      make(map[string]int, len(categories)),
		keywords:   make([]model.Keyword, 0, len(keywords)),
		fallback:   fallback,
	}

	codes := make(map[string]string)
	for _, cat := range categories {
		if cat.Key == "" {
			return nil, fmt.Errorf("%w: category with empty key", ErrInvalidConfiguration)
		}
		if _, dup := s.index[cat.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidConfiguration, cat.Key)
		}

		items := make([]model.CatalogItem, len(cat.Items))
		for i, item := range cat.Items {
			if item.Code == "" {
				return nil, fmt.Errorf("%w: item %q in %q has no code", ErrInvalidConfiguration, item.Description, cat.Key)
			}
			if owner, dup := codes[item.Code]; dup {
				return nil, fmt.Errorf("%w: duplicate item code %q (in %q and %q)", ErrInvalidConfiguration, item.Code, owner, cat.Key)
			}
			if !item.UnitPrice.IsPositive() {
				return nil, fmt.Errorf("%w: item %q has non-positive price %s", ErrInvalidConfiguration, item.Code, item.UnitPrice)
			}
			codes[item.Code] = cat.Key
			if item.Kind == "" {
				item.Kind = model.ParseUnitKind(item.Unit)
			}
			items[i] = item
		}

		s.index[cat.Key] = len(s.categories)
		s.categories = append(s.categories, model.Category{
			Key:         cat.Key,
			DisplayName: cat.DisplayName,
			Items:       items,
		})
	}

	for _, kw := range keywords {
		pattern := strings.ToLower(strings.TrimSpace(kw.Pattern))
		if pattern == "" {
			return nil, fmt.Errorf("%w: empty keyword for %q", ErrInvalidConfiguration, kw.CategoryKey)
		}
		if _, ok := s.index[kw.CategoryKey]; !ok {
			return nil, fmt.Errorf("%w: keyword %q references unknown category %q", ErrInvalidConfiguration, kw.Pattern, kw.CategoryKey)
		}
		s.keywords = append(s.keywords, model.Keyword{Pattern: pattern, CategoryKey: kw.CategoryKey})
	}

	if _, ok := s.index[fallback.CategoryKey]; !ok {
		return nil, fmt.Errorf("%w: fallback references unknown category %q", ErrInvalidConfiguration, fallback.CategoryKey)
	}
	if fallback.Sample <= 0 {
		return nil, fmt.Errorf("%w: fallback sample must be positive", ErrInvalidConfiguration)
	}
	if len(s.categories[s.index[fallback.CategoryKey]].Items) == 0 {
		return nil, fmt.Errorf("%w: fallback category %q has no items", ErrInvalidConfiguration, fallback.CategoryKey)
	}

	return s, nil
}

// Lookup returns the category with the given key
func (s *Store) Lookup(key string) (model.Category, error) {
	i, ok := s.index[key]
	if !ok {
		return model.Category{}, fmt.Errorf("%w: %q", ErrCategoryNotFound, key)
	}
	return copyCategory(s.categories[i]), nil
}

// Categories returns all categories in insertion order
func (s *Store) Categories() []model.Category {
	out := make([]model.Category, len(s.categories))
	for i, cat := range s.categories {
		out[i] = copyCategory(cat)
	}
	return out
}

// Keywords returns the keyword index in registration order
func (s *Store) Keywords() []model.Keyword {
	out := make([]model.Keyword, len(s.keywords))
	copy(out, s.keywords)
	return out
}

// Fallback returns the fallback designation
func (s *Store) Fallback() Fallback {
	return s.fallback
}

// ItemCount returns the total number of catalog items
func (s *Store) ItemCount() int {
	n := 0
	for _, cat := range s.categories {
		n += len(cat.Items)
	}
	return n
}

func copyCategory(cat model.Category) model.Category {
	items := make([]model.CatalogItem, len(cat.Items))
	copy(items, cat.Items)
	cat.Items = items
	return cat
}
