package match

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/arkitecto/internal/catalog"
	"github.com/ppiankov/arkitecto/internal/model"
)

// DefaultMaxResults is used when Resolve is called with a non-positive limit
const DefaultMaxResults = 8

// DefaultCategoryLabel is reported by DetectCategory when no keyword matches
const DefaultCategoryLabel = "construcción"

// minTokenRunes is the exclusive lower bound on free-text token length
const minTokenRunes = 3

// Source is the read-only catalog view the matcher needs
type Source interface {
	Categories() []model.Category
	Keywords() []model.Keyword
	Fallback() catalog.Fallback
}

type indexedItem struct {
	item       model.CatalogItem
	normalized string // Normalized description
}

type indexedCategory struct {
	label string
	items []indexedItem
}

type indexedKeyword struct {
	pattern  string // Normalized
	category int    // Index into categories
}

// Matcher resolves free text to catalog items.
// It is immutable after NewMatcher and safe for concurrent use.
type Matcher struct {
	categories []indexedCategory
	keywords   []indexedKeyword
	fallback   []model.ResolvedItem
	maxResults int
}

// NewMatcher builds a matcher over the given catalog.
// maxResults is the limit used when Resolve receives a non-positive one.
func NewMatcher(src Source, maxResults int) *Matcher {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	m := &Matcher{maxResults: maxResults}
	position := make(map[string]int)

	for _, cat := range src.Categories() {
		ic := indexedCategory{label: cat.DisplayName, items: make([]indexedItem, len(cat.Items))}
		for i, it := range cat.Items {
			ic.items[i] = indexedItem{item: it, normalized: Normalize(it.Description)}
		}
		position[cat.Key] = len(m.categories)
		m.categories = append(m.categories, ic)
	}

	for _, kw := range src.Keywords() {
		idx, ok := position[kw.CategoryKey]
		if !ok {
			continue // rejected by catalog.New
		}
		m.keywords = append(m.keywords, indexedKeyword{pattern: Normalize(kw.Pattern), category: idx})
	}

	fb := src.Fallback()
	if idx, ok := position[fb.CategoryKey]; ok {
		cat := m.categories[idx]
		label := fb.Label
		if label == "" {
			label = cat.label
		}
		for i := 0; i < fb.Sample && i < len(cat.items); i++ {
			m.fallback = append(m.fallback, model.ResolvedItem{CatalogItem: cat.items[i].item, CategoryLabel: label})
		}
	}

	return m
}

// Resolve returns the catalog items most relevant to query, in priority order:
// every item of each category whose keyword occurs in the query, otherwise items
// whose description contains a query token longer than three characters,
// otherwise the fallback sample. Results are deduplicated by code and truncated
// to maxResults. The result is never empty for a valid catalog.
func (m *Matcher) Resolve(query string, maxResults int) []model.ResolvedItem {
	if maxResults <= 0 {
		maxResults = m.maxResults
	}
	normalized := Normalize(query)

	candidates := m.byKeyword(normalized)
	if len(candidates) == 0 {
		candidates = m.byDescription(normalized)
	}
	if len(candidates) == 0 {
		candidates = append(candidates, m.fallback...)
	}

	return truncate(dedupe(candidates), maxResults)
}

// DetectCategory returns the display name of the first keyword found in
// query, or DefaultCategoryLabel
func (m *Matcher) DetectCategory(query string) string {
	normalized := Normalize(query)
	for _, kw := range m.keywords {
		if strings.Contains(normalized, kw.pattern) {
			return m.categories[kw.category].label
		}
	}
	return DefaultCategoryLabel
}

func (m *Matcher) byKeyword(query string) []model.ResolvedItem {
	var out []model.ResolvedItem
	added := make(map[int]bool)

	for _, kw := range m.keywords {
		if added[kw.category] || !strings.Contains(query, kw.pattern) {
			continue
		}
		added[kw.category] = true

		cat := m.categories[kw.category]
		for _, it := range cat.items {
			out = append(out, model.ResolvedItem{CatalogItem: it.item, CategoryLabel: cat.label})
		}
	}
	return out
}

func (m *Matcher) byDescription(query string) []model.ResolvedItem {
	var tokens []string
	for _, tok := range strings.Fields(query) {
		if utf8.RuneCountInString(tok) > minTokenRunes {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	var out []model.ResolvedItem
	for _, cat := range m.categories {
		for _, it := range cat.items {
			for _, tok := range tokens {
				if strings.Contains(it.normalized, tok) {
					out = append(out, model.ResolvedItem{CatalogItem: it.item, CategoryLabel: cat.label})
					break
				}
			}
		}
	}
	return out
}

// dedupe keeps the first occurrence of each code
func dedupe(items []model.ResolvedItem) []model.ResolvedItem {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		if seen[it.Code] {
			continue
		}
		seen[it.Code] = true
		out = append(out, it)
	}
	return out
}

func truncate(items []model.ResolvedItem, n int) []model.ResolvedItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}
