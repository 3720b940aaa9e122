package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/arkitecto/internal/model"
)

//go:embed data/apu_catalog.yaml
var defaultCatalog []byte

// Document is the YAML form of a catalog
type Document struct {
	Version    int                `yaml:"version"`
	Currency   string             `yaml:"currency"`
	Categories []CategoryDocument `yaml:"categories"`
	Keywords   []KeywordDocument  `yaml:"keywords"`
	Fallback   FallbackDocument   `yaml:"fallback"`
}

// CategoryDocument is one category entry of a catalog document
type CategoryDocument struct {
	Key   string         `yaml:"key"`
	Name  string         `yaml:"name"`
	Items []ItemDocument `yaml:"items"`
}

// ItemDocument is one APU entry of a catalog document
type ItemDocument struct {
	Code  string `yaml:"code"`
	Desc  string `yaml:"desc"`
	Unit  string `yaml:"unit"`
	Price string `yaml:"price"` // Parsed as decimal to keep exact amounts
}

// KeywordDocument maps a pattern to a category key
type KeywordDocument struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
}

// FallbackDocument designates the no-match sample
type FallbackDocument struct {
	Category string `yaml:"category"`
	Sample   int    `yaml:"sample"`
	Label    string `yaml:"label"`
}

// Default returns the embedded catalog
func Default() (*Store, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile loads a catalog from a YAML file
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	store, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return store, nil
}

// Load parses and validates a YAML catalog document
func Load(r io.Reader) (*Store, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: parse catalog: %v", ErrInvalidConfiguration, err)
	}
	return doc.Build()
}

// Build converts the document to a validated Store
func (d Document) Build() (*Store, error) {
	categories := make([]model.Category, 0, len(d.Categories))
	for _, c := range d.Categories {
		items := make([]model.CatalogItem, 0, len(c.Items))
		for _, it := range c.Items {
			price, err := decimal.NewFromString(it.Price)
			if err != nil {
				return nil, fmt.Errorf("%w: item %q price %q: %v", ErrInvalidConfiguration, it.Code, it.Price, err)
			}
			items = append(items, model.CatalogItem{
				Description: it.Desc,
				Unit:        it.Unit,
				Kind:        model.ParseUnitKind(it.Unit),
				UnitPrice:   price,
				Code:        it.Code,
			})
		}
		categories = append(categories, model.Category{
			Key:         c.Key,
			DisplayName: c.Name,
			Items:       items,
		})
	}

	keywords := make([]model.Keyword, 0, len(d.Keywords))
	for _, k := range d.Keywords {
		keywords = append(keywords, model.Keyword{Pattern: k.Pattern, CategoryKey: k.Category})
	}

	return New(categories, keywords, Fallback{
		CategoryKey: d.Fallback.Category,
		Sample:      d.Fallback.Sample,
		Label:       d.Fallback.Label,
	})
}
