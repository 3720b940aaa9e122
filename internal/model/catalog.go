package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// UnitKind classifies a unit of measure for quantity inference
type UnitKind string

const (
	UnitArea   UnitKind = "area"   // m2
	UnitVolume UnitKind = "volume" // m3
	UnitLength UnitKind = "length" // ml
	UnitMass   UnitKind = "mass"   // kg
	UnitCount  UnitKind = "count"  // un
	UnitFlat   UnitKind = "flat"   // gl, mes, hr, dia (lump sum)
)

// ParseUnitKind maps a catalog unit symbol to its kind.
// Unknown symbols are treated as lump sums.
func ParseUnitKind(symbol string) UnitKind {
	switch strings.ToLower(strings.TrimSpace(symbol)) {
	case "m2", "m²":
		return UnitArea
	case "m3", "m³":
		return UnitVolume
	case "ml", "m":
		return UnitLength
	case "kg":
		return UnitMass
	case "un":
		return UnitCount
	default:
		return UnitFlat
	}
}

// CatalogItem is a priced unit-cost line (APU). Never mutated after load.
type CatalogItem struct {
	Description string          `json:"description"`
	Unit        string          `json:"unit"`       // Display symbol (m2, kg, gl...)
	Kind        UnitKind        `json:"unit_kind"`  // Derived from Unit
	UnitPrice   decimal.Decimal `json:"unit_price"` // Positive, whole CLP in the bundled catalog
	Code        string          `json:"code"`       // Unique within the catalog (e.g. "F-001")
}

// Category groups catalog items under a display name
type Category struct {
	Key         string        `json:"key"`
	DisplayName string        `json:"display_name"`
	Items       []CatalogItem `json:"items"`
}

// Keyword maps a lowercase pattern to a category key.
// Keywords are evaluated in registration order; earlier ones win ties.
type Keyword struct {
	Pattern     string `json:"pattern"`
	CategoryKey string `json:"category_key"`
}

// ResolvedItem is a catalog item tagged with the display name of its source category
type ResolvedItem struct {
	CatalogItem
	CategoryLabel string `json:"category_label"`
}
