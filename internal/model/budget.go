package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrAmountOverflow is returned when a budget total cannot be expressed in
// whole currency units
var ErrAmountOverflow = errors.New("budget amount out of range")

var maxWholeUnits = decimal.NewFromInt(math.MaxInt64)

// IndirectCategoryLabel tags the rollup lines appended after the direct items
const IndirectCategoryLabel = "Costos Indirectos"

// BudgetLine is one priced row of a budget
type BudgetLine struct {
	Label         string          // Short element name
	Description   string          // Long description, includes the source code
	Quantity      decimal.Decimal // >= 0, rounded to 2 decimals
	Unit          string          // Display unit symbol
	UnitPrice     decimal.Decimal
	Subtotal      decimal.Decimal // Quantity * UnitPrice, full precision
	SourceCode    string          // APU code or indirect-cost code (e.g. "MO-18%")
	CategoryLabel string
}

// Budget is a fully costed, itemized estimate.
//
// TotalBeforeTax = DirectSubtotal + Labor + Overhead + Contingency + Margin
// TotalWithTax   = TotalBeforeTax * (1 + tax rate)
type Budget struct {
	Lines          []BudgetLine // Direct lines followed by indirect lines
	DirectSubtotal decimal.Decimal
	Labor          decimal.Decimal
	Overhead       decimal.Decimal
	Contingency    decimal.Decimal
	Margin         decimal.Decimal
	TotalBeforeTax decimal.Decimal
	TotalWithTax   decimal.Decimal
	Currency       string
}

// DirectLines returns the lines that came from catalog (or AI) items
func (b Budget) DirectLines() []BudgetLine {
	var direct []BudgetLine
	for _, line := range b.Lines {
		if line.CategoryLabel != IndirectCategoryLabel {
			direct = append(direct, line)
		}
	}
	return direct
}

// BudgetLineJSON is the wire form of a budget line
type BudgetLineJSON struct {
	Element     string  `json:"elemento"`
	Description string  `json:"descripcion"`
	Quantity    float64 `json:"cantidad"`
	Unit        string  `json:"unidad"`
	UnitPrice   float64 `json:"precio_unitario"`
	Subtotal    float64 `json:"subtotal"`
	Origin      string  `json:"apu_origen"`
	Category    string  `json:"categoria"`
}

// BudgetJSON is the wire form of a budget. Totals are whole currency units.
type BudgetJSON struct {
	Items          []BudgetLineJSON `json:"items"`
	DirectSubtotal int64            `json:"subtotal_directo"`
	Labor          int64            `json:"mano_obra"`
	Overhead       int64            `json:"gastos_generales"`
	Contingency    int64            `json:"imprevistos"`
	Margin         int64            `json:"utilidad"`
	Total          int64            `json:"total_estimado"`
	Currency       string           `json:"moneda"`
	TaxIncluded    bool             `json:"iva_incluido"`
	TotalWithTax   int64            `json:"total_con_iva"`
}

// ToJSON converts the budget to its wire form
func (b Budget) ToJSON() BudgetJSON {
	items := make([]BudgetLineJSON, 0, len(b.Lines))
	for _, line := range b.Lines {
		items = append(items, BudgetLineJSON{
			Element:     line.Label,
			Description: line.Description,
			Quantity:    line.Quantity.InexactFloat64(),
			Unit:        line.Unit,
			UnitPrice:   line.UnitPrice.InexactFloat64(),
			Subtotal:    line.Subtotal.InexactFloat64(),
			Origin:      line.SourceCode,
			Category:    line.CategoryLabel,
		})
	}

	return BudgetJSON{
		Items:          items,
		DirectSubtotal: WholeUnits(b.DirectSubtotal),
		Labor:          WholeUnits(b.Labor),
		Overhead:       WholeUnits(b.Overhead),
		Contingency:    WholeUnits(b.Contingency),
		Margin:         WholeUnits(b.Margin),
		Total:          WholeUnits(b.TotalBeforeTax),
		Currency:       b.Currency,
		TaxIncluded:    false,
		TotalWithTax:   WholeUnits(b.TotalWithTax),
	}
}

// CheckAmounts reports ErrAmountOverflow when a total does not fit the wire form
func (b Budget) CheckAmounts() error {
	totals := []struct {
		name  string
		value decimal.Decimal
	}{
		{"subtotal_directo", b.DirectSubtotal},
		{"mano_obra", b.Labor},
		{"gastos_generales", b.Overhead},
		{"imprevistos", b.Contingency},
		{"utilidad", b.Margin},
		{"total_estimado", b.TotalBeforeTax},
		{"total_con_iva", b.TotalWithTax},
	}
	for _, t := range totals {
		if t.value.Round(0).Abs().GreaterThan(maxWholeUnits) {
			return fmt.Errorf("%w: %s = %s", ErrAmountOverflow, t.name, t.value.Round(0))
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler using the Spanish wire field names
func (b Budget) MarshalJSON() ([]byte, error) {
	if err := b.CheckAmounts(); err != nil {
		return nil, err
	}
	return json.Marshal(b.ToJSON())
}

// WholeUnits rounds an amount half away from zero to whole currency units.
// Amounts beyond int64 saturate; CheckAmounts detects them first.
func WholeUnits(d decimal.Decimal) int64 {
	r := d.Round(0)
	switch {
	case r.GreaterThan(maxWholeUnits):
		return math.MaxInt64
	case r.LessThan(maxWholeUnits.Neg()):
		return -math.MaxInt64
	}
	return r.IntPart()
}
