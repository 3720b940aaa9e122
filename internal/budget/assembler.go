package budget

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/arkitecto/internal/model"
)

const (
	maxLabelRunes = 50
	flatUnit      = "gl"
)

// Upper bounds for request hints. Larger values are not construction jobs.
const (
	MaxArea  = 1_000_000 // m2
	MaxCount = 100_000   // units
)

// ErrHintOutOfRange is returned by Hints.Validate
var ErrHintOutOfRange = errors.New("hint out of range")

// Hints carries quantities extracted from the request. Zero means not provided.
type Hints struct {
	Area  float64 // m2
	Count int     // units
}

// Validate rejects negative, non-finite and oversized hints
func (h Hints) Validate() error {
	if math.IsNaN(h.Area) || h.Area < 0 || h.Area > MaxArea {
		return fmt.Errorf("%w: area must be between 0 and %d m2", ErrHintOutOfRange, MaxArea)
	}
	if h.Count < 0 || h.Count > MaxCount {
		return fmt.Errorf("%w: count must be between 0 and %d", ErrHintOutOfRange, MaxCount)
	}
	return nil
}

// usableArea reports whether area can drive quantity inference
func usableArea(area float64) bool {
	return area > 0 && area <= MaxArea
}

// indirect describes one rollup line appended after the direct items
type indirect struct {
	label  string
	detail string
	prefix string // Source code prefix, the percentage is appended
	rate   decimal.Decimal
}

// Assembler turns resolved catalog items into a costed budget.
// It holds only configuration and is safe for concurrent use.
type Assembler struct {
	quantities model.QuantityConfig
	labor      indirect
	overhead   indirect
	contingent indirect
	margin     indirect
	taxRate    decimal.Decimal
	currency   string
}

// NewAssembler creates an Assembler from pricing and quantity configuration
func NewAssembler(pricing model.PricingConfig, quantities model.QuantityConfig) *Assembler {
	currency := pricing.Currency
	if currency == "" {
		currency = "CLP"
	}

	return &Assembler{
		quantities: quantities,
		labor: indirect{
			label:  "Mano de obra especializada",
			detail: "Maestros, oficiales y ayudantes segun partidas",
			prefix: "MO",
			rate:   decimal.NewFromFloat(pricing.LaborRate),
		},
		overhead: indirect{
			label:  "Gastos generales de obra",
			detail: "Supervision, seguros, arriendos, transporte",
			prefix: "GG",
			rate:   decimal.NewFromFloat(pricing.OverheadRate),
		},
		contingent: indirect{
			label:  "Imprevistos y contingencias",
			detail: "Reserva para variaciones y emergencias",
			prefix: "IMP",
			rate:   decimal.NewFromFloat(pricing.ContingencyRate),
		},
		margin: indirect{
			label:  "Utilidad contratista",
			detail: "Margen profesional del ejecutor",
			prefix: "UTI",
			rate:   decimal.NewFromFloat(pricing.MarginRate),
		},
		taxRate:  decimal.NewFromFloat(pricing.TaxRate),
		currency: currency,
	}
}

// Assemble prices every item with an inferred quantity and appends the
// indirect-cost lines. An empty item list yields an empty, zero-valued budget.
func (a *Assembler) Assemble(items []model.ResolvedItem, hints Hints) model.Budget {
	lines := make([]model.BudgetLine, 0, len(items))
	for _, it := range items {
		qty := a.Quantity(it.Kind, hints)
		lines = append(lines, model.BudgetLine{
			Label:         shortLabel(it.Description),
			Description:   fmt.Sprintf("%s | Codigo: %s", it.Description, it.Code),
			Quantity:      qty,
			Unit:          it.Unit,
			UnitPrice:     it.UnitPrice,
			Subtotal:      it.UnitPrice.Mul(qty),
			SourceCode:    it.Code,
			CategoryLabel: it.CategoryLabel,
		})
	}
	return a.Rollup(lines)
}

// Rollup sums externally priced direct lines and appends labor, overhead,
// contingency and margin as lump-sum lines, then applies tax.
// Subtotals of the given lines are trusted as-is.
func (a *Assembler) Rollup(direct []model.BudgetLine) model.Budget {
	b := model.Budget{Currency: a.currency}
	if len(direct) == 0 {
		b.Lines = []model.BudgetLine{}
		return b
	}

	lines := make([]model.BudgetLine, 0, len(direct)+4)
	lines = append(lines, direct...)

	subtotal := decimal.Zero
	for _, line := range direct {
		subtotal = subtotal.Add(line.Subtotal)
	}

	b.DirectSubtotal = subtotal
	b.Labor = subtotal.Mul(a.labor.rate)
	b.Overhead = subtotal.Mul(a.overhead.rate)
	b.Contingency = subtotal.Mul(a.contingent.rate)
	b.Margin = subtotal.Mul(a.margin.rate)

	lines = append(lines,
		a.labor.line(b.Labor),
		a.overhead.line(b.Overhead),
		a.contingent.line(b.Contingency),
		a.margin.line(b.Margin),
	)

	b.Lines = lines
	b.TotalBeforeTax = subtotal.Add(b.Labor).Add(b.Overhead).Add(b.Contingency).Add(b.Margin)
	b.TotalWithTax = b.TotalBeforeTax.Mul(decimal.NewFromInt(1).Add(a.taxRate))
	return b
}

// Quantity infers the quantity for a unit kind, rounded to 2 decimals
func (a *Assembler) Quantity(kind model.UnitKind, hints Hints) decimal.Decimal {
	q := a.quantities
	area := hints.Area
	hasArea := usableArea(area)

	var qty float64
	switch kind {
	case model.UnitArea:
		qty = q.DefaultArea
		if hasArea {
			qty = area
		}
	case model.UnitVolume:
		qty = q.DefaultVolume
		if hasArea && q.VolumeAreaDivisor > 0 {
			qty = area / q.VolumeAreaDivisor
		}
	case model.UnitLength:
		qty = q.DefaultLength
		if hasArea {
			qty = math.Sqrt(area) * q.LengthPerSqrtArea
		}
	case model.UnitMass:
		qty = q.DefaultMass
		if hasArea {
			qty = area * q.MassPerArea
		}
	case model.UnitCount:
		qty = 1
		if hints.Count > 0 && hints.Count <= MaxCount {
			qty = float64(hints.Count)
		}
	default:
		qty = 1
	}

	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(qty).Round(2)
}

func (in indirect) line(amount decimal.Decimal) model.BudgetLine {
	pct := in.rate.Shift(2).String() + "%"
	return model.BudgetLine{
		Label:         in.label,
		Description:   fmt.Sprintf("%s | %s CD", in.detail, pct),
		Quantity:      decimal.NewFromInt(1),
		Unit:          flatUnit,
		UnitPrice:     amount,
		Subtotal:      amount,
		SourceCode:    in.prefix + "-" + pct,
		CategoryLabel: model.IndirectCategoryLabel,
	}
}

// shortLabel takes the part before " - " capped at 50 runes
func shortLabel(desc string) string {
	label, _, _ := strings.Cut(desc, " - ")
	if utf8.RuneCountInString(label) <= maxLabelRunes {
		return label
	}
	return string([]rune(label)[:maxLabelRunes])
}
