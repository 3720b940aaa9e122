package budget

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/arkitecto/internal/catalog"
	"github.com/ppiankov/arkitecto/internal/match"
	"github.com/ppiankov/arkitecto/internal/model"
)

func testAssembler() *Assembler {
	cfg := model.DefaultConfig()
	return NewAssembler(cfg.Pricing, cfg.Quantities)
}

func resolved(code, desc, unit string, price int64) model.ResolvedItem {
	return model.ResolvedItem{
		CatalogItem: model.CatalogItem{
			Description: desc,
			Unit:        unit,
			Kind:        model.ParseUnitKind(unit),
			UnitPrice:   decimal.NewFromInt(price),
			Code:        code,
		},
		CategoryLabel: "Prueba",
	}
}

func TestQuantity(t *testing.T) {
	a := testAssembler()

	tests := []struct {
		name  string
		kind  model.UnitKind
		hints Hints
		want  string
	}{
		{"area hint", model.UnitArea, Hints{Area: 40}, "40"},
		{"area default", model.UnitArea, Hints{}, "30"},
		{"volume hint", model.UnitVolume, Hints{Area: 45}, "4.5"},
		{"volume default", model.UnitVolume, Hints{}, "3"},
		{"length hint", model.UnitLength, Hints{Area: 40}, "25.3"},
		{"length default", model.UnitLength, Hints{}, "12"},
		{"mass hint", model.UnitMass, Hints{Area: 40}, "200"},
		{"mass default", model.UnitMass, Hints{}, "50"},
		{"count hint", model.UnitCount, Hints{Count: 3}, "3"},
		{"count default", model.UnitCount, Hints{Area: 40}, "1"},
		{"flat", model.UnitFlat, Hints{Area: 40, Count: 5}, "1"},
		{"rounded to cents", model.UnitLength, Hints{Area: 10}, "12.65"},
		{"max area", model.UnitArea, Hints{Area: MaxArea}, "1000000"},
		{"oversized area ignored", model.UnitMass, Hints{Area: 1e308}, "50"},
		{"infinite area ignored", model.UnitVolume, Hints{Area: math.Inf(1)}, "3"},
		{"NaN area ignored", model.UnitArea, Hints{Area: math.NaN()}, "30"},
		{"oversized count ignored", model.UnitCount, Hints{Count: MaxCount + 1}, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Quantity(tt.kind, tt.hints)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Quantity(%s, %+v) = %s, want %s", tt.kind, tt.hints, got, tt.want)
			}
		})
	}
}

func TestRollup_Example(t *testing.T) {
	a := testAssembler()

	b := a.Rollup([]model.BudgetLine{{
		Label:     "Obra",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: decimal.NewFromInt(1_000_000),
		Subtotal:  decimal.NewFromInt(1_000_000),
	}})

	checks := []struct {
		name string
		got  decimal.Decimal
		want int64
	}{
		{"subtotal_directo", b.DirectSubtotal, 1_000_000},
		{"mano_obra", b.Labor, 180_000},
		{"gastos_generales", b.Overhead, 80_000},
		{"imprevistos", b.Contingency, 50_000},
		{"utilidad", b.Margin, 100_000},
		{"total_estimado", b.TotalBeforeTax, 1_410_000},
		{"total_con_iva", b.TotalWithTax, 1_677_900},
	}
	for _, c := range checks {
		if model.WholeUnits(c.got) != c.want {
			t.Errorf("%s = %s, want %d", c.name, c.got, c.want)
		}
	}

	if len(b.Lines) != 5 {
		t.Fatalf("Expected 1 direct + 4 indirect lines, got %d", len(b.Lines))
	}

	wantCodes := []string{"MO-18%", "GG-8%", "IMP-5%", "UTI-10%"}
	for i, code := range wantCodes {
		line := b.Lines[i+1]
		if line.SourceCode != code {
			t.Errorf("line %d code = %s, want %s", i+1, line.SourceCode, code)
		}
		if line.Unit != "gl" || !line.Quantity.Equal(decimal.NewFromInt(1)) {
			t.Errorf("%s: expected 1 gl, got %s %s", code, line.Quantity, line.Unit)
		}
		if line.CategoryLabel != model.IndirectCategoryLabel {
			t.Errorf("%s: category %q", code, line.CategoryLabel)
		}
		if !line.Subtotal.Equal(line.UnitPrice) {
			t.Errorf("%s: subtotal %s != unit price %s", code, line.Subtotal, line.UnitPrice)
		}
	}
	if b.Lines[1].Description != "Maestros, oficiales y ayudantes segun partidas | 18% CD" {
		t.Errorf("Unexpected labor description %q", b.Lines[1].Description)
	}
}

func TestRollup_CustomRates(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Pricing.LaborRate = 0.2
	cfg.Pricing.TaxRate = 0
	cfg.Pricing.Currency = "UF"
	a := NewAssembler(cfg.Pricing, cfg.Quantities)

	b := a.Rollup([]model.BudgetLine{{Subtotal: decimal.NewFromInt(100)}})
	if !b.Labor.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected labor 20, got %s", b.Labor)
	}
	if !b.TotalWithTax.Equal(b.TotalBeforeTax) {
		t.Errorf("Expected no tax, got %s vs %s", b.TotalWithTax, b.TotalBeforeTax)
	}
	if b.Lines[1].SourceCode != "MO-20%" {
		t.Errorf("Expected MO-20%%, got %s", b.Lines[1].SourceCode)
	}
	if b.Currency != "UF" {
		t.Errorf("Expected currency UF, got %s", b.Currency)
	}
}

func TestAssemble_Empty(t *testing.T) {
	b := testAssembler().Assemble(nil, Hints{Area: 40})

	if b.Lines == nil || len(b.Lines) != 0 {
		t.Errorf("Expected empty non-nil lines, got %v", b.Lines)
	}
	for name, v := range map[string]decimal.Decimal{
		"direct": b.DirectSubtotal, "labor": b.Labor, "overhead": b.Overhead,
		"contingency": b.Contingency, "margin": b.Margin,
		"total": b.TotalBeforeTax, "total_with_tax": b.TotalWithTax,
	} {
		if !v.IsZero() {
			t.Errorf("%s = %s, want 0", name, v)
		}
	}
	if b.Currency != "CLP" {
		t.Errorf("Expected CLP, got %s", b.Currency)
	}
}

func TestAssemble_Lines(t *testing.T) {
	items := []model.ResolvedItem{
		resolved("F-001", "Muro ladrillo princesa fiscal", "m2", 42000),
		resolved("X-001", "Radier - incluye malla y polietileno de alta densidad para obra", "m3", 1000),
		resolved("X-002", "Acero A630-420H", "kg", 1500),
	}

	b := testAssembler().Assemble(items, Hints{})
	direct := b.DirectLines()
	if len(direct) != 3 {
		t.Fatalf("Expected 3 direct lines, got %d", len(direct))
	}

	first := direct[0]
	if first.Label != "Muro ladrillo princesa fiscal" {
		t.Errorf("Unexpected label %q", first.Label)
	}
	if first.Description != "Muro ladrillo princesa fiscal | Codigo: F-001" {
		t.Errorf("Unexpected description %q", first.Description)
	}
	if first.SourceCode != "F-001" || first.CategoryLabel != "Prueba" {
		t.Errorf("Unexpected source %q / category %q", first.SourceCode, first.CategoryLabel)
	}
	if !first.Subtotal.Equal(decimal.NewFromInt(30 * 42000)) {
		t.Errorf("Expected subtotal 1260000, got %s", first.Subtotal)
	}

	if direct[1].Label != "Radier" {
		t.Errorf("Expected label cut at ' - ', got %q", direct[1].Label)
	}
	if !direct[2].Quantity.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected mass default 50, got %s", direct[2].Quantity)
	}

	want := decimal.NewFromInt(30*42000 + 3*1000 + 50*1500)
	if !b.DirectSubtotal.Equal(want) {
		t.Errorf("DirectSubtotal = %s, want %s", b.DirectSubtotal, want)
	}
}

func TestAssemble_LongLabelTruncated(t *testing.T) {
	long := "Sistema de climatizacion central con bomba de calor inverter y ductos"
	b := testAssembler().Assemble([]model.ResolvedItem{resolved("Z-1", long, "gl", 10)}, Hints{})
	if got := []rune(b.Lines[0].Label); len(got) != 50 {
		t.Errorf("Expected 50-rune label, got %d: %q", len(got), string(got))
	}
}

func TestAssemble_WallScenario(t *testing.T) {
	store, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default: %v", err)
	}
	items := match.NewMatcher(store, match.DefaultMaxResults).Resolve("muro de ladrillo 40m2", 8)

	b := testAssembler().Assemble(items, Hints{Area: 40})
	for _, line := range b.DirectLines() {
		if line.CategoryLabel != "Albañilería y Muros" {
			t.Errorf("%s: category %q", line.SourceCode, line.CategoryLabel)
		}
		if line.Unit == "m2" && line.Quantity.StringFixed(2) != "40.00" {
			t.Errorf("%s: area quantity %s, want 40.00", line.SourceCode, line.Quantity.StringFixed(2))
		}
	}
	if len(b.Lines) != len(items)+4 {
		t.Errorf("Expected %d lines, got %d", len(items)+4, len(b.Lines))
	}
}

func TestAssemble_OversizedAreaFallsBackToDefaults(t *testing.T) {
	items := []model.ResolvedItem{
		resolved("E-001", "Fierro", "kg", 1200),
		resolved("R-001", "Radier", "m3", 95000),
	}

	b := testAssembler().Assemble(items, Hints{Area: 1e308})

	direct := b.DirectLines()
	if !direct[0].Quantity.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected mass default 50, got %s", direct[0].Quantity)
	}
	if !direct[1].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected volume default 3, got %s", direct[1].Quantity)
	}
	if err := b.CheckAmounts(); err != nil {
		t.Errorf("CheckAmounts: %v", err)
	}
}

func TestHints_Validate(t *testing.T) {
	tests := []struct {
		name    string
		hints   Hints
		wantErr bool
	}{
		{"zero", Hints{}, false},
		{"typical", Hints{Area: 40, Count: 3}, false},
		{"max", Hints{Area: MaxArea, Count: MaxCount}, false},
		{"negative area", Hints{Area: -1}, true},
		{"oversized area", Hints{Area: MaxArea + 1}, true},
		{"infinite area", Hints{Area: math.Inf(1)}, true},
		{"NaN area", Hints{Area: math.NaN()}, true},
		{"negative count", Hints{Count: -1}, true},
		{"oversized count", Hints{Count: MaxCount + 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hints.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%+v) error = %v, wantErr %v", tt.hints, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrHintOutOfRange) {
				t.Errorf("expected ErrHintOutOfRange, got %v", err)
			}
		})
	}
}

func TestBudgetJSON_WholeUnits(t *testing.T) {
	b := testAssembler().Assemble([]model.ResolvedItem{resolved("A-1", "Item", "m2", 333)}, Hints{Area: 1.5})
	out := b.ToJSON()

	// 1.5 * 333 = 499.5, rounded half away from zero
	if out.DirectSubtotal != 500 {
		t.Errorf("Expected subtotal_directo 500, got %d", out.DirectSubtotal)
	}
	if out.Items[0].Subtotal != 499.5 {
		t.Errorf("Expected line subtotal 499.5, got %v", out.Items[0].Subtotal)
	}
	if out.TaxIncluded {
		t.Error("Expected iva_incluido false")
	}
}
