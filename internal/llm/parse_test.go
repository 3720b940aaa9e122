package llm

import (
	"errors"
	"testing"

	"github.com/ppiankov/arkitecto/internal/model"
)

func TestParseEstimate(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantItems int
		wantErr   bool
	}{
		{
			name:      "plain JSON",
			text:      sampleEstimate,
			wantItems: 1,
		},
		{
			name:      "markdown fence",
			text:      "```json\n" + sampleEstimate + "\n```",
			wantItems: 1,
		},
		{
			name:      "prose around object",
			text:      "Aquí está el presupuesto:\n" + sampleEstimate + "\nSaludos.",
			wantItems: 1,
		},
		{
			name: "invalid lines dropped",
			text: `{"resumen": "x", "partidas": [
				{"elemento": "Pintura", "cantidad": 0, "unidad": "m2", "precio_unitario": 100},
				{"elemento": "Sello", "cantidad": 2, "unidad": "m2", "precio_unitario": -5},
				{"elemento": "", "descripcion": "", "cantidad": 1, "precio_unitario": 5},
				{"elemento": "Yeso", "cantidad": 3, "unidad": "m2", "precio_unitario": 4500}
			]}`,
			wantItems: 1,
		},
		{
			name:    "no JSON",
			text:    "No puedo estimar esto.",
			wantErr: true,
		},
		{
			name:    "broken JSON",
			text:    `{"resumen": "x", "partidas": [}`,
			wantErr: true,
		},
		{
			name:    "no usable lines",
			text:    `{"resumen": "x", "partidas": []}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := ParseEstimate(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrNoEstimate) {
					t.Fatalf("Expected ErrNoEstimate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEstimate failed: %v", err)
			}
			if len(est.Items) != tt.wantItems {
				t.Errorf("Expected %d items, got %d", tt.wantItems, len(est.Items))
			}
		})
	}
}

func TestEstimate_Lines(t *testing.T) {
	est, err := ParseEstimate(`{"resumen": "Baño", "partidas": [
		{"elemento": "Cerámica muro", "descripcion": "Cerámica 30x60", "cantidad": 12.345, "unidad": "m2", "precio_unitario": 18000},
		{"descripcion": "Retiro de escombros", "cantidad": 1, "precio_unitario": 85000}
	]}`)
	if err != nil {
		t.Fatalf("ParseEstimate failed: %v", err)
	}
	if est.Summary != "Baño" {
		t.Errorf("Expected summary Baño, got %q", est.Summary)
	}

	lines := est.Lines("openai")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}

	first := lines[0]
	if first.Quantity.String() != "12.35" {
		t.Errorf("Expected quantity rounded to 12.35, got %s", first.Quantity)
	}
	if first.Subtotal.String() != "222300" {
		t.Errorf("Expected subtotal 222300, got %s", first.Subtotal)
	}
	if first.SourceCode != "openai" || first.CategoryLabel != AICategoryLabel {
		t.Errorf("Unexpected attribution: %s / %s", first.SourceCode, first.CategoryLabel)
	}

	second := lines[1]
	if second.Label != "Retiro de escombros" {
		t.Errorf("Expected label from description, got %q", second.Label)
	}
	if second.Unit != "gl" {
		t.Errorf("Expected default unit gl, got %q", second.Unit)
	}
	if second.CategoryLabel == model.IndirectCategoryLabel {
		t.Error("AI lines must not be tagged as indirect costs")
	}
}
