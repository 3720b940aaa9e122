package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/arkitecto/internal/budget"
	"github.com/ppiankov/arkitecto/internal/model"
)

// Renderer writes analyses as JSON or Markdown
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WriteJSON encodes v as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// RenderJSON writes the analysis to a JSON file
func (r *Renderer) RenderJSON(a *model.Analysis, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := r.WriteJSON(f, a); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// RenderMarkdown writes the analysis to a Markdown file
func (r *Renderer) RenderMarkdown(a *model.Analysis, path string) error {
	if err := os.WriteFile(path, []byte(r.Markdown(a)), 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Markdown renders the analysis as a Markdown document
func (r *Renderer) Markdown(a *model.Analysis) string {
	var sb strings.Builder
	b := a.Budget

	sb.WriteString("# Presupuesto\n\n")
	for _, line := range strings.Split(a.Summary, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fmt.Fprintf(&sb, "> %s\n", line)
		}
	}
	sb.WriteString("\n")

	if len(b.Lines) == 0 {
		sb.WriteString("_Sin partidas._\n")
	} else {
		sb.WriteString("| Código | Partida | Cantidad | Unidad | P. Unitario | Subtotal |\n")
		sb.WriteString("|---|---|---:|---|---:|---:|\n")
		for _, line := range b.Lines {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
				escapeCell(line.SourceCode),
				escapeCell(line.Label),
				line.Quantity.StringFixed(2),
				escapeCell(line.Unit),
				budget.FormatCLP(line.UnitPrice),
				budget.FormatCLP(line.Subtotal),
			)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Totales\n\n")
	fmt.Fprintf(&sb, "- Costo directo: %s\n", budget.FormatCLP(b.DirectSubtotal))
	fmt.Fprintf(&sb, "- Mano de obra: %s\n", budget.FormatCLP(b.Labor))
	fmt.Fprintf(&sb, "- Gastos generales: %s\n", budget.FormatCLP(b.Overhead))
	fmt.Fprintf(&sb, "- Imprevistos: %s\n", budget.FormatCLP(b.Contingency))
	fmt.Fprintf(&sb, "- Utilidad: %s\n", budget.FormatCLP(b.Margin))
	fmt.Fprintf(&sb, "- **Total neto: %s**\n", budget.FormatCLP(b.TotalBeforeTax))
	fmt.Fprintf(&sb, "- **Total con IVA: %s**\n", budget.FormatCLP(b.TotalWithTax))

	m := a.Metadata
	if len(m.Warnings) > 0 {
		sb.WriteString("\n## Advertencias\n\n")
		for _, w := range m.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
	}

	if r.includeFooter {
		sb.WriteString("\n---\n\n")
		source := "catálogo APU"
		if m.Generator == model.GeneratorAI {
			source = fmt.Sprintf("IA (%s %s)", m.Provider, m.Model)
		}
		fmt.Fprintf(&sb, "_Generado por Arkitecto con %s. Valores referenciales en %s, sin garantía de precio._\n", source, b.Currency)
	}
	return sb.String()
}

// Summary renders a short plain-text view for terminals
func (r *Renderer) Summary(a *model.Analysis) string {
	var sb strings.Builder
	b := a.Budget

	sb.WriteString(a.Summary)
	sb.WriteString("\n\n")
	for _, line := range b.Lines {
		fmt.Fprintf(&sb, "  %-10s %-50s %8s %-3s %14s\n",
			line.SourceCode, line.Label, line.Quantity.StringFixed(2), line.Unit, budget.FormatCLP(line.Subtotal))
	}
	fmt.Fprintf(&sb, "\n  Total neto:     %s\n", budget.FormatCLP(b.TotalBeforeTax))
	fmt.Fprintf(&sb, "  Total con IVA:  %s\n", budget.FormatCLP(b.TotalWithTax))
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
