package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/arkitecto/internal/model"
)

// AICategoryLabel tags budget lines produced by a model
const AICategoryLabel = "Estimación IA"

// ErrNoEstimate is returned when a response holds no usable JSON estimate
var ErrNoEstimate = errors.New("no structured estimate in response")

// Estimate is the JSON answer requested by BuildPrompt
type Estimate struct {
	Summary string    `json:"resumen"`
	Items   []Partida `json:"partidas"`
}

// Partida is one priced line proposed by the model
type Partida struct {
	Element     string          `json:"elemento"`
	Description string          `json:"descripcion"`
	Quantity    decimal.Decimal `json:"cantidad"`
	Unit        string          `json:"unidad"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
}

// ParseEstimate extracts the JSON estimate from a model answer, tolerating
// markdown fences and prose around the object. Lines with a non-positive
// quantity or a negative price are dropped.
func ParseEstimate(text string) (*Estimate, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrNoEstimate
	}

	var raw Estimate
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEstimate, err)
	}

	est := &Estimate{Summary: strings.TrimSpace(raw.Summary)}
	for _, p := range raw.Items {
		if !p.Quantity.IsPositive() || p.UnitPrice.IsNegative() {
			continue
		}
		if strings.TrimSpace(p.Element) == "" && strings.TrimSpace(p.Description) == "" {
			continue
		}
		est.Items = append(est.Items, p)
	}
	if len(est.Items) == 0 {
		return nil, ErrNoEstimate
	}
	return est, nil
}

// Lines converts the estimate into direct budget lines attributed to source
func (e Estimate) Lines(source string) []model.BudgetLine {
	lines := make([]model.BudgetLine, 0, len(e.Items))
	for _, p := range e.Items {
		label := strings.TrimSpace(p.Element)
		if label == "" {
			label = strings.TrimSpace(p.Description)
		}
		unit := strings.TrimSpace(p.Unit)
		if unit == "" {
			unit = "gl"
		}

		qty := p.Quantity.Round(2)
		lines = append(lines, model.BudgetLine{
			Label:         label,
			Description:   strings.TrimSpace(p.Description),
			Quantity:      qty,
			Unit:          unit,
			UnitPrice:     p.UnitPrice,
			Subtotal:      p.UnitPrice.Mul(qty),
			SourceCode:    source,
			CategoryLabel: AICategoryLabel,
		})
	}
	return lines
}
