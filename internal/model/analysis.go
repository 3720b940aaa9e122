package model

// Generator names reported in analysis metadata
const (
	GeneratorCatalog = "apu_profesional"
	GeneratorAI      = "ai"
)

// Analysis is the envelope returned for a budget request
type Analysis struct {
	Success  bool             `json:"success"`
	Summary  string           `json:"analisis"`   // Human-readable summary
	Budget   Budget           `json:"presupuesto"`
	Metadata AnalysisMetadata `json:"metadata"`
}

// AnalysisMetadata describes how the budget was produced
type AnalysisMetadata struct {
	DetectedElements int      `json:"elementos_detectados"`
	PricedItems      int      `json:"items_con_precio"`
	Generator        string   `json:"generator"`               // apu_profesional or ai
	Provider         string   `json:"provider,omitempty"`      // AI provider when Generator is ai
	Model            string   `json:"model,omitempty"`         // AI model when Generator is ai
	Category         string   `json:"categoria,omitempty"`     // Category detected from keywords
	Transparency     string   `json:"transparencia,omitempty"` // Statement about price provenance
	AreaHint         float64  `json:"area_m2,omitempty"`       // Area extracted from the instruction
	CountHint        int      `json:"cantidad_detectada,omitempty"`
	RawResponse      string   `json:"raw_response,omitempty"` // Full AI text, kept for clients
	Cached           bool     `json:"cached,omitempty"`       // AI text served from cache
	Warnings         []string `json:"warnings,omitempty"`
}

// SearchHit is the wire form of a resolved catalog item
type SearchHit struct {
	Description   string  `json:"description"`
	Unit          string  `json:"unit"`
	UnitPrice     float64 `json:"unit_price"`
	Code          string  `json:"code"`
	CategoryLabel string  `json:"category_label"`
}

// NewSearchHit converts a resolved item to its wire form
func NewSearchHit(item ResolvedItem) SearchHit {
	return SearchHit{
		Description:   item.Description,
		Unit:          item.Unit,
		UnitPrice:     item.UnitPrice.InexactFloat64(),
		Code:          item.Code,
		CategoryLabel: item.CategoryLabel,
	}
}
