package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ppiankov/arkitecto/internal/budget"
	"github.com/ppiankov/arkitecto/internal/cache"
	"github.com/ppiankov/arkitecto/internal/catalog"
	"github.com/ppiankov/arkitecto/internal/extract"
	"github.com/ppiankov/arkitecto/internal/llm"
	"github.com/ppiankov/arkitecto/internal/match"
	"github.com/ppiankov/arkitecto/internal/model"
)

const (
	transparencyNote  = "Todos los precios incluyen códigos APU verificados"
	lumpSumLabel      = "Presupuesto completo"
	lumpSumUnit       = "gl"
	lumpSumRunes      = 200
	aiFallbackWarning = "AI estimate unavailable; catalog prices used"
)

// Pipeline orchestrates a budget request: sanitize, extract hints, ask the
// AI estimator when one is configured, otherwise resolve catalog items and
// assemble them
type Pipeline struct {
	store      *catalog.Store
	matcher    *match.Matcher
	assembler  *budget.Assembler
	estimator  *llm.Estimator // Optional (nil or disabled means offline only)
	maxResults int
	currency   string
}

// Request is one analysis request
type Request struct {
	Instruction string
	Image       []byte // Optional photo or plan, forwarded to the AI estimator only
	ImageMIME   string
	Area        float64 // Overrides the area found in the instruction when > 0
	Count       int     // Overrides the unit count found in the instruction when > 0
	Offline     bool    // Skip the AI estimator
}

// New creates a pipeline over an already loaded catalog
func New(cfg *model.Config, store *catalog.Store, estimator *llm.Estimator) *Pipeline {
	currency := cfg.Pricing.Currency
	if currency == "" {
		currency = "CLP"
	}
	return &Pipeline{
		store:      store,
		matcher:    match.NewMatcher(store, cfg.Search.MaxResults),
		assembler:  budget.NewAssembler(cfg.Pricing, cfg.Quantities),
		estimator:  estimator,
		maxResults: cfg.Search.MaxResults,
		currency:   currency,
	}
}

// NewFromConfig loads the catalog and builds the optional AI estimator.
// A catalog that fails validation is fatal; a broken AI configuration only
// disables the estimator.
func NewFromConfig(ctx context.Context, cfg *model.Config) (*Pipeline, error) {
	store, err := LoadCatalog(ctx, cfg.Catalog)
	if err != nil {
		return nil, err
	}

	var estimator *llm.Estimator
	if cfg.LLM.Provider != "" {
		e, err := llm.NewEstimator(llm.ConfigFromModel(cfg.LLM), cache.New(cfg.Cache), cfg.Cache.DiskTTL)
		if err != nil {
			slog.Warn("failed to initialize LLM provider, running offline", "provider", cfg.LLM.Provider, "error", err)
		} else {
			estimator = e
		}
	}

	return New(cfg, store, estimator), nil
}

// LoadCatalog loads the catalog from a URL, a local file or the embedded
// default, in that order of precedence
func LoadCatalog(ctx context.Context, cfg model.CatalogConfig) (*catalog.Store, error) {
	switch {
	case cfg.URL != "":
		store, err := catalog.NewFetcher(cfg).Fetch(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("fetch catalog: %w", err)
		}
		return store, nil
	case cfg.Path != "":
		return catalog.LoadFile(cfg.Path)
	default:
		return catalog.Default()
	}
}

// Store returns the catalog the pipeline resolves against
func (p *Pipeline) Store() *catalog.Store {
	return p.store
}

// Estimator returns the AI estimator, nil when none is configured
func (p *Pipeline) Estimator() *llm.Estimator {
	return p.estimator
}

// Search resolves a query to catalog items
func (p *Pipeline) Search(query string, limit int) []model.SearchHit {
	items := p.matcher.Resolve(query, limit)
	hits := make([]model.SearchHit, len(items))
	for i, it := range items {
		hits[i] = model.NewSearchHit(it)
	}
	return hits
}

// BuildBudget prices the items resolved for query. Explicit hints win over
// the ones found in the query text.
func (p *Pipeline) BuildBudget(query string, hints budget.Hints) model.Budget {
	return p.assembler.Assemble(p.matcher.Resolve(query, p.maxResults), mergeHints(query, hints))
}

func mergeHints(text string, explicit budget.Hints) budget.Hints {
	h := extract.Hints(text)
	if explicit.Area > 0 {
		h.Area = explicit.Area
	}
	if explicit.Count > 0 {
		h.Count = explicit.Count
	}
	return h
}

// Analyze produces a budget for a client instruction. AI failures are logged
// and answered by the catalog engine; only invalid input is an error.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*model.Analysis, error) {
	instruction, err := extract.SanitizeInstruction(req.Instruction)
	if err != nil {
		return nil, err
	}
	explicit := budget.Hints{Area: req.Area, Count: req.Count}
	if err := explicit.Validate(); err != nil {
		return nil, err
	}
	hints := mergeHints(instruction, explicit)

	var warnings []string
	if !req.Offline && p.estimator.IsEnabled() {
		est, err := p.estimator.Estimate(ctx, llm.EstimateRequest{
			Instruction: instruction,
			Image:       req.Image,
			ImageMIME:   req.ImageMIME,
		})
		switch {
		case err != nil:
			slog.Warn("AI estimate failed, using catalog", "provider", p.estimator.ProviderName(), "error", err)
			warnings = append(warnings, aiFallbackWarning)
		case est != nil:
			analysis := p.aiAnalysis(instruction, hints, est)
			if err := analysis.Budget.CheckAmounts(); err != nil {
				slog.Warn("AI estimate out of range, using catalog", "provider", est.Provider, "model", est.Model, "error", err)
				warnings = append(warnings, aiFallbackWarning)
				break
			}
			return analysis, nil
		}
	}

	analysis := p.offlineAnalysis(instruction, hints)
	if err := analysis.Budget.CheckAmounts(); err != nil {
		return nil, err
	}
	analysis.Metadata.Warnings = warnings
	return analysis, nil
}

func (p *Pipeline) offlineAnalysis(instruction string, hints budget.Hints) *model.Analysis {
	items := p.matcher.Resolve(instruction, p.maxResults)
	b := p.assembler.Assemble(items, hints)
	category := p.matcher.DetectCategory(instruction)

	summary := fmt.Sprintf(
		"Presupuesto profesional generado para: %s\nCategoría detectada: %s\n%d partidas principales encontradas\nPrecios de mercado chileno (%s)",
		instruction, category, len(items), b.Currency,
	)

	return &model.Analysis{
		Success: true,
		Summary: summary,
		Budget:  b,
		Metadata: model.AnalysisMetadata{
			DetectedElements: len(b.Lines),
			PricedItems:      len(b.Lines),
			Generator:        model.GeneratorCatalog,
			Category:         category,
			Transparency:     transparencyNote,
			AreaHint:         hints.Area,
			CountHint:        hints.Count,
		},
	}
}

func (p *Pipeline) aiAnalysis(instruction string, hints budget.Hints, est *llm.Estimation) *model.Analysis {
	meta := model.AnalysisMetadata{
		Generator:   model.GeneratorAI,
		Provider:    est.Provider,
		Model:       est.Model,
		Category:    p.matcher.DetectCategory(instruction),
		AreaHint:    hints.Area,
		CountHint:   hints.Count,
		RawResponse: est.Text,
		Cached:      est.Cached,
		Warnings:    est.Warnings,
	}

	if est.Estimate == nil {
		// Unstructured answer: keep the text as a single unpriced line
		b := model.Budget{
			Lines:    []model.BudgetLine{p.lumpSum(est)},
			Currency: p.currency,
		}
		meta.DetectedElements = 1
		return &model.Analysis{
			Success:  true,
			Summary:  fmt.Sprintf("Presupuesto generado con IA para: %s", instruction),
			Budget:   b,
			Metadata: meta,
		}
	}

	b := p.assembler.Rollup(est.Estimate.Lines(est.Provider))
	priced := 0
	for _, line := range b.DirectLines() {
		if line.UnitPrice.IsPositive() {
			priced++
		}
	}
	meta.DetectedElements = len(b.Lines)
	meta.PricedItems = priced

	summary := est.Estimate.Summary
	if summary == "" {
		summary = fmt.Sprintf("Presupuesto generado con IA para: %s", instruction)
	}
	return &model.Analysis{
		Success:  true,
		Summary:  summary,
		Budget:   b,
		Metadata: meta,
	}
}

func (p *Pipeline) lumpSum(est *llm.Estimation) model.BudgetLine {
	text := strings.TrimSpace(est.Text)
	if utf8.RuneCountInString(text) > lumpSumRunes {
		text = string([]rune(text)[:lumpSumRunes]) + "..."
	}
	return model.BudgetLine{
		Label:         lumpSumLabel,
		Description:   text,
		Quantity:      decimal.NewFromInt(1),
		Unit:          lumpSumUnit,
		SourceCode:    est.Provider,
		CategoryLabel: llm.AICategoryLabel,
	}
}
