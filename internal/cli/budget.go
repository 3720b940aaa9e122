package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/arkitecto/internal/budget"
	"github.com/ppiankov/arkitecto/internal/model"
	"github.com/ppiankov/arkitecto/internal/pipeline"
)

var (
	budgetArea    float64
	budgetCount   int
	jsonOut       string
	mdOut         string
	useAI         bool
	noFooter      bool
	budgetTimeout time.Duration

	llmProvider string
	llmModels   []string
)

// budgetCmd represents the budget command
var budgetCmd = &cobra.Command{
	Use:   "budget <instruction...>",
	Short: "Build a priced construction budget from a free-text instruction",
	Long: `Budget performs the full estimation pipeline:
- Sanitize the instruction and extract area and unit-count hints
- Match catalog APUs by keyword, free text or fallback sample
- Infer quantities and roll up labor, overhead, contingency, margin and IVA
- Optionally ask an LLM provider first (--ai), falling back to catalog prices

Example:
  arkitecto budget "baño completo de 6 m2"
  arkitecto budget "pintar departamento" --area 55 --md presupuesto.md
  arkitecto budget "ampliación de 20 m2" --ai --llm-provider anthropic`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBudget,
}

func init() {
	rootCmd.AddCommand(budgetCmd)

	budgetCmd.Flags().Float64Var(&budgetArea, "area", 0, "surface in m2 (overrides the instruction)")
	budgetCmd.Flags().IntVar(&budgetCount, "count", 0, "unit count (overrides the instruction)")
	budgetCmd.Flags().StringVar(&jsonOut, "json", "", "write JSON budget to file")
	budgetCmd.Flags().StringVar(&mdOut, "md", "", "write Markdown budget to file")
	budgetCmd.Flags().BoolVar(&useAI, "ai", false, "ask the configured LLM provider before falling back to catalog prices")
	budgetCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown budget")
	budgetCmd.Flags().DurationVar(&budgetTimeout, "timeout", 2*time.Minute, "overall timeout")
	addLLMFlags(budgetCmd)
}

// addLLMFlags registers provider overrides on a command
func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama, gemini)")
	cmd.Flags().StringSliceVar(&llmModels, "llm-model", nil, "LLM model names, tried in order")
}

// applyLLMFlags overlays provider flags on the loaded configuration
func applyLLMFlags(cfg *model.Config) {
	if llmProvider != "" && !strings.EqualFold(llmProvider, cfg.LLM.Provider) {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.APIKey = ""
		applyProviderEnv(cfg)
	}
	if len(llmModels) > 0 {
		cfg.LLM.Models = llmModels
	}
}

func runBudget(cmd *cobra.Command, args []string) error {
	instruction := strings.Join(args, " ")
	ctx, cancel := context.WithTimeout(cmd.Context(), budgetTimeout)
	defer cancel()

	if err := (budget.Hints{Area: budgetArea, Count: budgetCount}).Validate(); err != nil {
		return fmt.Errorf("--area/--count: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLLMFlags(cfg)

	fmt.Fprintf(os.Stderr, "⚙️  Loading catalog...\n")
	p, err := pipeline.NewFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	store := p.Store()
	fmt.Fprintf(os.Stderr, "✓ Catalog ready (%d categories, %d items)\n", len(store.Categories()), store.ItemCount())

	if useAI {
		if !p.Estimator().IsEnabled() {
			fmt.Fprintf(os.Stderr, "⚠️  --ai set but no LLM provider configured, using catalog prices\n")
		} else {
			fmt.Fprintf(os.Stderr, "⚙️  Asking %s...\n", p.Estimator().ProviderName())
		}
	}

	analysis, err := p.Analyze(ctx, pipeline.Request{
		Instruction: instruction,
		Area:        budgetArea,
		Count:       budgetCount,
		Offline:     !useAI,
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	for _, w := range analysis.Metadata.Warnings {
		fmt.Fprintf(os.Stderr, "⚠️  %s\n", w)
	}

	renderer := pipeline.NewRenderer(!noFooter)
	if jsonOut != "" {
		if err := renderer.RenderJSON(analysis, jsonOut); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ JSON budget: %s\n", jsonOut)
	}
	if mdOut != "" {
		if err := renderer.RenderMarkdown(analysis, mdOut); err != nil {
			return fmt.Errorf("render Markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown budget: %s\n", mdOut)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Print(renderer.Summary(analysis))
	return nil
}
