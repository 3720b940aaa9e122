package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ppiankov/arkitecto/internal/budget"
	"github.com/ppiankov/arkitecto/internal/model"
	"github.com/ppiankov/arkitecto/internal/pipeline"
)

const maxSearchLimit = 50

var (
	searchLimit int
	searchJSON  bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search catalog APUs by keyword or free text",
	Long: `Search resolves a query against the APU catalog.

Keywords (baño, cocina, pintura...) select a whole category; other queries
are matched against item descriptions and codes. When nothing matches, a
sample of finishing items is returned.

Example:
  arkitecto search baño
  arkitecto search "cerámica piso" --limit 5
  arkitecto search radier --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results (1-50, default search.max_results)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	limit, err := resolveSearchLimit(searchLimit, cfg.Search)
	if err != nil {
		return err
	}

	store, err := pipeline.LoadCatalog(cmd.Context(), cfg.Catalog)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	p := pipeline.New(cfg, store, nil)

	query := strings.Join(args, " ")
	hits := p.Search(query, limit)

	if searchJSON {
		return pipeline.NewRenderer(false).WriteJSON(os.Stdout, hits)
	}

	fmt.Fprintf(os.Stderr, "✓ %d results for %q\n\n", len(hits), query)
	for _, h := range hits {
		fmt.Printf("  %-10s %-60s %-3s %14s  [%s]\n",
			h.Code, h.Description, h.Unit, budget.FormatCLP(decimal.NewFromFloat(h.UnitPrice)), h.CategoryLabel)
	}
	return nil
}

// resolveSearchLimit applies search.max_results when --limit is not set
func resolveSearchLimit(flag int, cfg model.SearchConfig) (int, error) {
	if flag == 0 {
		flag = cfg.MaxResults
	}
	if flag < 1 || flag > maxSearchLimit {
		return 0, fmt.Errorf("--limit must be between 1 and %d, got %d", maxSearchLimit, flag)
	}
	return flag, nil
}
