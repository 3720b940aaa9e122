package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ppiankov/arkitecto/internal/budget"
	"github.com/ppiankov/arkitecto/internal/catalog"
	"github.com/ppiankov/arkitecto/internal/pipeline"
)

var listKeywords bool

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate APU catalogs",
	Long: `Inspect the active APU catalog or validate a catalog document.

The active catalog comes from catalog.url, then catalog.path, then the
catalog embedded in the binary.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := pipeline.LoadCatalog(cmd.Context(), cfg.Catalog)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}

		for _, cat := range store.Categories() {
			fmt.Printf("  %-24s %-36s %3d items\n", cat.Key, cat.DisplayName, len(cat.Items))
		}
		fmt.Fprintf(os.Stderr, "\n✓ %d categories, %d items\n", len(store.Categories()), store.ItemCount())

		if listKeywords {
			fmt.Printf("\nKeywords:\n")
			for _, kw := range store.Keywords() {
				fmt.Printf("  %-24s → %s\n", kw.Pattern, kw.CategoryKey)
			}
		}
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [path|url]",
	Short: "Validate a catalog document",
	Long: `Load a catalog document and run every startup check on it: unique
category keys and item codes, positive prices, keywords pointing at known
categories and a usable fallback sample.

Without an argument the active catalog is validated.

Example:
  arkitecto catalog validate ./apu_catalog.yaml
  arkitecto catalog validate https://example.com/apu_catalog.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var (
			store  *catalog.Store
			source string
		)
		switch {
		case len(args) == 0:
			source = "active catalog"
			store, err = pipeline.LoadCatalog(cmd.Context(), cfg.Catalog)
		case strings.HasPrefix(args[0], "http://") || strings.HasPrefix(args[0], "https://"):
			source = args[0]
			store, err = catalog.NewFetcher(cfg.Catalog).Fetch(cmd.Context(), args[0])
		default:
			source = args[0]
			store, err = catalog.LoadFile(args[0])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", source, err)
			return err
		}

		fb := store.Fallback()
		fmt.Fprintf(os.Stderr, "✓ %s is valid\n", source)
		fmt.Fprintf(os.Stderr, "  Categories:  %d\n", len(store.Categories()))
		fmt.Fprintf(os.Stderr, "  Items:       %d\n", store.ItemCount())
		fmt.Fprintf(os.Stderr, "  Keywords:    %d\n", len(store.Keywords()))
		fmt.Fprintf(os.Stderr, "  Fallback:    %d items from %s (%s)\n", fb.Sample, fb.CategoryKey, fb.Label)

		lo, hi := priceRange(store)
		fmt.Fprintf(os.Stderr, "  Prices:      %s to %s\n", budget.FormatCLP(lo), budget.FormatCLP(hi))
		return nil
	},
}

// priceRange returns the lowest and highest unit price in the catalog
func priceRange(store *catalog.Store) (lo, hi decimal.Decimal) {
	first := true
	for _, cat := range store.Categories() {
		for _, it := range cat.Items {
			if first || it.UnitPrice.LessThan(lo) {
				lo = it.UnitPrice
			}
			if first || it.UnitPrice.GreaterThan(hi) {
				hi = it.UnitPrice
			}
			first = false
		}
	}
	return lo, hi
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogValidateCmd)

	catalogListCmd.Flags().BoolVar(&listKeywords, "keywords", false, "also list the keyword index")
}
