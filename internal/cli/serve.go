package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/arkitecto/internal/pipeline"
	"github.com/ppiankov/arkitecto/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the budget HTTP API",
	Long: `Serve exposes the estimation pipeline over HTTP:

  GET  /                     service status
  GET  /health               catalog size and AI provider
  POST /analyze_budget       form field "instruction", optional "image"
  GET  /api/v1/apus/search   ?q=...&limit=10
  POST /api/v1/budget        {"query": "...", "area": 20, "count": 0}
  GET  /api/v1/categories    catalog categories

Example:
  arkitecto serve
  arkitecto serve --addr :8080
  ARKITECTO_LLM_PROVIDER=openai OPENAI_API_KEY=sk-... arkitecto serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	addLLMFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLLMFlags(cfg)

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Arkitecto API %s\n", Version)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")

	p, err := pipeline.NewFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	store := p.Store()
	fmt.Fprintf(os.Stderr, "✓ Catalog: %d categories, %d items\n", len(store.Categories()), store.ItemCount())

	if est := p.Estimator(); est.IsEnabled() {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		available := est.IsAvailable(checkCtx)
		cancel()
		if available {
			fmt.Fprintf(os.Stderr, "✓ AI provider: %s\n", est.ProviderName())
		} else {
			fmt.Fprintf(os.Stderr, "⚠️  AI provider %s not reachable, requests will fall back to catalog prices\n", est.ProviderName())
		}
	} else {
		fmt.Fprintf(os.Stderr, "  AI provider: none (catalog prices only)\n")
	}

	fmt.Fprintf(os.Stderr, "✓ Listening on %s\n\n", cfg.Server.Addr)
	return server.New(cfg, p, Version).Run(ctx)
}
