package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ppiankov/arkitecto/internal/model"
	"github.com/ppiankov/arkitecto/internal/pipeline"
	"github.com/ppiankov/arkitecto/internal/worker"
)

const (
	shutdownTimeout   = 10 * time.Second
	limiterPruneEvery = 10 * time.Minute
	limiterIdleAfter  = time.Hour
)

// rateLimitExempt lists paths never counted against a client's quota
var rateLimitExempt = []string{"/", "/health", "/docs", "/openapi.json"}

// Server is the HTTP API
type Server struct {
	cfg      model.ServerConfig
	pipeline *pipeline.Pipeline
	limiter  *worker.Limiter
	engine   *gin.Engine
	version  string
}

// New builds the router and its middleware
func New(cfg *model.Config, p *pipeline.Pipeline, version string) *Server {
	s := &Server{
		cfg:      cfg.Server,
		pipeline: p,
		limiter:  worker.NewLimiter(cfg.RateLimiting.RequestsPerMinute, cfg.RateLimiting.RequestsPerHour),
		version:  version,
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Server.MaxUploadBytes
	r.Use(
		gin.Recovery(),
		RequestLogger(),
		cors.New(corsConfig(cfg.Server.AllowedOrigins)),
		SecurityHeaders(),
		RateLimit(s.limiter, rateLimitExempt),
	)

	r.GET("/", s.root)
	r.GET("/health", s.health)
	r.POST("/analyze_budget", s.analyzeBudget)

	api := r.Group("/api/v1")
	{
		api.GET("/apus/search", s.searchAPUs)
		api.POST("/budget", s.buildBudget)
		api.GET("/categories", s.categories)
	}

	s.engine = r
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	go s.pruneLimiter(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) pruneLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterPruneEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Prune(limiterIdleAfter); n > 0 {
				slog.Debug("pruned idle rate-limit clients", "count", n)
			}
		}
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "X-Process-Time", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
