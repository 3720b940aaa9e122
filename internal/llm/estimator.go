package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/arkitecto/internal/cache"
)

// ErrAllModelsFailed is returned when every configured model errored
var ErrAllModelsFailed = errors.New("all models failed")

// Estimation is the outcome of an AI estimate
type Estimation struct {
	Provider   string
	Model      string
	Text       string    // Raw model answer
	Estimate   *Estimate // nil when the answer held no usable JSON
	Cached     bool
	TokensUsed int
	Warnings   []string
}

// cachedAnswer is what the estimator stores in the cache
type cachedAnswer struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// Estimator asks the configured provider for budget estimates, trying each
// configured model in order and caching successful text-only answers
type Estimator struct {
	provider Provider
	config   Config
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewEstimator creates an estimator from configuration.
// A disabled provider yields an estimator whose Estimate returns nil, nil.
func NewEstimator(config Config, c cache.Cache, cacheTTL time.Duration) (*Estimator, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return NewEstimatorWithProvider(provider, config, c, cacheTTL), nil
}

// NewEstimatorWithProvider wraps an existing provider
func NewEstimatorWithProvider(provider Provider, config Config, c cache.Cache, cacheTTL time.Duration) *Estimator {
	if c == nil {
		c = cache.Noop{}
	}
	return &Estimator{
		provider: provider,
		config:   config,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// IsEnabled reports whether a provider is configured
func (e *Estimator) IsEnabled() bool {
	return e != nil && e.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled
func (e *Estimator) ProviderName() string {
	if !e.IsEnabled() {
		return ""
	}
	return e.provider.Name()
}

// IsAvailable checks that the provider answers
func (e *Estimator) IsAvailable(ctx context.Context) bool {
	return e.IsEnabled() && e.provider.IsAvailable(ctx)
}

// Estimate requests an estimate for req. It returns nil, nil when disabled and
// ErrAllModelsFailed (joined with each model's error) when no model answered.
func (e *Estimator) Estimate(ctx context.Context, req EstimateRequest) (*Estimation, error) {
	if !e.IsEnabled() {
		return nil, nil
	}

	models := e.config.Models
	if len(models) == 0 {
		models = []string{""} // Provider default
	}

	// Answers grounded on an image are not reused
	key := ""
	if len(req.Image) == 0 {
		key = cache.Key(e.provider.Name(), strings.Join(models, ","), req.Prompt, req.Instruction)
		if data, ok := e.cache.Get(key); ok {
			var answer cachedAnswer
			if err := json.Unmarshal(data, &answer); err == nil {
				est := e.result(answer.Model, answer.Text, 0)
				est.Cached = true
				return est, nil
			}
		}
	}

	var errs []error
	var warnings []string
	for _, model := range models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempt := req
		attempt.Model = model

		resp, err := e.provider.Estimate(ctx, attempt)
		if err != nil {
			name := model
			if name == "" {
				name = "default"
			}
			slog.Warn("model failed", "provider", e.provider.Name(), "model", name, "error", err)
			warnings = append(warnings, fmt.Sprintf("Model %s failed: %v", name, err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}

		est := e.result(resp.Model, resp.Text, resp.TokensUsed)
		est.Warnings = append(warnings, est.Warnings...)

		if key != "" {
			if data, err := json.Marshal(cachedAnswer{Model: resp.Model, Text: resp.Text}); err == nil {
				if err := e.cache.Set(key, data, e.cacheTTL); err != nil {
					slog.Debug("cache write failed", "error", err)
				}
			}
		}
		return est, nil
	}

	return nil, errors.Join(append([]error{ErrAllModelsFailed}, errs...)...)
}

func (e *Estimator) result(model, text string, tokens int) *Estimation {
	est := &Estimation{
		Provider:   e.provider.Name(),
		Model:      model,
		Text:       text,
		TokensUsed: tokens,
	}
	parsed, err := ParseEstimate(text)
	if err != nil {
		est.Warnings = append(est.Warnings, "AI answer had no structured estimate; returned as text")
		return est
	}
	est.Estimate = parsed
	return est
}
