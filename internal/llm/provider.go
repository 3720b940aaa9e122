package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/ppiankov/arkitecto/internal/util"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Estimate asks the model for an itemized construction budget
	Estimate(ctx context.Context, req EstimateRequest) (*EstimateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// EstimateRequest contains the input for a budget estimate
type EstimateRequest struct {
	// Instruction is the sanitized client request
	Instruction string

	// Image is an optional photo or plan of the site
	Image []byte

	// ImageMIME is the content type of Image (e.g. image/jpeg)
	ImageMIME string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// EstimateResponse contains the model's raw answer
type EstimateResponse struct {
	// Text is the generated answer, expected to hold a JSON estimate
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini", ""
	Provider string

	// Models are tried in order; the first one that answers wins
	Models []string

	// APIKey for OpenAI/Anthropic/Gemini
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   60,
		MaxTokens: 2048,
	}
}

// Model returns the first configured model, or fallback
func (c Config) Model(fallback string) string {
	if len(c.Models) > 0 && c.Models[0] != "" {
		return c.Models[0]
	}
	return fallback
}

func (c Config) maxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 2048
}

// newHTTPClient builds the HTTP client shared by the REST providers
func newHTTPClient(config Config, defaultTimeout time.Duration) *http.Client {
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout == 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
