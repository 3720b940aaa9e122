package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete Arkitecto configuration.
// Field tags serve both the YAML config file and viper unmarshalling.
type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Catalog      CatalogConfig      `yaml:"catalog" mapstructure:"catalog"`
	Search       SearchConfig       `yaml:"search" mapstructure:"search"`
	Pricing      PricingConfig      `yaml:"pricing" mapstructure:"pricing"`
	Quantities   QuantityConfig     `yaml:"quantities" mapstructure:"quantities"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// CatalogConfig selects where the APU catalog comes from
type CatalogConfig struct {
	Path          string        `yaml:"path" mapstructure:"path"` // Local YAML file (empty = embedded catalog)
	URL           string        `yaml:"url" mapstructure:"url"`   // Remote YAML catalog, takes precedence over Path
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBytes      int64         `yaml:"max_bytes" mapstructure:"max_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// SearchConfig configures the matcher
type SearchConfig struct {
	MaxResults int `yaml:"max_results" mapstructure:"max_results"`
}

// PricingConfig holds the indirect-cost percentages and tax rate.
// Rates are fractions of the direct subtotal (0.18 = 18%).
type PricingConfig struct {
	LaborRate       float64 `yaml:"labor_rate" mapstructure:"labor_rate"`
	OverheadRate    float64 `yaml:"overhead_rate" mapstructure:"overhead_rate"`
	ContingencyRate float64 `yaml:"contingency_rate" mapstructure:"contingency_rate"`
	MarginRate      float64 `yaml:"margin_rate" mapstructure:"margin_rate"`
	TaxRate         float64 `yaml:"tax_rate" mapstructure:"tax_rate"` // IVA
	Currency        string  `yaml:"currency" mapstructure:"currency"`
}

// QuantityConfig holds the quantity-inference heuristics
type QuantityConfig struct {
	DefaultArea       float64 `yaml:"default_area" mapstructure:"default_area"`     // m2 when no area hint
	DefaultVolume     float64 `yaml:"default_volume" mapstructure:"default_volume"` // m3 when no area hint
	DefaultLength     float64 `yaml:"default_length" mapstructure:"default_length"` // ml when no area hint
	DefaultMass       float64 `yaml:"default_mass" mapstructure:"default_mass"`     // kg when no area hint
	VolumeAreaDivisor float64 `yaml:"volume_area_divisor" mapstructure:"volume_area_divisor"`
	LengthPerSqrtArea float64 `yaml:"length_per_sqrt_area" mapstructure:"length_per_sqrt_area"`
	MassPerArea       float64 `yaml:"mass_per_area" mapstructure:"mass_per_area"`
}

// LLMConfig contains LLM settings
type LLMConfig struct {
	Provider   string   `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, gemini, "" (disabled)
	Models     []string `yaml:"models" mapstructure:"models"`     // Tried in order until one answers
	APIKey     string   `yaml:"-" mapstructure:"api_key"`         // Never written to disk
	BaseURL    string   `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int      `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens  int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy  string   `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string   `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string   `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the AI response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitingConfig configures per-client HTTP rate limits
type RateLimitingConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	RequestsPerHour   int `yaml:"requests_per_hour" mapstructure:"requests_per_hour"`
}

// ConcurrencyConfig configures batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LoggingConfig configures slog
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   2 * time.Minute,
			MaxUploadBytes: 10 << 20,
		},
		Catalog: CatalogConfig{
			UserAgent:     "Arkitecto/1.0 (+https://github.com/ppiankov/arkitecto)",
			Timeout:       30 * time.Second,
			MaxBytes:      5_000_000,
			RespectRobots: true,
		},
		Search: SearchConfig{
			MaxResults: 8,
		},
		Pricing: PricingConfig{
			LaborRate:       0.18,
			OverheadRate:    0.08,
			ContingencyRate: 0.05,
			MarginRate:      0.10,
			TaxRate:         0.19,
			Currency:        "CLP",
		},
		Quantities: QuantityConfig{
			DefaultArea:       30,
			DefaultVolume:     3,
			DefaultLength:     12,
			DefaultMass:       50,
			VolumeAreaDivisor: 10,
			LengthPerSqrtArea: 4,
			MassPerArea:       5,
		},
		LLM: LLMConfig{
			Provider:  "", // Disabled by default
			Timeout:   60,
			MaxTokens: 2048,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerMinute: 60,
			RequestsPerHour:   500,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultCacheDir returns the per-user cache directory for AI responses
func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".arkitecto-cache"
	}
	return filepath.Join(dir, "arkitecto")
}
