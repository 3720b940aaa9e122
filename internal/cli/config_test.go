package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/arkitecto/internal/catalog"
	"github.com/ppiankov/arkitecto/internal/model"
)

func TestRegisterDefaults(t *testing.T) {
	v := viper.New()
	if err := registerDefaults(v, model.DefaultConfig()); err != nil {
		t.Fatalf("registerDefaults failed: %v", err)
	}

	if got := v.GetString("server.addr"); got != ":8000" {
		t.Errorf("server.addr = %q, want :8000", got)
	}
	if got := v.GetDuration("catalog.timeout"); got != 30*time.Second {
		t.Errorf("catalog.timeout = %v, want 30s", got)
	}
	if got := v.GetFloat64("pricing.tax_rate"); got != 0.19 {
		t.Errorf("pricing.tax_rate = %v, want 0.19", got)
	}
	if got := v.GetInt("rate_limiting.requests_per_hour"); got != 500 {
		t.Errorf("rate_limiting.requests_per_hour = %d, want 500", got)
	}
	if !v.IsSet("llm.api_key") {
		t.Error("llm.api_key should be registered")
	}
}

func TestRegisterDefaults_Unmarshal(t *testing.T) {
	v := viper.New()
	if err := registerDefaults(v, model.DefaultConfig()); err != nil {
		t.Fatalf("registerDefaults failed: %v", err)
	}
	v.Set("pricing.margin_rate", 0.12)

	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if cfg.Pricing.MarginRate != 0.12 {
		t.Errorf("MarginRate = %v, want 0.12", cfg.Pricing.MarginRate)
	}
	if cfg.Cache.DiskTTL != 7*24*time.Hour {
		t.Errorf("DiskTTL = %v, want 168h", cfg.Cache.DiskTTL)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v, want [*]", cfg.Server.AllowedOrigins)
	}
}

func TestApplyProviderEnv(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		apiKey      string
		env         map[string]string
		wantKey     string
		wantBaseURL string
	}{
		{
			name:     "openai",
			provider: "openai",
			env:      map[string]string{"OPENAI_API_KEY": "sk-test"},
			wantKey:  "sk-test",
		},
		{
			name:     "claude alias",
			provider: "claude",
			env:      map[string]string{"ANTHROPIC_API_KEY": "sk-ant"},
			wantKey:  "sk-ant",
		},
		{
			name:     "gemini prefers GEMINI_API_KEY",
			provider: "gemini",
			env:      map[string]string{"GEMINI_API_KEY": "g1", "GOOGLE_API_KEY": "g2"},
			wantKey:  "g1",
		},
		{
			name:     "gemini google key",
			provider: "gemini",
			env:      map[string]string{"GOOGLE_API_KEY": "g2"},
			wantKey:  "g2",
		},
		{
			name:     "configured key wins",
			provider: "openai",
			apiKey:   "from-config",
			env:      map[string]string{"OPENAI_API_KEY": "sk-test"},
			wantKey:  "from-config",
		},
		{
			name:        "ollama base url",
			provider:    "ollama",
			env:         map[string]string{"OLLAMA_BASE_URL": "http://gpu:11434"},
			wantBaseURL: "http://gpu:11434",
		},
		{
			name:     "disabled",
			provider: "",
			env:      map[string]string{"OPENAI_API_KEY": "sk-test"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, name := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OLLAMA_BASE_URL"} {
				t.Setenv(name, tt.env[name])
			}

			cfg := model.DefaultConfig()
			cfg.LLM.Provider = tt.provider
			cfg.LLM.APIKey = tt.apiKey
			applyProviderEnv(cfg)

			if cfg.LLM.APIKey != tt.wantKey {
				t.Errorf("APIKey = %q, want %q", cfg.LLM.APIKey, tt.wantKey)
			}
			if cfg.LLM.BaseURL != tt.wantBaseURL {
				t.Errorf("BaseURL = %q, want %q", cfg.LLM.BaseURL, tt.wantBaseURL)
			}
		})
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".arkitecto")
	path := filepath.Join(dir, "config.yaml")

	if err := writeDefaultConfig(dir, path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Arkitecto Configuration File") {
		t.Errorf("missing header, got %q", string(data[:40]))
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	if cfg.Pricing.LaborRate != 0.18 {
		t.Errorf("LaborRate = %v, want 0.18", cfg.Pricing.LaborRate)
	}
	if cfg.Catalog.Timeout != 30*time.Second {
		t.Errorf("Catalog.Timeout = %v, want 30s", cfg.Catalog.Timeout)
	}

	if err := writeDefaultConfig(dir, path); err == nil {
		t.Error("expected error when config already exists")
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		wantErr bool
	}{
		{"info", "text", false},
		{"DEBUG", "json", false},
		{"", "", false},
		{"warn", "console", false},
		{"loud", "text", true},
		{"info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			err := SetupLogger(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetupLogger(%q, %q) error = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			}
		})
	}
}

func TestPriceRange(t *testing.T) {
	store, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default catalog: %v", err)
	}

	lo, hi := priceRange(store)
	if !lo.IsPositive() {
		t.Errorf("lowest price = %s, want positive", lo)
	}
	if lo.GreaterThan(hi) {
		t.Errorf("lowest %s greater than highest %s", lo, hi)
	}
}

func TestResolveSearchLimit(t *testing.T) {
	cfg := model.DefaultConfig().Search

	tests := []struct {
		name    string
		flag    int
		want    int
		wantErr bool
	}{
		{"default from config", 0, 8, false},
		{"explicit", 5, 5, false},
		{"max", 50, 50, false},
		{"too many", 51, 0, true},
		{"negative", -1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSearchLimit(tt.flag, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveSearchLimit(%d) error = %v, wantErr %v", tt.flag, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveSearchLimit(%d) = %d, want %d", tt.flag, got, tt.want)
			}
		})
	}
}
