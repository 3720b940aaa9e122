package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc_Explicit(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "internal.cl")

	tests := []struct {
		url  string
		want string
	}{
		{"http://precios.example.cl/catalog.yaml", "http://proxy.local:3128"},
		{"https://precios.example.cl/catalog.yaml", "http://proxy.local:3128"},
		{"https://api.internal.cl/catalog.yaml", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			if err != nil {
				t.Fatalf("NewRequest: %v", err)
			}
			got, err := proxy(req)
			if err != nil {
				t.Fatalf("proxy: %v", err)
			}
			if tt.want == "" {
				if got != nil {
					t.Errorf("Expected direct connection, got %s", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("proxy(%s) = %v, want %s", tt.url, got, tt.want)
			}
		})
	}
}

func TestNewProxyFunc_SeparateHTTPS(t *testing.T) {
	proxy := NewProxyFunc("http://plain:8080", "http://secure:8443", "")

	req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1", nil)
	got, err := proxy(req)
	if err != nil {
		t.Fatalf("proxy: %v", err)
	}
	if got == nil || got.Host != "secure:8443" {
		t.Errorf("Expected https proxy, got %v", got)
	}
}
