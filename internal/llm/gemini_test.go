package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiProvider_Estimate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "" {
			t.Error("API key must not be sent in the query string")
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("Expected x-goog-api-key test-key, got %s", r.Header.Get("x-goog-api-key"))
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Decode request: %v", err)
		}
		if req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("Expected JSON response type, got %q", req.GenerationConfig.ResponseMimeType)
		}

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": sampleEstimate}}}},
			},
			"usageMetadata": map[string]int{"totalTokenCount": 120},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Estimate(context.Background(), EstimateRequest{Instruction: "muro de ladrillo 40m2"})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if resp.Text != sampleEstimate {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.Model != geminiDefaultModel || resp.TokensUsed != 120 {
		t.Errorf("Unexpected model/tokens: %s %d", resp.Model, resp.TokensUsed)
	}
}

func TestGeminiProvider_Estimate_InlineImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		parts := req.Contents[0].Parts
		if len(parts) != 2 || parts[0].InlineData == nil || parts[0].InlineData.MimeType != "image/webp" {
			t.Errorf("Expected inline image first, got %+v", parts)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{}"}]}}]}`))
	}))
	defer server.Close()

	provider, _ := NewGeminiProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	_, err := provider.Estimate(context.Background(), EstimateRequest{
		Instruction: "fachada",
		Image:       []byte("RIFF"),
		ImageMIME:   "image/webp",
	})
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
}

func TestGeminiProvider_Estimate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"code": 404, "message": "model not found", "status": "NOT_FOUND"}}`))
	}))
	defer server.Close()

	provider, _ := NewGeminiProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if _, err := provider.Estimate(context.Background(), EstimateRequest{Instruction: "techo", Model: "gemini-pro"}); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestGeminiProvider_Estimate_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	provider, _ := NewGeminiProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if _, err := provider.Estimate(context.Background(), EstimateRequest{Instruction: "techo"}); err == nil {
		t.Fatal("Expected error for empty response")
	}
}

func TestGeminiProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1beta/models" && r.Header.Get("x-goog-api-key") == "test-key" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	ok, _ := NewGeminiProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if !ok.IsAvailable(context.Background()) {
		t.Error("Expected available with a valid key")
	}
	bad, _ := NewGeminiProvider(Config{APIKey: "wrong", BaseURL: server.URL})
	if bad.IsAvailable(context.Background()) {
		t.Error("Expected unavailable with a rejected key")
	}
}
