package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ppiankov/arkitecto/internal/model"
	"github.com/ppiankov/arkitecto/internal/worker"
)

func TestRequestLogger_Headers(t *testing.T) {
	s := newTestServer(t, nil)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	if _, err := uuid.Parse(w.Header().Get("X-Request-ID")); err != nil {
		t.Errorf("expected generated request id, got %q", w.Header().Get("X-Request-ID"))
	}
	if _, err := strconv.ParseFloat(w.Header().Get("X-Process-Time"), 64); err != nil {
		t.Errorf("expected numeric X-Process-Time, got %q", w.Header().Get("X-Process-Time"))
	}

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", id)
	if got := serve(s, req).Header().Get("X-Request-ID"); got != id {
		t.Errorf("expected caller request id %s, got %s", id, got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s: expected %q, got %q", header, want, got)
		}
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *model.Config) {
		cfg.RateLimiting.RequestsPerMinute = 2
		cfg.RateLimiting.RequestsPerHour = 100
	})

	search := func(forwarded string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/apus/search?q=techo", nil)
		req.Header.Set("X-Forwarded-For", forwarded)
		return serve(s, req)
	}

	for i := 0; i < 2; i++ {
		if w := search("203.0.113.7"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := search("203.0.113.7, 10.0.0.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	if w := search("198.51.100.1"); w.Code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", w.Code)
	}

	// Health checks are never limited
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		if w := serve(s, req); w.Code != http.StatusOK {
			t.Fatalf("health check limited: %d", w.Code)
		}
	}
}

func TestClientID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"user header ignored", map[string]string{"X-User-ID": "u-42", "X-Forwarded-For": "1.2.3.4"}, "ip:1.2.3.4"},
		{"user header without proxy", map[string]string{"X-User-ID": "u-42"}, "ip:192.0.2.1"},
		{"forwarded", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8"}, "ip:1.2.3.4"},
		{"remote", nil, "ip:192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			if got := clientID(c); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRateLimit_RotatingUserHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(worker.NewLimiter(2, 0), nil))
	router.GET("/paid", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/paid", nil)
		req.Header.Set("X-User-ID", fmt.Sprintf("user-%d", i))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code == http.StatusNoContent {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("expected 2 allowed requests from one address, got %d", allowed)
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(worker.NewLimiter(1, 0), []string{"/free"}))
	router.GET("/paid", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/free", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := func(path string, n int) []int {
		var out []int
		for i := 0; i < n; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			out = append(out, w.Code)
		}
		return out
	}

	if got := codes("/paid", 2); got[0] != http.StatusNoContent || got[1] != http.StatusTooManyRequests {
		t.Errorf("unexpected codes for limited path: %v", got)
	}
	for _, code := range codes("/free", 3) {
		if code != http.StatusNoContent {
			t.Errorf("exempt path limited: %d", code)
		}
	}
}
