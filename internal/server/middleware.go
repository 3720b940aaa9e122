package server

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ppiankov/arkitecto/internal/worker"
)

const (
	requestIDHeader   = "X-Request-ID"
	processTimeHeader = "X-Process-Time"
	requestIDKey      = "requestID"
)

// RequestLogger tags each request with an id and logs it once served.
// X-Process-Time is stamped just before the response header is written.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Writer = &timedWriter{ResponseWriter: c.Writer, start: start}
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", clientID(c),
			"request_id", requestID,
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			slog.Error("request", attrs...)
		case c.Writer.Status() >= http.StatusBadRequest:
			slog.Warn("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	}
}

// timedWriter sets X-Process-Time before the first byte is written
type timedWriter struct {
	gin.ResponseWriter
	start   time.Time
	stamped bool
}

func (w *timedWriter) stamp() {
	if w.stamped {
		return
	}
	w.stamped = true
	w.Header().Set(processTimeHeader, fmt.Sprintf("%.4f", time.Since(w.start).Seconds()))
}

func (w *timedWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timedWriter) Write(data []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(data)
}

func (w *timedWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

// SecurityHeaders sets the usual hardening headers
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RateLimit rejects clients over their quota with 429 and a Retry-After header
func RateLimit(limiter *worker.Limiter, exempt []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(exempt, c.Request.URL.Path) || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		allowed, wait := limiter.Allow(clientID(c))
		if allowed {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(wait.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"retry_after": retryAfter,
		})
	}
}

// clientID identifies the caller by the first X-Forwarded-For hop, then the
// remote address. Client-supplied identity headers are not trusted.
func clientID(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return "ip:" + first
		}
	}
	return "ip:" + c.RemoteIP()
}
