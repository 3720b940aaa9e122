package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/arkitecto/internal/model"
	"github.com/ppiankov/arkitecto/internal/util"
)

var (
	// ErrDisallowedByRobots is returned when robots.txt forbids fetching the catalog URL
	ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

	// ErrCatalogTooLarge is returned when the document is larger than catalog.max_bytes
	ErrCatalogTooLarge = errors.New("catalog too large")
)

const (
	fetchMaxAttempts = 3
	defaultMaxBytes  = 5_000_000
)

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// Fetcher downloads catalog documents over HTTP
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker // nil when robots.txt is ignored
}

// NewFetcher creates a new Fetcher from the catalog configuration
func NewFetcher(cfg model.CatalogConfig) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, "")

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(util.NormalizeUserAgent(cfg.UserAgent), cfg.Timeout)
	}
	return f
}

// Fetch downloads and loads a catalog document
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Store, error) {
	body, err := f.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	store, err := Load(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", rawURL, err)
	}
	return store, nil
}

// FetchWithRetry retrieves the raw document, retrying transient failures
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowedByRobots)
		}
		if delay > 0 {
			fetchSleepFunc(delay)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		body, err := f.fetch(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == fetchMaxAttempts {
			break
		}
		backoff := time.Duration(attempt) * time.Second
		slog.Debug("catalog fetch failed, retrying", "url", rawURL, "attempt", attempt, "backoff", backoff, "error", err)
		fetchSleepFunc(backoff)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/yaml,text/yaml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	// One extra byte tells an oversized document from one at the limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: catalog exceeds %d bytes", ErrCatalogTooLarge, f.maxBytes)
	}
	return body, nil
}

// isRetryableFetchError reports whether a fetch error is worth retrying:
// 5xx, 429 and transport errors are, other statuses and local errors are not
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	if strings.HasPrefix(msg, "unexpected status: ") {
		status := strings.TrimPrefix(msg, "unexpected status: ")
		return strings.HasPrefix(status, "5") || strings.HasPrefix(status, "429")
	}
	return strings.HasPrefix(msg, "fetch: ")
}
