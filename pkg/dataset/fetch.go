// Package dataset downloads airport GeoJSON from remote sources.
//
// Requests are rate limited and retried with exponential backoff. HTTP 429
// and 5xx responses are retried; other failures are returned immediately.
package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/flightarcs/pkg/airports"
	"github.com/unklstewy/flightarcs/pkg/logger"
)

const (
	// DefaultTimeout for dataset requests
	DefaultTimeout = 30 * time.Second

	// MaxBodyBytes caps the size of a downloaded dataset
	MaxBodyBytes = 256 << 20
)

// StatusError is returned for non-200 responses.
type StatusError struct {
	URL        string
	StatusCode int
	RetryAfter time.Duration
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %v)", e.RetryAfter)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Temporary reports whether the request is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config contains configuration for the Fetcher.
type Config struct {
	RequestsPerSecond float64
	Timeout           time.Duration
	Retry             RetryConfig
	UserAgent         string
	Logger            logger.Logger
}

// Fetcher downloads GeoJSON documents.
type Fetcher struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	retry       RetryConfig
	userAgent   string
	log         logger.Logger
}

// NewFetcher creates a Fetcher. A zero RequestsPerSecond disables rate limiting.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "flightarcs/1.0"
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Fetcher{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(limit, 1),
		retry:       cfg.Retry,
		userAgent:   cfg.UserAgent,
		log:         cfg.Logger,
	}
}

// Fetch downloads url and returns the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	attempt := 0
	return RetryWithBackoff(ctx, f.retry, func() ([]byte, error) {
		attempt++
		data, err := f.fetchOnce(ctx, url)
		if err != nil {
			f.log.Warn("Dataset fetch failed", "url", url, "attempt", attempt, "error", err)
		}
		return data, err
	})
}

// FetchCatalog downloads url and parses it as an airport FeatureCollection.
func (f *Fetcher) FetchCatalog(ctx context.Context, url string) (*airports.Catalog, error) {
	data, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	catalog, err := airports.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	f.log.Info("Dataset downloaded", "url", url, "bytes", len(data), "airports", catalog.Len())
	return catalog, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	if err := f.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			URL:        url,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Body:       string(snippet),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// parseRetryAfter extracts the Retry-After header value.
// Supports both delay-seconds and HTTP-date formats; returns 0 if absent.
func parseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(retryTime); d > 0 {
			return d
		}
	}

	return 0
}
