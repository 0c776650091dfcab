// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-scout/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "paper-scout/0.1"
)

// maxBodyBytes bounds the size of a page. A larger body is a fetch failure,
// never a truncated parse. Tests lower it.
var maxBodyBytes int64 = 8 << 20

// FetchError reports a failed page fetch: a transport error or a non-200
// response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher issues paced GET requests for listing and detail pages.
// It is safe for concurrent use.
type Fetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	userAgent  string
	maxRetries int
}

// NewFetcher builds a Fetcher from the crawl configuration. A zero timeout
// falls back to 30s so no request is unbounded.
func NewFetcher(cfg types.CrawlConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewFetcherWithClient(&http.Client{Timeout: timeout}, cfg)
}

// NewFetcherWithClient is NewFetcher with a caller-supplied client. Tests use
// it with httptest clients.
func NewFetcherWithClient(client *http.Client, cfg types.CrawlConfig) *Fetcher {
	if client.Timeout <= 0 {
		client.Timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Fetcher{
		client:     client,
		limiter:    limiter,
		userAgent:  ua,
		maxRetries: cfg.MaxRetries,
	}
}

// Fetch GETs url and returns the response body. Any outcome other than a
// 200 response with a readable body is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := DoWithRetry(ctx, f.client, req, f.maxRetries)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("reading body: %w", err)}
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("body exceeds %d bytes", maxBodyBytes)}
	}
	return body, nil
}
