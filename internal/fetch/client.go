package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"
)

// maxListingBodySize limits how much of a listing page we read. Directory
// indexes are small; anything past this is not a listing we want to parse.
const maxListingBodySize = 10 * 1024 * 1024 // 10MB

// Options configures the HTTP client.
type Options struct {
	// Timeout applies to listing fetches and HEAD probes.
	// Default: 60s
	Timeout time.Duration

	// DownloadTimeout bounds a single download attempt. Zero means no
	// timeout, tolerating arbitrarily slow hosts.
	// Default: 0
	DownloadTimeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// MaxIdleConnsPerHost sets idle connection reuse per host. The whole
	// crawl talks to one host, so this should track the worker-pool size.
	// Default: 16
	MaxIdleConnsPerHost int
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:             60 * time.Second,
		UserAgent:           "fastdl-mirror/1.0",
		MaxIdleConnsPerHost: 16,
	}
}

// Client wraps http.Client for the three request shapes the mirror needs:
// fetching a listing page, probing a link's canonical location, and
// streaming a file body.
//
// Design decision: Request timeouts live on per-request contexts rather
// than http.Client.Timeout because listing fetches and downloads need
// different bounds while sharing one transport's connection pool.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a Client with the given options.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = DefaultOptions().MaxIdleConnsPerHost
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{Transport: transport},
		opts:   opts,
	}
}

// GetListing fetches a directory-listing page and returns its body.
func (c *Client) GetListing(ctx context.Context, pageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if err := checkStatusCode(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w (status %d)", pageURL, err, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBodySize))
	if err != nil {
		return nil, fmt.Errorf("read listing %s: %w", pageURL, err)
	}
	return body, nil
}

// Probe issues a HEAD request and returns the final URL after redirects.
// This canonicalizes ambiguous relative references before classification
// without transferring any body.
func (c *Client) Probe(ctx context.Context, linkURL string) (*url.URL, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, linkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", linkURL, err)
	}
	resp.Body.Close()

	if err := checkStatusCode(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("probe %s: %w (status %d)", linkURL, err, resp.StatusCode)
	}

	return resp.Request.URL, nil
}

// Get performs a single download attempt and returns the response body for
// streaming. The caller owns the retry loop and must close the body.
func (c *Client) Get(ctx context.Context, fileURL string) (io.ReadCloser, context.CancelFunc, error) {
	cancel := context.CancelFunc(func() {})
	if c.opts.DownloadTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.opts.DownloadTimeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("get %s: %w", fileURL, err)
	}

	if err := checkStatusCode(resp.StatusCode); err != nil {
		resp.Body.Close()
		cancel()
		return nil, nil, fmt.Errorf("get %s: %w (status %d)", fileURL, err, resp.StatusCode)
	}

	return resp.Body, cancel, nil
}

// Backoff waits for an exponentially increasing interval with jitter before
// the next retry attempt (attempt counts from 1). It returns early with the
// context's error if the context is cancelled while waiting.
func Backoff(ctx context.Context, attempt int, initial, max time.Duration) error {
	backoff := initial * time.Duration(1<<uint(attempt-1))
	if backoff > max || backoff <= 0 {
		backoff = max
	}

	// Jitter: 0.5 to 1.5 of the computed interval.
	jitter := time.Duration(float64(backoff) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}
