package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/fetch"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/progress"
)

// ErrAttemptsExhausted is returned (wrapped, per URL) when a download used
// up its whole retry budget without a successful fetch.
var ErrAttemptsExhausted = errors.New("download: retry attempts exhausted")

// Downloader mirrors a set of remote URLs into a local directory tree. The
// local path of each file is the URL path relative to the host, rooted at
// the configured output directory, so the mirror reproduces the remote
// hierarchy exactly.
//
// Retries: each URL is retried with exponential backoff and jitter up to
// MaxAttempts times; zero means forever, the mode long unattended mirror
// jobs want. Permanent errors (404, 403) stop the retry loop immediately.
type Downloader struct {
	// client performs the fetches.
	client *fetch.Client

	// root is the local directory the remote hierarchy is mirrored under.
	root string

	// concurrency bounds the worker pool.
	concurrency int

	// maxAttempts is the per-URL retry budget; zero retries forever.
	maxAttempts int

	// retryInterval is the initial backoff between attempts.
	retryInterval time.Duration

	// retryMaxInterval caps the backoff.
	retryMaxInterval time.Duration

	// logger receives structured download events.
	logger *slog.Logger

	// tracker counts completed and failed downloads.
	tracker *progress.Tracker
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithConcurrency bounds the worker pool. Values below one keep the default.
func WithConcurrency(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithMaxAttempts sets the per-URL retry budget. Zero retries forever.
func WithMaxAttempts(n int) Option {
	return func(d *Downloader) {
		if n >= 0 {
			d.maxAttempts = n
		}
	}
}

// WithRetryInterval sets the initial and maximum backoff between attempts.
func WithRetryInterval(initial, max time.Duration) Option {
	return func(d *Downloader) {
		if initial > 0 {
			d.retryInterval = initial
		}
		if max >= d.retryInterval {
			d.retryMaxInterval = max
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// WithTracker sets the progress tracker.
func WithTracker(tracker *progress.Tracker) Option {
	return func(d *Downloader) {
		d.tracker = tracker
	}
}

// New creates a Downloader writing under root using the given HTTP client.
func New(client *fetch.Client, root string, opts ...Option) *Downloader {
	d := &Downloader{
		client:           client,
		root:             root,
		concurrency:      8,
		maxAttempts:      10,
		retryInterval:    2 * time.Second,
		retryMaxInterval: 60 * time.Second,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.tracker == nil {
		d.tracker = progress.NewTracker()
	}

	return d
}

// Failure records a URL that exhausted its retry budget.
type Failure struct {
	// URL is the remote file that failed.
	URL string

	// Err is the last error observed.
	Err error
}

// Result summarizes a download batch.
type Result struct {
	// Downloaded is the number of files fetched and written successfully.
	Downloaded int

	// Failures lists URLs that exhausted their retry budget, sorted by URL.
	Failures []Failure
}

// DownloadAll fetches every URL in parallel on a bounded pool, mirroring
// remote paths under the local root. Individual failures never abort the
// batch; they are collected and reported. The only error returned is
// context cancellation.
func (d *Downloader) DownloadAll(ctx context.Context, urls []string) (*Result, error) {
	result := &Result{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, rawURL := range urls {
		g.Go(func() error {
			err := d.downloadOne(gctx, rawURL)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				result.Failures = append(result.Failures, Failure{URL: rawURL, Err: err})
				d.tracker.DownloadFailed()
				d.logger.Warn("download failed",
					"url", rawURL,
					"error", err,
				)
				return nil
			}
			result.Downloaded++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].URL < result.Failures[j].URL
	})

	d.logger.Info("download batch complete",
		"total", len(urls),
		"downloaded", result.Downloaded,
		"failed", len(result.Failures),
	)

	return result, nil
}

// LocalPath computes the (directory, filename) pair a URL mirrors to:
// the URL path split at its final segment, the directory portion prefixed
// with the local root.
func (d *Downloader) LocalPath(rawURL string) (dir, file string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	p := u.Path
	file = path.Base(p)
	if file == "/" || file == "." || file == "" {
		return "", "", fmt.Errorf("url %q has no file segment", rawURL)
	}

	remoteDir := strings.TrimPrefix(path.Dir(p), "/")
	dir = filepath.Join(d.root, filepath.FromSlash(remoteDir))
	return dir, file, nil
}

// downloadOne mirrors a single URL: create the directory, then fetch with
// retry and write the body verbatim, overwriting any existing file.
func (d *Downloader) downloadOne(ctx context.Context, rawURL string) error {
	dir, file, err := d.LocalPath(rawURL)
	if err != nil {
		return err
	}

	// MkdirAll is idempotent: concurrent creation of a shared directory by
	// sibling URLs must not fail the batch.
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	dest := filepath.Join(dir, file)

	var lastErr error
	for attempt := 1; d.maxAttempts == 0 || attempt <= d.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := fetch.Backoff(ctx, attempt-1, d.retryInterval, d.retryMaxInterval); err != nil {
				return err
			}
			d.logger.Debug("retrying download",
				"url", rawURL,
				"attempt", attempt,
			)
		}

		n, err := d.fetchToFile(ctx, rawURL, dest)
		if err == nil {
			d.tracker.DownloadCompleted(n)
			d.logger.Debug("downloaded file",
				"url", rawURL,
				"dest", dest,
				"bytes", n,
			)
			return nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !fetch.Retryable(err) {
			return err
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, d.maxAttempts, lastErr)
}

// fetchToFile streams one fetch attempt into dest and returns the byte
// count. A short or failed write leaves a truncated file behind, which the
// next attempt overwrites from scratch.
func (d *Downloader) fetchToFile(ctx context.Context, rawURL, dest string) (int64, error) {
	body, cancel, err := d.client.Get(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer cancel()
	defer body.Close()

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640) //nolint:gosec // Mirrored path is derived from the configured root
	if err != nil {
		return 0, fmt.Errorf("create file %s: %w", dest, err)
	}

	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write file %s: %w", dest, err)
	}
	return n, nil
}
