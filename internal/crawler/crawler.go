package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/fetch"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/progress"
)

// Crawl errors.
var (
	// ErrParseListing is returned when a listing page or a URL on it
	// cannot be parsed.
	ErrParseListing = errors.New("crawler: cannot parse listing")

	// ErrInvalidRoot is returned when the root URL is not an absolute
	// http(s) URL.
	ErrInvalidRoot = errors.New("crawler: root must be an absolute http(s) URL")
)

// Crawler explores a remote directory-listing tree with a level-synchronous
// breadth-first search and collects every downloadable URL.
//
// Concurrency model: each wave's paths are explored by a bounded worker
// pool; the wave barrier (errgroup.Wait) guarantees that all of wave N is
// merged before wave N+1 dispatches. Workers write their findings into
// per-task slots, so the orchestrating loop is the sole mutator of the
// frontier and the download set. Only the visited set is shared, guarded by
// a mutex held for single map operations. The visited check and the
// subsequent mark are two separate critical sections: two workers may race
// to explore the same path, which wastes a fetch but cannot duplicate a
// download because the orchestrator deduplicates links on merge.
type Crawler struct {
	// client performs listing fetches and HEAD probes.
	client *fetch.Client

	// classifier separates recursion targets from downloads.
	classifier Classifier

	// concurrency bounds the worker pool per wave and the nested probe
	// fan-out inside each worker.
	concurrency int

	// skipPageErrors records and skips listing pages that fail instead of
	// aborting the crawl. The root page is always fatal.
	skipPageErrors bool

	// logger receives structured crawl events.
	logger *slog.Logger

	// tracker counts visited pages and discovered links.
	tracker *progress.Tracker

	// visited tracks explored or scheduled paths, in both
	// trailing-separator spellings.
	visited map[string]struct{}

	// mutex protects visited.
	mutex sync.Mutex
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithConcurrency bounds the per-wave worker pool. Values below one fall
// back to the default.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithSkipPageErrors makes fetch or parse failures on non-root listing
// pages non-fatal: the page is recorded as skipped and the crawl continues.
func WithSkipPageErrors(skip bool) Option {
	return func(c *Crawler) {
		c.skipPageErrors = skip
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithTracker sets the progress tracker.
func WithTracker(tracker *progress.Tracker) Option {
	return func(c *Crawler) {
		c.tracker = tracker
	}
}

// New creates a Crawler using the given HTTP client and classifier.
func New(client *fetch.Client, classifier Classifier, opts ...Option) *Crawler {
	c := &Crawler{
		client:      client,
		classifier:  classifier,
		concurrency: 8,
		visited:     make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracker == nil {
		c.tracker = progress.NewTracker()
	}

	return c
}

// Result is the outcome of one crawl.
type Result struct {
	// DownloadLinks are the discovered downloadable URLs, sorted.
	DownloadLinks []string

	// PagesVisited is the number of listing pages explored.
	PagesVisited int

	// Waves is the number of BFS waves performed.
	Waves int

	// SkippedPages maps failed listing paths to their errors. Populated
	// only when page errors are configured as non-fatal.
	SkippedPages map[string]error
}

// pageResult carries one worker's findings back to the orchestrating loop.
type pageResult struct {
	path      string
	nextPaths []string
	downloads []string
	explored  bool
	err       error
}

// Crawl explores the listing tree rooted at rootURL and returns every URL
// classified as downloadable. A failure to fetch or parse the root page is
// always propagated; failures on deeper pages follow the configured policy.
func (c *Crawler) Crawl(ctx context.Context, rootURL string) (*Result, error) {
	root, err := url.Parse(rootURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if (root.Scheme != "http" && root.Scheme != "https") || root.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoot, rootURL)
	}

	rootPath := root.Path
	if rootPath == "" {
		rootPath = "/"
	}

	c.seedVisited(root)

	result := &Result{SkippedPages: make(map[string]error)}
	downloadSet := make(map[string]struct{})
	downloadOrder := make([]string, 0)
	frontier := []string{rootPath}

	for len(frontier) > 0 {
		wave := frontier
		result.Waves++

		c.logger.Debug("dispatching wave",
			"wave", result.Waves,
			"size", len(wave),
		)

		slots := make([]pageResult, len(wave))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)

		for i, p := range wave {
			g.Go(func() error {
				slots[i] = c.explorePage(gctx, root, p)
				if slots[i].err != nil && !c.skipPageErrors {
					// Fatal policy: propagate and cancel in-flight work.
					return slots[i].err
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}

		// Merge phase: the loop is the sole mutator of the frontier and
		// the download set.
		nextFrontier := make([]string, 0)
		nextSeen := make(map[string]struct{})

		for _, slot := range slots {
			if slot.err != nil {
				// The root page failing means the whole crawl has nothing
				// to stand on, even under the skip policy.
				if slot.path == rootPath {
					return nil, slot.err
				}
				result.SkippedPages[slot.path] = slot.err
				c.logger.Warn("skipping listing page",
					"path", slot.path,
					"error", slot.err,
				)
				continue
			}
			if !slot.explored {
				continue
			}

			result.PagesVisited++

			for _, p := range slot.nextPaths {
				if _, ok := nextSeen[p]; ok {
					continue
				}
				nextSeen[p] = struct{}{}
				nextFrontier = append(nextFrontier, p)
			}
			for _, link := range slot.downloads {
				if _, ok := downloadSet[link]; ok {
					continue
				}
				downloadSet[link] = struct{}{}
				downloadOrder = append(downloadOrder, link)
				c.tracker.LinkFound()
			}
		}

		frontier = nextFrontier
	}

	sort.Strings(downloadOrder)
	result.DownloadLinks = downloadOrder

	c.logger.Info("crawl complete",
		"root", rootURL,
		"pagesVisited", result.PagesVisited,
		"waves", result.Waves,
		"downloadLinks", len(result.DownloadLinks),
	)

	return result, nil
}

// seedVisited populates the visited set with the synthetic root "/" and the
// crawl root's parent directory in both trailing-separator spellings, so
// the usual "parent directory" listing link never re-enters the tree above
// the root.
func (c *Crawler) seedVisited(root *url.URL) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.visited["/"] = struct{}{}

	parentRef, err := root.Parse("..")
	if err != nil {
		return
	}
	parent := parentRef.Path
	c.visited[parent] = struct{}{}
	c.visited[strings.TrimSuffix(parent, "/")] = struct{}{}
}

// isVisited checks membership of a path in the visited set.
func (c *Crawler) isVisited(p string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.visited[p]
	return ok
}

// markVisited records a path and its trailing-separator alias.
func (c *Crawler) markVisited(p string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.visited[p] = struct{}{}
	if strings.HasSuffix(p, "/") {
		c.visited[strings.TrimSuffix(p, "/")] = struct{}{}
	} else {
		c.visited[p+"/"] = struct{}{}
	}
}

// VisitedPaths returns a sorted snapshot of the visited set.
func (c *Crawler) VisitedPaths() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make([]string, 0, len(c.visited))
	for p := range c.visited {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// explorePage explores a single listing path: fetch, parse, resolve and
// probe each anchor, filter, classify. Findings go into the returned
// pageResult; the caller merges them after the wave barrier.
func (c *Crawler) explorePage(ctx context.Context, root *url.URL, p string) pageResult {
	res := pageResult{path: p}

	// Duplicate dispatch across waves is a no-op. The check and the mark
	// are separate critical sections on purpose: a lost race costs one
	// redundant fetch, which the merge-side dedup absorbs.
	if c.isVisited(p) {
		return res
	}
	c.markVisited(p)

	pageURL := &url.URL{Scheme: root.Scheme, Host: root.Host, Path: p}

	body, err := c.client.GetListing(ctx, pageURL.String())
	if err != nil {
		res.err = err
		return res
	}

	listing, err := ParseListing(bytes.NewReader(body))
	if err != nil {
		res.err = fmt.Errorf("%w: %s: %v", ErrParseListing, pageURL, err)
		return res
	}

	base, err := ResolveBase(pageURL, listing.BaseHref)
	if err != nil {
		res.err = err
		return res
	}

	canonical := c.probeAnchors(ctx, pageURL, base, listing.Anchors)

	for _, canon := range canonical {
		if canon == nil {
			continue
		}
		canonPath := canon.Path
		if canonPath == "" {
			canonPath = "/"
		}

		if c.isVisited(canonPath) || c.classifier.Excluded(canonPath) {
			continue
		}

		switch c.classifier.Classify(canonPath) {
		case ActionRecurse:
			res.nextPaths = append(res.nextPaths, canonPath)
		case ActionDownload:
			link := &url.URL{Scheme: canon.Scheme, Host: canon.Host, Path: canonPath}
			res.downloads = append(res.downloads, link.String())
		case ActionSkip:
			// Nothing to do.
		}
	}

	res.explored = true
	c.tracker.PageVisited()

	c.logger.Debug("explored listing page",
		"path", p,
		"anchors", len(listing.Anchors),
		"next", len(res.nextPaths),
		"downloads", len(res.downloads),
	)

	return res
}

// probeAnchors resolves each anchor against the page base and issues a HEAD
// probe per link to obtain its canonical scheme+host+path form. Probes are
// their own bounded fan-out nested inside the page worker. A failed probe
// falls back to the resolved URL itself: losing the redirect resolution for
// one link is better than losing the link.
func (c *Crawler) probeAnchors(ctx context.Context, pageURL, base *url.URL, anchors []string) []*url.URL {
	canonical := make([]*url.URL, len(anchors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, href := range anchors {
		g.Go(func() error {
			ref, err := url.Parse(href)
			if err != nil {
				c.logger.Debug("dropping unparsable href",
					"page", pageURL.Path,
					"href", href,
				)
				return nil
			}

			resolved := base.ResolveReference(ref)
			if resolved.Scheme != "http" && resolved.Scheme != "https" {
				return nil
			}
			resolved.Fragment = ""
			resolved.RawQuery = ""

			canon, err := c.client.Probe(gctx, resolved.String())
			if err != nil {
				c.logger.Debug("probe failed, using resolved URL",
					"url", resolved.String(),
					"error", err,
				)
				canon = resolved
			}
			canonical[i] = canon
			return nil
		})
	}

	// Workers never return errors, so Wait only reflects ctx cancellation;
	// a cancelled probe simply leaves its slot nil.
	_ = g.Wait() //nolint:errcheck

	return canonical
}
