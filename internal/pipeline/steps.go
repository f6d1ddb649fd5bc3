package pipeline

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/config"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/crawler"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/decompress"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/download"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/fetch"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/model"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/progress"
)

// hostConfig resolves the per-host configuration for a report's root URL.
// An unparsable root falls back to the base configuration; the crawl stage
// rejects it properly afterwards.
func hostConfig(cfg *config.Config, rootURL string) *config.Config {
	u, err := url.Parse(rootURL)
	if err != nil {
		return cfg
	}
	return cfg.ForHost(u.Host)
}

// CrawlStep discovers every downloadable URL under the report's root via
// the wave-synchronized breadth-first crawl.
type CrawlStep struct {
	cfg     *config.Config
	client  *fetch.Client
	logger  *slog.Logger
	tracker *progress.Tracker
}

// NewCrawlStep creates the crawl stage.
func NewCrawlStep(cfg *config.Config, client *fetch.Client, logger *slog.Logger, tracker *progress.Tracker) *CrawlStep {
	return &CrawlStep{cfg: cfg, client: client, logger: logger, tracker: tracker}
}

// Name returns the stage name for logging.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do runs the crawl and records the discovered links in the report.
func (s *CrawlStep) Do(ctx context.Context, report *model.MirrorReport) error {
	cfg := hostConfig(s.cfg, report.RootURL)

	classifier := crawler.Classifier{
		IndexMarker:     cfg.IndexMarker,
		TempMarkers:     cfg.TempMarkers,
		MirrorSubtree:   cfg.MirrorSubtree,
		ContentPrefixes: cfg.ContentPrefixes,
	}

	c := crawler.New(s.client, classifier,
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithSkipPageErrors(cfg.SkipPageErrors),
		crawler.WithLogger(s.logger),
		crawler.WithTracker(s.tracker),
	)

	result, err := c.Crawl(ctx, report.RootURL)
	if err != nil {
		return err
	}

	report.LocalRoot = cfg.OutputDir
	report.DownloadLinks = result.DownloadLinks
	report.PagesVisited = result.PagesVisited
	report.Waves = result.Waves
	return nil
}

// DownloadStep mirrors the report's discovered links into the local tree.
type DownloadStep struct {
	cfg     *config.Config
	client  *fetch.Client
	logger  *slog.Logger
	tracker *progress.Tracker
}

// NewDownloadStep creates the download stage.
func NewDownloadStep(cfg *config.Config, client *fetch.Client, logger *slog.Logger, tracker *progress.Tracker) *DownloadStep {
	return &DownloadStep{cfg: cfg, client: client, logger: logger, tracker: tracker}
}

// Name returns the stage name for logging.
func (s *DownloadStep) Name() string {
	return "download"
}

// Do downloads every link in the report and records successes and failures.
func (s *DownloadStep) Do(ctx context.Context, report *model.MirrorReport) error {
	if len(report.DownloadLinks) == 0 {
		s.logger.Info("no download links discovered", "root", report.RootURL)
		return nil
	}

	d := download.New(s.client, s.cfg.OutputDir,
		download.WithConcurrency(s.cfg.Concurrency),
		download.WithMaxAttempts(s.cfg.RetryAttempts),
		download.WithRetryInterval(s.cfg.RetryInterval, s.cfg.RetryMaxInterval),
		download.WithLogger(s.logger),
		download.WithTracker(s.tracker),
	)

	result, err := d.DownloadAll(ctx, report.DownloadLinks)
	if err != nil {
		return err
	}

	report.Downloaded = result.Downloaded
	for _, f := range result.Failures {
		report.FailedDownloads = append(report.FailedDownloads, model.FailedDownload{
			URL:    f.URL,
			Reason: f.Err.Error(),
		})
	}
	return nil
}

// DecodeStep decodes the compressed sidecar files the download stage wrote.
type DecodeStep struct {
	cfg     *config.Config
	corrupt *model.CorruptSet
	logger  *slog.Logger
	tracker *progress.Tracker
}

// NewDecodeStep creates the decode stage. The corrupt set is shared across
// roots so a multi-root run reports corruption once, at the end.
func NewDecodeStep(cfg *config.Config, corrupt *model.CorruptSet, logger *slog.Logger, tracker *progress.Tracker) *DecodeStep {
	return &DecodeStep{cfg: cfg, corrupt: corrupt, logger: logger, tracker: tracker}
}

// Name returns the stage name for logging.
func (s *DecodeStep) Name() string {
	return "decode"
}

// Do decodes every sidecar file under the report's local root.
func (s *DecodeStep) Do(ctx context.Context, report *model.MirrorReport) error {
	if s.cfg.NoDecode {
		s.logger.Info("decode stage disabled", "root", report.RootURL)
		return nil
	}

	cfg := hostConfig(s.cfg, report.RootURL)

	d := decompress.New(cfg.SidecarSuffix,
		decompress.WithConcurrency(cfg.Concurrency),
		decompress.WithLogger(s.logger),
		decompress.WithTracker(s.tracker),
	)

	result, err := d.DecodeTree(ctx, cfg.OutputDir, s.corrupt)
	if err != nil {
		return err
	}

	report.Decoded = result.Decoded
	report.CorruptFiles = result.Corrupt
	return nil
}

// DefaultPipeline assembles the standard crawl, download, decode sequence
// for one root URL. The fetch client is shared across stages so both reuse
// one connection pool against the mirror host.
func DefaultPipeline(cfg *config.Config, corrupt *model.CorruptSet, logger *slog.Logger, tracker *progress.Tracker) *Pipeline {
	client := fetch.NewClient(fetch.Options{
		Timeout:             cfg.Timeout,
		DownloadTimeout:     cfg.DownloadTimeout,
		UserAgent:           cfg.UserAgent,
		MaxIdleConnsPerHost: cfg.Concurrency * 2,
	})

	p := New(WithLogger(logger))
	p.AddSteps(
		NewCrawlStep(cfg, client, logger, tracker),
		NewDownloadStep(cfg, client, logger, tracker),
		NewDecodeStep(cfg, corrupt, logger, tracker),
	)
	return p
}
