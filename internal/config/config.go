package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// The marker and subtree defaults come from the GFL fastdl host layout this
// tool was originally written against; all of them can be overridden per
// host via the .fastdl config file.
const (
	// DefaultTimeout is the per-request timeout for listing fetches and
	// HEAD probes. Downloads use DefaultDownloadTimeout instead because
	// map archives can be hundreds of megabytes on a slow host.
	DefaultTimeout = 60 * time.Second

	// DefaultDownloadTimeout bounds a single download attempt. Zero means
	// no timeout at all, which tolerates arbitrarily slow hosts at the cost
	// of an unbounded worst case. The default keeps one attempt finite and
	// lets the retry loop take over.
	DefaultDownloadTimeout = 30 * time.Minute

	// DefaultConcurrency is the worker-pool size for crawl waves,
	// downloads, and decodes. Fastdl hosts are typically a single nginx
	// box; more than a handful of parallel requests buys nothing.
	DefaultConcurrency = 8

	// DefaultRetryAttempts is the maximum number of fetch attempts per
	// download. Zero means retry forever, the original "never abandon a
	// file" behavior for long unattended mirror jobs.
	DefaultRetryAttempts = 10

	// DefaultRetryInterval is the initial backoff between download retries.
	// The interval doubles per attempt up to DefaultRetryMaxInterval.
	DefaultRetryInterval = 2 * time.Second

	// DefaultRetryMaxInterval caps the exponential backoff.
	DefaultRetryMaxInterval = 60 * time.Second

	// DefaultUserAgent identifies the tool in host access logs.
	DefaultUserAgent = "fastdl-mirror/1.0"

	// DefaultIndexMarker names the listing index page that must never be
	// treated as content or recursed into.
	DefaultIndexMarker = "index.html"

	// DefaultMirrorSubtree is the path marker of the secondary mirrored
	// subtree: files under it are downloads, directories under it are
	// never recursed (they duplicate the ordinary tree and can cycle).
	DefaultMirrorSubtree = "gflfastdlv2"

	// DefaultSidecarSuffix is the compressed sidecar extension fastdl
	// hosts serve map archives under.
	DefaultSidecarSuffix = ".bz2"

	// AppName is the application name used for XDG directory paths.
	AppName = "fastdl"
)

// DefaultTempMarkers are path markers of in-progress upload artifacts that
// must be skipped: Source servers write .tmp/.ztmp files while compressing.
func DefaultTempMarkers() []string {
	return []string{".tmp", ".ztmp"}
}

// DefaultContentPrefixes are filename prefixes identifying downloadable
// content in the ordinary (non-mirror) tree. "ze_" matches zombie-escape
// map names, the content this tool was built to mirror.
func DefaultContentPrefixes() []string {
	return []string{"ze_"}
}

// Config holds all configuration for a mirror run. It is populated from CLI
// flags and the optional .fastdl config file, then passed through the
// application by value reference rather than global state.
type Config struct {
	// RootURLs are the directory-listing pages to mirror, processed in
	// sequence. Each must be an absolute http(s) URL.
	RootURLs []string

	// OutputDir is the local root the remote path hierarchy is mirrored
	// under. Defaults to the process working directory.
	OutputDir string

	// Timeout is the per-request timeout for listing fetches and probes.
	Timeout time.Duration

	// DownloadTimeout bounds a single download attempt. Zero disables the
	// timeout entirely.
	DownloadTimeout time.Duration

	// Concurrency is the bounded worker-pool size used by the crawler
	// (per wave), the downloader, and the decompressor.
	Concurrency int

	// RetryAttempts is the maximum number of download attempts per URL.
	// Zero retries forever.
	RetryAttempts int

	// RetryInterval is the initial delay between download retries.
	RetryInterval time.Duration

	// RetryMaxInterval caps the exponential backoff between retries.
	RetryMaxInterval time.Duration

	// SkipPageErrors makes the crawler record and skip listing pages that
	// fail to fetch or parse instead of aborting the whole crawl.
	SkipPageErrors bool

	// NoDecode skips the decompression stage after downloading.
	NoDecode bool

	// IndexMarker is the listing index filename marker to exclude.
	IndexMarker string

	// TempMarkers are temporary-file markers to exclude.
	TempMarkers []string

	// MirrorSubtree is the mirrored-subtree path marker.
	MirrorSubtree string

	// ContentPrefixes are ordinary-tree filename prefixes that classify a
	// leaf as downloadable content.
	ContentPrefixes []string

	// SidecarSuffix is the compressed sidecar extension to decode.
	SidecarSuffix string

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// Verbose enables debug-level log output.
	Verbose bool

	// JSONReport selects JSON report output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output. Mutually exclusive
	// with JSONReport.
	MarkdownReport bool

	// ReportFile is the report output path. Empty writes to stdout.
	ReportFile string

	// ConfigFilePath is the explicit .fastdl config file path, if any.
	ConfigFilePath string

	// HostConfigs holds per-host overrides loaded from the config file.
	HostConfigs *File

	// DBDir is the directory holding the run-history SQLite database.
	// Empty disables history recording.
	DBDir string
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero values
// because most defaults are non-zero, and the constructor doubles as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:          DefaultTimeout,
		DownloadTimeout:  DefaultDownloadTimeout,
		Concurrency:      DefaultConcurrency,
		RetryAttempts:    DefaultRetryAttempts,
		RetryInterval:    DefaultRetryInterval,
		RetryMaxInterval: DefaultRetryMaxInterval,
		IndexMarker:      DefaultIndexMarker,
		TempMarkers:      DefaultTempMarkers(),
		MirrorSubtree:    DefaultMirrorSubtree,
		ContentPrefixes:  DefaultContentPrefixes(),
		SidecarSuffix:    DefaultSidecarSuffix,
		UserAgent:        DefaultUserAgent,
	}
}

// XDGDataDir returns the XDG data directory for fastdl.
// On Linux: ~/.local/share/fastdl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for fastdl.
// On Linux: ~/.config/fastdl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// It is called once after flag parsing, before any network activity.
func (c *Config) Validate() error {
	if len(c.RootURLs) == 0 {
		return ErrNoRootURL
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.DownloadTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RetryAttempts < 0 {
		return ErrInvalidRetryAttempts
	}
	if c.RetryInterval <= 0 || c.RetryMaxInterval < c.RetryInterval {
		return ErrInvalidRetryInterval
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.SidecarSuffix == "" {
		return ErrInvalidSidecarSuffix
	}
	return nil
}

// ForHost returns a copy of the config with per-host overrides from the
// .fastdl config file applied for the given host.
func (c *Config) ForHost(host string) *Config {
	out := *c
	if c.HostConfigs == nil {
		return &out
	}
	hc := c.HostConfigs.GetHostConfig(host)
	if hc.MirrorSubtree != "" {
		out.MirrorSubtree = hc.MirrorSubtree
	}
	if len(hc.ContentPrefixes) > 0 {
		out.ContentPrefixes = hc.ContentPrefixes
	}
	if hc.IndexMarker != "" {
		out.IndexMarker = hc.IndexMarker
	}
	if len(hc.TempMarkers) > 0 {
		out.TempMarkers = hc.TempMarkers
	}
	if hc.SidecarSuffix != "" {
		out.SidecarSuffix = hc.SidecarSuffix
	}
	return &out
}
