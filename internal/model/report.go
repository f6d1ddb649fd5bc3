package model

import (
	"sort"
	"sync"
	"time"
)

// MirrorReport aggregates the outcome of one mirror run for a single root URL.
// It is passed through the pipeline and mutated by each stage: the crawl
// stage fills DownloadLinks, the download stage fills download counters, and
// the decode stage fills decode counters and CorruptFiles.
//
// Design decision: We use one accumulating report per root rather than a
// return value per stage because:
//  1. Stages are sequenced by the pipeline and each builds on the previous
//  2. Partial results remain available when a later stage fails
//  3. Report writers and the history database consume a single value
type MirrorReport struct {
	// RootURL is the directory-listing page the crawl started from.
	RootURL string `json:"rootUrl"`

	// LocalRoot is the local directory the remote tree was mirrored under.
	LocalRoot string `json:"localRoot"`

	// DateStarted is when the run began.
	DateStarted time.Time `json:"dateStarted"`

	// Elapsed is the total wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`

	// PagesVisited is the number of listing pages explored by the crawl.
	PagesVisited int `json:"pagesVisited"`

	// Waves is the number of BFS waves the crawl performed.
	Waves int `json:"waves"`

	// DownloadLinks holds every URL the crawl classified as downloadable.
	DownloadLinks []string `json:"downloadLinks"`

	// Downloaded is the number of files fetched and written successfully.
	Downloaded int `json:"downloaded"`

	// FailedDownloads lists URLs that exhausted their retry budget.
	// Empty when the retry budget is unlimited.
	FailedDownloads []FailedDownload `json:"failedDownloads,omitempty"`

	// Decoded is the number of compressed sidecar files decoded successfully.
	Decoded int `json:"decoded"`

	// CorruptFiles lists local paths whose sidecar decode or decoded-output
	// write failed. The original compressed files are left in place.
	CorruptFiles []string `json:"corruptFiles,omitempty"`

	// Error holds the error that aborted the run, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// FailedDownload records a URL that could not be fetched within the
// configured retry budget, together with the last error observed.
type FailedDownload struct {
	// URL is the remote file that failed.
	URL string `json:"url"`

	// Reason is the last transport error message.
	Reason string `json:"reason"`
}

// NewMirrorReport creates a report for the given root URL.
func NewMirrorReport(rootURL string) *MirrorReport {
	return &MirrorReport{
		RootURL:     rootURL,
		DateStarted: time.Now(),
	}
}

// Complete returns true when the run finished without a fatal error.
func (r *MirrorReport) Complete() bool {
	return r.Error == nil && r.ErrorMessage == ""
}

// CorruptSet is a concurrency-safe, insert-only set of local file paths that
// failed decoding. It accumulates across roots in a multi-root run and is
// read once at the end for reporting.
//
// Design decision: The decompressor workers share one CorruptSet rather than
// returning per-file results because corruption is a run-level property: the
// set outlives individual decode passes and feeds the final report.
type CorruptSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewCorruptSet creates an empty CorruptSet.
func NewCorruptSet() *CorruptSet {
	return &CorruptSet{paths: make(map[string]struct{})}
}

// Add records a corrupt file path. Duplicate inserts are no-ops.
func (s *CorruptSet) Add(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path] = struct{}{}
}

// Contains reports whether the path has been recorded.
func (s *CorruptSet) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[path]
	return ok
}

// Len returns the number of recorded paths.
func (s *CorruptSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// Paths returns the recorded paths in sorted order.
func (s *CorruptSet) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
