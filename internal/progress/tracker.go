package progress

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Tracker collects machine-readable per-stage counters for one mirror run.
// Engines increment it from their workers; presentation layers read
// snapshots. All counters are atomic, so the tracker adds no lock
// contention to the hot paths.
type Tracker struct {
	pagesVisited    atomic.Int64
	linksFound      atomic.Int64
	downloaded      atomic.Int64
	downloadFailed  atomic.Int64
	downloadedBytes atomic.Int64
	decoded         atomic.Int64
	corrupt         atomic.Int64
}

// Snapshot is a point-in-time copy of the tracker's counters.
type Snapshot struct {
	// PagesVisited counts listing pages explored by the crawl.
	PagesVisited int64

	// LinksFound counts URLs classified as downloadable.
	LinksFound int64

	// Downloaded counts files fetched and written successfully.
	Downloaded int64

	// DownloadFailed counts URLs that exhausted their retry budget.
	DownloadFailed int64

	// DownloadedBytes is the total size written by the download stage.
	DownloadedBytes int64

	// Decoded counts sidecar files decoded successfully.
	Decoded int64

	// Corrupt counts sidecar files that failed decode or output write.
	Corrupt int64
}

// NewTracker creates a Tracker with all counters at zero.
func NewTracker() *Tracker {
	return &Tracker{}
}

// PageVisited records one explored listing page.
func (t *Tracker) PageVisited() { t.pagesVisited.Add(1) }

// LinkFound records one discovered download link.
func (t *Tracker) LinkFound() { t.linksFound.Add(1) }

// DownloadCompleted records one successful download of the given size.
func (t *Tracker) DownloadCompleted(bytes int64) {
	t.downloaded.Add(1)
	t.downloadedBytes.Add(bytes)
}

// DownloadFailed records one download that exhausted its retries.
func (t *Tracker) DownloadFailed() { t.downloadFailed.Add(1) }

// DecodeCompleted records one successful sidecar decode.
func (t *Tracker) DecodeCompleted() { t.decoded.Add(1) }

// DecodeCorrupt records one corrupt sidecar file.
func (t *Tracker) DecodeCorrupt() { t.corrupt.Add(1) }

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		PagesVisited:    t.pagesVisited.Load(),
		LinksFound:      t.linksFound.Load(),
		Downloaded:      t.downloaded.Load(),
		DownloadFailed:  t.downloadFailed.Load(),
		DownloadedBytes: t.downloadedBytes.Load(),
		Decoded:         t.decoded.Load(),
		Corrupt:         t.corrupt.Load(),
	}
}

// LogPeriodically emits the tracker's snapshot to the logger at the given
// interval until the context is cancelled. Intended to be run in its own
// goroutine by the caller; it never blocks engine workers.
func (t *Tracker) LogPeriodically(ctx context.Context, logger *slog.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := t.Snapshot()
			logger.Info("mirror progress",
				"pagesVisited", s.PagesVisited,
				"linksFound", s.LinksFound,
				"downloaded", s.Downloaded,
				"downloadFailed", s.DownloadFailed,
				"downloadedBytes", s.DownloadedBytes,
				"decoded", s.Decoded,
				"corrupt", s.Corrupt,
			)
		}
	}
}
