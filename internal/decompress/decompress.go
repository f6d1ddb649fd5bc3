package decompress

import (
	"bytes"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/model"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/progress"
)

// ErrCorruptArchive is returned (wrapped, per file) when a compressed file
// fails to decode.
var ErrCorruptArchive = errors.New("decompress: corrupt archive")

// Decompressor walks a local directory tree, decodes every file carrying
// the configured sidecar suffix, and removes the compressed original once
// its decoded sibling is safely on disk.
//
// Corruption is not fatal to the batch: a file that fails to decode is
// recorded in the shared corrupt set and left untouched on disk so it can
// be inspected or re-fetched, and no partial output file survives.
type Decompressor struct {
	// suffix is the compressed sidecar suffix, usually ".bz2".
	suffix string

	// concurrency bounds the worker pool.
	concurrency int

	// logger receives structured decode events.
	logger *slog.Logger

	// tracker counts decoded and corrupt files.
	tracker *progress.Tracker

	// removeOriginal deletes the compressed file after a successful
	// decode. Swapped in tests to exercise removal failures.
	removeOriginal func(string) error
}

// Option configures a Decompressor.
type Option func(*Decompressor)

// WithConcurrency bounds the worker pool. Values below one keep the default.
func WithConcurrency(n int) Option {
	return func(d *Decompressor) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decompressor) {
		d.logger = logger
	}
}

// WithTracker sets the progress tracker.
func WithTracker(tracker *progress.Tracker) Option {
	return func(d *Decompressor) {
		d.tracker = tracker
	}
}

// New creates a Decompressor for files carrying the given sidecar suffix.
func New(suffix string, opts ...Option) *Decompressor {
	d := &Decompressor{
		suffix:         suffix,
		concurrency:    8,
		removeOriginal: os.Remove,
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

// Result summarizes one decode batch.
type Result struct {
	// Found is the number of compressed files discovered.
	Found int

	// Decoded is the number successfully decoded and replaced.
	Decoded int

	// Corrupt lists files that failed to decode, sorted.
	Corrupt []string
}

// Scan walks root and returns every regular file carrying the sidecar
// suffix, sorted. A file already recorded as corrupt by an earlier batch is
// not offered again.
func (d *Decompressor) Scan(root string, corrupt *model.CorruptSet) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), d.suffix) {
			return nil
		}
		if corrupt != nil && corrupt.Contains(p) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// DecodeTree scans root for compressed files and decodes them in parallel
// on a bounded pool. Corrupt files are recorded in corrupt and preserved on
// disk. The only error returned besides a scan failure is context
// cancellation.
func (d *Decompressor) DecodeTree(ctx context.Context, root string, corrupt *model.CorruptSet) (*Result, error) {
	files, err := d.Scan(root, corrupt)
	if err != nil {
		return nil, err
	}

	result := &Result{Found: len(files)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, p := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			err := d.decodeFile(p)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if corrupt != nil {
					corrupt.Add(p)
				}
				result.Corrupt = append(result.Corrupt, p)
				d.tracker.DecodeCorrupt()
				d.logger.Warn("corrupt archive preserved",
					"path", p,
					"error", err,
				)
				return nil
			}
			result.Decoded++
			d.tracker.DecodeCompleted()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	sort.Strings(result.Corrupt)

	d.logger.Info("decode batch complete",
		"root", root,
		"found", result.Found,
		"decoded", result.Decoded,
		"corrupt", len(result.Corrupt),
	)

	return result, nil
}

// decodeFile decodes one compressed file into its sibling named without the
// sidecar suffix, then removes the original. On a decode or write failure
// the original is preserved and no output file is left behind.
func (d *Decompressor) decodeFile(p string) error {
	raw, err := os.ReadFile(p) //nolint:gosec // Path comes from our own directory walk
	if err != nil {
		return fmt.Errorf("read %s: %w", p, err)
	}

	// The whole stream is decoded up front so the output file is created
	// only for archives known to be intact. The stdlib reader decodes
	// concatenated bzip2 streams as one continuous payload, which matches
	// how multi-part uploads land on fastdl hosts.
	decoded, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, p, err)
	}

	dest := strings.TrimSuffix(p, d.suffix)
	if err := os.WriteFile(dest, decoded, 0640); err != nil { //nolint:gosec
		// A partially written sibling must not survive; a later run would
		// mistake it for decoded content.
		_ = os.Remove(dest) //nolint:errcheck
		return fmt.Errorf("write %s: %w", dest, err)
	}

	if err := d.removeOriginal(p); err != nil {
		// The decoded sibling is intact; the leftover archive is a
		// cleanup problem, not corruption. A later batch decodes it
		// again and retries the removal.
		d.logger.Warn("compressed original left behind after decode",
			"path", p,
			"error", err,
		)
	}

	d.logger.Debug("decoded archive",
		"src", p,
		"dest", dest,
		"bytes", len(decoded),
	)

	return nil
}
