package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/model"
)

// timeRounding trims sub-centisecond noise from elapsed durations.
const timeRounding = 10 * time.Millisecond

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables the per-URL failure and corrupt-file listings.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with per-file detail.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.MirrorReport) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("Mirror Report\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Root URL:       %s\n", report.RootURL)
	fmt.Fprintf(&sb, "Local root:     %s\n", report.LocalRoot)
	fmt.Fprintf(&sb, "Started:        %s\n", report.DateStarted.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Elapsed:        %s\n", report.Elapsed.Round(timeRounding))
	fmt.Fprintf(&sb, "Status:         %s\n", statusText(report))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Pages visited:  %d (in %d waves)\n", report.PagesVisited, report.Waves)
	fmt.Fprintf(&sb, "Links found:    %d\n", len(report.DownloadLinks))
	fmt.Fprintf(&sb, "Downloaded:     %d\n", report.Downloaded)
	fmt.Fprintf(&sb, "Failed:         %d\n", len(report.FailedDownloads))
	fmt.Fprintf(&sb, "Decoded:        %d\n", report.Decoded)
	fmt.Fprintf(&sb, "Corrupt:        %d\n", len(report.CorruptFiles))

	if len(report.CorruptFiles) > 0 {
		sb.WriteString("\nCorrupt files (originals preserved):\n")
		for _, p := range report.CorruptFiles {
			fmt.Fprintf(&sb, "  - %s\n", p)
		}
	}

	if w.verbose && len(report.FailedDownloads) > 0 {
		sb.WriteString("\nFailed downloads:\n")
		for _, f := range report.FailedDownloads {
			fmt.Fprintf(&sb, "  - %s: %s\n", f.URL, f.Reason)
		}
	}

	sb.WriteString(strings.Repeat("=", 60) + "\n")

	return io.WriteString(w.output, sb.String())
}

// statusText summarizes the run outcome in one line.
func statusText(report *model.MirrorReport) string {
	if !report.Complete() {
		return "failed - " + report.ErrorMessage
	}
	if len(report.CorruptFiles) > 0 || len(report.FailedDownloads) > 0 {
		return "complete with issues"
	}
	return "complete"
}
