package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.MirrorReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeCounts(md, report)
	w.writeFailures(md, report)
	w.writeCorrupt(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.MirrorReport) {
	md.H1("Mirror Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root URL", "`" + report.RootURL + "`"},
			{"Local Root", "`" + report.LocalRoot + "`"},
			{"Started", report.DateStarted.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", report.Elapsed.Round(timeRounding).String()},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

// writeCounts writes the per-stage counters.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, report *model.MirrorReport) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Stage", "Count"},
		Rows: [][]string{
			{"Pages visited", strconv.Itoa(report.PagesVisited)},
			{"Waves", strconv.Itoa(report.Waves)},
			{"Links found", strconv.Itoa(len(report.DownloadLinks))},
			{"Downloaded", strconv.Itoa(report.Downloaded)},
			{"Failed downloads", strconv.Itoa(len(report.FailedDownloads))},
			{"Decoded", strconv.Itoa(report.Decoded)},
			{"Corrupt files", strconv.Itoa(len(report.CorruptFiles))},
		},
	})
	md.PlainText("")
}

// writeFailures writes the failed-download table, if any.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.MirrorReport) {
	if len(report.FailedDownloads) == 0 {
		return
	}

	md.H2("Failed Downloads")
	md.PlainText("")

	rows := make([][]string, len(report.FailedDownloads))
	for i, f := range report.FailedDownloads {
		rows[i] = []string{"`" + f.URL + "`", f.Reason}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeCorrupt writes the corrupt-file listing, if any. These files were
// left on disk undecoded for inspection.
func (w *MarkdownWriter) writeCorrupt(md *markdown.Markdown, report *model.MirrorReport) {
	if len(report.CorruptFiles) == 0 {
		return
	}

	md.H2("Corrupt Files")
	md.PlainText("")
	md.Warningf("%d file(s) failed to decode; the compressed originals were preserved.", len(report.CorruptFiles))
	md.PlainText("")
	md.BulletList(report.CorruptFiles...)
	md.PlainText("")
}
