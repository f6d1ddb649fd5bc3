package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/model"
)

// sampleReport returns a populated report for writer tests.
func sampleReport() *model.MirrorReport {
	r := model.NewMirrorReport("http://fastdl.example.org/css/maps/")
	r.LocalRoot = "/srv/mirror"
	r.Elapsed = 3*time.Minute + 42*time.Second
	r.PagesVisited = 12
	r.Waves = 4
	r.DownloadLinks = []string{
		"http://fastdl.example.org/css/maps/ze_a.bsp.bz2",
		"http://fastdl.example.org/css/maps/ze_b.bsp.bz2",
	}
	r.Downloaded = 2
	r.Decoded = 1
	r.CorruptFiles = []string{"/srv/mirror/css/maps/ze_b.bsp.bz2"}
	r.FailedDownloads = []model.FailedDownload{
		{URL: "http://fastdl.example.org/css/maps/ze_c.bsp.bz2", Reason: "retry attempts exhausted"},
	}
	return r
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf)

	n, err := w.Write(sampleReport())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != buf.Len() {
		t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"http://fastdl.example.org/css/maps/",
		"Pages visited:  12",
		"Downloaded:     2",
		"Corrupt:        1",
		"/srv/mirror/css/maps/ze_b.bsp.bz2",
		"complete with issues",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Failure detail only appears in verbose mode.
	if strings.Contains(out, "retry attempts exhausted") {
		t.Errorf("non-verbose output contains failure detail:\n%s", out)
	}
}

func TestSimpleWriterVerbose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf, WithVerbose(true))

	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "retry attempts exhausted") {
		t.Errorf("verbose output missing failure detail:\n%s", buf.String())
	}
}

func TestSimpleWriterFailedRun(t *testing.T) {
	t.Parallel()

	r := model.NewMirrorReport("http://fastdl.example.org/maps/")
	r.Error = errors.New("root fetch failed")
	r.ErrorMessage = r.Error.Error()

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf).Write(r); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "failed - root fetch failed") {
		t.Errorf("output missing failure status:\n%s", buf.String())
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewJSONWriter(&buf, WithPrettyPrint())

	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	var decoded model.MirrorReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.PagesVisited != 12 {
		t.Errorf("PagesVisited = %d, want 12", decoded.PagesVisited)
	}
	if len(decoded.CorruptFiles) != 1 {
		t.Errorf("CorruptFiles = %v, want one entry", decoded.CorruptFiles)
	}
}

func TestJSONWriterCompact(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf).Write(sampleReport()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Compact output is a single line plus trailing newline.
	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("compact output has %d newlines, want 1", got)
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)

	if _, err := w.Write(sampleReport()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# Mirror Report",
		"## Summary",
		"## Failed Downloads",
		"## Corrupt Files",
		"`http://fastdl.example.org/css/maps/`",
		"/srv/mirror/css/maps/ze_b.bsp.bz2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownWriterCleanRunOmitsSections(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	r.FailedDownloads = nil
	r.CorruptFiles = nil

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(r); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "## Failed Downloads") {
		t.Error("clean run should omit the failures section")
	}
	if strings.Contains(out, "## Corrupt Files") {
		t.Error("clean run should omit the corrupt section")
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))

	if _, err := mw.Write(sampleReport()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if a.Len() == 0 || b.Len() == 0 {
		t.Errorf("multi writer left a destination empty: simple=%d json=%d", a.Len(), b.Len())
	}
}
