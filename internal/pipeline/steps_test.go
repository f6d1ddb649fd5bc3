package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/config"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/model"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/progress"
)

// bz2Payload is a valid bzip2 archive of
// "Sample decoded payload for fastdl mirror tests.\n".
var bz2Payload = []byte{
	0x42, 0x5a, 0x68, 0x39, 0x31, 0x41, 0x59, 0x26, 0x53, 0x59, 0x7e, 0xf4,
	0x20, 0xaf, 0x00, 0x00, 0x04, 0x53, 0x80, 0x00, 0x10, 0x40, 0x01, 0x08,
	0x00, 0x2f, 0x26, 0xdc, 0x20, 0x20, 0x00, 0x31, 0x4d, 0x32, 0x31, 0x31,
	0x31, 0x08, 0xa7, 0x89, 0x33, 0x6a, 0x9e, 0xd4, 0x64, 0x8d, 0xae, 0x44,
	0xab, 0x56, 0x78, 0x0d, 0x02, 0xa7, 0x36, 0x4a, 0x36, 0x12, 0xde, 0x3b,
	0x81, 0xab, 0x9a, 0xf4, 0x4a, 0x3f, 0x48, 0xdd, 0xc2, 0xbf, 0xe2, 0xee,
	0x48, 0xa7, 0x0a, 0x12, 0x0f, 0xde, 0x84, 0x15, 0xe0,
}

const bz2DecodedPayload = "Sample decoded payload for fastdl mirror tests.\n"

// newMirrorServer serves a one-level listing with a single compressed map.
func newMirrorServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/maps/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maps/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><pre>
<a href="/">../</a>
<a href="/maps/ze_sample.bsp.bz2">ze_sample.bsp.bz2</a>
<a href="/maps/index.html">index.html</a>
</pre></body></html>`)
	})
	mux.HandleFunc("/maps/ze_sample.bsp.bz2", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(bz2Payload)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// testConfig returns a config pointed at the test server and temp dir.
func testConfig(t *testing.T, server *httptest.Server) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.RootURLs = []string{server.URL + "/maps/"}
	cfg.OutputDir = t.TempDir()
	cfg.Concurrency = 4
	cfg.RetryAttempts = 2
	cfg.RetryInterval = time.Millisecond
	cfg.RetryMaxInterval = 5 * time.Millisecond
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultPipelineEndToEnd(t *testing.T) {
	t.Parallel()

	server := newMirrorServer(t)
	cfg := testConfig(t, server)

	corrupt := model.NewCorruptSet()
	tracker := progress.NewTracker()
	p := DefaultPipeline(cfg, corrupt, discardLogger(), tracker)

	if p.StepCount() != 3 {
		t.Fatalf("StepCount() = %d, want 3", p.StepCount())
	}

	report := model.NewMirrorReport(cfg.RootURLs[0])
	if err := p.Execute(context.Background(), report); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if report.PagesVisited != 1 {
		t.Errorf("PagesVisited = %d, want 1", report.PagesVisited)
	}
	if len(report.DownloadLinks) != 1 {
		t.Fatalf("DownloadLinks = %v, want one link", report.DownloadLinks)
	}
	if report.Downloaded != 1 {
		t.Errorf("Downloaded = %d, want 1", report.Downloaded)
	}
	if report.Decoded != 1 {
		t.Errorf("Decoded = %d, want 1", report.Decoded)
	}
	if len(report.CorruptFiles) != 0 {
		t.Errorf("CorruptFiles = %v, want none", report.CorruptFiles)
	}
	if corrupt.Len() != 0 {
		t.Errorf("corrupt set = %v, want empty", corrupt.Paths())
	}

	// The archive was mirrored, decoded, and replaced by its payload.
	decoded, err := os.ReadFile(filepath.Join(cfg.OutputDir, "maps", "ze_sample.bsp"))
	if err != nil {
		t.Fatalf("reading decoded file: %v", err)
	}
	if string(decoded) != bz2DecodedPayload {
		t.Errorf("decoded = %q, want %q", decoded, bz2DecodedPayload)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "maps", "ze_sample.bsp.bz2")); !os.IsNotExist(err) {
		t.Errorf("compressed original should be removed (err=%v)", err)
	}
}

func TestDecodeStepRespectsNoDecode(t *testing.T) {
	t.Parallel()

	server := newMirrorServer(t)
	cfg := testConfig(t, server)
	cfg.NoDecode = true

	p := DefaultPipeline(cfg, model.NewCorruptSet(), discardLogger(), progress.NewTracker())

	report := model.NewMirrorReport(cfg.RootURLs[0])
	if err := p.Execute(context.Background(), report); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if report.Decoded != 0 {
		t.Errorf("Decoded = %d, want 0 with --no-decode", report.Decoded)
	}
	// The compressed download stays in place.
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "maps", "ze_sample.bsp.bz2")); err != nil {
		t.Errorf("compressed file missing: %v", err)
	}
}

func TestCrawlStepPropagatesRootFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(t, server)
	p := DefaultPipeline(cfg, model.NewCorruptSet(), discardLogger(), progress.NewTracker())

	report := model.NewMirrorReport(cfg.RootURLs[0])
	if err := p.Execute(context.Background(), report); err == nil {
		t.Fatal("Execute() expected error for failing root")
	}
	if report.Complete() {
		t.Error("report should record the failure")
	}
}

func TestDownloadStepNoLinksIsNoOp(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.OutputDir = t.TempDir()

	step := NewDownloadStep(cfg, nil, discardLogger(), progress.NewTracker())

	report := model.NewMirrorReport("http://fastdl.example.org/maps/")
	if err := step.Do(context.Background(), report); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if report.Downloaded != 0 {
		t.Errorf("Downloaded = %d, want 0", report.Downloaded)
	}
}
