package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/config"
)

func TestBuildConfigDefaults(t *testing.T) {
	cmd := NewMirrorCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg, err := buildConfig(cmd, []string{"http://fastdl.example.org/maps/"})
	if err != nil {
		t.Fatalf("buildConfig() error = %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OutputDir != cwd {
		t.Errorf("OutputDir = %q, want working directory %q", cfg.OutputDir, cwd)
	}
	if cfg.Concurrency != config.DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, config.DefaultConcurrency)
	}
	if cfg.RetryAttempts != config.DefaultRetryAttempts {
		t.Errorf("RetryAttempts = %d, want %d", cfg.RetryAttempts, config.DefaultRetryAttempts)
	}
	if cfg.SkipPageErrors {
		t.Error("SkipPageErrors should default to false")
	}
	if cfg.NoDecode {
		t.Error("NoDecode should default to false")
	}
	if len(cfg.RootURLs) != 1 || cfg.RootURLs[0] != "http://fastdl.example.org/maps/" {
		t.Errorf("RootURLs = %v", cfg.RootURLs)
	}
	if cfg.HostConfigs == nil {
		t.Error("HostConfigs should never be nil")
	}
}

func TestBuildConfigFlags(t *testing.T) {
	outputDir := t.TempDir()

	cmd := NewMirrorCmd()
	err := cmd.ParseFlags([]string{
		"--output-dir", outputDir,
		"--concurrency", "16",
		"--retry-attempts", "0",
		"--retry-interval", "500ms",
		"--skip-page-errors",
		"--no-decode",
		"--json",
	})
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg, err := buildConfig(cmd, []string{"http://fastdl.example.org/maps/"})
	if err != nil {
		t.Fatalf("buildConfig() error = %v", err)
	}

	if cfg.OutputDir != outputDir {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, outputDir)
	}
	if cfg.Concurrency != 16 {
		t.Errorf("Concurrency = %d, want 16", cfg.Concurrency)
	}
	if cfg.RetryAttempts != 0 {
		t.Errorf("RetryAttempts = %d, want 0 (retry forever)", cfg.RetryAttempts)
	}
	if cfg.RetryInterval != 500*time.Millisecond {
		t.Errorf("RetryInterval = %s, want 500ms", cfg.RetryInterval)
	}
	if !cfg.SkipPageErrors {
		t.Error("SkipPageErrors not set")
	}
	if !cfg.NoDecode {
		t.Error("NoDecode not set")
	}
	if !cfg.JSONReport {
		t.Error("JSONReport not set")
	}
}

func TestBuildConfigExplicitConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".fastdl")
	content := `hosts:
  fastdl.example.org:
    mirrorSubtree: "customtree"
    contentPrefixes: ["ze_", "zm_"]
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cmd := NewMirrorCmd()
	if err := cmd.ParseFlags([]string{"--config", configPath}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg, err := buildConfig(cmd, []string{"http://fastdl.example.org/maps/"})
	if err != nil {
		t.Fatalf("buildConfig() error = %v", err)
	}

	hc := cfg.HostConfigs.GetHostConfig("fastdl.example.org")
	if hc.MirrorSubtree != "customtree" {
		t.Errorf("MirrorSubtree = %q, want %q", hc.MirrorSubtree, "customtree")
	}
	if len(hc.ContentPrefixes) != 2 {
		t.Errorf("ContentPrefixes = %v", hc.ContentPrefixes)
	}
}

func TestBuildConfigMissingExplicitConfigFile(t *testing.T) {
	cmd := NewMirrorCmd()
	if err := cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "nope.yml")}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	if _, err := buildConfig(cmd, nil); err == nil {
		t.Fatal("buildConfig() expected error for missing explicit config file")
	}
}

func TestMirrorCmdRequiresRootURL(t *testing.T) {
	cmd := NewMirrorCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}

	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		t.Fatalf("buildConfig() error = %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, config.ErrNoRootURL) {
		t.Errorf("Validate() error = %v, want ErrNoRootURL", err)
	}
}
