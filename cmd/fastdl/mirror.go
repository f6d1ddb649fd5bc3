package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/config"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/database"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/log"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/model"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/pipeline"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/progress"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/report"
)

// NewMirrorCmd creates the mirror command.
func NewMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror [root-url]...",
		Short: "Mirror one or more fast-download roots to a local directory",
		Long: `Mirror crawls each root URL's directory listing breadth-first,
downloads every discovered map archive into a local tree that matches the
remote path layout, and decodes the bzip2 sidecar files in place.

Roots are processed in sequence; within each root the crawl, download, and
decode stages each run on a bounded worker pool. Corrupt archives are kept
on disk undecoded and listed at the end of the run.

Examples:
  # Mirror a single fastdl root into the current directory
  fastdl mirror http://fastdl.example.org/css/maps/

  # Mirror two roots into a specific directory with 16 workers
  fastdl mirror -O /srv/maps -n 16 http://a.example.org/maps/ http://b.example.org/maps/

  # Skip broken listing pages instead of aborting
  fastdl mirror --skip-page-errors http://fastdl.example.org/css/maps/

  # Output a JSON report per root
  fastdl mirror --json http://fastdl.example.org/css/maps/

Configuration file (.fastdl) example:
  hosts:
    fastdl.example.org:
      mirrorSubtree: "gflfastdlv2"
      contentPrefixes: ["ze_", "zm_"]
    other.example.org:
      sidecarSuffix: ".bz2"`,
		Args: cobra.ArbitraryArgs,
		RunE: runMirrorCmd,
	}

	// Output flags
	cmd.Flags().StringP("output-dir", "O", "",
		"Local directory to mirror into (default: current directory)")

	// Crawl and download behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Worker-pool size for crawl waves, downloads, and decodes")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for listing fetches and link probes")
	cmd.Flags().Duration("download-timeout", config.DefaultDownloadTimeout,
		"Timeout for a single download attempt (0 = unlimited)")
	cmd.Flags().IntP("retry-attempts", "r", config.DefaultRetryAttempts,
		"Maximum download attempts per file (0 = retry forever)")
	cmd.Flags().Duration("retry-interval", config.DefaultRetryInterval,
		"Initial backoff between download retries")
	cmd.Flags().Bool("skip-page-errors", false,
		"Record and skip listing pages that fail instead of aborting the crawl")
	cmd.Flags().Bool("no-decode", false,
		"Skip the bzip2 decode stage after downloading")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .fastdl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runMirrorCmd executes the mirror command.
func runMirrorCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	cfg.Verbose = getVerboseFlag(cmd)
	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runMirror(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
	}

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.DownloadTimeout, err = cmd.Flags().GetDuration("download-timeout")
	if err != nil {
		return nil, err
	}

	cfg.RetryAttempts, err = cmd.Flags().GetInt("retry-attempts")
	if err != nil {
		return nil, err
	}

	cfg.RetryInterval, err = cmd.Flags().GetDuration("retry-interval")
	if err != nil {
		return nil, err
	}

	cfg.SkipPageErrors, err = cmd.Flags().GetBool("skip-page-errors")
	if err != nil {
		return nil, err
	}

	cfg.NoDecode, err = cmd.Flags().GetBool("no-decode")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load per-host configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.HostConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.HostConfigs = &config.File{
			Hosts: make(map[string]config.HostConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	// Always record run history in the XDG data directory
	cfg.DBDir = config.XDGDataDir()

	// Positional arguments are the root URLs
	cfg.RootURLs = args

	return cfg, nil
}

// runMirror mirrors every configured root in sequence.
func runMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting mirror",
		"roots", cfg.RootURLs,
		"outputDir", cfg.OutputDir,
		"concurrency", cfg.Concurrency,
	)

	// Open the history database; a failure here degrades to no history
	// rather than blocking the mirror itself.
	var db *database.MirrorDB
	if cfg.DBDir != "" {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("run history disabled", "dir", cfg.DBDir, "error", err)
		} else {
			defer db.Close()
			logger.Info("history database opened", "dir", cfg.DBDir)
		}
	}

	tracker := progress.NewTracker()
	corrupt := model.NewCorruptSet()

	// Periodic progress lines while the stages grind through large trees.
	progressCtx, stopProgress := context.WithCancel(ctx)
	defer stopProgress()
	go tracker.LogPeriodically(progressCtx, logger, 30*time.Second)

	var firstErr error
	for _, rootURL := range cfg.RootURLs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p := pipeline.DefaultPipeline(cfg, corrupt, logger, tracker)

		runReport := model.NewMirrorReport(rootURL)
		runReport.LocalRoot = cfg.OutputDir

		fmt.Printf("Mirroring %s...\n", rootURL)
		startTime := time.Now()

		if err := p.Execute(ctx, runReport); err != nil {
			logger.Error("mirror failed", "root", rootURL, "error", err)
			fmt.Fprintf(os.Stderr, "Mirror error for %s: %v\n", rootURL, err)
			if firstErr == nil {
				firstErr = err
			}
		}

		runReport.Elapsed = time.Since(startTime)
		if runReport.Complete() {
			fmt.Printf("Mirror completed in %s\n\n", runReport.Elapsed.Round(time.Millisecond))
		}

		// Generate and output report
		if err := outputReport(cfg, runReport); err != nil {
			logger.Error("report failed", "root", rootURL, "error", err)
		}

		// Save to database if available
		if err := saveRunReport(ctx, db, runReport, logger); err != nil {
			logger.Error("failed to save run report", "root", rootURL, "error", err)
		}
	}

	printCorruptSummary(corrupt)

	return firstErr
}

// printCorruptSummary prints the accumulated corrupt-file listing for the
// whole run, across all roots.
func printCorruptSummary(corrupt *model.CorruptSet) {
	if corrupt.Len() == 0 {
		return
	}

	fmt.Printf("\n%d corrupt file(s) were preserved undecoded:\n", corrupt.Len())
	for _, p := range corrupt.Paths() {
		fmt.Printf("  - %s\n", p)
	}
}

// outputReport outputs the run report in the requested format.
func outputReport(cfg *config.Config, runReport *model.MirrorReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := w.Write(runReport)
	return err
}

// saveRunReport saves the run report to the history database if available.
// If db is nil, this function is a no-op.
func saveRunReport(ctx context.Context, db *database.MirrorDB, runReport *model.MirrorReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	runID, err := db.SaveRunReport(ctx, runReport)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}

	logger.Info("run report saved", "root", runReport.RootURL, "runID", runID)
	return nil
}
