package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/config"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/decompress"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/log"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/model"
	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/progress"
)

// NewDecodeCmd creates the decode command.
func NewDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [dir]",
		Short: "Decode compressed sidecar files under a local directory",
		Long: `Decode walks a local directory tree and decodes every bzip2 sidecar
file in place: <name>.bz2 becomes <name> and the archive is removed.
Corrupt archives are preserved on disk and listed at the end.

This is the standalone version of the mirror command's final stage, for
re-running decodes over a tree downloaded earlier with --no-decode or
interrupted mid-run.

Examples:
  # Decode everything under the current directory
  fastdl decode .

  # Decode with 16 workers and a custom suffix
  fastdl decode -n 16 --suffix .bz2 /srv/maps`,
		Args: cobra.ExactArgs(1),
		RunE: runDecodeCmd,
	}

	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Worker-pool size for parallel decodes")
	cmd.Flags().String("suffix", config.DefaultSidecarSuffix,
		"Compressed sidecar suffix to decode")

	return cmd
}

// runDecodeCmd executes the decode command.
func runDecodeCmd(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("cannot access %s: %w", dir, err)
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	suffix, err := cmd.Flags().GetString("suffix")
	if err != nil {
		return err
	}
	if suffix == "" {
		return config.ErrInvalidSidecarSuffix
	}

	logger := log.NewLogger(os.Stderr, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	corrupt := model.NewCorruptSet()
	d := decompress.New(suffix,
		decompress.WithConcurrency(concurrency),
		decompress.WithLogger(logger),
		decompress.WithTracker(progress.NewTracker()),
	)

	fmt.Printf("Decoding %s files under %s...\n", suffix, dir)
	startTime := time.Now()

	result, err := d.DecodeTree(ctx, dir, corrupt)
	if err != nil {
		return err
	}

	fmt.Printf("Decoded %d of %d file(s) in %s\n",
		result.Decoded, result.Found, time.Since(startTime).Round(time.Millisecond))

	printCorruptSummary(corrupt)

	if len(result.Corrupt) > 0 {
		return fmt.Errorf("%d file(s) failed to decode", len(result.Corrupt))
	}
	return nil
}
