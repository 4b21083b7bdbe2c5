package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/marmos91/metacache/internal/logger"
	"github.com/marmos91/metacache/pkg/config"
	"github.com/marmos91/metacache/pkg/metrics"
	"github.com/spf13/cobra"
)

var primeRecursive bool

var primeCmd = &cobra.Command{
	Use:   "prime [path]",
	Short: "Populate the cache from the backing store",
	Long: `Populate the cache by listing directories in the backing object store.

Each listed directory is written to the cache as an authoritative listing,
so later reads can be answered without touching the backing store. Requires
the s3 backing flavor.

Examples:
  # Prime a single directory
  metacache prime /logs/2026

  # Prime a whole subtree
  metacache prime / --recursive`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrime,
}

func init() {
	primeCmd.Flags().BoolVar(&primeRecursive, "recursive", false, "Descend into subdirectories")
}

func runPrime(cmd *cobra.Command, args []string) error {
	path := "/"
	if len(args) == 1 {
		path = args[0]
	}

	ctx := context.Background()

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		if srv := metrics.NewServer(cfg.Metrics.Port); srv != nil {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics server error", "error", err)
				}
			}()
			defer srv.Close()
			logger.Info("metrics endpoint enabled", "port", cfg.Metrics.Port)
		}
	}

	if cfg.Backing.Type != "s3" {
		return fmt.Errorf("prime requires the s3 backing flavor, got %q", cfg.Backing.Type)
	}

	backing, err := config.CreateS3Backing(ctx, cfg.Backing)
	if err != nil {
		return err
	}

	store, err := config.CreateStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Initialize(ctx, backing); err != nil {
		return fmt.Errorf("failed to initialize metadata store: %w", err)
	}

	dirs, files := 0, 0
	queue := []string{path}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		listing, err := backing.ListDirectory(ctx, dir)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}

		// Collect child paths before the store rewrites them to canonical
		// keys; ListDirectory wants bucket-relative slash paths.
		for i := range listing.Entries {
			entry := &listing.Entries[i]
			if entry.IsDir {
				if primeRecursive {
					queue = append(queue, entry.Path)
				}
			} else {
				files++
			}
		}

		if err := store.PutListing(ctx, *listing); err != nil {
			return fmt.Errorf("failed to cache listing for %s: %w", dir, err)
		}
		dirs++
	}

	fmt.Printf("Primed %d directories (%d files) under %s\n", dirs, files, path)
	return nil
}
