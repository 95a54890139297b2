// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bureau-asset/lib/assetmapping"
	"github.com/bureau-foundation/bureau-asset/lib/assetmigrate"
	"github.com/bureau-foundation/bureau-asset/lib/assetstore"
	"github.com/bureau-foundation/bureau-asset/lib/config"
	"github.com/bureau-foundation/bureau-asset/lib/service"
	"github.com/bureau-foundation/bureau-asset/lib/version"
	"github.com/bureau-foundation/bureau-asset/lib/workerpool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("bureau-asset-service", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the service config file (default: $"+config.EnvironmentVariable+")")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		version.Print(os.Stdout, "bureau-asset-service")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	level, _ := cfg.SlogLevel()
	logger := service.NewLogger(level)

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	report, err := assetmigrate.Run(assetmigrate.Options{
		StorageRoot: cfg.Paths.StorageRoot,
		LegacyDir:   cfg.Paths.LegacyAssets,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("preparing storage root: %w", err)
	}

	store, err := assetstore.NewStore(cfg.Paths.StorageRoot)
	if err != nil {
		return fmt.Errorf("opening asset store: %w", err)
	}
	assetCount, err := store.Count()
	if err != nil {
		return err
	}
	logger.Info("serving assets",
		"root", store.Root(),
		"assets", assetCount,
		"migrated", report.Migrated,
	)

	journal, err := assetmapping.OpenJournal(cfg.Mapping.Backend, cfg.Paths.Mapping)
	if err != nil {
		return fmt.Errorf("opening mapping journal: %w", err)
	}
	mappings, err := assetmapping.Open(assetmapping.Options{
		Journal: journal,
		Logger:  logger,
	})
	if err != nil {
		journal.Close()
		return err
	}
	defer func() {
		if err := mappings.Close(); err != nil {
			logger.Error("closing mapping table", "error", err)
		}
	}()
	logger.Info("mapping table loaded",
		"backend", cfg.Mapping.Backend,
		"mappings", mappings.Len(),
	)
	logDanglingMappings(mappings, store, logger)

	pool := workerpool.New(cfg.Workers, logger)

	assetService := &AssetService{
		store:    store,
		mappings: mappings,
		pool:     pool,
		logger:   logger,

		maxMessageSize: cfg.Transport.MaxMessageSize,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := service.NewSocketServer(service.SocketConfig{
		Path:           cfg.Paths.Socket,
		MaxMessageSize: cfg.Transport.MaxMessageSize,
		Upload: service.UploadPolicy{
			AllowAll:    cfg.Upload.AllowAll,
			AllowedUIDs: cfg.Upload.AllowedUIDs,
		},
	}, assetService, logger)

	logger.Info("asset service running",
		"environment", string(cfg.Environment),
		"socket", cfg.Paths.Socket,
		"workers", pool.Size(),
		"upload_allow_all", cfg.Upload.AllowAll,
		"version", version.Info(),
	)

	// Serve returns once the context is cancelled and every connection
	// reader has exited, so nothing submits to the pool after this.
	serveErr := server.Serve(ctx)

	stats := pool.Stats()
	logger.Info("shutting down",
		"running_tasks", stats.Running,
		"queued_tasks", stats.Queued,
	)
	pool.Close()

	if serveErr != nil {
		return fmt.Errorf("socket server: %w", serveErr)
	}
	return nil
}

// logDanglingMappings logs, at debug, each mapping whose asset is not
// in the store. Nothing is removed.
func logDanglingMappings(mappings *assetmapping.Table, store *assetstore.Store, logger *slog.Logger) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	dangling := 0
	for _, entry := range mappings.List("") {
		exists, _, err := store.Exists(entry.Hash)
		if err != nil || !exists {
			logger.Debug("mapping refers to missing asset",
				"path", entry.Path,
				"hash", entry.Hash.String(),
			)
			dangling++
		}
	}
	logger.Debug("mapping check complete", "dangling", dangling)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}
