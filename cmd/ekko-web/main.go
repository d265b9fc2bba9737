package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ekkohq/ekko/internal/backup"
	"github.com/ekkohq/ekko/internal/config"
	"github.com/ekkohq/ekko/internal/engine"
	"github.com/ekkohq/ekko/internal/importer"
	"github.com/ekkohq/ekko/internal/provider"
	"github.com/ekkohq/ekko/internal/server"
	"github.com/ekkohq/ekko/internal/storage"
	"github.com/ekkohq/ekko/internal/storage/postgres"
	"github.com/ekkohq/ekko/internal/storage/sqlite"
	"github.com/ekkohq/ekko/internal/watch"
	"github.com/ekkohq/ekko/pkg/types"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage
	var store storage.Store
	switch cfg.Storage.StorageEngine {
	case "postgres":
		store, err = postgres.New(cfg.Storage.PostgresDSN)
	default:
		if mkErr := os.MkdirAll(cfg.Storage.DataPath, 0o755); mkErr != nil {
			log.Fatalf("Failed to create data directory: %v", mkErr)
		}
		store, err = sqlite.New(cfg.Storage.DataPath + "/ekko.db")
	}
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the enrichment provider
	prov, err := provider.New(provider.Config{
		Kind:              cfg.Enrichment.Provider,
		BaseURL:           cfg.Enrichment.BaseURL,
		APIKey:            cfg.Enrichment.APIKey,
		Timeout:           cfg.Enrichment.Timeout,
		RequestsPerSecond: cfg.Enrichment.RequestsPerSecond,
		Burst:             cfg.Enrichment.Burst,
	})
	if err != nil {
		log.Fatalf("Failed to initialize enrichment provider: %v", err)
	}

	// Initialize the enrichment engine
	engineCfg := engine.DefaultConfig()
	engineCfg.NumWorkers = cfg.Engine.NumWorkers
	engineCfg.QueueSize = cfg.Engine.QueueSize
	engineCfg.ShutdownTimeout = cfg.Engine.ShutdownTimeout
	engineCfg.MaxRetries = cfg.Engine.MaxRetries
	if cfg.Storage.StorageEngine == "sqlite" {
		engineCfg.NumWorkers = 1 // Use 1 worker for SQLite to avoid database locking
	}
	eng, err := engine.New(store, prov, engineCfg)
	if err != nil {
		log.Fatalf("Failed to initialize enrichment engine: %v", err)
	}

	// Start enrichment workers (also requeues work interrupted by a
	// previous shutdown)
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("Failed to start enrichment engine: %v", err)
	}

	// Start server (pass engine for enrichment scheduling and queue size reporting)
	addr, wsHub, err := server.Start(ctx, cfg, store, eng)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Push enrichment status changes to connected clients
	eng.SetOnStatusChange(wsHub.BroadcastEnrichmentUpdate)

	// Periodic database snapshots (sqlite only)
	if cfg.Backup.Enabled {
		snapshots, err := backup.New(backup.Config{
			DBPath:   cfg.Storage.DataPath + "/ekko.db",
			Dir:      cfg.Backup.Dir,
			Interval: cfg.Backup.Interval,
			Verify:   true,
		})
		if err != nil {
			log.Fatalf("Failed to initialize snapshot service: %v", err)
		}
		go func() {
			if err := snapshots.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("Snapshot service stopped: %v", err)
			}
		}()
	}

	// Markdown drop folder
	if cfg.Watch.Dir != "" {
		opener := func(ctx context.Context, contact *types.Contact) {
			if _, err := eng.OpenForContact(ctx, contact); err != nil {
				log.Printf("WARNING: failed to open enrichment for dropped contact %s: %v", contact.ID, err)
			}
		}
		watcher := watch.NewDropWatcher(cfg.Watch.Dir, importer.NewMarkdownImporter(store, opener), nil)
		if err := watcher.Start(ctx); err != nil {
			log.Fatalf("Failed to start drop folder watcher: %v", err)
		}
		defer watcher.Stop()
	}

	log.Printf("Ekko API running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	// Shutdown enrichment workers first
	if err := eng.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down enrichment engine: %v", err)
	}

	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}
