// Kestrel - Real-time telecom fraud detection.
// Copyright (c) 2025 opensource.telco
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-telco/kestrel/internal/api"
	"github.com/opensource-telco/kestrel/internal/bus"
	"github.com/opensource-telco/kestrel/internal/cache"
	"github.com/opensource-telco/kestrel/internal/domain"
	"github.com/opensource-telco/kestrel/internal/feed"
	"github.com/opensource-telco/kestrel/internal/pipeline"
	"github.com/opensource-telco/kestrel/internal/repository"
	"github.com/opensource-telco/kestrel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KESTREL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Grid mode swaps in the multi-node backends
	if os.Getenv("KESTREL_MODE") == "grid" {
		cfg = domain.GridConfig()
		slog.Info("running in grid mode")
	}

	if path := os.Getenv("KESTREL_ARTIFACT"); path != "" {
		cfg.Pipeline.ArtifactPath = path
	}

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"artifact", cfg.Pipeline.ArtifactPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize detection pipeline
	pipe, err := pipeline.New(cfg.Pipeline,
		pipeline.WithRepository(repo),
		pipeline.WithCache(cacheImpl),
		pipeline.WithEventBus(busImpl),
	)
	if err != nil {
		slog.Error("failed to initialize pipeline", "error", err)
		os.Exit(1)
	}
	slog.Info("detection pipeline initialized",
		"window_capacity", cfg.Pipeline.WindowCapacity,
		"cluster_threshold", cfg.Pipeline.ClusterThreshold,
	)

	// Initialize async ingestion worker
	ingestWorker := worker.NewWorker(busImpl, pipe)
	if err := ingestWorker.Start(); err != nil {
		slog.Error("failed to start ingestion worker", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion worker started", "topic", domain.TopicCDRIngested)

	// Initialize live feed
	hub := feed.NewHub()
	loop := feed.NewLoop(pipe, hub, feed.NewGenerator(time.Now().UnixNano()), cfg.Feed)
	go loop.Run(ctx)
	slog.Info("live feed started",
		"interval", cfg.Feed.Interval,
		"batch_size", cfg.Feed.BatchSize,
	)

	// Initialize Server
	srv := api.NewServer(cfg.Server, pipe, hub, repo, cacheImpl, busImpl, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kestrel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if err := ingestWorker.Stop(); err != nil {
		slog.Error("failed to stop ingestion worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kestrel shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               KESTREL                     ║")
	fmt.Println("  ║     Telecom Fraud Detection Engine        ║")
	fmt.Println("  ║      Eyes on every call.                  ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /api/cdr                  - Process a call detail record")
	fmt.Println("    GET  /api/campaigns            - List active fraud campaigns")
	fmt.Println("    GET  /api/campaigns/{id}       - Get campaign detail")
	fmt.Println("    GET  /api/stats                - Global detection counters")
	fmt.Println("    GET  /api/alerts               - List alerts")
	fmt.Println("    POST /api/alerts/{id}/resolve  - Resolve an alert")
	fmt.Println("    POST /api/check-number         - Look up a phone number")
	fmt.Println("    GET  /ws/threat-stream         - Live threat feed (WebSocket)")
	fmt.Println("    GET  /health                   - Health check")
	fmt.Println()
}
