package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flor3z/fide-tracker/internal/bot"
	"github.com/flor3z/fide-tracker/internal/config"
	"github.com/flor3z/fide-tracker/internal/fide"
	"github.com/flor3z/fide-tracker/internal/history"
	"github.com/flor3z/fide-tracker/internal/storage"
	"github.com/flor3z/fide-tracker/internal/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Set up logging
	setupLogging(cfg.LogLevel)

	slog.Info("Starting FIDE Tracker", "driver", cfg.DatabaseDriver)

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize storage
	repo, err := storage.NewRepository(cfg.DatabaseDriver, cfg.DSN())
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	// Collapse duplicates left by earlier runs
	if removed, err := repo.Deduplicate(ctx); err != nil {
		slog.Warn("Startup deduplication failed", "error", err)
	} else if removed > 0 {
		slog.Info("Removed duplicate games", "count", removed)
	}

	// Rating site client, lookups cached for the life of the process
	fetcher := fide.NewHTTPFetcher(cfg.FetchTimeout, cfg.FetchInterval)
	cache := fide.NewPageCache(fetcher)
	client := fide.NewClient(cfg.RatingsURL, cfg.SearchURL, fetcher, cache)

	synchronizer := history.New(repo, client, client)

	if cfg.DiscordToken == "" && cfg.HTTPAddr == "" {
		slog.Error("Nothing to run: set DISCORD_BOT_TOKEN or HTTP_ADDR")
		os.Exit(1)
	}

	// Start the JSON API
	var server *web.Server
	if cfg.HTTPAddr != "" {
		server = web.NewServer(synchronizer, client, repo, cache, cfg.DefaultHistoryMonths)
		go func() {
			if err := server.Start(cfg.HTTPAddr); err != nil {
				slog.Error("HTTP API stopped", "error", err)
				cancel()
			}
		}()
	}

	// Start the bot
	var b *bot.Bot
	if cfg.DiscordToken != "" {
		b, err = bot.New(cfg, synchronizer, client)
		if err != nil {
			slog.Error("Failed to create bot", "error", err)
			os.Exit(1)
		}
		if err := b.Start(ctx); err != nil {
			slog.Error("Failed to start bot", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("DISCORD_BOT_TOKEN not set, Discord commands disabled")
	}

	slog.Info("Tracker is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
	cancel()

	if server != nil {
		server.Stop()
	}
	if b != nil {
		if err := b.Stop(); err != nil {
			slog.Error("Error during shutdown", "error", err)
		}
	}

	stats := cache.Stats()
	slog.Info("Tracker stopped", "cacheHits", stats.Hits, "cacheMisses", stats.Misses)
}

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
