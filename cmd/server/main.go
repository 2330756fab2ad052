package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hoanghai1803/murmur/internal/ai"
	"github.com/hoanghai1803/murmur/internal/api"
	"github.com/hoanghai1803/murmur/internal/archive"
	"github.com/hoanghai1803/murmur/internal/archive/jsonfile"
	"github.com/hoanghai1803/murmur/internal/archive/postgres"
	"github.com/hoanghai1803/murmur/internal/archive/sqlite"
	"github.com/hoanghai1803/murmur/internal/collect"
	"github.com/hoanghai1803/murmur/internal/config"
	"github.com/hoanghai1803/murmur/internal/platform/reddit"
	"github.com/hoanghai1803/murmur/internal/platform/youtube"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	// Load configuration (auto-creates default if missing).
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Open the batch archive.
	backend, err := openArchive(cfg)
	if err != nil {
		slog.Error("failed to open archive", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	// Create AI provider (nil if no API key -- handlers and the planner
	// check for this).
	var aiProvider ai.AIProvider
	if cfg.AI.APIKey != "" {
		aiProvider, err = ai.NewProvider(ai.ProviderConfig{
			Provider: cfg.AI.Provider,
			APIKey:   cfg.AI.APIKey,
			Model:    cfg.AI.Model,
		})
		if err != nil {
			slog.Error("failed to create AI provider", "error", err)
			os.Exit(1)
		}
		slog.Info("AI provider configured", "provider", cfg.AI.Provider, "model", cfg.AI.Model)
	} else {
		slog.Warn("no AI provider API key configured, query suggestions will use fallback templates")
	}

	// Build the collectors. A source without credentials is disabled with a
	// warning; running with zero sources is an error.
	var collectors []collect.Collector
	if cfg.YouTube.APIKey != "" {
		collectors = append(collectors, youtube.New(cfg.YouTube.APIKey, cfg.YouTube.RequestsPerSecond))
		slog.Info("youtube source enabled")
	} else {
		slog.Warn("youtube source disabled: no API key configured")
	}
	if cfg.Reddit.UserAgent != "" {
		collectors = append(collectors, reddit.New(cfg.Reddit.UserAgent, cfg.Reddit.RequestsPerSecond))
		slog.Info("reddit source enabled")
	} else {
		slog.Warn("reddit source disabled: no user agent configured")
	}
	if len(collectors) == 0 {
		slog.Error("no comment sources enabled; configure at least one in config.toml")
		os.Exit(1)
	}

	collectCfg := collect.Config{
		TargetComments:          cfg.Collect.TargetComments,
		MaxAttempts:             cfg.Collect.MaxAttempts,
		StallAttempts:           cfg.Collect.StallAttempts,
		RoundTimeout:            cfg.Collect.RoundTimeout(),
		SessionTimeout:          cfg.Collect.SessionTimeout(),
		Suggestions:             cfg.AI.Suggestions,
		MaxContainers:           maxContainers(cfg),
		MaxCommentsPerContainer: maxCommentsPerContainer(cfg),
		FetchWorkers:            cfg.Collect.FetchWorkers,
	}

	router := api.NewRouter(backend, aiProvider, collectors, collectCfg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("starting server", "addr", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// openArchive builds the configured archive backend, optionally wrapping it
// with a jsonfile fallback so batches survive a primary outage.
func openArchive(cfg *config.Config) (archive.Backend, error) {
	var primary archive.Backend
	var err error

	switch cfg.Archive.Backend {
	case "sqlite":
		path := cfg.Archive.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.Archive.DataDir, "murmur.db")
		}
		primary, err = sqlite.Open(path)
	case "postgres":
		primary, err = postgres.Open(context.Background(), cfg.Archive.PostgresDSN)
	case "jsonfile":
		return jsonfile.Open(cfg.Archive.DataDir)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.Archive.JSONFallback {
		return primary, nil
	}

	backup, err := jsonfile.Open(cfg.Archive.DataDir)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("opening jsonfile fallback: %w", err)
	}
	return archive.NewFallback(primary, backup), nil
}

// maxContainers takes the wider of the two per-source search widths as the
// shared base; each collector still respects its own API page caps.
func maxContainers(cfg *config.Config) int {
	return max(cfg.YouTube.MaxVideos, cfg.Reddit.MaxPosts)
}

func maxCommentsPerContainer(cfg *config.Config) int {
	return max(cfg.YouTube.MaxCommentsPerVideo, cfg.Reddit.MaxCommentsPerPost)
}
