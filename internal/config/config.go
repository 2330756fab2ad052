package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	AI      AIConfig      `toml:"ai"`
	YouTube YouTubeConfig `toml:"youtube"`
	Reddit  RedditConfig  `toml:"reddit"`
	Collect CollectConfig `toml:"collect"`
	Archive ArchiveConfig `toml:"archive"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `toml:"port"`
}

// AIConfig holds the query-suggestion provider settings.
type AIConfig struct {
	Provider    string `toml:"provider"`
	APIKey      string `toml:"api_key"`
	Model       string `toml:"model"`
	Suggestions int    `toml:"suggestions"`
}

// YouTubeConfig holds video-platform client settings.
type YouTubeConfig struct {
	APIKey              string  `toml:"api_key"`
	MaxVideos           int     `toml:"max_videos"`
	MaxCommentsPerVideo int     `toml:"max_comments_per_video"`
	RequestsPerSecond   float64 `toml:"requests_per_second"`
}

// RedditConfig holds discussion-platform client settings.
type RedditConfig struct {
	UserAgent          string  `toml:"user_agent"`
	MaxPosts           int     `toml:"max_posts"`
	MaxCommentsPerPost int     `toml:"max_comments_per_post"`
	RequestsPerSecond  float64 `toml:"requests_per_second"`
}

// CollectConfig holds the collection loop budgets.
type CollectConfig struct {
	TargetComments        int `toml:"target_comments"`
	MaxAttempts           int `toml:"max_attempts"`
	StallAttempts         int `toml:"stall_attempts"`
	RoundTimeoutSeconds   int `toml:"round_timeout_seconds"`
	SessionTimeoutSeconds int `toml:"session_timeout_seconds"`
	FetchWorkers          int `toml:"fetch_workers"`
}

// RoundTimeout returns the per-round deadline as a duration.
func (c CollectConfig) RoundTimeout() time.Duration {
	return time.Duration(c.RoundTimeoutSeconds) * time.Second
}

// SessionTimeout returns the whole-session wall-clock budget as a duration.
func (c CollectConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSeconds) * time.Second
}

// ArchiveConfig holds batch persistence settings.
type ArchiveConfig struct {
	Backend      string `toml:"backend"`
	SQLitePath   string `toml:"sqlite_path"`
	PostgresDSN  string `toml:"postgres_dsn"`
	DataDir      string `toml:"data_dir"`
	JSONFallback bool   `toml:"json_fallback"`
}

const defaultConfigContent = `[server]
port = 8080

[ai]
provider = "anthropic"            # "anthropic" or "openai"
api_key = ""                      # Your API key (or set AI_API_KEY env var)
model = "claude-haiku-4-5"        # See README for supported models
suggestions = 3                   # query variants requested per refill

[youtube]
api_key = ""                      # YouTube Data API v3 key (or YOUTUBE_API_KEY env var)
max_videos = 20
max_comments_per_video = 150
requests_per_second = 5.0

[reddit]
user_agent = "murmur/1.0 (comment research)"
max_posts = 25
max_comments_per_post = 120
requests_per_second = 1.0

[collect]
target_comments = 500             # minimum unique comments before returning
max_attempts = 3
stall_attempts = 2                # give up after this many zero-gain attempts
round_timeout_seconds = 180
session_timeout_seconds = 600
fetch_workers = 4

[archive]
backend = "sqlite"                # "sqlite", "postgres" or "jsonfile"
sqlite_path = ""                  # defaults to <data_dir>/murmur.db
postgres_dsn = ""
data_dir = "./data"
json_fallback = true              # keep a JSON file copy when the primary save fails
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// explicitly writing "target_comments = 0" is an error rather than
	// silently being replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
// This catches cases like "port = 0" which would otherwise be silently
// replaced by the default value.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}
	if md.IsDefined("collect", "target_comments") && cfg.Collect.TargetComments < 1 {
		return fmt.Errorf("invalid collect.target_comments %d: must be >= 1", cfg.Collect.TargetComments)
	}
	if md.IsDefined("collect", "max_attempts") && cfg.Collect.MaxAttempts < 1 {
		return fmt.Errorf("invalid collect.max_attempts %d: must be >= 1", cfg.Collect.MaxAttempts)
	}
	if md.IsDefined("collect", "stall_attempts") && cfg.Collect.StallAttempts < 1 {
		return fmt.Errorf("invalid collect.stall_attempts %d: must be >= 1", cfg.Collect.StallAttempts)
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "anthropic"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "claude-haiku-4-5"
	}
	if cfg.AI.Suggestions == 0 {
		cfg.AI.Suggestions = 3
	}
	if cfg.YouTube.MaxVideos == 0 {
		cfg.YouTube.MaxVideos = 20
	}
	if cfg.YouTube.MaxCommentsPerVideo == 0 {
		cfg.YouTube.MaxCommentsPerVideo = 150
	}
	if cfg.YouTube.RequestsPerSecond == 0 {
		cfg.YouTube.RequestsPerSecond = 5.0
	}
	if cfg.Reddit.UserAgent == "" {
		cfg.Reddit.UserAgent = "murmur/1.0 (comment research)"
	}
	if cfg.Reddit.MaxPosts == 0 {
		cfg.Reddit.MaxPosts = 25
	}
	if cfg.Reddit.MaxCommentsPerPost == 0 {
		cfg.Reddit.MaxCommentsPerPost = 120
	}
	if cfg.Reddit.RequestsPerSecond == 0 {
		cfg.Reddit.RequestsPerSecond = 1.0
	}
	if cfg.Collect.TargetComments == 0 {
		cfg.Collect.TargetComments = 500
	}
	if cfg.Collect.MaxAttempts == 0 {
		cfg.Collect.MaxAttempts = 3
	}
	if cfg.Collect.StallAttempts == 0 {
		cfg.Collect.StallAttempts = 2
	}
	if cfg.Collect.RoundTimeoutSeconds == 0 {
		cfg.Collect.RoundTimeoutSeconds = 180
	}
	if cfg.Collect.SessionTimeoutSeconds == 0 {
		cfg.Collect.SessionTimeoutSeconds = 600
	}
	if cfg.Collect.FetchWorkers == 0 {
		cfg.Collect.FetchWorkers = 4
	}
	if cfg.Archive.Backend == "" {
		cfg.Archive.Backend = "sqlite"
	}
	if cfg.Archive.DataDir == "" {
		cfg.Archive.DataDir = "./data"
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
//
// Priority for ai.api_key:
//  1. AI_API_KEY (generic, highest)
//  2. ANTHROPIC_API_KEY (when provider is "anthropic")
//  3. OPENAI_API_KEY (when provider is "openai")
func applyEnvOverrides(cfg *Config) {
	// Apply provider-specific env var first (lower priority).
	switch cfg.AI.Provider {
	case "anthropic":
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.AI.APIKey = v
		}
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.AI.APIKey = v
		}
	}

	// AI_API_KEY overrides everything (highest priority).
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}

	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		cfg.YouTube.APIKey = v
	}

	if v := os.Getenv("MURMUR_TARGET_COMMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Collect.TargetComments = n
		} else {
			slog.Warn("ignoring invalid MURMUR_TARGET_COMMENTS", "value", v)
		}
	}
	if v := os.Getenv("MURMUR_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Collect.MaxAttempts = n
		} else {
			slog.Warn("ignoring invalid MURMUR_MAX_ATTEMPTS", "value", v)
		}
	}
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	switch cfg.AI.Provider {
	case "anthropic", "openai":
		// valid
	default:
		return fmt.Errorf("invalid ai.provider %q: must be \"anthropic\" or \"openai\"", cfg.AI.Provider)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	switch cfg.Archive.Backend {
	case "sqlite", "postgres", "jsonfile":
		// valid
	default:
		return fmt.Errorf("invalid archive.backend %q: must be \"sqlite\", \"postgres\" or \"jsonfile\"", cfg.Archive.Backend)
	}

	if cfg.Archive.Backend == "postgres" && cfg.Archive.PostgresDSN == "" {
		return fmt.Errorf("archive.backend is \"postgres\" but archive.postgres_dsn is empty")
	}

	if cfg.Collect.StallAttempts > cfg.Collect.MaxAttempts {
		return fmt.Errorf("invalid collect.stall_attempts %d: must be <= max_attempts (%d)",
			cfg.Collect.StallAttempts, cfg.Collect.MaxAttempts)
	}

	if cfg.AI.APIKey == "" {
		slog.Warn("ai.api_key is empty: query variants will come from the deterministic fallback generator")
	}

	return nil
}
