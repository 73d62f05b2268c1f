// Package config loads process configuration for cmd/poppyindex:
// defaults, optionally overridden by a YAML file, further overridden by
// PKGIDX_* environment variables.
//
// Grounded on zephyraoss-poppy-pkgs/internal/config.Load's
// getenv/durationEnv/logLevelEnv layering, extended with a YAML file
// layer using gopkg.in/yaml.v3, the same library used elsewhere for
// manifest parsing, given a second job here.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting cmd/poppyindex needs to start.
type Config struct {
	RepoURL      string
	RepoPath     string
	DBPath       string
	StatePath    string
	ListenAddr   string
	SyncInterval time.Duration
	LogLevel     slog.Level
}

// fileConfig is the shape of the optional YAML config file. Fields are
// pointers so an absent key doesn't shadow a value from a lower layer.
type fileConfig struct {
	RepoURL      *string `yaml:"repoURL"`
	RepoPath     *string `yaml:"repoPath"`
	DBPath       *string `yaml:"dbPath"`
	StatePath    *string `yaml:"statePath"`
	ListenAddr   *string `yaml:"listenAddr"`
	SyncInterval *string `yaml:"syncInterval"`
	LogLevel     *string `yaml:"logLevel"`
}

// Load builds a Config from defaults, an optional YAML file
// (PKGIDX_CONFIG_FILE, defaulting to ./pkgindex.yaml if present), and
// PKGIDX_* environment variables, in that ascending order of precedence.
func Load() Config {
	cfg := Config{
		RepoURL:      "https://github.com/apple/swift-package-collection-generator.git",
		RepoPath:     filepath.Clean("./data/collections-repo"),
		DBPath:       filepath.Clean("./data/poppyindex.db"),
		StatePath:    filepath.Clean("./data/sync-state.json"),
		ListenAddr:   ":8080",
		SyncInterval: time.Minute,
		LogLevel:     slog.LevelInfo,
	}

	applyFile(&cfg, resolveConfigFilePath())
	applyEnv(&cfg)
	return cfg
}

func resolveConfigFilePath() string {
	if v := os.Getenv("PKGIDX_CONFIG_FILE"); v != "" {
		return v
	}
	if _, err := os.Stat("pkgindex.yaml"); err == nil {
		return "pkgindex.yaml"
	}
	return ""
}

func applyFile(cfg *Config, path string) {
	if path == "" {
		return
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return
	}
	if fc.RepoURL != nil {
		cfg.RepoURL = *fc.RepoURL
	}
	if fc.RepoPath != nil {
		cfg.RepoPath = *fc.RepoPath
	}
	if fc.DBPath != nil {
		cfg.DBPath = *fc.DBPath
	}
	if fc.StatePath != nil {
		cfg.StatePath = *fc.StatePath
	}
	if fc.ListenAddr != nil {
		cfg.ListenAddr = *fc.ListenAddr
	}
	if fc.SyncInterval != nil {
		if d, err := parseDuration(*fc.SyncInterval); err == nil {
			cfg.SyncInterval = d
		}
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = parseLogLevel(*fc.LogLevel, cfg.LogLevel)
	}
}

func applyEnv(cfg *Config) {
	cfg.RepoURL = getenv("PKGIDX_REPO_URL", cfg.RepoURL)
	cfg.RepoPath = getenv("PKGIDX_REPO_PATH", cfg.RepoPath)
	cfg.DBPath = getenv("PKGIDX_DB_PATH", cfg.DBPath)
	cfg.StatePath = getenv("PKGIDX_STATE_PATH", cfg.StatePath)
	cfg.ListenAddr = getenv("PKGIDX_LISTEN_ADDR", cfg.ListenAddr)
	cfg.SyncInterval = durationEnv("PKGIDX_SYNC_INTERVAL", cfg.SyncInterval)
	cfg.LogLevel = logLevelEnv("PKGIDX_LOG_LEVEL", cfg.LogLevel)
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := parseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func parseDuration(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, strconv.ErrSyntax
}

func logLevelEnv(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return parseLogLevel(v, fallback)
}

func parseLogLevel(v string, fallback slog.Level) slog.Level {
	switch v {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	default:
		return fallback
	}
}
