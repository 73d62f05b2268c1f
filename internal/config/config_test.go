package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, k := range []string{"PKGIDX_CONFIG_FILE", "PKGIDX_REPO_URL", "PKGIDX_LISTEN_ADDR", "PKGIDX_SYNC_INTERVAL", "PKGIDX_LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := Load()
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.SyncInterval != time.Minute {
		t.Errorf("SyncInterval = %v", cfg.SyncInterval)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yamlPath := filepath.Join(dir, "pkgindex.yaml")
	if err := os.WriteFile(yamlPath, []byte("listenAddr: \":9000\"\nlogLevel: \"warn\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PKGIDX_LOG_LEVEL", "error")

	cfg := Load()
	if cfg.ListenAddr != ":9000" {
		t.Errorf("expected file value to apply, got ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.LogLevel != slog.LevelError {
		t.Errorf("expected env value to win over file, got LogLevel = %v", cfg.LogLevel)
	}
}

func TestParseDurationAcceptsBareSeconds(t *testing.T) {
	d, err := parseDuration("30")
	if err != nil {
		t.Fatalf("parseDuration: %v", err)
	}
	if d != 30*time.Second {
		t.Errorf("got %v want 30s", d)
	}
}

func TestParseLogLevelFallsBackOnUnknown(t *testing.T) {
	got := parseLogLevel("verbose", slog.LevelInfo)
	if got != slog.LevelInfo {
		t.Errorf("got %v want fallback LevelInfo", got)
	}
}
