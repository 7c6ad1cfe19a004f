package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Search.CacheTTL != 10*time.Minute {
		t.Errorf("search cache ttl = %v, want 10m", cfg.Search.CacheTTL)
	}
	if cfg.Search.CacheMaxEntries != 100 {
		t.Errorf("search cache max entries = %d, want 100", cfg.Search.CacheMaxEntries)
	}
	if cfg.Search.DebounceDelay != 300*time.Millisecond {
		t.Errorf("debounce delay = %v, want 300ms", cfg.Search.DebounceDelay)
	}
	if cfg.Search.Timeout != 30*time.Second {
		t.Errorf("search timeout = %v, want 30s", cfg.Search.Timeout)
	}
	if !cfg.Search.PrefetchEnabled {
		t.Error("prefetch should default on")
	}
	if cfg.Search.PrefetchMinChars != 3 {
		t.Errorf("prefetch min chars = %d, want 3", cfg.Search.PrefetchMinChars)
	}
	if cfg.Search.SweepInterval != time.Minute {
		t.Errorf("sweep interval = %v, want 1m", cfg.Search.SweepInterval)
	}
	if cfg.Engine.ChunkSize != 10 {
		t.Errorf("chunk size = %d, want 10", cfg.Engine.ChunkSize)
	}
	if cfg.Engine.HealthAlertBelow != 25.0 {
		t.Errorf("health alert threshold = %v, want 25", cfg.Engine.HealthAlertBelow)
	}
	if cfg.Health.RefreshAfter != 5*time.Minute {
		t.Errorf("health refresh after = %v, want 5m", cfg.Health.RefreshAfter)
	}
	if cfg.Engine.ConflictResolution.Enabled {
		t.Error("default conflict resolution should be opt-in")
	}
	strategies := cfg.Engine.ConflictResolution.Strategies
	if len(strategies) != 8 || strategies[0] != "health" {
		t.Errorf("conflict resolution strategies = %v", strategies)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want default", cfg.Server.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
search:
  cache_max_entries: 50
engine:
  chunk_size: 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Search.CacheMaxEntries != 50 {
		t.Errorf("cache max entries = %d, want 50", cfg.Search.CacheMaxEntries)
	}
	if cfg.Engine.ChunkSize != 4 {
		t.Errorf("chunk size = %d, want 4", cfg.Engine.ChunkSize)
	}
	// Unspecified keys keep their defaults.
	if cfg.Search.CacheTTL != 10*time.Minute {
		t.Errorf("cache ttl = %v, want default 10m", cfg.Search.CacheTTL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RIPTIDE_SERVER_PORT", "7070")
	t.Setenv("RIPTIDE_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("server port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestAddress(t *testing.T) {
	sc := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := sc.Address(); got != "127.0.0.1:8080" {
		t.Errorf("Address() = %q", got)
	}
}
