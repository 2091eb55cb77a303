package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("cfg = %+v, want Default()", cfg)
	}
}

func TestLoadOverridesOnlySpecifiedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ripple.yaml")
	if err := os.WriteFile(path, []byte("max_nodes: 50\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxNodes != 50 {
		t.Fatalf("max_nodes = %d, want 50", cfg.MaxNodes)
	}
	want := Default()
	if cfg.RateWindowSeconds != want.RateWindowSeconds {
		t.Fatalf("rate_window_seconds = %v, want untouched default %v", cfg.RateWindowSeconds, want.RateWindowSeconds)
	}
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ripple.yaml")
	big := make([]byte, maxConfigSize+1)
	if err := os.WriteFile(path, big, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for oversized config file")
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if cfg.RateWindow() != 5*time.Second {
		t.Fatalf("RateWindow() = %v, want 5s", cfg.RateWindow())
	}
	if cfg.NodeTTL() != 15*time.Second {
		t.Fatalf("NodeTTL() = %v, want 15s", cfg.NodeTTL())
	}
	if cfg.BurstInterval() != 100*time.Millisecond {
		t.Fatalf("BurstInterval() = %v, want 100ms", cfg.BurstInterval())
	}
}
