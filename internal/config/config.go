// Package config loads the layered configuration shared by cmd/server and
// cmd/client: built-in defaults, optionally overridden by a ripple.yaml file
// (by default in the working directory). No CLI flag overrides a Config
// field; the binaries' own flags cover values Config does not hold. This
// mirrors the layering in the teacher's cmd/ccapp/site_config.go (YAML file,
// missing file tolerated, defaults preserved) adapted from a single
// deployment-config struct to the set of tunables this service exposes.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the file name consulted in the working directory.
const DefaultPath = "ripple.yaml"

// maxConfigSize guards against an accidentally-enormous config file, as the
// teacher's site config loader does for its own YAML file.
const maxConfigSize = 1 << 20

// Config holds every tunable shared across the server and client binaries.
// yaml keys are read from ripple.yaml; fields the file omits keep their
// Default() values.
type Config struct {
	MaxNodes           int     `yaml:"max_nodes"`
	RateWindowSeconds  float64 `yaml:"rate_window_seconds"`
	NodeTTLSeconds     float64 `yaml:"node_ttl_seconds"`
	EdgeTTLSeconds     float64 `yaml:"edge_ttl_seconds"`
	EwmaAlpha          float64 `yaml:"ewma_alpha"`

	DefaultBurstCount      int `yaml:"default_burst_count"`
	DefaultBurstIntervalMs int `yaml:"default_burst_interval_ms"`
	DefaultDeclaredBytes   int `yaml:"default_declared_bytes"`
}

// Default returns the service's built-in defaults (spec.md §4.D's server
// defaults of max_nodes=10000, W=5s, plus this implementation's client
// burst/profile defaults).
func Default() Config {
	return Config{
		MaxNodes:          10000,
		RateWindowSeconds: 5,
		NodeTTLSeconds:    15,
		EdgeTTLSeconds:    15,
		EwmaAlpha:         0.2,

		DefaultBurstCount:      10,
		DefaultBurstIntervalMs: 100,
		DefaultDeclaredBytes:   512,
	}
}

// Load reads path, layering its contents over Default(). A missing file is
// not an error: Default() is returned as-is, matching the teacher's
// tolerance for an absent site-config.yml.
func Load(path string) (Config, error) {
	cfg := Default()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: stat %s: %w", path, err)
	}
	if info.Size() > maxConfigSize {
		return cfg, fmt.Errorf("config: %s exceeds %d bytes", path, maxConfigSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	// Unmarshal into the already-defaulted struct: yaml.v3 only overwrites
	// fields present in the document, so keys the file omits keep their
	// Default() value.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	slog.Debug("loaded config file", "path", path)
	return cfg, nil
}

// RateWindow returns the configured rate-calculator window as a Duration.
func (c Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSeconds * float64(time.Second))
}

// NodeTTL returns the configured node staleness TTL as a Duration.
func (c Config) NodeTTL() time.Duration {
	return time.Duration(c.NodeTTLSeconds * float64(time.Second))
}

// EdgeTTL returns the configured edge staleness TTL as a Duration.
func (c Config) EdgeTTL() time.Duration {
	return time.Duration(c.EdgeTTLSeconds * float64(time.Second))
}

// BurstInterval returns the configured default burst spacing as a Duration.
func (c Config) BurstInterval() time.Duration {
	return time.Duration(c.DefaultBurstIntervalMs) * time.Millisecond
}
