package config

import (
	"os"
	"path/filepath"
	"testing"

	"offline_router/pkg/routing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	if cfg.Graph.CacheSlots != 32 {
		t.Errorf("CacheSlots: got %d, want 32", cfg.Graph.CacheSlots)
	}
	if cfg.Routing.TravelTimeConstant != 0.02769230769230769 {
		t.Errorf("TravelTimeConstant: got %g", cfg.Routing.TravelTimeConstant)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvLocation, "")
	t.Setenv(EnvLogLevel, "")

	path := writeConfig(t, `
graph:
  location: /data/bw.ch
  cache-slots: 64
routing:
  snap-radius-meters: 250
build:
  core-fraction: 0.05
log:
  level: debug
  development: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.Location != "/data/bw.ch" || cfg.Graph.CacheSlots != 64 {
		t.Errorf("graph: got %+v", cfg.Graph)
	}
	if cfg.Routing.SnapRadiusMeters != 250 {
		t.Errorf("SnapRadiusMeters: got %g", cfg.Routing.SnapRadiusMeters)
	}
	if cfg.Routing.TravelTimeConstant != routing.DefaultTravelTimeConstant {
		t.Errorf("unset TravelTimeConstant should keep default, got %g", cfg.Routing.TravelTimeConstant)
	}
	if cfg.Build.CoreFraction != 0.05 || cfg.Build.CellSizeE7 != 100_000 {
		t.Errorf("build: got %+v", cfg.Build)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Development {
		t.Errorf("log: got %+v", cfg.Log)
	}

	opts := cfg.EngineOptions()
	if opts.CacheSlots != 64 || opts.SnapRadiusMeters != 250 {
		t.Errorf("EngineOptions: got %+v", opts)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvLocation, "/env/graph.ch")
	t.Setenv(EnvLogLevel, "WARN")

	path := writeConfig(t, "graph:\n  location: /file/graph.ch\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.Location != "/env/graph.ch" {
		t.Errorf("Location: got %q, want env value", cfg.Graph.Location)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level: got %q, want warn", cfg.Log.Level)
	}

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load without file: %v", err)
	}
	if cfg.Graph.Location != "/env/graph.ch" {
		t.Errorf("Location without file: got %q", cfg.Graph.Location)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvLocation, "")
	t.Setenv(EnvLogLevel, "")

	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "graph: [unterminated"},
		{"zero cache", "graph:\n  cache-slots: 0\n"},
		{"negative radius", "routing:\n  snap-radius-meters: -1\n"},
		{"zero radius", "routing:\n  snap-radius-meters: 0\n"},
		{"zero travel time", "routing:\n  travel-time-constant: 0\n"},
		{"core fraction too big", "build:\n  core-fraction: 1.5\n"},
		{"zero core fraction", "build:\n  core-fraction: 0\n"},
		{"zero cell size", "build:\n  cell-size-e7: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("missing file: expected error")
	}
}
