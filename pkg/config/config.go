// Package config loads the router configuration from a YAML file, an
// optional .env file and the environment.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"offline_router/pkg/routing"
	"offline_router/pkg/store"
)

// Environment variables overriding file settings.
const (
	EnvLocation = "OFFLINE_CH_LOCATION"
	EnvLogLevel = "OFFLINE_LOG_LEVEL"
)

type Config struct {
	Graph   GraphOptions   `yaml:"graph"`
	Routing RoutingOptions `yaml:"routing"`
	Build   BuildOptions   `yaml:"build"`
	Log     LogOptions     `yaml:"log"`
}

type GraphOptions struct {
	// Location is the path of the graph file.
	Location   string `yaml:"location"`
	CacheSlots int    `yaml:"cache-slots"`
}

type RoutingOptions struct {
	SnapRadiusMeters   float64 `yaml:"snap-radius-meters"`
	TravelTimeConstant float64 `yaml:"travel-time-constant"`
}

type BuildOptions struct {
	// CoreFraction is the share of nodes left uncontracted.
	CoreFraction float64 `yaml:"core-fraction"`
	CellSizeE7   int32   `yaml:"cell-size-e7"`
}

type LogOptions struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Graph: GraphOptions{
			CacheSlots: routing.DefaultCacheSlots,
		},
		Routing: RoutingOptions{
			SnapRadiusMeters:   store.DefaultSnapRadius,
			TravelTimeConstant: routing.DefaultTravelTimeConstant,
		},
		Build: BuildOptions{
			CoreFraction: 0.02,
			CellSizeE7:   store.DefaultCellSizeE7,
		},
		Log: LogOptions{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file. A .env file in the
// working directory is loaded if present; variables already set win.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "load .env")
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvLocation); ok && v != "" {
		c.Graph.Location = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Graph.CacheSlots <= 0:
		return errors.Errorf("graph.cache-slots must be positive, got %d", c.Graph.CacheSlots)
	case c.Routing.SnapRadiusMeters <= 0:
		return errors.Errorf("routing.snap-radius-meters must be positive, got %g", c.Routing.SnapRadiusMeters)
	case c.Routing.TravelTimeConstant <= 0:
		return errors.Errorf("routing.travel-time-constant must be positive, got %g", c.Routing.TravelTimeConstant)
	case c.Build.CoreFraction <= 0 || c.Build.CoreFraction > 1:
		return errors.Errorf("build.core-fraction must be in (0,1], got %g", c.Build.CoreFraction)
	case c.Build.CellSizeE7 <= 0:
		return errors.Errorf("build.cell-size-e7 must be positive, got %d", c.Build.CellSizeE7)
	}
	return nil
}

// EngineOptions returns the routing options of c.
func (c *Config) EngineOptions() routing.Options {
	return routing.Options{
		CacheSlots:         c.Graph.CacheSlots,
		SnapRadiusMeters:   c.Routing.SnapRadiusMeters,
		TravelTimeConstant: c.Routing.TravelTimeConstant,
	}
}
