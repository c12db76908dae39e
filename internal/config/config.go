// Package config loads worldsim settings from TOML over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides DefaultPath.
const (
	EnvPath     = "WORLDSIM_CONFIG"
	DefaultPath = "config/worldsim.toml"
)

type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	World      WorldConfig      `toml:"world"`
	Economy    EconomyConfig    `toml:"economy"`
	Events     EventsConfig     `toml:"events"`
	Database   DatabaseConfig   `toml:"database"`
	Logging    LoggingConfig    `toml:"logging"`
	Scenario   ScenarioConfig   `toml:"scenario"`
	API        APIConfig        `toml:"api"`
}

type SimulationConfig struct {
	Seed     int64         `toml:"seed"`
	Ticks    uint64        `toml:"ticks"`    // 0 runs until interrupted
	Speed    float64       `toml:"speed"`    // 0 runs unpaced
	Interval time.Duration `toml:"interval"` // Real time per tick at speed 1
}

type WorldConfig struct {
	Radius        int     `toml:"radius"`
	SeaLevel      float64 `toml:"sea_level"`
	MountainLevel float64 `toml:"mountain_level"`
	Cities        int     `toml:"cities"`
	Towns         int     `toml:"towns"`
	Villages      int     `toml:"villages"`
}

type EconomyConfig struct {
	Frequency          uint64  `toml:"frequency"`
	ShortageRatio      float64 `toml:"shortage_ratio"`
	SurplusRatio       float64 `toml:"surplus_ratio"`
	SpikeRatio         float64 `toml:"spike_ratio"`
	MaxTradeDistance   int     `toml:"max_trade_distance"`
	MinRouteProfit     float64 `toml:"min_route_profit"`
	MaxRoutesPerMarket int     `toml:"max_routes_per_market"`
	BaseRouteVolume    float64 `toml:"base_route_volume"`
}

type EventsConfig struct {
	MaxCascadeDepth int `toml:"max_cascade_depth"`
	// Events at or above this significance are printed as they happen.
	ChronicleThreshold int `toml:"chronicle_threshold"`
}

type DatabaseConfig struct {
	Path      string `toml:"path"` // Empty disables the archive
	SaveEvery uint64 `toml:"save_every"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "text"
}

type ScenarioConfig struct {
	Path string `toml:"path"` // Empty generates a world procedurally
}

type APIConfig struct {
	Addr string `toml:"addr"` // Empty disables the HTTP API
	// Causal chain requests allowed per client per minute.
	ChainRate int `toml:"chain_rate"`
}

// Load reads path over Defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the config path from the environment, or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.World.Radius < 1:
		return fmt.Errorf("world.radius must be positive, got %d", c.World.Radius)
	case c.Economy.Frequency == 0:
		return errors.New("economy.frequency must be positive")
	case c.Economy.ShortageRatio <= 0 || c.Economy.ShortageRatio >= 1:
		return fmt.Errorf("economy.shortage_ratio must be in (0, 1), got %g", c.Economy.ShortageRatio)
	case c.Economy.SurplusRatio <= 1:
		return fmt.Errorf("economy.surplus_ratio must exceed 1, got %g", c.Economy.SurplusRatio)
	case c.Economy.SpikeRatio <= 1:
		return fmt.Errorf("economy.spike_ratio must exceed 1, got %g", c.Economy.SpikeRatio)
	case c.Economy.MaxRoutesPerMarket < 1:
		return fmt.Errorf("economy.max_routes_per_market must be positive, got %d", c.Economy.MaxRoutesPerMarket)
	case c.Events.MaxCascadeDepth < 1:
		return fmt.Errorf("events.max_cascade_depth must be positive, got %d", c.Events.MaxCascadeDepth)
	case c.Simulation.Speed < 0:
		return fmt.Errorf("simulation.speed must not be negative, got %g", c.Simulation.Speed)
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured level name to a slog level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

func Defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Seed:     42,
			Ticks:    3600, // Ten years
			Speed:    0,
			Interval: time.Second,
		},
		World: WorldConfig{
			Radius:        16,
			SeaLevel:      0.25,
			MountainLevel: 0.72,
			Cities:        2,
			Towns:         5,
			Villages:      8,
		},
		Economy: EconomyConfig{
			Frequency:          30,
			ShortageRatio:      0.5,
			SurplusRatio:       3.0,
			SpikeRatio:         1.5,
			MaxTradeDistance:   8,
			MinRouteProfit:     15,
			MaxRoutesPerMarket: 3,
			BaseRouteVolume:    20,
		},
		Events: EventsConfig{
			MaxCascadeDepth:    64,
			ChronicleThreshold: 50,
		},
		Database: DatabaseConfig{
			Path:      "data/worldsim.db",
			SaveEvery: 360,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		API: APIConfig{
			ChainRate: 30,
		},
	}
}
