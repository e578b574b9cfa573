// Package config loads engine settings from YAML with .env / environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the simulation.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Pathfinder PathfinderConfig `yaml:"pathfinder"`
	Character  CharacterConfig  `yaml:"character"`
	Clock      ClockConfig      `yaml:"clock"`
	Simulation SimulationConfig `yaml:"simulation"`
	Savegame   SavegameConfig   `yaml:"savegame"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// PathfinderConfig mirrors the route-following thresholds, in meters.
type PathfinderConfig struct {
	ReachRadius     float64 `yaml:"reach_radius"`
	ReachHeight     float64 `yaml:"reach_height"`
	CleanupDistance float64 `yaml:"cleanup_distance"`
	RerouteDistance float64 `yaml:"reroute_distance"`
}

type CharacterConfig struct {
	WalkSpeed            float64 `yaml:"walk_speed"`
	RunSpeed             float64 `yaml:"run_speed"`
	DialogueSecondsPerCh float64 `yaml:"dialogue_seconds_per_char"`
	DialogueMinSeconds   float64 `yaml:"dialogue_min_seconds"`
}

type ClockConfig struct {
	MinutesPerSecond float64 `yaml:"minutes_per_second"`
	StartDay         int     `yaml:"start_day"`
	StartHour        int     `yaml:"start_hour"`
	StartMinute      int     `yaml:"start_minute"`
}

type SimulationConfig struct {
	TickSeconds float64 `yaml:"tick_seconds"`
	Ticks       int     `yaml:"ticks"`
}

type SavegameConfig struct {
	Database string `yaml:"database"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Pathfinder: PathfinderConfig{
			ReachRadius:     0.5,
			ReachHeight:     2.0,
			CleanupDistance: 5.0,
			RerouteDistance: 5.0,
		},
		Character: CharacterConfig{
			WalkSpeed:            1.5,
			RunSpeed:             3.5,
			DialogueSecondsPerCh: 0.06,
			DialogueMinSeconds:   1.5,
		},
		Clock: ClockConfig{
			// 96 real minutes per game day
			MinutesPerSecond: 0.25,
			StartDay:         1,
			StartHour:        8,
		},
		Simulation: SimulationConfig{
			TickSeconds: 0.1,
			Ticks:       600,
		},
		Savegame: SavegameConfig{Database: "regoth_saves.db"},
	}
}

// Load reads the YAML file at path on top of the defaults. A missing file is
// not an error; the defaults are used. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := Parse(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()
	ApplyEnv(&cfg)

	return cfg, cfg.Validate()
}

// Parse decodes YAML into cfg, keeping values for keys that are absent.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides selected settings from the environment.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("REGOTH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("REGOTH_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("REGOTH_SAVE_DB"); v != "" {
		cfg.Savegame.Database = v
	}
}

// Validate rejects settings the simulation cannot run with.
func (c Config) Validate() error {
	if c.Pathfinder.ReachRadius <= 0 || c.Pathfinder.ReachHeight <= 0 {
		return fmt.Errorf("pathfinder reach tolerances must be positive")
	}
	if c.Simulation.TickSeconds <= 0 {
		return fmt.Errorf("simulation tick_seconds must be positive")
	}
	if c.Clock.MinutesPerSecond < 0 {
		return fmt.Errorf("clock minutes_per_second must not be negative")
	}
	if c.Clock.StartHour < 0 || c.Clock.StartHour > 23 || c.Clock.StartMinute < 0 || c.Clock.StartMinute > 59 {
		return fmt.Errorf("clock start time %02d:%02d is out of range", c.Clock.StartHour, c.Clock.StartMinute)
	}
	return nil
}
