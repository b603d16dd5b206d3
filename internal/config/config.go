package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/san-kum/tiltball/internal/dynamo"
	"github.com/san-kum/tiltball/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWidth       = 1080.0
	DefaultHeight      = 1920.0
	DefaultBallSize    = 100.0
	DefaultScale       = 100.0
	DefaultRateHz      = 50.0
	DefaultDuration    = 10.0
	DefaultAddr        = ":8080"
	DefaultBroadcastHz = 30
	DefaultDataDir     = ".tiltball"
	DefaultScenario    = "roll-right"
)

// Environment variables read by ApplyEnv.
const (
	EnvAddr  = "TILTBALL_ADDR"
	EnvData  = "TILTBALL_DATA"
	EnvScale = "TILTBALL_SCALE"
)

// Source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceCSV       = "csv"
	SourceKeyboard  = "keyboard"
	SourceWebsocket = "websocket"
)

type Config struct {
	Field      dynamo.Field     `yaml:"field"`
	Source     SourceConfig     `yaml:"source"`
	Controller ControllerConfig `yaml:"controller"`
	Server     ServerConfig     `yaml:"server"`
	DataDir    string           `yaml:"data_dir"`
}

type SourceConfig struct {
	Kind     string  `yaml:"kind"`
	Path     string  `yaml:"path"`
	Scenario string  `yaml:"scenario"`
	Scale    float64 `yaml:"scale"`
	InvertX  bool    `yaml:"invert_x"`
	InvertY  bool    `yaml:"invert_y"`
	RateHz   float64 `yaml:"rate_hz"`
	Duration float64 `yaml:"duration"`
}

type ControllerConfig struct {
	Reinit string `yaml:"reinit"`
	Strict bool   `yaml:"strict"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	BroadcastHz int    `yaml:"broadcast_hz"`
}

func DefaultConfig() *Config {
	return &Config{
		Field: dynamo.Field{
			Width:    DefaultWidth,
			Height:   DefaultHeight,
			BallSize: DefaultBallSize,
		},
		Source: SourceConfig{
			Kind:     SourceSynthetic,
			Scenario: DefaultScenario,
			Scale:    DefaultScale,
			InvertX:  true,
			RateHz:   DefaultRateHz,
			Duration: DefaultDuration,
		},
		Controller: ControllerConfig{
			Reinit: sim.ReinitIgnore.String(),
		},
		Server: ServerConfig{
			Addr:        DefaultAddr,
			BroadcastHz: DefaultBroadcastHz,
		},
		DataDir: DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.Merge(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge overlays the YAML file at path onto c. Keys missing from the file
// keep their current values.
func (c *Config) Merge(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Field.Validate(); err != nil {
		return err
	}
	switch c.Source.Kind {
	case SourceSynthetic, SourceCSV, SourceKeyboard, SourceWebsocket:
	default:
		return fmt.Errorf("unknown source kind: %s", c.Source.Kind)
	}
	if c.Source.Kind == SourceCSV && c.Source.Path == "" {
		return errors.New("csv source needs a path")
	}
	if c.Source.RateHz <= 0 {
		return fmt.Errorf("rate_hz must be positive, got %f", c.Source.RateHz)
	}
	if c.Source.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", c.Source.Duration)
	}
	if c.Server.BroadcastHz <= 0 {
		return fmt.Errorf("broadcast_hz must be positive, got %d", c.Server.BroadcastHz)
	}
	if _, err := sim.ParseReinitPolicy(c.Controller.Reinit); err != nil {
		return err
	}
	return nil
}

// Options converts the controller section into sim.Options.
func (c *Config) Options() (sim.Options, error) {
	policy, err := sim.ParseReinitPolicy(c.Controller.Reinit)
	if err != nil {
		return sim.Options{}, err
	}
	return sim.Options{Reinit: policy, Strict: c.Controller.Strict}, nil
}

// ApplyEnv loads the given dotenv files, skipping missing ones, and then
// overlays TILTBALL_* variables. Variables already set in the process
// environment win over the files.
func (c *Config) ApplyEnv(files ...string) error {
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return fmt.Errorf("load env: %w", err)
		}
	}

	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvData); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvScale); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvScale, err)
		}
		c.Source.Scale = scale
	}
	return nil
}
