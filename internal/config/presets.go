package config

import (
	"sort"

	"github.com/san-kum/tiltball/internal/dynamo"
)

// Presets are field layouts for common hosts, in pixels.
var Presets = map[string]dynamo.Field{
	"phone":  {Width: 1080, Height: 1920, BallSize: 100},
	"tablet": {Width: 1600, Height: 2560, BallSize: 140},
	"square": {Width: 100, Height: 100, BallSize: 10},
	// Braille sub-pixels of an 80x24 terminal canvas.
	"terminal": {Width: 160, Height: 96, BallSize: 8},
}

// GetPreset returns a config using the named field, or nil.
func GetPreset(name string) *Config {
	f, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Field = f
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
