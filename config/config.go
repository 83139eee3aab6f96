// Package config carries the engine's tuning knobs. Defaults work without
// any file; a TOML file overlays them, in the same spirit as the classic
// ~/.apprc defaults-then-file pattern.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config holds every tunable the engine reads. Durations are TOML strings
// like "16ms".
type Config struct {
	MinZoom         float64  `toml:"min_zoom"`
	MaxZoom         float64  `toml:"max_zoom"`
	GridSnap        float64  `toml:"grid_snap"`
	DuplicateOffset float64  `toml:"duplicate_offset"`
	FitPadding      float64  `toml:"fit_padding"`
	HitTolerance    float64  `toml:"hit_tolerance"`
	PortHitRadius   float64  `toml:"port_hit_radius"`
	CellSize        float64  `toml:"cell_size"`
	DefaultRouting  string   `toml:"default_routing"`
	Autopan         Autopan  `toml:"autopan"`
}

// Autopan configures the drag-edge panning behavior.
type Autopan struct {
	Padding  float64  `toml:"padding"`  // screen-px edge band that triggers panning
	Speed    float64  `toml:"speed"`    // screen-px per tick
	Interval Duration `toml:"interval"` // tick period
}

// Duration wraps time.Duration for TOML text decoding.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the engine's built-in settings.
func Default() *Config {
	return &Config{
		MinZoom:         0.1,
		MaxZoom:         4.0,
		GridSnap:        10,
		DuplicateOffset: 30,
		FitPadding:      50,
		HitTolerance:    6,
		PortHitRadius:   8,
		CellSize:        256,
		DefaultRouting:  "bezier",
		Autopan: Autopan{
			Padding:  40,
			Speed:    12,
			Interval: Duration{16 * time.Millisecond},
		},
	}
}

// Load reads a TOML file over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".tanglerc.toml")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, errors.Wrapf(err, "decoding config %s", path)
	}
	if cfg.MinZoom <= 0 || cfg.MaxZoom < cfg.MinZoom {
		return nil, errors.Errorf("config %s: zoom range [%g, %g] is invalid", path, cfg.MinZoom, cfg.MaxZoom)
	}
	return cfg, nil
}
