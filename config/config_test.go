package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.1, cfg.MinZoom)
	assert.Equal(t, 4.0, cfg.MaxZoom)
	assert.Equal(t, 10.0, cfg.GridSnap)
	assert.Equal(t, 50.0, cfg.FitPadding)
	assert.Equal(t, "bezier", cfg.DefaultRouting)
	assert.Equal(t, 16*time.Millisecond, cfg.Autopan.Interval.Duration)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tangle.toml")
	body := `
min_zoom = 0.5
grid_snap = 20

[autopan]
padding = 10
speed = 5
interval = "20ms"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.MinZoom)
	assert.Equal(t, 4.0, cfg.MaxZoom, "unset keys keep their defaults")
	assert.Equal(t, 20.0, cfg.GridSnap)
	assert.Equal(t, 10.0, cfg.Autopan.Padding)
	assert.Equal(t, 20*time.Millisecond, cfg.Autopan.Interval.Duration)
}

func TestLoad_RejectsInvalidZoomRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tangle.toml")
	require.NoError(t, os.WriteFile(path, []byte("min_zoom = 2.0\nmax_zoom = 0.5\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tangle.toml")
	require.NoError(t, os.WriteFile(path, []byte("min_zoom = {"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("250ms")))
	assert.Equal(t, 250*time.Millisecond, d.Duration)
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
