package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/weldscan/pkg/config"
	"github.com/chazu/weldscan/pkg/weld"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultMatchesWeldDefaults(t *testing.T) {
	c := config.Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, weld.DefaultParameters(), c.WeldParameters())
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 0.5, c.Mesh.LinearDeflection)
	assert.Equal(t, 0.5, c.Mesh.AngularDeflection)
	assert.Nil(t, c.NoiseFloor)
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), c)
}

func TestLoadYAMLPartial(t *testing.T) {
	path := writeFile(t, "weldscan.yaml", `
log_level: debug
parameters:
  fillet:
    min_angle: 70
`)
	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, slog.LevelDebug, c.SlogLevel())
	assert.Equal(t, 70.0, c.Parameters.Fillet.MinAngle)
	assert.Equal(t, 120.0, c.Parameters.Fillet.MaxAngle, "unset keys keep defaults")
	assert.Equal(t, weld.DefaultParameters().Butt, c.Parameters.Butt)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "weldscan.toml", `
workers = 4
noise_floor = 1.5

[bead]
radius = 2.0

[parameters.lap]
max_angle = 20.0
`)
	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, 2.0, c.Bead.Radius)
	assert.Equal(t, 64, c.Bead.Cells)
	assert.Equal(t, 20.0, c.Parameters.Lap.MaxAngle)
	assert.Equal(t, 1.5, c.WeldParameters().NoiseFloor)
	assert.Equal(t, 0.5, c.Parameters.NoiseFloor)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		isParam bool
	}{
		{"inverted fillet range", "a.yaml", "parameters:\n  fillet:\n    min_angle: 130\n", true},
		{"negative noise floor", "b.yaml", "noise_floor: -1\n", true},
		{"bad log level", "c.yaml", "log_level: loud\n", false},
		{"zero deflection", "d.toml", "[mesh]\nlinear_deflection = 0.0\n", false},
		{"negative workers", "e.yml", "workers: -2\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, tt.file, tt.content))
			require.ErrorIs(t, err, config.ErrInvalidConfig)
			if tt.isParam {
				assert.ErrorIs(t, err, weld.ErrParameterValidation)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = config.Load(writeFile(t, "weldscan.json", "{}"))
	assert.ErrorContains(t, err, "unsupported")

	_, err = config.Load(writeFile(t, "broken.yaml", "parameters: [1, 2"))
	assert.Error(t, err)
}

func TestSlogLevelUnknown(t *testing.T) {
	c := config.Default()
	c.LogLevel = "chatty"
	assert.Equal(t, slog.LevelInfo, c.SlogLevel())
	c.LogLevel = "warn"
	assert.Equal(t, slog.LevelWarn, c.SlogLevel())
}
