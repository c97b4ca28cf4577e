// Package config loads weldscan settings: logging, worker count, display
// meshing, bead previews and the weld parameters. Defaults are embedded;
// a YAML or TOML file overrides any subset of them.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chazu/weldscan/pkg/weld"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is returned when a loaded configuration fails
// validation.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// MeshConfig controls display tessellation.
type MeshConfig struct {
	LinearDeflection  float64 `yaml:"linear_deflection" toml:"linear_deflection" json:"linear_deflection" validate:"gt=0"`
	AngularDeflection float64 `yaml:"angular_deflection" toml:"angular_deflection" json:"angular_deflection" validate:"gt=0"`
}

// BeadConfig controls weld bead preview meshes.
type BeadConfig struct {
	Radius float64 `yaml:"radius" toml:"radius" json:"radius" validate:"gt=0"`
	Cells  int     `yaml:"cells" toml:"cells" json:"cells" validate:"gte=8,lte=512"`
}

// Config is the full application configuration.
type Config struct {
	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	Workers  int    `yaml:"workers" toml:"workers" json:"workers" validate:"gte=0"`
	// NoiseFloor, when set, overrides parameters.noise_floor.
	NoiseFloor *float64        `yaml:"noise_floor,omitempty" toml:"noise_floor,omitempty" json:"noise_floor,omitempty" validate:"omitempty,gte=0"`
	Mesh       MeshConfig      `yaml:"mesh" toml:"mesh" json:"mesh"`
	Bead       BeadConfig      `yaml:"bead" toml:"bead" json:"bead"`
	Parameters weld.Parameters `yaml:"parameters" toml:"parameters" json:"parameters"`
}

var configValidate = validator.New()

// Default returns the embedded defaults.
func Default() Config {
	var c Config
	if err := yaml.Unmarshal(defaultsYAML, &c); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return c
}

// Load reads path over the defaults. The decoder is chosen by extension:
// .yaml and .yml use YAML, .toml uses TOML. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &c); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("config: unsupported file type %q", ext)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	slog.Debug("config loaded", slog.String("path", path))
	return c, nil
}

// Validate checks every section, including the weld parameters.
func (c Config) Validate() error {
	if err := c.WeldParameters().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WeldParameters returns the parameters with the top-level noise floor
// applied.
func (c Config) WeldParameters() weld.Parameters {
	p := c.Parameters
	if c.NoiseFloor != nil {
		p.NoiseFloor = *c.NoiseFloor
	}
	return p
}

// SlogLevel maps LogLevel to a slog level. Unknown names give Info.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
