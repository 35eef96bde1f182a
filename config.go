package cozy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Msaa is the multisample count used by every render target.
type Msaa uint32

const (
	MsaaOff  Msaa = 1
	Msaa2    Msaa = 2
	Msaa4    Msaa = 4
	Msaa8    Msaa = 8
	MsaaAuto      = Msaa4
)

// Valid reports whether m is a supported sample count.
func (m Msaa) Valid() bool {
	switch m {
	case MsaaOff, Msaa2, Msaa4, Msaa8:
		return true
	default:
		return false
	}
}

// Resolution is the surface size in pixels.
type Resolution struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

// Config holds game configuration. The zero value is not useful; start from
// DefaultConfig or LoadConfig.
type Config struct {
	Title      string     `yaml:"title"`
	Resolution Resolution `yaml:"resolution"`
	ClearColor Color      `yaml:"clear_color"`

	// TargetFPS caps the simulation tick rate. Zero means unlimited.
	TargetFPS int `yaml:"target_fps"`

	Msaa    Msaa `yaml:"msaa"`
	ZBuffer bool `yaml:"z_buffer"`
	VSync   bool `yaml:"vsync"`

	// ShaderDir, when set, is watched for shader hot reload.
	ShaderDir string `yaml:"shader_dir"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Title:      "cozy",
		Resolution: Resolution{Width: 1280, Height: 720},
		ClearColor: RGB(0.1, 0.1, 0.12),
		TargetFPS:  60,
		Msaa:       MsaaAuto,
		VSync:      true,
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize replaces unsupported values with defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if !c.Msaa.Valid() {
		Logger().Warn("unsupported msaa sample count, using default", "msaa", c.Msaa, "default", def.Msaa)
		c.Msaa = def.Msaa
	}
	if c.TargetFPS < 0 {
		c.TargetFPS = 0
	}
	if c.Resolution.Width == 0 || c.Resolution.Height == 0 {
		c.Resolution = def.Resolution
	}
	if c.Title == "" {
		c.Title = def.Title
	}
}
