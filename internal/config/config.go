// Package config loads kernelscope settings from a YAML file.
// A missing file is not an error: defaults are used instead.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"kernelscope/internal/kernel"
	"kernelscope/internal/logger"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath = "KERNELSCOPE_CONFIG"
	EnvLogLevel   = "LOG_LEVEL"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	Kernel struct {
		// Shapes are the presets offered in the shape selector
		Shapes []kernel.Shape `yaml:"shapes"`

		// DefaultShape indexes Shapes
		DefaultShape int `yaml:"defaultShape"`
	} `yaml:"kernel"`

	Convolution struct {
		// Backend names a registered correlator: "native" or "opencv"
		Backend string `yaml:"backend"`

		// Workers bounds how many kernels are correlated at once
		Workers int `yaml:"workers"`
	} `yaml:"convolution"`

	Preview struct {
		// MaxSize is the longest side of a rendered preview in pixels
		MaxSize int `yaml:"maxSize"`

		// Stretch maps each preview's min..max onto 0..255
		Stretch bool `yaml:"stretch"`
	} `yaml:"preview"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Kernel.Shapes = []kernel.Shape{
		{Rows: 3, Cols: 6},
		{Rows: 6, Cols: 3},
	}
	cfg.Kernel.DefaultShape = 0

	cfg.Convolution.Backend = "native"
	cfg.Convolution.Workers = runtime.NumCPU()

	cfg.Preview.MaxSize = 256
	cfg.Preview.Stretch = false

	cfg.Log.Level = "info"

	return cfg
}

// Path returns $KERNELSCOPE_CONFIG, or config.yaml under the user config directory.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "kernelscope.yaml"
	}
	return filepath.Join(dir, "kernelscope", "config.yaml")
}

// Load reads configPath over the defaults, applies LOG_LEVEL and validates the
// result. The log level is stored in its canonical form: debug, info, warn or error.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("error reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store the canonical name so "WARNING" and "warn" read back the same.
	level, _ := logger.ParseLevel(cfg.Log.Level)
	cfg.Log.Level = level.String()
	return cfg, nil
}

// Save writes cfg to configPath, creating the directory if needed.
func Save(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if len(c.Kernel.Shapes) == 0 {
		return fmt.Errorf("kernel.shapes: at least one shape is required")
	}
	for i, s := range c.Kernel.Shapes {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("kernel.shapes[%d]: %w", i, err)
		}
	}
	if c.Kernel.DefaultShape < 0 || c.Kernel.DefaultShape >= len(c.Kernel.Shapes) {
		return fmt.Errorf("kernel.defaultShape: %d out of range", c.Kernel.DefaultShape)
	}
	if c.Convolution.Backend == "" {
		return fmt.Errorf("convolution.backend: must not be empty")
	}
	if c.Convolution.Workers < 1 {
		return fmt.Errorf("convolution.workers: must be positive, got %d", c.Convolution.Workers)
	}
	if c.Preview.MaxSize < 1 {
		return fmt.Errorf("preview.maxSize: must be positive, got %d", c.Preview.MaxSize)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// DefaultKernelShape returns the preset selected by DefaultShape.
func (c *Config) DefaultKernelShape() kernel.Shape {
	return c.Kernel.Shapes[c.Kernel.DefaultShape]
}
