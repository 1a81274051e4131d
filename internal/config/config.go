// Package config loads viewer settings from a YAML file and the
// environment. Every setting has a default, so both a missing file and
// a partial one are fine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mpr-visualizer/internal/render"
)

// DefaultFileName is the config file looked up in the working directory
// when no explicit path is given.
const DefaultFileName = "mpr-visualizer.yaml"

type Config struct {
	Window struct {
		Title  string `yaml:"title"`
		Width  int    `yaml:"width"`
		Height int    `yaml:"height"`
	} `yaml:"window"`

	Display struct {
		// Colormap and Filter hold selector names; see render.Colormaps
		// and render.Filters.
		Colormap      string  `yaml:"colormap"`
		Filter        string  `yaml:"filter"`
		GaussianSigma float64 `yaml:"gaussianSigma"`
	} `yaml:"display"`

	Snapshot struct {
		Size     int    `yaml:"size"`
		Autosave bool   `yaml:"autosave"`
		Dir      string `yaml:"dir"`
	} `yaml:"snapshot"`

	Debug struct {
		LogLevel     string `yaml:"logLevel"`
		JSONLogging  bool   `yaml:"jsonLogging"`
		TrackTimings bool   `yaml:"trackTimings"`
		TrackMemory  bool   `yaml:"trackMemory"`
		TrackFiles   bool   `yaml:"trackFiles"`
		StackTraces  bool   `yaml:"stackTraces"`
	} `yaml:"debug"`
}

func Default() *Config {
	cfg := &Config{}

	cfg.Window.Title = "Advanced MPR Visualizer"
	cfg.Window.Width = 1200
	cfg.Window.Height = 800

	cfg.Display.Colormap = render.ColormapGray.String()
	cfg.Display.Filter = render.FilterNone.String()
	cfg.Display.GaussianSigma = render.DefaultSigma

	cfg.Snapshot.Size = render.DefaultThumbnailSize
	cfg.Snapshot.Autosave = false
	cfg.Snapshot.Dir = "snapshots"

	cfg.Debug.LogLevel = "info"
	cfg.Debug.JSONLogging = false
	cfg.Debug.TrackTimings = true
	cfg.Debug.TrackMemory = true
	cfg.Debug.TrackFiles = true
	cfg.Debug.StackTraces = false

	return cfg
}

// Load reads the YAML file at path, applies MPR_* environment
// overrides, and validates the result. A missing file is not an error;
// the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultFileName
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory when
// needed.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate normalizes out-of-range numeric settings back to their
// defaults and rejects unknown colormap or filter names.
func (c *Config) Validate() error {
	def := Default()

	if c.Window.Title == "" {
		c.Window.Title = def.Window.Title
	}
	if c.Window.Width <= 0 {
		c.Window.Width = def.Window.Width
	}
	if c.Window.Height <= 0 {
		c.Window.Height = def.Window.Height
	}
	if c.Display.Colormap == "" {
		c.Display.Colormap = def.Display.Colormap
	}
	if c.Display.Filter == "" {
		c.Display.Filter = def.Display.Filter
	}
	if c.Display.GaussianSigma <= 0 {
		c.Display.GaussianSigma = def.Display.GaussianSigma
	}
	if c.Snapshot.Size <= 0 {
		c.Snapshot.Size = def.Snapshot.Size
	}
	if c.Snapshot.Dir == "" {
		c.Snapshot.Dir = def.Snapshot.Dir
	}
	if c.Debug.LogLevel == "" {
		c.Debug.LogLevel = def.Debug.LogLevel
	}

	if _, err := render.ParseColormap(c.Display.Colormap); err != nil {
		return fmt.Errorf("invalid display.colormap: %w", err)
	}
	if _, err := render.ParseFilter(c.Display.Filter); err != nil {
		return fmt.Errorf("invalid display.filter: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MPR_LOG_LEVEL"); v != "" {
		c.Debug.LogLevel = v
	}
	if v := os.Getenv("MPR_COLORMAP"); v != "" {
		c.Display.Colormap = v
	}
	if v := os.Getenv("MPR_FILTER"); v != "" {
		c.Display.Filter = v
	}
	if v := os.Getenv("MPR_SNAPSHOT_DIR"); v != "" {
		c.Snapshot.Dir = v
	}
	c.Debug.JSONLogging = envBool("MPR_JSON_LOGS", c.Debug.JSONLogging)
	c.Debug.StackTraces = envBool("MPR_STACK_TRACES", c.Debug.StackTraces)
	c.Snapshot.Autosave = envBool("MPR_SNAPSHOT_AUTOSAVE", c.Snapshot.Autosave)
}

func envBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}
