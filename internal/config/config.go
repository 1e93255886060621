// Package config loads the server configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level server configuration.
type Config struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
	// DataDir holds the SQLite databases.
	DataDir string `yaml:"data_dir"`
	// DefinitionsDir optionally overrides the embedded block definitions
	// and enables hot reload on change.
	DefinitionsDir string `yaml:"definitions_dir"`
	// TemplatesDir optionally overrides the embedded display templates.
	TemplatesDir string `yaml:"templates_dir"`

	Preview  Preview  `yaml:"preview"`
	Autosave Autosave `yaml:"autosave"`
	Theme    Theme    `yaml:"theme"`
}

// Preview bounds the server-rendered preview endpoint.
type Preview struct {
	// RPS is the per-client request rate for preview rendering.
	RPS float64 `yaml:"rps"`
	// Burst is the token bucket size.
	Burst int `yaml:"burst"`
}

// Autosave tunes the commit coalescing windows.
type Autosave struct {
	Debounce  time.Duration `yaml:"debounce"`
	SavedHold time.Duration `yaml:"saved_hold"`
}

// Theme selects the chrome theme applied to rendered forms.
type Theme struct {
	Name    string            `yaml:"name"`
	Variant string            `yaml:"variant"`
	CSSVars map[string]string `yaml:"css_vars"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:    ":8087",
		DataDir: "data",
		Preview: Preview{
			RPS:   5,
			Burst: 10,
		},
		Autosave: Autosave{
			Debounce:  500 * time.Millisecond,
			SavedHold: 2 * time.Second,
		},
	}
}

// Load reads a YAML configuration file, filling unset values with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.Addr == "" {
		cfg.Addr = Default().Addr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = Default().DataDir
	}
	if cfg.Preview.RPS <= 0 {
		cfg.Preview.RPS = Default().Preview.RPS
	}
	if cfg.Preview.Burst <= 0 {
		cfg.Preview.Burst = Default().Preview.Burst
	}
	if cfg.Autosave.Debounce <= 0 {
		cfg.Autosave.Debounce = Default().Autosave.Debounce
	}
	if cfg.Autosave.SavedHold <= 0 {
		cfg.Autosave.SavedHold = Default().Autosave.SavedHold
	}
	return cfg, nil
}
