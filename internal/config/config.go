package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PANOTOUR_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: PANOTOUR_PORT -> port, etc.
	if err := k.Load(env.Provider("PANOTOUR_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PANOTOUR_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.ToursRoot == "" {
		return fmt.Errorf("tours_root is required")
	}

	if len(c.ImagePatterns) == 0 {
		return fmt.Errorf("image_patterns must not be empty")
	}

	if c.Assets.TimeoutSeconds <= 0 {
		return fmt.Errorf("assets.timeout_seconds must be positive")
	}

	if c.Assets.Concurrency < 1 {
		return fmt.Errorf("assets.concurrency must be at least 1")
	}

	if c.Placement.Distance <= 0 {
		return fmt.Errorf("placement.distance must be positive")
	}

	if c.Placement.Radius <= 0 {
		return fmt.Errorf("placement.radius must be positive")
	}

	for folder, files := range c.Folders {
		if folder == "" {
			return fmt.Errorf("folders must not contain an empty folder id")
		}
		seen := make(map[string]bool, len(files))
		for _, f := range files {
			if seen[f] {
				return fmt.Errorf("folder %s lists %s twice", folder, f)
			}
			seen[f] = true
		}
	}

	return nil
}
