// Package project persists run configuration and packing solutions.
package project

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/piwi3910/platecut/internal/model"
)

// DefaultConfigDir returns the default directory for application
// configuration: $XDG_CONFIG_HOME/platecut, or ~/.config/platecut.
func DefaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "platecut")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "platecut")
}

// DefaultConfigPath returns the default path for the config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

// SaveConfig persists a Config to the given path as TOML.
// It creates any missing parent directories automatically.
func SaveConfig(path string, config model.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// LoadConfig reads a Config from the given path. Keys missing from the file
// keep their default value; unknown keys are an error. If the file does not
// exist, it returns DefaultConfig with no error.
func LoadConfig(path string) (model.Config, error) {
	config := model.DefaultConfig()
	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		if os.IsNotExist(err) {
			return model.DefaultConfig(), nil
		}
		return model.Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return model.Config{}, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}
	if err := config.Params.Validate(); err != nil {
		return model.Config{}, fmt.Errorf("invalid params in config %s: %w", path, err)
	}
	return config, nil
}
