// Package config loads and persists daemon settings and collects the
// NDOT_* environment overrides used for power-user tuning.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the settings file name under the config directory.
const DefaultFileName = "settings.yaml"

// AutoBrightness holds the persisted auto-brightness preferences.
type AutoBrightness struct {
	Enabled bool `yaml:"enabled"`

	// Camera is the camera hint: an index ("1"), a device path, or a
	// pipeline descriptor. Empty means probe automatically.
	Camera string `yaml:"camera,omitempty"`

	IntervalMS int     `yaml:"interval_ms"`
	Min        float64 `yaml:"min"`
	Max        float64 `yaml:"max"`
}

// Settings is the persisted daemon state.
type Settings struct {
	UserBrightness float64        `yaml:"user_brightness"`
	AutoBrightness AutoBrightness `yaml:"auto_brightness"`
}

// Default returns the settings used on first launch.
func Default() Settings {
	return Settings{
		UserBrightness: 0.8,
		AutoBrightness: AutoBrightness{
			Enabled:    false,
			IntervalMS: 1000,
			Min:        0.0,
			Max:        1.0,
		},
	}
}

// DefaultPath resolves the settings file under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "ndot-clock", DefaultFileName), nil
}

// Load reads settings from path. A missing file is not an error: the
// defaults come back so first launch needs no setup.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings atomically: marshal into a temp file next to the
// target, then rename over it, so a crash mid-write never corrupts the
// previous settings.
func Save(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("config: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("config: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("config: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("config: rename into %s: %w", path, err)
	}
	return nil
}
