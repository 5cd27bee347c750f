package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile loads settings from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Settings{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data into Settings, applying defaults for missing keys.
func FromYAML(data []byte) (Settings, error) {
	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return Settings{}, fmt.Errorf("parse yaml: %w", err)
	}
	return fs.apply(Defaults())
}

// FromJSON parses JSON data into Settings, applying defaults for missing keys.
func FromJSON(data []byte) (Settings, error) {
	var fs fileSettings
	if err := json.Unmarshal(data, &fs); err != nil {
		return Settings{}, fmt.Errorf("parse json: %w", err)
	}
	return fs.apply(Defaults())
}
