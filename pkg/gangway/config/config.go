// Package config loads bridge settings from YAML or JSON files.
//
// All settings have working defaults; a missing file section leaves the
// default in place. Durations are written as Go duration strings ("300ms",
// "5s").
package config

import (
	"fmt"
	"time"
)

// Settings holds the tunables for both sides of the bridge.
type Settings struct {
	// InvokeTimeout bounds every round trip through the channel adapter.
	InvokeTimeout time.Duration

	// QuietWindow is the debounce window the cache waits after an
	// invalidation signal before refetching.
	QuietWindow time.Duration

	// FetchTimeout bounds each query fetch feeding a subscription.
	FetchTimeout time.Duration

	// LogLevel is the slog level name: "debug", "info", "warn", "error".
	LogLevel string
}

// Defaults returns the settings used when no file is given.
func Defaults() Settings {
	return Settings{
		InvokeTimeout: 5 * time.Second,
		QuietWindow:   300 * time.Millisecond,
		FetchTimeout:  5 * time.Second,
		LogLevel:      "info",
	}
}

// fileSettings is the serialized shape. Durations are strings so config
// files read naturally.
type fileSettings struct {
	InvokeTimeout string `yaml:"invoke_timeout" json:"invoke_timeout"`
	QuietWindow   string `yaml:"quiet_window" json:"quiet_window"`
	FetchTimeout  string `yaml:"fetch_timeout" json:"fetch_timeout"`
	LogLevel      string `yaml:"log_level" json:"log_level"`
}

func (fs fileSettings) apply(s Settings) (Settings, error) {
	var err error
	if s.InvokeTimeout, err = overrideDuration(s.InvokeTimeout, fs.InvokeTimeout, "invoke_timeout"); err != nil {
		return s, err
	}
	if s.QuietWindow, err = overrideDuration(s.QuietWindow, fs.QuietWindow, "quiet_window"); err != nil {
		return s, err
	}
	if s.FetchTimeout, err = overrideDuration(s.FetchTimeout, fs.FetchTimeout, "fetch_timeout"); err != nil {
		return s, err
	}
	if fs.LogLevel != "" {
		switch fs.LogLevel {
		case "debug", "info", "warn", "error":
			s.LogLevel = fs.LogLevel
		default:
			return s, fmt.Errorf("invalid log_level %q", fs.LogLevel)
		}
	}
	return s, nil
}

func overrideDuration(current time.Duration, raw, key string) (time.Duration, error) {
	if raw == "" {
		return current, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return current, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return current, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
