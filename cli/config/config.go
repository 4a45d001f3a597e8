// Package config loads the adbferry YAML configuration file.
//
// Every value is optional and acts as a default for command flags; flags
// always override file values. The file itself is optional too: when the
// conventional path does not exist, commands run on built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents a config.yaml file.
type Config struct {
	// ADBPath, PVPath, and TarPath override the tool binaries otherwise
	// resolved through PATH. TarPath applies to host-side stages only;
	// the device runs whatever tar its shell provides.
	ADBPath string `yaml:"adb_path"`
	PVPath  string `yaml:"pv_path"`
	TarPath string `yaml:"tar_path"`

	// RemoteBaseDir and RemoteTargetName relocate the device-side staging
	// directory, by default /sdcard/Transfer.
	RemoteBaseDir    string `yaml:"remote_base_dir"`
	RemoteTargetName string `yaml:"remote_target_name"`

	// SamplingInterval is the minimum spacing between speed estimates.
	SamplingInterval Duration `yaml:"sampling_interval"`

	// HistoryPath overrides the attempt journal location.
	HistoryPath string `yaml:"history_path"`

	// LogLevel selects the log verbosity: debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "500ms", "2s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "500ms" or "1m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// DefaultPath returns the conventional config file location under the
// user's configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "adbferry", "config.yaml"), nil
}

// DefaultHistoryPath returns the journal location used when history_path
// is not set.
func DefaultHistoryPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "adbferry", "history.msgpack"), nil
}
