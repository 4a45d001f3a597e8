package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/adbferry/adbferry/cli/config"
	"github.com/adbferry/adbferry/history"
	"github.com/adbferry/adbferry/log"
)

// loadConfig resolves the config file for a command. An explicit --config
// path must exist; the conventional path is optional and a missing file
// yields built-in defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// buildLogger creates the command's logger, honoring --log-level over the
// config file's log_level.
func buildLogger(c *cli.Context, cfg *config.Config) (*log.Logger, error) {
	token := resolveString(c, "log-level", cfg.LogLevel)
	level, err := log.ParseLevel(token)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", token, err)
	}
	return log.NewLoggerAt(level), nil
}

// resolveString applies flag-over-config precedence: an explicitly set flag
// wins, then a non-empty config value, then the flag's built-in default.
func resolveString(c *cli.Context, name, configVal string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if configVal != "" {
		return configVal
	}
	return c.String(name)
}

// journalPath resolves the history journal location from config, falling
// back to the conventional path.
func journalPath(cfg *config.Config) (string, error) {
	if cfg.HistoryPath != "" {
		return cfg.HistoryPath, nil
	}
	return config.DefaultHistoryPath()
}

// readHistory loads journal records, tolerating a damaged tail: corruption
// past the readable prefix is reported as a warning, not a failure, so the
// readable attempts stay visible.
func readHistory(cfg *config.Config) ([]history.Record, string, error) {
	path, err := journalPath(cfg)
	if err != nil {
		return nil, "", err
	}
	records, err := history.Read(path)
	if err != nil {
		if history.IsCorruption(err) {
			return records, fmt.Sprintf("journal damaged after %d records: %v", len(records), err), nil
		}
		return nil, "", err
	}
	return records, "", nil
}
