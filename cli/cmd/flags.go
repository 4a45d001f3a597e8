// Package cmd provides CLI commands for the adbferry binary.
package cmd

import (
	"os"

	"github.com/urfave/cli/v2"
)

// Shared flags.
var (
	// FormatFlag selects output format for read-only commands: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// ConfigFlag overrides the conventional config file location.
	ConfigFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to config file (default: ~/.config/adbferry/config.yaml)",
	}

	// LogLevelFlag overrides the configured log verbosity.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log verbosity: debug, info, warn, error",
	}
)

// ReadOnlyFlags returns the shared flags for commands that only read state
// (status, history, stats, version).
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		ConfigFlag,
	}
}

// isStdoutTTY reports whether stdout is a terminal. Transfers default to the
// live view on a terminal and to plain line output everywhere else.
func isStdoutTTY() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// isStderrTTY reports whether stderr is a terminal.
func isStderrTTY() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
