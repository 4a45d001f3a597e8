// Package bridge wraps the adb side of a transfer: device presence, remote
// tree sizing, and staging directory creation.
//
// Every call is one short-lived adb subprocess. The device is a black box
// behind the bridge; nothing here speaks a network protocol.
package bridge

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/adbferry/adbferry/log"
	"github.com/adbferry/adbferry/pipeline"
)

// Runner executes one external command and returns its stdout.
// The production runner shells out; tests substitute canned transcripts.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Output runs the command and returns its stdout. A non-zero exit is an
// error (exec.ExitError) with stderr attached by os/exec.
func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ADB issues bridge commands against the configured adb binary.
type ADB struct {
	path   string
	runner Runner
	logger *log.Logger
}

// New creates a bridge using the real exec runner.
// An empty path selects the default adb from PATH.
func New(path string, logger *log.Logger) *ADB {
	return NewWithRunner(path, ExecRunner{}, logger)
}

// NewWithRunner creates a bridge with an injected runner.
func NewWithRunner(path string, runner Runner, logger *log.Logger) *ADB {
	if path == "" {
		path = pipeline.DefaultADBPath
	}
	return &ADB{path: path, runner: runner, logger: logger}
}

// Path returns the adb binary this bridge invokes.
func (a *ADB) Path() string {
	return a.path
}

// DevicePresent reports whether exactly one authorized device is attached.
// `adb get-state` prints "device" and exits zero in that case; every other
// response (no device, unauthorized, offline) reads as absent.
func (a *ADB) DevicePresent(ctx context.Context) bool {
	out, err := a.runner.Output(ctx, a.path, "get-state")
	if err != nil {
		a.logger.Debug("device check failed", map[string]any{
			"error": err.Error(),
		})
		return false
	}
	state := strings.TrimSpace(string(out))
	if state != "device" {
		a.logger.Debug("device not ready", map[string]any{
			"state": state,
		})
		return false
	}
	return true
}

// TreeSize returns the byte size of a remote directory tree via
// `du -s -b`. Any failure (missing directory, unparsable output) degrades
// to zero with the detail logged; zero means indeterminate progress, never
// a fatal condition.
func (a *ADB) TreeSize(ctx context.Context, remotePath string) int64 {
	out, err := a.runner.Output(ctx, a.path, "shell",
		fmt.Sprintf("du -s -b %s", pipeline.ShellQuote(remotePath)))
	if err != nil {
		a.logger.Warn("remote size query failed", map[string]any{
			"path":  remotePath,
			"error": err.Error(),
		})
		return 0
	}

	// du output: "<bytes>\t<path>"
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		a.logger.Warn("remote size query returned no output", map[string]any{
			"path": remotePath,
		})
		return 0
	}
	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || size < 0 {
		a.logger.Warn("remote size unparsable", map[string]any{
			"path":   remotePath,
			"output": strings.TrimSpace(string(out)),
		})
		return 0
	}
	return size
}

// EnsureDir creates the remote directory if missing, parents included.
func (a *ADB) EnsureDir(ctx context.Context, remotePath string) error {
	_, err := a.runner.Output(ctx, a.path, "shell",
		fmt.Sprintf("mkdir -p %s", pipeline.ShellQuote(remotePath)))
	if err != nil {
		return fmt.Errorf("create remote dir %s: %w", remotePath, err)
	}
	return nil
}
