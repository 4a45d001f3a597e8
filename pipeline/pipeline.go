// Package pipeline materializes transfer commands.
//
// A transfer is always three piped stages: an archiver streaming a tar
// archive, a metering filter reporting percentages on stderr, and an
// unarchiver unpacking the stream. Which end of the bridge archives and
// which unpacks depends on the direction.
//
// Building is pure: the same inputs always produce the same Spec, and no
// stage is launched here. The stages are argv vectors wired stdout-to-stdin
// by the supervisor; no host shell ever evaluates the composition. Remote
// sub-commands are the one exception, since `adb shell` and `adb exec-out`
// take a single command string for the device-side shell.
package pipeline

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/adbferry/adbferry/types"
)

// Device-side constants. The staging directory is the fixed exchange point
// on the device: pull archives it, push unpacks into it.
const (
	DefaultRemoteBaseDir    = "/sdcard"
	DefaultRemoteTargetName = "Transfer"
)

// Default tool names, resolved through PATH unless configured.
const (
	DefaultADBPath = "adb"
	DefaultPVPath  = "pv"
	DefaultTarPath = "tar"
)

// Stage is one process of the pipeline. Argv[0] is the binary.
type Stage struct {
	// Name identifies the stage in logs and launch errors.
	Name string
	// Argv is the complete argument vector, executed without a shell.
	Argv []string
}

// Spec is a fully materialized pipeline: Stages[i]'s stdout feeds
// Stages[i+1]'s stdin. The metering stage is always in the middle.
type Spec struct {
	Direction  types.Direction
	TotalBytes int64
	Stages     []Stage
}

// MeterIndex is the position of the metering stage in Spec.Stages.
const MeterIndex = 1

// String renders the pipeline as the equivalent shell line, with tokens
// quoted. Used for logging and nowhere else; the composition is never
// handed to a shell.
func (s Spec) String() string {
	rendered := make([]string, len(s.Stages))
	for i, stage := range s.Stages {
		quoted := make([]string, len(stage.Argv))
		for j, tok := range stage.Argv {
			quoted[j] = ShellQuote(tok)
		}
		rendered[i] = strings.Join(quoted, " ")
	}
	return strings.Join(rendered, " | ")
}

// Builder constructs pipeline specs from configured tool paths and remote
// directory constants.
type Builder struct {
	adbPath          string
	pvPath           string
	tarPath          string
	remoteBaseDir    string
	remoteTargetName string
}

// NewBuilder creates a builder. Empty arguments select the defaults.
func NewBuilder(adbPath, pvPath, tarPath, remoteBaseDir, remoteTargetName string) *Builder {
	if adbPath == "" {
		adbPath = DefaultADBPath
	}
	if pvPath == "" {
		pvPath = DefaultPVPath
	}
	if tarPath == "" {
		tarPath = DefaultTarPath
	}
	if remoteBaseDir == "" {
		remoteBaseDir = DefaultRemoteBaseDir
	}
	if remoteTargetName == "" {
		remoteTargetName = DefaultRemoteTargetName
	}
	return &Builder{
		adbPath:          adbPath,
		pvPath:           pvPath,
		tarPath:          tarPath,
		remoteBaseDir:    remoteBaseDir,
		remoteTargetName: remoteTargetName,
	}
}

// RemoteStagingDir returns the device-side exchange directory.
func (b *Builder) RemoteStagingDir() string {
	return path.Join(b.remoteBaseDir, b.remoteTargetName)
}

// Build materializes the pipeline for one attempt. totalBytes seeds the
// meter's size hint; zero passes through and yields an indeterminate stream.
func (b *Builder) Build(direction types.Direction, localPath string, totalBytes int64) Spec {
	meter := Stage{
		Name: "meter",
		Argv: []string{b.pvPath, "-n", "-s", strconv.FormatInt(totalBytes, 10)},
	}

	var archive, unpack Stage
	switch direction {
	case types.DirectionPull:
		// The device-side tar is whatever the device ships; the configured
		// tar path applies to host stages only.
		archive = Stage{
			Name: "archive",
			Argv: []string{
				b.adbPath, "exec-out",
				fmt.Sprintf("cd %s && tar -c -f - %s",
					ShellQuote(b.remoteBaseDir), ShellQuote(b.remoteTargetName)),
			},
		}
		unpack = Stage{
			Name: "unpack",
			Argv: []string{b.tarPath, "-xf", "-", "-C", localPath},
		}
	case types.DirectionPush:
		archive = Stage{
			Name: "archive",
			Argv: []string{b.tarPath, "-cf", "-", "-C", localPath, "."},
		}
		unpack = Stage{
			Name: "unpack",
			Argv: []string{
				b.adbPath, "shell",
				fmt.Sprintf("tar -xf - -C %s", ShellQuote(b.RemoteStagingDir())),
			},
		}
	}

	return Spec{
		Direction:  direction,
		TotalBytes: totalBytes,
		Stages:     []Stage{archive, meter, unpack},
	}
}

// ShellQuote quotes a token for POSIX shells, including the device-side
// shell behind `adb shell`. Safe tokens pass through untouched so rendered
// commands stay readable.
func ShellQuote(tok string) string {
	if tok == "" {
		return "''"
	}
	if isShellSafe(tok) {
		return tok
	}
	return "'" + strings.ReplaceAll(tok, "'", `'\''`) + "'"
}

func isShellSafe(tok string) bool {
	for _, r := range tok {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case strings.ContainsRune("@%+=:,./-_", r):
		default:
			return false
		}
	}
	return true
}
