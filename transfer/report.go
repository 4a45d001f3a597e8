package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/adbferry/adbferry/history"
	"github.com/adbferry/adbferry/metrics"
	"github.com/adbferry/adbferry/types"
)

// Report is the structured JSON report written by --report.
// All fields use json tags matching the documented contract.
type Report struct {
	Version  string            `json:"version"`
	ExitCode int               `json:"exit_code"`
	Attempt  history.Record    `json:"attempt"`
	Metrics  *metrics.Snapshot `json:"metrics"`
}

// BuildReport composes a Report from an attempt's terminal event.
// The exitCode is the process exit code that will be returned to the caller.
func BuildReport(done CompletedEvent, exitCode int) *Report {
	snap := done.Snapshot
	return &Report{
		Version:  types.Version,
		ExitCode: exitCode,
		Attempt:  done.Record,
		Metrics:  &snap,
	}
}

// WriteReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr so stdout stays clean for command output.
func WriteReport(report *Report, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stderr.Write(data)
		if err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeReportTo writes report JSON to any writer (for testing).
func writeReportTo(report *Report, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
