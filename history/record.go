package history

import (
	"time"

	"github.com/adbferry/adbferry/metrics"
	"github.com/adbferry/adbferry/types"
)

// Record is one journaled transfer attempt.
type Record struct {
	// AttemptID identifies the attempt across logs and reports.
	AttemptID string `msgpack:"attempt_id" json:"attempt_id"`
	// Direction is pull or push.
	Direction types.Direction `msgpack:"direction" json:"direction"`
	// LocalPath is the host-side folder of the attempt.
	LocalPath string `msgpack:"local_path" json:"local_path"`
	// RemotePath is the device-side staging directory.
	RemotePath string `msgpack:"remote_path" json:"remote_path"`
	// Pipeline is the rendered command line the attempt executed.
	// Empty when the attempt never reached the pipeline.
	Pipeline string `msgpack:"pipeline" json:"pipeline"`
	// TotalBytes is the sizing result the attempt ran with.
	TotalBytes int64 `msgpack:"total_bytes" json:"total_bytes"`
	// StartedAt is when the workflow accepted the request.
	StartedAt time.Time `msgpack:"started_at" json:"started_at"`
	// DurationMS is the wall time from acceptance to outcome.
	DurationMS int64 `msgpack:"duration_ms" json:"duration_ms"`
	// Status is the terminal outcome discriminant.
	Status types.TransferStatus `msgpack:"status" json:"status"`
	// Diagnostic is the full diagnostic text of a failed attempt.
	Diagnostic string `msgpack:"diagnostic" json:"diagnostic"`
	// SamplesParsed counts stderr lines classified as progress.
	SamplesParsed int64 `msgpack:"samples_parsed" json:"samples_parsed"`
	// DiagnosticLines counts stderr lines classified as diagnostics.
	DiagnosticLines int64 `msgpack:"diagnostic_lines" json:"diagnostic_lines"`
}

// NewRecord assembles a journal record from the attempt, its outcome, and
// the final metrics snapshot.
func NewRecord(attempt types.TransferAttempt, outcome types.TransferOutcome, finishedAt time.Time, snap metrics.Snapshot) Record {
	return Record{
		AttemptID:       attempt.AttemptID,
		Direction:       attempt.Direction,
		LocalPath:       attempt.LocalPath,
		RemotePath:      attempt.RemotePath,
		TotalBytes:      attempt.TotalBytes,
		StartedAt:       attempt.StartedAt,
		DurationMS:      finishedAt.Sub(attempt.StartedAt).Milliseconds(),
		Status:          outcome.Status,
		Diagnostic:      outcome.Diagnostic,
		SamplesParsed:   snap.SamplesParsed,
		DiagnosticLines: snap.DiagnosticLines,
	}
}

// Stats aggregates journal records for the stats command.
type Stats struct {
	Attempts       int64 `json:"attempts"`
	Succeeded      int64 `json:"succeeded"`
	Failed         int64 `json:"failed"`
	LaunchFailures int64 `json:"launch_failures"`
	Pulls          int64 `json:"pulls"`
	Pushes         int64 `json:"pushes"`
	BytesPlanned   int64 `json:"bytes_planned"`
}

// Aggregate folds records into summary statistics.
func Aggregate(records []Record) Stats {
	var s Stats
	for _, rec := range records {
		s.Attempts++
		switch rec.Status {
		case types.TransferStatusSuccess:
			s.Succeeded++
		case types.TransferStatusFailed:
			s.Failed++
		case types.TransferStatusLaunchFailed:
			s.LaunchFailures++
		}
		switch rec.Direction {
		case types.DirectionPull:
			s.Pulls++
		case types.DirectionPush:
			s.Pushes++
		}
		s.BytesPlanned += rec.TotalBytes
	}
	return s
}
