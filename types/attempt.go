package types

import (
	"time"

	"github.com/google/uuid"
)

// TransferAttempt carries the immutable facts of one transfer attempt.
// It is created when the workflow accepts a request and discarded once the
// outcome has been delivered; only configuration outlives it.
type TransferAttempt struct {
	// AttemptID uniquely identifies the attempt across logs, reports,
	// and the history journal.
	AttemptID string `msgpack:"attempt_id" json:"attempt_id"`
	// Direction is pull or push.
	Direction Direction `msgpack:"direction" json:"direction"`
	// LocalPath is the host-side folder: the destination for pull,
	// the source for push.
	LocalPath string `msgpack:"local_path" json:"local_path"`
	// RemotePath is the device-side staging directory.
	RemotePath string `msgpack:"remote_path" json:"remote_path"`
	// TotalBytes is the sizing result used to scale progress. Zero means
	// the size could not be determined; progress is then indeterminate.
	TotalBytes int64 `msgpack:"total_bytes" json:"total_bytes"`
	// StartedAt is when the workflow accepted the request.
	StartedAt time.Time `msgpack:"started_at" json:"started_at"`
}

// NewTransferAttempt stamps a fresh attempt with a unique ID and start time.
func NewTransferAttempt(direction Direction, localPath, remotePath string) TransferAttempt {
	return TransferAttempt{
		AttemptID:  uuid.New().String(),
		Direction:  direction,
		LocalPath:  localPath,
		RemotePath: remotePath,
		StartedAt:  time.Now().UTC(),
	}
}
