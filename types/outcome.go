package types

// TransferStatus is the status discriminant of a terminal transfer outcome.
type TransferStatus string

const (
	// TransferStatusSuccess indicates every pipeline stage exited zero.
	TransferStatusSuccess TransferStatus = "success"
	// TransferStatusFailed indicates the pipeline ran but a stage exited non-zero,
	// or the attempt was rejected before launch (absent device, missing source).
	TransferStatusFailed TransferStatus = "failed"
	// TransferStatusLaunchFailed indicates a stage process could not be started.
	TransferStatusLaunchFailed TransferStatus = "launch_failed"
)

// Succeeded reports whether the status is a success.
func (s TransferStatus) Succeeded() bool {
	return s == TransferStatusSuccess
}

// TransferOutcome is the single terminal result of a transfer attempt.
// Exactly one outcome is produced per attempt, after the last progress
// sample has been delivered.
type TransferOutcome struct {
	// Status is the outcome discriminant.
	Status TransferStatus `msgpack:"status" json:"status"`
	// Diagnostic is the accumulated diagnostic text, newline-joined in
	// arrival order. Empty on success. May be empty on failure when the
	// pipeline produced no diagnostics.
	Diagnostic string `msgpack:"diagnostic" json:"diagnostic"`
}

// Succeeded reports whether the outcome is a success.
func (o TransferOutcome) Succeeded() bool {
	return o.Status.Succeeded()
}

// Success returns a successful outcome.
func Success() TransferOutcome {
	return TransferOutcome{Status: TransferStatusSuccess}
}

// Failure returns a failed outcome carrying diagnostic text.
func Failure(diagnostic string) TransferOutcome {
	return TransferOutcome{Status: TransferStatusFailed, Diagnostic: diagnostic}
}

// LaunchFailure returns an outcome for an attempt whose pipeline never started.
func LaunchFailure(diagnostic string) TransferOutcome {
	return TransferOutcome{Status: TransferStatusLaunchFailed, Diagnostic: diagnostic}
}
