package transfer

import (
	"github.com/adbferry/adbferry/history"
	"github.com/adbferry/adbferry/metrics"
	"github.com/adbferry/adbferry/types"
)

// WorkflowState is the lifecycle position of a transfer attempt.
type WorkflowState string

const (
	// StateIdle means no attempt is in flight.
	StateIdle WorkflowState = "idle"
	// StateCheckingDevice means the bridge is being probed.
	StateCheckingDevice WorkflowState = "checking_device"
	// StateSizing means the source tree is being measured.
	StateSizing WorkflowState = "sizing"
	// StateTransferring means the pipeline is running.
	StateTransferring WorkflowState = "transferring"
	// StateCompleted is the successful terminal state.
	StateCompleted WorkflowState = "completed"
	// StateFailed is the failed terminal state.
	StateFailed WorkflowState = "failed"
)

// Terminal reports whether the state ends an attempt.
func (s WorkflowState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

func (s WorkflowState) String() string {
	return string(s)
}

// Event is one message on the workflow's event channel.
//
// Events arrive in order on a single channel with a single consumer: state
// transitions first, then progress in stream order, then exactly one
// CompletedEvent, after which the channel closes. Nothing follows the
// terminal event.
type Event interface {
	isEvent()
}

// StateEvent announces a state transition.
type StateEvent struct {
	// State is the state being entered.
	State WorkflowState
	// Attempt identifies the attempt. TotalBytes is populated from the
	// sizing step onward.
	Attempt types.TransferAttempt
}

// ProgressEvent carries one progress fraction in [0,1].
type ProgressEvent struct {
	Fraction float64
}

// CompletedEvent is the terminal event of an attempt.
type CompletedEvent struct {
	// Outcome is the attempt's single terminal outcome.
	Outcome types.TransferOutcome
	// Record is the journaled form of the attempt, including duration
	// and stream counters.
	Record history.Record
	// Snapshot is the settled metrics of the attempt.
	Snapshot metrics.Snapshot
}

func (StateEvent) isEvent()     {}
func (ProgressEvent) isEvent()  {}
func (CompletedEvent) isEvent() {}
