package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/adbferry/adbferry/history"
	"github.com/adbferry/adbferry/localfs"
	"github.com/adbferry/adbferry/log"
	"github.com/adbferry/adbferry/metrics"
	"github.com/adbferry/adbferry/pipeline"
	"github.com/adbferry/adbferry/types"
)

// Validation errors returned synchronously by Start, before any attempt
// exists.
var (
	ErrBusy      = errors.New("a transfer is already in flight")
	ErrEmptyPath = errors.New("local path must not be empty")
)

// eventBuffer sizes the attempt channel. At two samples per second a
// transfer would have to run for minutes with a stalled consumer before
// sends block.
const eventBuffer = 256

// DeviceGateway is the device side of an attempt. *bridge.ADB implements it.
type DeviceGateway interface {
	DevicePresent(ctx context.Context) bool
	TreeSize(ctx context.Context, remotePath string) int64
	EnsureDir(ctx context.Context, remotePath string) error
}

// PipelineRunner executes a materialized pipeline. *Supervisor implements it.
type PipelineRunner interface {
	Run(ctx context.Context, spec pipeline.Spec, collector *metrics.Collector, onSample func(fraction float64)) (types.TransferOutcome, error)
}

// AttemptJournal persists finished attempts. *history.Journal implements it.
type AttemptJournal interface {
	Append(rec history.Record) error
}

// WorkflowConfig wires a workflow's collaborators.
type WorkflowConfig struct {
	// Bridge probes and prepares the device. Required.
	Bridge DeviceGateway
	// Builder materializes pipelines. Required.
	Builder *pipeline.Builder
	// Runner executes pipelines. Required.
	Runner PipelineRunner
	// Journal records finished attempts. Nil disables journaling.
	Journal AttemptJournal
	// Logger is required.
	Logger *log.Logger
}

// Workflow drives one transfer attempt at a time through its states:
// device check, sizing, pipeline execution, terminal outcome. Each
// attempt reports on its own event channel; see Event for the ordering
// contract.
type Workflow struct {
	config *WorkflowConfig

	mu   sync.Mutex
	busy bool
}

// NewWorkflow creates a workflow.
func NewWorkflow(config *WorkflowConfig) *Workflow {
	return &Workflow{config: config}
}

// Request names what to transfer.
type Request struct {
	Direction types.Direction
	// LocalPath is the host-side folder: destination for pull, source
	// for push.
	LocalPath string
}

// Start validates the request and launches the attempt. Validation
// failures return synchronously with a nil channel; after that every
// development, success or failure, arrives as events. The returned
// channel closes after the terminal CompletedEvent.
//
// The returned attempt carries the generated ID so callers can correlate
// logs and reports before the first event lands. One attempt runs at a
// time; Start returns ErrBusy while one is in flight.
func (w *Workflow) Start(ctx context.Context, req Request) (types.TransferAttempt, <-chan Event, error) {
	if req.LocalPath == "" {
		return types.TransferAttempt{}, nil, ErrEmptyPath
	}
	if !req.Direction.Valid() {
		return types.TransferAttempt{}, nil, fmt.Errorf("unknown direction %q (want %q or %q)",
			req.Direction, types.DirectionPull, types.DirectionPush)
	}

	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return types.TransferAttempt{}, nil, ErrBusy
	}
	w.busy = true
	w.mu.Unlock()

	attempt := types.NewTransferAttempt(req.Direction, req.LocalPath, w.config.Builder.RemoteStagingDir())
	events := make(chan Event, eventBuffer)
	go w.run(ctx, attempt, events)
	return attempt, events, nil
}

func (w *Workflow) run(ctx context.Context, attempt types.TransferAttempt, events chan<- Event) {
	defer func() {
		w.mu.Lock()
		w.busy = false
		w.mu.Unlock()
		close(events)
	}()

	collector := metrics.NewCollector(attempt.Direction.String(), attempt.AttemptID)
	collector.IncAttemptStarted()
	logger := w.config.Logger.WithAttempt(attempt)
	logger.Info("attempt started", map[string]any{
		"local_path":  attempt.LocalPath,
		"remote_path": attempt.RemotePath,
	})

	events <- StateEvent{State: StateCheckingDevice, Attempt: attempt}
	if !w.config.Bridge.DevicePresent(ctx) {
		w.finish(attempt, types.Failure("device not connected or unauthorized"), "", collector, logger, events)
		return
	}

	events <- StateEvent{State: StateSizing, Attempt: attempt}
	total, outcome := w.size(ctx, attempt)
	if !outcome.Succeeded() {
		w.finish(attempt, outcome, "", collector, logger, events)
		return
	}
	if total == 0 {
		logger.Warn("source size unknown, progress will be indeterminate", map[string]any{
			"local_path":  attempt.LocalPath,
			"remote_path": attempt.RemotePath,
		})
	}
	attempt.TotalBytes = total

	events <- StateEvent{State: StateTransferring, Attempt: attempt}
	spec := w.config.Builder.Build(attempt.Direction, attempt.LocalPath, total)
	outcome, err := w.config.Runner.Run(ctx, spec, collector, func(fraction float64) {
		events <- ProgressEvent{Fraction: fraction}
	})
	if err != nil {
		logger.Error("pipeline launch failed", map[string]any{
			"error": err.Error(),
		})
		outcome = types.LaunchFailure(err.Error())
	}
	w.finish(attempt, outcome, spec.String(), collector, logger, events)
}

// size measures the source tree and prepares the destination directory.
// A zero size with a success outcome means the size is unknown; the
// attempt proceeds with indeterminate progress.
func (w *Workflow) size(ctx context.Context, attempt types.TransferAttempt) (int64, types.TransferOutcome) {
	switch attempt.Direction {
	case types.DirectionPull:
		total := w.config.Bridge.TreeSize(ctx, attempt.RemotePath)
		if err := localfs.EnsureDir(attempt.LocalPath); err != nil {
			return 0, types.Failure(fmt.Sprintf("cannot create local folder: %v", err))
		}
		return total, types.Success()
	default:
		if !localfs.DirExists(attempt.LocalPath) {
			return 0, types.Failure(fmt.Sprintf("local path does not exist: %s", attempt.LocalPath))
		}
		if err := w.config.Bridge.EnsureDir(ctx, attempt.RemotePath); err != nil {
			return 0, types.Failure(fmt.Sprintf("cannot create remote folder: %v", err))
		}
		return localfs.TreeSize(attempt.LocalPath), types.Success()
	}
}

// finish journals the attempt, settles metrics, and emits the terminal
// events. The CompletedEvent is always the last event before the channel
// closes.
func (w *Workflow) finish(
	attempt types.TransferAttempt,
	outcome types.TransferOutcome,
	renderedPipeline string,
	collector *metrics.Collector,
	logger *log.Logger,
	events chan<- Event,
) {
	rec := history.NewRecord(attempt, outcome, time.Now().UTC(), collector.Snapshot())
	rec.Pipeline = renderedPipeline

	if w.config.Journal != nil {
		if err := w.config.Journal.Append(rec); err != nil {
			collector.IncJournalWriteFailure()
			logger.Warn("journal append failed", map[string]any{
				"error": err.Error(),
			})
		} else {
			collector.IncJournalWriteSuccess()
		}
	}

	state := StateFailed
	if outcome.Succeeded() {
		state = StateCompleted
		collector.IncAttemptSucceeded()
		logger.Info("attempt succeeded", map[string]any{
			"duration_ms": rec.DurationMS,
			"total_bytes": rec.TotalBytes,
		})
	} else {
		collector.IncAttemptFailed()
		logger.Warn("attempt failed", map[string]any{
			"status":     string(outcome.Status),
			"diagnostic": outcome.Diagnostic,
		})
	}

	events <- StateEvent{State: state, Attempt: attempt}
	events <- CompletedEvent{Outcome: outcome, Record: rec, Snapshot: collector.Snapshot()}
}
