// Package transfer runs the pipeline and drives the workflow around it.
//
// The supervisor owns process lifecycle for one attempt: it wires the three
// stages together stdout-to-stdin, starts them, classifies their stderr
// streams, reaps them, and folds everything into a single terminal outcome.
// The workflow owns everything around that: validation, device checks,
// sizing, event delivery, and the history journal.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/adbferry/adbferry/iox"
	"github.com/adbferry/adbferry/log"
	"github.com/adbferry/adbferry/metrics"
	"github.com/adbferry/adbferry/pipeline"
	"github.com/adbferry/adbferry/progress"
	"github.com/adbferry/adbferry/types"
)

// StageProcess abstracts one stage's process lifecycle for testing.
// The pipe accessors must be called before Start, mirroring os/exec.
type StageProcess interface {
	SetStdin(r io.Reader)
	StdoutPipe() (io.ReadCloser, error)
	StderrPipe() (io.ReadCloser, error)
	Start() error
	// Wait reaps the process and returns its exit code. A non-nil error
	// means the process could not be awaited at all, not that it failed.
	Wait() (int, error)
	Kill() error
}

// StageFactory creates a StageProcess for a stage. Used for test injection.
type StageFactory func(ctx context.Context, stage pipeline.Stage) StageProcess

// SupervisorConfig configures pipeline supervision.
type SupervisorConfig struct {
	// Logger is required.
	Logger *log.Logger
	// StageFactory overrides stage process creation (for testing).
	// If nil, stages run as real os/exec processes.
	StageFactory StageFactory
}

// Supervisor launches and supervises transfer pipelines.
type Supervisor struct {
	config *SupervisorConfig
}

// NewSupervisor creates a supervisor.
func NewSupervisor(config *SupervisorConfig) *Supervisor {
	return &Supervisor{config: config}
}

// Run executes the pipeline to completion and returns its outcome.
//
// A non-nil error is the distinct launch-failure condition: some stage
// process could not be started and the pipeline never ran. Once every
// stage has started, subprocess failure is data, not error: the outcome
// reports it with the accumulated diagnostics.
//
// onSample receives progress fractions in stream order, always before Run
// returns. Cancelling ctx kills the stages; the attempt then fails with a
// cancellation diagnostic.
func (s *Supervisor) Run(
	ctx context.Context,
	spec pipeline.Spec,
	collector *metrics.Collector,
	onSample func(fraction float64),
) (types.TransferOutcome, error) {
	factory := s.config.StageFactory
	if factory == nil {
		factory = newExecStage
	}

	diag := progress.NewDiagnosticLog()
	stages := make([]StageProcess, len(spec.Stages))
	stderrs := make([]io.ReadCloser, len(spec.Stages))
	var pipes []io.Closer

	// Wire the chain before anything starts: stage i's stdout is stage
	// i+1's stdin, passed as a pipe file so no copying goroutine sits
	// between stages.
	var prevStdout io.ReadCloser
	for i, st := range spec.Stages {
		p := factory(ctx, st)
		if prevStdout != nil {
			p.SetStdin(prevStdout)
		}
		if i < len(spec.Stages)-1 {
			out, err := p.StdoutPipe()
			if err != nil {
				iox.DiscardCloseAll(pipes...)
				collector.IncLaunchFailure()
				return types.TransferOutcome{}, fmt.Errorf("pipe %s stage: %w", st.Name, err)
			}
			pipes = append(pipes, out)
			prevStdout = out
		}
		stderr, err := p.StderrPipe()
		if err != nil {
			iox.DiscardCloseAll(pipes...)
			collector.IncLaunchFailure()
			return types.TransferOutcome{}, fmt.Errorf("pipe %s stage: %w", st.Name, err)
		}
		pipes = append(pipes, stderr)
		stderrs[i] = stderr
		stages[i] = p
	}

	for i, p := range stages {
		if err := p.Start(); err != nil {
			collector.IncLaunchFailure()
			s.config.Logger.Error("stage start failed", map[string]any{
				"stage": spec.Stages[i].Name,
				"error": err.Error(),
			})
			s.abort(stages[:i])
			iox.DiscardCloseAll(pipes...)
			return types.TransferOutcome{}, fmt.Errorf("start %s stage: %w", spec.Stages[i].Name, err)
		}
	}

	s.config.Logger.Info("pipeline started", map[string]any{
		"pipeline":    spec.String(),
		"total_bytes": spec.TotalBytes,
	})

	// Classify every stage's stderr concurrently. Only the meter's stream
	// carries progress; archiver and unarchiver lines are diagnostics even
	// when numeric.
	scanDone := make(chan error, len(stages))
	for i := range stages {
		var sc *progress.Scanner
		if i == pipeline.MeterIndex {
			sc = progress.NewScanner(stderrs[i], onSample, diag, s.config.Logger, collector)
		} else {
			sc = progress.NewDiagnosticScanner(stderrs[i], diag, s.config.Logger, collector)
		}
		go func() {
			scanDone <- sc.Run()
		}()
	}

	// Drain the scanners BEFORE any Wait: exec.Cmd.Wait closes the stderr
	// pipes, and a close mid-read would drop diagnostic tail lines still
	// sitting in the pipe buffer.
	for range stages {
		if err := <-scanDone; err != nil {
			diag.Append(err.Error())
		}
	}

	exitCodes := make([]int, len(stages))
	for i, p := range stages {
		code, err := p.Wait()
		if err != nil {
			diag.Append(fmt.Sprintf("%s stage: %v", spec.Stages[i].Name, err))
			code = -1
		}
		exitCodes[i] = code
	}

	canceled := ctx.Err() != nil
	if canceled {
		diag.Append("transfer canceled")
	}

	failedStage := firstNonZero(exitCodes)
	if failedStage < 0 && !canceled {
		s.config.Logger.Info("pipeline completed", map[string]any{
			"exit_codes": exitCodes,
		})
		return types.Success(), nil
	}

	fields := map[string]any{
		"exit_codes": exitCodes,
		"canceled":   canceled,
	}
	if failedStage >= 0 {
		fields["failed_stage"] = spec.Stages[failedStage].Name
	}
	s.config.Logger.Warn("pipeline failed", fields)
	return types.Failure(diag.Join()), nil
}

// abort kills and reaps stages that were already started when a later
// stage refused to launch.
func (s *Supervisor) abort(started []StageProcess) {
	for _, p := range started {
		_ = p.Kill()
	}
	for _, p := range started {
		_, _ = p.Wait()
	}
}

// firstNonZero returns the index of the first failing stage, or -1 when
// every stage exited zero.
func firstNonZero(codes []int) int {
	for i, code := range codes {
		if code != 0 {
			return i
		}
	}
	return -1
}

// execStage runs a stage as a real process. ctx cancellation kills it.
type execStage struct {
	cmd *exec.Cmd
}

func newExecStage(ctx context.Context, stage pipeline.Stage) StageProcess {
	return &execStage{
		//nolint:gosec // argv comes from the pipeline builder, not user splicing
		cmd: exec.CommandContext(ctx, stage.Argv[0], stage.Argv[1:]...),
	}
}

func (e *execStage) SetStdin(r io.Reader) {
	e.cmd.Stdin = r
}

func (e *execStage) StdoutPipe() (io.ReadCloser, error) {
	return e.cmd.StdoutPipe()
}

func (e *execStage) StderrPipe() (io.ReadCloser, error) {
	return e.cmd.StderrPipe()
}

func (e *execStage) Start() error {
	return e.cmd.Start()
}

// Wait reaps the process. Exit codes follow the shell convention: a
// signal-terminated stage reports -1, which reads as failure upstream.
func (e *execStage) Wait() (int, error) {
	err := e.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus(), nil
		}
		return -1, nil
	}
	return -1, err
}

func (e *execStage) Kill() error {
	if e.cmd.Process != nil {
		return e.cmd.Process.Kill()
	}
	return nil
}
