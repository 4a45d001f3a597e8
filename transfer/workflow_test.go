package transfer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/adbferry/adbferry/history"
	"github.com/adbferry/adbferry/metrics"
	"github.com/adbferry/adbferry/pipeline"
	"github.com/adbferry/adbferry/types"
)

// mockBridge scripts the device side of an attempt and records the order
// of collaborator calls.
type mockBridge struct {
	present   bool
	treeSize  int64
	ensureErr error

	mu    sync.Mutex
	calls []string
}

func (b *mockBridge) record(call string) {
	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.mu.Unlock()
}

func (b *mockBridge) DevicePresent(_ context.Context) bool {
	b.record("DevicePresent")
	return b.present
}

func (b *mockBridge) TreeSize(_ context.Context, remotePath string) int64 {
	b.record("TreeSize " + remotePath)
	return b.treeSize
}

func (b *mockBridge) EnsureDir(_ context.Context, remotePath string) error {
	b.record("EnsureDir " + remotePath)
	return b.ensureErr
}

func (b *mockBridge) callLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// mockRunner replays a scripted pipeline execution: emits the configured
// fractions through onSample, then returns the configured outcome.
type mockRunner struct {
	outcome   types.TransferOutcome
	err       error
	fractions []float64
	release   chan struct{} // when set, Run blocks until closed

	mu      sync.Mutex
	called  bool
	gotSpec pipeline.Spec
}

func (r *mockRunner) Run(
	_ context.Context,
	spec pipeline.Spec,
	collector *metrics.Collector,
	onSample func(fraction float64),
) (types.TransferOutcome, error) {
	r.mu.Lock()
	r.called = true
	r.gotSpec = spec
	r.mu.Unlock()

	if r.release != nil {
		<-r.release
	}
	for _, f := range r.fractions {
		collector.IncSamplesParsed()
		onSample(f)
	}
	return r.outcome, r.err
}

func (r *mockRunner) wasCalled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.called
}

func (r *mockRunner) spec() pipeline.Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gotSpec
}

// mockJournal collects appended records.
type mockJournal struct {
	err error

	mu   sync.Mutex
	recs []history.Record
}

func (j *mockJournal) Append(rec history.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.recs = append(j.recs, rec)
	return nil
}

func (j *mockJournal) records() []history.Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]history.Record(nil), j.recs...)
}

func newTestWorkflow(bridge *mockBridge, runner *mockRunner, journal AttemptJournal) *Workflow {
	return NewWorkflow(&WorkflowConfig{
		Bridge:  bridge,
		Builder: pipeline.NewBuilder("", "", "", "", ""),
		Runner:  runner,
		Journal: journal,
		Logger:  testLogger(),
	})
}

// drain collects every event until the channel closes.
func drain(events <-chan Event) []Event {
	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	return got
}

// eventStates extracts the state transitions in emission order.
func eventStates(events []Event) []WorkflowState {
	var states []WorkflowState
	for _, ev := range events {
		if se, ok := ev.(StateEvent); ok {
			states = append(states, se.State)
		}
	}
	return states
}

// terminal returns the CompletedEvent, which must be the final event.
func terminal(t *testing.T, events []Event) CompletedEvent {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	done, ok := events[len(events)-1].(CompletedEvent)
	if !ok {
		t.Fatalf("last event is %T, want CompletedEvent", events[len(events)-1])
	}
	for i, ev := range events[:len(events)-1] {
		if _, isDone := ev.(CompletedEvent); isDone {
			t.Fatalf("CompletedEvent at index %d is not the final event", i)
		}
	}
	return done
}

func TestWorkflowStart_EmptyPath(t *testing.T) {
	bridge := &mockBridge{present: true}
	runner := &mockRunner{}
	w := newTestWorkflow(bridge, runner, nil)

	_, events, err := w.Start(context.Background(), Request{Direction: types.DirectionPull})
	if !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("err = %v, want ErrEmptyPath", err)
	}
	if events != nil {
		t.Error("events channel should be nil on validation failure")
	}
	if len(bridge.callLog()) != 0 {
		t.Errorf("bridge calls = %v, want none before validation passes", bridge.callLog())
	}
}

func TestWorkflowStart_InvalidDirection(t *testing.T) {
	w := newTestWorkflow(&mockBridge{present: true}, &mockRunner{}, nil)

	_, _, err := w.Start(context.Background(), Request{Direction: "sideways", LocalPath: "/tmp/x"})
	if err == nil {
		t.Fatal("expected error for unknown direction")
	}
	if !strings.Contains(err.Error(), "unknown direction") {
		t.Errorf("err = %v, want unknown direction message", err)
	}
}

func TestWorkflow_DeviceAbsent(t *testing.T) {
	bridge := &mockBridge{present: false}
	runner := &mockRunner{}
	w := newTestWorkflow(bridge, runner, nil)

	_, events, err := w.Start(context.Background(), Request{
		Direction: types.DirectionPull,
		LocalPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := drain(events)

	wantStates := []WorkflowState{StateCheckingDevice, StateFailed}
	if gotStates := eventStates(got); !equalStates(gotStates, wantStates) {
		t.Errorf("states = %v, want %v", gotStates, wantStates)
	}

	done := terminal(t, got)
	if done.Outcome.Succeeded() {
		t.Fatal("outcome should be failed when no device is present")
	}
	if done.Outcome.Diagnostic != "device not connected or unauthorized" {
		t.Errorf("Diagnostic = %q, want connectivity message", done.Outcome.Diagnostic)
	}

	if runner.wasCalled() {
		t.Error("pipeline must not launch without a device")
	}
	if calls := bridge.callLog(); len(calls) != 1 || calls[0] != "DevicePresent" {
		t.Errorf("bridge calls = %v, want only the device probe", calls)
	}
}

func TestWorkflow_PullSuccess(t *testing.T) {
	bridge := &mockBridge{present: true, treeSize: 174598144}
	runner := &mockRunner{outcome: types.Success(), fractions: []float64{0, 0.5, 1}}
	journal := &mockJournal{}
	w := newTestWorkflow(bridge, runner, journal)

	dest := filepath.Join(t.TempDir(), "incoming")
	_, events, err := w.Start(context.Background(), Request{
		Direction: types.DirectionPull,
		LocalPath: dest,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := drain(events)

	wantStates := []WorkflowState{StateCheckingDevice, StateSizing, StateTransferring, StateCompleted}
	if gotStates := eventStates(got); !equalStates(gotStates, wantStates) {
		t.Fatalf("states = %v, want %v", gotStates, wantStates)
	}

	var fractions []float64
	for _, ev := range got {
		if pe, ok := ev.(ProgressEvent); ok {
			fractions = append(fractions, pe.Fraction)
		}
	}
	want := []float64{0, 0.5, 1}
	if len(fractions) != len(want) {
		t.Fatalf("fractions = %v, want %v", fractions, want)
	}
	for i := range want {
		if fractions[i] != want[i] {
			t.Errorf("fractions[%d] = %v, want %v", i, fractions[i], want[i])
		}
	}

	done := terminal(t, got)
	if !done.Outcome.Succeeded() {
		t.Fatalf("outcome = %+v, want success", done.Outcome)
	}
	if done.Record.TotalBytes != 174598144 {
		t.Errorf("Record.TotalBytes = %d, want 174598144", done.Record.TotalBytes)
	}
	if done.Record.Direction != types.DirectionPull {
		t.Errorf("Record.Direction = %q, want pull", done.Record.Direction)
	}
	if !strings.Contains(done.Record.Pipeline, "pv -n -s 174598144") {
		t.Errorf("Record.Pipeline = %q, want the size hint in the meter stage", done.Record.Pipeline)
	}
	if done.Record.SamplesParsed != 3 {
		t.Errorf("Record.SamplesParsed = %d, want 3", done.Record.SamplesParsed)
	}
	if done.Snapshot.AttemptsSucceeded != 1 {
		t.Errorf("Snapshot.AttemptsSucceeded = %d, want 1", done.Snapshot.AttemptsSucceeded)
	}

	// The sizing state must have consulted the remote tree and created
	// the local destination.
	if calls := bridge.callLog(); len(calls) != 2 || calls[1] != "TreeSize /sdcard/Transfer" {
		t.Errorf("bridge calls = %v, want device probe then remote sizing", calls)
	}
	if fi, err := os.Stat(dest); err != nil || !fi.IsDir() {
		t.Errorf("local destination %s was not created", dest)
	}

	if spec := runner.spec(); spec.TotalBytes != 174598144 {
		t.Errorf("spec.TotalBytes = %d, want 174598144", spec.TotalBytes)
	}

	recs := journal.records()
	if len(recs) != 1 {
		t.Fatalf("journal records = %d, want 1", len(recs))
	}
	if recs[0].AttemptID != done.Record.AttemptID {
		t.Errorf("journaled AttemptID = %q, want %q", recs[0].AttemptID, done.Record.AttemptID)
	}
}

func TestWorkflow_PushSuccess(t *testing.T) {
	src := t.TempDir()
	writeTestFile(t, filepath.Join(src, "clip.mp4"), 357)

	bridge := &mockBridge{present: true}
	runner := &mockRunner{outcome: types.Success()}
	w := newTestWorkflow(bridge, runner, nil)

	_, events, err := w.Start(context.Background(), Request{
		Direction: types.DirectionPush,
		LocalPath: src,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := drain(events)

	done := terminal(t, got)
	if !done.Outcome.Succeeded() {
		t.Fatalf("outcome = %+v, want success", done.Outcome)
	}
	if done.Record.TotalBytes != 357 {
		t.Errorf("Record.TotalBytes = %d, want 357", done.Record.TotalBytes)
	}

	calls := bridge.callLog()
	if len(calls) != 2 || calls[1] != "EnsureDir /sdcard/Transfer" {
		t.Errorf("bridge calls = %v, want device probe then staging dir creation", calls)
	}

	if spec := runner.spec(); spec.Direction != types.DirectionPush {
		t.Errorf("spec.Direction = %q, want push", spec.Direction)
	}
}

func TestWorkflow_PushMissingLocal(t *testing.T) {
	bridge := &mockBridge{present: true}
	runner := &mockRunner{}
	w := newTestWorkflow(bridge, runner, nil)

	missing := filepath.Join(t.TempDir(), "missing")
	_, events, err := w.Start(context.Background(), Request{
		Direction: types.DirectionPush,
		LocalPath: missing,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := drain(events)

	done := terminal(t, got)
	if done.Outcome.Succeeded() {
		t.Fatal("outcome should be failed for a missing source")
	}
	if !strings.Contains(done.Outcome.Diagnostic, "local path does not exist") {
		t.Errorf("Diagnostic = %q, want missing source message", done.Outcome.Diagnostic)
	}

	// The failure must precede any device-side mutation or launch.
	for _, call := range bridge.callLog() {
		if strings.HasPrefix(call, "EnsureDir") {
			t.Errorf("staging dir was created for a missing source: %v", bridge.callLog())
		}
	}
	if runner.wasCalled() {
		t.Error("pipeline must not launch for a missing source")
	}
}

func TestWorkflow_RemoteEnsureFails(t *testing.T) {
	bridge := &mockBridge{present: true, ensureErr: errors.New("mkdir: read-only file system")}
	runner := &mockRunner{}
	w := newTestWorkflow(bridge, runner, nil)

	_, events, err := w.Start(context.Background(), Request{
		Direction: types.DirectionPush,
		LocalPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := terminal(t, drain(events))

	if done.Outcome.Succeeded() {
		t.Fatal("outcome should be failed when the staging dir cannot be created")
	}
	if !strings.Contains(done.Outcome.Diagnostic, "cannot create remote folder") {
		t.Errorf("Diagnostic = %q, want remote folder message", done.Outcome.Diagnostic)
	}
	if runner.wasCalled() {
		t.Error("pipeline must not launch when sizing fails")
	}
}

func TestWorkflow_ZeroSizeProceeds(t *testing.T) {
	bridge := &mockBridge{present: true, treeSize: 0}
	runner := &mockRunner{outcome: types.Success()}
	w := newTestWorkflow(bridge, runner, nil)

	_, events, err := w.Start(context.Background(), Request{
		Direction: types.DirectionPull,
		LocalPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := terminal(t, drain(events))

	// An unknown size is not an error; the attempt runs with an
	// indeterminate stream.
	if !done.Outcome.Succeeded() {
		t.Fatalf("outcome = %+v, want success", done.Outcome)
	}
	if !runner.wasCalled() {
		t.Fatal("pipeline should launch with an unknown size")
	}
	if spec := runner.spec(); spec.TotalBytes != 0 {
		t.Errorf("spec.TotalBytes = %d, want 0", spec.TotalBytes)
	}
}

func TestWorkflow_LaunchFailure(t *testing.T) {
	bridge := &mockBridge{present: true, treeSize: 1024}
	runner := &mockRunner{err: errors.New(`start archive stage: exec: "adb": executable file not found in $PATH`)}
	journal := &mockJournal{}
	w := newTestWorkflow(bridge, runner, journal)

	_, events, err := w.Start(context.Background(), Request{
		Direction: types.DirectionPull,
		LocalPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := terminal(t, drain(events))

	if done.Outcome.Status != types.TransferStatusLaunchFailed {
		t.Fatalf("Status = %q, want %q", done.Outcome.Status, types.TransferStatusLaunchFailed)
	}
	if !strings.Contains(done.Outcome.Diagnostic, "executable file not found") {
		t.Errorf("Diagnostic = %q, want launch error text", done.Outcome.Diagnostic)
	}

	recs := journal.records()
	if len(recs) != 1 {
		t.Fatalf("journal records = %d, want 1", len(recs))
	}
	if recs[0].Status != types.TransferStatusLaunchFailed {
		t.Errorf("journaled Status = %q, want %q", recs[0].Status, types.TransferStatusLaunchFailed)
	}
}

func TestWorkflow_JournalErrorNotFatal(t *testing.T) {
	bridge := &mockBridge{present: true, treeSize: 64}
	runner := &mockRunner{outcome: types.Success()}
	journal := &mockJournal{err: errors.New("disk full")}
	w := newTestWorkflow(bridge, runner, journal)

	_, events, err := w.Start(context.Background(), Request{
		Direction: types.DirectionPull,
		LocalPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := terminal(t, drain(events))

	if !done.Outcome.Succeeded() {
		t.Fatalf("outcome = %+v, want success despite journal failure", done.Outcome)
	}
	if done.Snapshot.JournalWriteFailure != 1 {
		t.Errorf("JournalWriteFailure = %d, want 1", done.Snapshot.JournalWriteFailure)
	}
}

func TestWorkflow_BusyAndReuse(t *testing.T) {
	release := make(chan struct{})
	bridge := &mockBridge{present: true, treeSize: 64}
	runner := &mockRunner{outcome: types.Success(), release: release}
	w := newTestWorkflow(bridge, runner, nil)

	_, first, err := w.Start(context.Background(), Request{
		Direction: types.DirectionPull,
		LocalPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, _, err := w.Start(context.Background(), Request{
		Direction: types.DirectionPull,
		LocalPath: t.TempDir(),
	}); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Start err = %v, want ErrBusy", err)
	}

	close(release)
	drain(first)

	// Once the first attempt's channel closes, the workflow is free again.
	runner.release = nil
	_, second, err := w.Start(context.Background(), Request{
		Direction: types.DirectionPull,
		LocalPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Start after completion: %v", err)
	}
	done := terminal(t, drain(second))
	if !done.Outcome.Succeeded() {
		t.Errorf("outcome = %+v, want success on reuse", done.Outcome)
	}
}

func equalStates(got, want []WorkflowState) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func writeTestFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
