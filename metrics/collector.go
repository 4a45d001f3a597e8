// Package metrics provides per-attempt metrics collection.
//
// The Collector accumulates counters during a single transfer attempt. It is
// a leaf package with no internal dependencies. The final snapshot is folded
// into the attempt's history record, so aggregate statistics come from the
// journal rather than from long-lived process state.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the attempt counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Attempt lifecycle
	AttemptsStarted   int64
	AttemptsSucceeded int64
	AttemptsFailed    int64
	LaunchFailures    int64

	// Stream classification
	SamplesParsed   int64
	DiagnosticLines int64

	// Journal writes
	JournalWriteSuccess int64
	JournalWriteFailure int64

	// Dimensions (informational, set at construction)
	Direction string
	AttemptID string
}

// Collector accumulates metrics during a single transfer attempt.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe,
// so callers never need to guard against an absent collector.
type Collector struct {
	mu sync.Mutex

	attemptsStarted   int64
	attemptsSucceeded int64
	attemptsFailed    int64
	launchFailures    int64

	samplesParsed   int64
	diagnosticLines int64

	journalWriteSuccess int64
	journalWriteFailure int64

	direction string
	attemptID string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(direction, attemptID string) *Collector {
	return &Collector{
		direction: direction,
		attemptID: attemptID,
	}
}

// --- Attempt lifecycle ---

// IncAttemptStarted records an accepted transfer request.
func (c *Collector) IncAttemptStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.attemptsStarted++
	c.mu.Unlock()
}

// IncAttemptSucceeded records a successful terminal outcome.
func (c *Collector) IncAttemptSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.attemptsSucceeded++
	c.mu.Unlock()
}

// IncAttemptFailed records a failed terminal outcome.
func (c *Collector) IncAttemptFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.attemptsFailed++
	c.mu.Unlock()
}

// IncLaunchFailure records a pipeline stage that could not be started.
func (c *Collector) IncLaunchFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.launchFailures++
	c.mu.Unlock()
}

// --- Stream classification ---

// IncSamplesParsed records a stderr line classified as a progress sample.
func (c *Collector) IncSamplesParsed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.samplesParsed++
	c.mu.Unlock()
}

// IncDiagnosticLines records a stderr line classified as diagnostic output.
func (c *Collector) IncDiagnosticLines() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.diagnosticLines++
	c.mu.Unlock()
}

// --- Journal ---

// IncJournalWriteSuccess records a successful history journal append.
func (c *Collector) IncJournalWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.journalWriteSuccess++
	c.mu.Unlock()
}

// IncJournalWriteFailure records a failed history journal append.
func (c *Collector) IncJournalWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.journalWriteFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		AttemptsStarted:   c.attemptsStarted,
		AttemptsSucceeded: c.attemptsSucceeded,
		AttemptsFailed:    c.attemptsFailed,
		LaunchFailures:    c.launchFailures,

		SamplesParsed:   c.samplesParsed,
		DiagnosticLines: c.diagnosticLines,

		JournalWriteSuccess: c.journalWriteSuccess,
		JournalWriteFailure: c.journalWriteFailure,

		Direction: c.direction,
		AttemptID: c.attemptID,
	}
}
