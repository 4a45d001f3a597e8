// Package progress classifies the metering stage's stderr stream into
// progress samples and diagnostic text.
//
// The meter emits bare numeric percentages, one per line. Anything else on
// the stream, and everything the archiver and unarchiver stages write to
// their stderr, is diagnostic output that belongs in the failure report.
package progress

import (
	"fmt"
	"strings"
	"sync"
)

// Default retention for the diagnostic log. A wedged pipeline can emit
// thousands of lines; the head and tail carry the signal.
const (
	defaultMaxHead = 64
	defaultMaxTail = 64
)

// DiagnosticLog accumulates non-progress stderr lines in arrival order.
// It is safe for concurrent append from the per-stage scanner goroutines.
//
// Retention is capped: the first maxHead and last maxTail lines survive,
// lines between them are counted and elided from Join output.
type DiagnosticLog struct {
	mu      sync.Mutex
	maxHead int
	maxTail int
	head    []string
	tail    []string
	dropped int
}

// NewDiagnosticLog creates a log with default retention caps.
func NewDiagnosticLog() *DiagnosticLog {
	return &DiagnosticLog{maxHead: defaultMaxHead, maxTail: defaultMaxTail}
}

// Append records one diagnostic line.
func (l *DiagnosticLog) Append(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.head) < l.maxHead {
		l.head = append(l.head, line)
		return
	}
	if len(l.tail) == l.maxTail {
		l.dropped++
		copy(l.tail, l.tail[1:])
		l.tail[l.maxTail-1] = line
		return
	}
	l.tail = append(l.tail, line)
}

// Len returns the number of retained lines.
func (l *DiagnosticLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.head) + len(l.tail)
}

// Dropped returns the number of elided lines.
func (l *DiagnosticLog) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Join renders the log as newline-joined text for the transfer outcome.
// When lines were elided an omission marker sits between head and tail.
func (l *DiagnosticLog) Join() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dropped == 0 {
		if len(l.tail) == 0 {
			return strings.Join(l.head, "\n")
		}
		parts := make([]string, 0, len(l.head)+len(l.tail))
		parts = append(parts, l.head...)
		parts = append(parts, l.tail...)
		return strings.Join(parts, "\n")
	}

	parts := make([]string, 0, len(l.head)+len(l.tail)+1)
	parts = append(parts, l.head...)
	parts = append(parts, fmt.Sprintf("[%d lines omitted]", l.dropped))
	parts = append(parts, l.tail...)
	return strings.Join(parts, "\n")
}
