// Package rate converts progress fractions into smoothed throughput estimates.
//
// The estimator owns the mutable progress state of one transfer attempt:
// the last accepted fraction, the time it was accepted, and the attempt's
// total byte count. It is single-consumer state; the event loop that drains
// workflow events is the only caller.
package rate

import "time"

// DefaultSamplingInterval is the minimum spacing between accepted samples.
// Samples arriving faster than this are absorbed without advancing the
// baseline, which keeps the displayed rate from jittering.
const DefaultSamplingInterval = 500 * time.Millisecond

// Estimator derives bytes-per-second from consecutive progress fractions.
//
// State transitions per Update:
//   - no baseline yet: the sample becomes the baseline, no rate reported
//   - elapsed below the sampling interval: nothing changes
//   - fraction regressed: nothing changes, a negative rate is never produced
//   - otherwise: rate = delta fraction * total bytes / elapsed, baseline advances
//
// A zero total makes progress indeterminate: the baseline still tracks, but
// no rate is ever reported.
type Estimator struct {
	interval    time.Duration
	totalBytes  int64
	hasBaseline bool
	lastFrac    float64
	lastAt      time.Time
}

// NewEstimator creates an estimator with the given sampling interval.
// Non-positive intervals fall back to DefaultSamplingInterval.
func NewEstimator(interval time.Duration) *Estimator {
	if interval <= 0 {
		interval = DefaultSamplingInterval
	}
	return &Estimator{interval: interval}
}

// Reset clears the baseline and arms the estimator for a new attempt
// totalling totalBytes. Zero is valid and means indeterminate progress.
func (e *Estimator) Reset(totalBytes int64) {
	if totalBytes < 0 {
		totalBytes = 0
	}
	e.totalBytes = totalBytes
	e.hasBaseline = false
	e.lastFrac = 0
	e.lastAt = time.Time{}
}

// Update feeds one progress fraction observed at the given time.
// It returns the new speed and true when a fresh estimate is available;
// otherwise the caller keeps whatever it displayed last.
func (e *Estimator) Update(fraction float64, now time.Time) (Speed, bool) {
	if !e.hasBaseline {
		e.hasBaseline = true
		e.lastFrac = fraction
		e.lastAt = now
		return 0, false
	}

	elapsed := now.Sub(e.lastAt)
	if elapsed < e.interval {
		return 0, false
	}
	if fraction < e.lastFrac {
		// Noisy streams can regress; wait for the stream to catch back up.
		return 0, false
	}

	delta := fraction - e.lastFrac
	e.lastFrac = fraction
	e.lastAt = now

	if e.totalBytes == 0 {
		return 0, false
	}
	return Speed(delta * float64(e.totalBytes) / elapsed.Seconds()), true
}

// Indeterminate reports whether the attempt total is unknown, in which case
// Update never yields an estimate.
func (e *Estimator) Indeterminate() bool {
	return e.totalBytes == 0
}

// TotalBytes returns the attempt total the estimator was armed with.
func (e *Estimator) TotalBytes() int64 {
	return e.totalBytes
}
