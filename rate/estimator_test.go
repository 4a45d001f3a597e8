package rate

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestEstimator_FirstSampleIsBaseline(t *testing.T) {
	e := NewEstimator(DefaultSamplingInterval)
	e.Reset(1000)

	speed, ok := e.Update(0.0, t0)
	if ok {
		t.Errorf("first Update ok = true, want false (baseline only)")
	}
	if speed != 0 {
		t.Errorf("first Update speed = %v, want 0", speed)
	}
}

func TestEstimator_SteadyProgress(t *testing.T) {
	e := NewEstimator(DefaultSamplingInterval)
	e.Reset(1000)

	e.Update(0.0, t0)

	speed, ok := e.Update(0.25, t0.Add(time.Second))
	if !ok {
		t.Fatal("second Update ok = false, want true")
	}
	if speed != 250 {
		t.Errorf("speed = %v B/s, want 250", speed.BytesPerSecond())
	}

	speed, ok = e.Update(0.5, t0.Add(2*time.Second))
	if !ok {
		t.Fatal("third Update ok = false, want true")
	}
	if speed != 250 {
		t.Errorf("speed = %v B/s, want 250", speed.BytesPerSecond())
	}
}

func TestEstimator_IntervalDamping(t *testing.T) {
	e := NewEstimator(500 * time.Millisecond)
	e.Reset(1000)

	e.Update(0.0, t0)

	// Too soon: absorbed without advancing the baseline.
	if _, ok := e.Update(0.2, t0.Add(200*time.Millisecond)); ok {
		t.Error("sample within interval reported an estimate")
	}

	// Next accepted sample computes against the original baseline, so no
	// progress is lost to damping.
	speed, ok := e.Update(0.3, t0.Add(600*time.Millisecond))
	if !ok {
		t.Fatal("sample past interval ok = false, want true")
	}
	if speed != 500 {
		t.Errorf("speed = %v B/s, want 500 (0.3 of 1000 bytes over 0.6s)", speed.BytesPerSecond())
	}
}

func TestEstimator_IntervalBoundaryAccepted(t *testing.T) {
	e := NewEstimator(500 * time.Millisecond)
	e.Reset(1000)

	e.Update(0.0, t0)
	if _, ok := e.Update(0.5, t0.Add(500*time.Millisecond)); !ok {
		t.Error("sample exactly at the interval boundary was rejected")
	}
}

func TestEstimator_RegressionIgnored(t *testing.T) {
	e := NewEstimator(DefaultSamplingInterval)
	e.Reset(1 << 20)

	e.Update(0.5, t0)

	speed, ok := e.Update(0.3, t0.Add(time.Second))
	if ok {
		t.Errorf("regressed sample reported an estimate of %v", speed)
	}

	// Baseline survived the regression: next advance measures from 0.5 at t0.
	speed, ok = e.Update(0.75, t0.Add(2*time.Second))
	if !ok {
		t.Fatal("post-regression advance ok = false, want true")
	}
	if speed != 131072 {
		t.Errorf("speed = %v B/s, want 131072 (0.25 of 1 MiB over 2s)", speed.BytesPerSecond())
	}
}

func TestEstimator_ZeroTotalIndeterminate(t *testing.T) {
	e := NewEstimator(DefaultSamplingInterval)
	e.Reset(0)

	if !e.Indeterminate() {
		t.Fatal("Indeterminate() = false for zero total")
	}

	e.Update(0.0, t0)
	for i := 1; i <= 5; i++ {
		if _, ok := e.Update(float64(i)/5, t0.Add(time.Duration(i)*time.Second)); ok {
			t.Fatalf("zero-total estimator reported an estimate at sample %d", i)
		}
	}
}

func TestEstimator_NegativeTotalTreatedAsZero(t *testing.T) {
	e := NewEstimator(DefaultSamplingInterval)
	e.Reset(-42)
	if !e.Indeterminate() {
		t.Error("negative total should arm an indeterminate estimator")
	}
	if e.TotalBytes() != 0 {
		t.Errorf("TotalBytes() = %d, want 0", e.TotalBytes())
	}
}

func TestEstimator_NoNegativeRates(t *testing.T) {
	e := NewEstimator(100 * time.Millisecond)
	e.Reset(1 << 30)

	fractions := []float64{0, 0.1, 0.05, 0.2, 0.2, 0.15, 0.6, 0.59, 1.0}
	for i, f := range fractions {
		speed, _ := e.Update(f, t0.Add(time.Duration(i)*time.Second))
		if speed < 0 {
			t.Fatalf("sample %d (fraction %v) produced negative rate %v", i, f, speed)
		}
	}
}

func TestEstimator_ResetClearsBaseline(t *testing.T) {
	e := NewEstimator(DefaultSamplingInterval)
	e.Reset(1000)
	e.Update(0.5, t0)
	e.Update(1.0, t0.Add(time.Second))

	e.Reset(2000)
	if e.TotalBytes() != 2000 {
		t.Errorf("TotalBytes() after Reset = %d, want 2000", e.TotalBytes())
	}
	if _, ok := e.Update(0.25, t0.Add(2*time.Second)); ok {
		t.Error("first Update after Reset should only set the baseline")
	}
}

func TestNewEstimator_NonPositiveIntervalDefaults(t *testing.T) {
	e := NewEstimator(0)
	e.Reset(1000)
	e.Update(0.0, t0)

	// DefaultSamplingInterval applies: 200ms is too soon.
	if _, ok := e.Update(0.5, t0.Add(200*time.Millisecond)); ok {
		t.Error("zero-interval estimator did not fall back to the default interval")
	}
}
