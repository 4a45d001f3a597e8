package rate

import "fmt"

const (
	kib = 1024
	mib = 1024 * 1024
	gib = 1024 * 1024 * 1024
)

// Speed is a throughput in bytes per second.
type Speed float64

// BytesPerSecond returns the raw rate.
func (s Speed) BytesPerSecond() float64 {
	return float64(s)
}

// String renders the rate for display: whole bytes below 1 KB/s, one
// decimal for KB/s and MB/s.
func (s Speed) String() string {
	bps := float64(s)
	switch {
	case bps < kib:
		return fmt.Sprintf("%.0f B/s", bps)
	case bps < mib:
		return fmt.Sprintf("%.1f KB/s", bps/kib)
	default:
		return fmt.Sprintf("%.1f MB/s", bps/mib)
	}
}

// FormatByteCount renders a byte total for display, scaling through GB.
func FormatByteCount(n int64) string {
	b := float64(n)
	switch {
	case b < kib:
		return fmt.Sprintf("%.0f B", b)
	case b < mib:
		return fmt.Sprintf("%.1f KB", b/kib)
	case b < gib:
		return fmt.Sprintf("%.1f MB", b/mib)
	default:
		return fmt.Sprintf("%.1f GB", b/gib)
	}
}
