package types //nolint:revive // types is a valid package name

import (
	"testing"
)

func TestTransferStatus_Succeeded(t *testing.T) {
	tests := []struct {
		status TransferStatus
		want   bool
	}{
		{TransferStatusSuccess, true},
		{TransferStatusFailed, false},
		{TransferStatusLaunchFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Succeeded(); got != tt.want {
				t.Errorf("TransferStatus(%q).Succeeded() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestOutcomeConstructors(t *testing.T) {
	if o := Success(); o.Status != TransferStatusSuccess || o.Diagnostic != "" {
		t.Errorf("Success() = %+v, want empty success", o)
	}
	if o := Failure("permission denied\nabort"); o.Status != TransferStatusFailed || o.Diagnostic != "permission denied\nabort" {
		t.Errorf("Failure() = %+v, want failed with diagnostic", o)
	}
	if o := LaunchFailure("exec: \"pv\": executable file not found"); o.Status != TransferStatusLaunchFailed {
		t.Errorf("LaunchFailure() = %+v, want launch_failed", o)
	}
}
