package driver

import (
	"testing"

	"github.com/jbweber/lvnode/internal/compute"
)

func TestMapState(t *testing.T) {
	tests := []struct {
		code int
		want compute.NodeState
	}{
		{0, compute.NodeStateTerminated}, // no state
		{1, compute.NodeStateRunning},    // running
		{2, compute.NodeStatePending},    // blocked
		{3, compute.NodeStateTerminated}, // paused
		{4, compute.NodeStateTerminated}, // shutting down
		{5, compute.NodeStateTerminated}, // shut off
		{6, compute.NodeStateUnknown},    // crashed
		{7, compute.NodeStateUnknown},    // pmsuspended
		{8, compute.NodeStateUnknown},
		{-1, compute.NodeStateUnknown},
		{255, compute.NodeStateUnknown},
	}

	for _, tt := range tests {
		if got := MapState(tt.code); got != tt.want {
			t.Errorf("MapState(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestDescribeState(t *testing.T) {
	tests := map[int]string{
		0:  "no state",
		1:  "running",
		2:  "blocked",
		3:  "paused",
		4:  "shutdown",
		5:  "shutoff",
		6:  "crashed",
		7:  "pmsuspended",
		99: "unknown(99)",
	}

	for code, want := range tests {
		if got := DescribeState(code); got != want {
			t.Errorf("DescribeState(%d) = %q, want %q", code, got, want)
		}
	}
}
