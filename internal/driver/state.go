package driver

import (
	"fmt"

	"github.com/jbweber/lvnode/internal/compute"
)

// Domain states (from libvirt VIR_DOMAIN_* constants)
const (
	domainStateNoState     = 0
	domainStateRunning     = 1
	domainStateBlocked     = 2
	domainStatePaused      = 3
	domainStateShutdown    = 4
	domainStateShutoff     = 5
	domainStateCrashed     = 6
	domainStatePMSuspended = 7
)

var nodeStates = map[int]compute.NodeState{
	domainStateNoState:     compute.NodeStateTerminated,
	domainStateRunning:     compute.NodeStateRunning,
	domainStateBlocked:     compute.NodeStatePending,
	domainStatePaused:      compute.NodeStateTerminated,
	domainStateShutdown:    compute.NodeStateTerminated,
	domainStateShutoff:     compute.NodeStateTerminated,
	domainStateCrashed:     compute.NodeStateUnknown,
	domainStatePMSuspended: compute.NodeStateUnknown,
}

// MapState converts a libvirt domain state code to a generic node state.
// Codes outside the known table map to compute.NodeStateUnknown.
func MapState(code int) compute.NodeState {
	if state, ok := nodeStates[code]; ok {
		return state
	}
	return compute.NodeStateUnknown
}

// DescribeState converts a libvirt domain state code to libvirt's own name for it.
func DescribeState(code int) string {
	switch code {
	case domainStateNoState:
		return "no state"
	case domainStateRunning:
		return "running"
	case domainStateBlocked:
		return "blocked"
	case domainStatePaused:
		return "paused"
	case domainStateShutdown:
		return "shutdown"
	case domainStateShutoff:
		return "shutoff"
	case domainStateCrashed:
		return "crashed"
	case domainStatePMSuspended:
		return "pmsuspended"
	default:
		return fmt.Sprintf("unknown(%d)", code)
	}
}
