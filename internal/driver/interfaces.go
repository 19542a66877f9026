package driver

import (
	"context"
	"time"

	"github.com/digitalocean/go-libvirt"

	"github.com/jbweber/lvnode/internal/compute"
)

// Hypervisor defines the libvirt operations the driver needs.
//
// In production, this is satisfied by *libvirt.Libvirt directly.
// In tests, this is satisfied by mock implementations.
type Hypervisor interface {
	// ConnectListAllDomains lists domains; flags 0 means active and inactive
	ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)

	// ConnectGetType returns the hypervisor driver name (e.g. "QEMU")
	ConnectGetType() (string, error)

	// ConnectGetLibVersion returns the daemon's libvirt version
	ConnectGetLibVersion() (uint64, error)

	// DomainLookupByUUID looks up a domain by UUID
	DomainLookupByUUID(uuid libvirt.UUID) (libvirt.Domain, error)

	// DomainGetInfo returns state, max memory, memory, vcpus and cpu time
	DomainGetInfo(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error)

	// DomainGetOsType returns the guest OS type (e.g. "hvm")
	DomainGetOsType(dom libvirt.Domain) (string, error)

	// DomainGetXMLDesc returns the domain definition
	DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)

	// DomainReboot requests a guest reboot
	DomainReboot(dom libvirt.Domain, flags libvirt.DomainRebootFlagValues) error

	// DomainDestroy force-stops a domain
	DomainDestroy(dom libvirt.Domain) error

	// DomainCreate starts a defined domain
	DomainCreate(dom libvirt.Domain) error

	// DomainShutdown requests a graceful shutdown
	DomainShutdown(dom libvirt.Domain) error

	// DomainSuspend pauses a domain
	DomainSuspend(dom libvirt.Domain) error

	// DomainResume resumes a paused domain
	DomainResume(dom libvirt.Domain) error

	// Disconnect closes the connection
	Disconnect() error
}

// Operation names a driver call for recorders.
type Operation string

const (
	OpList     Operation = "list"
	OpReboot   Operation = "reboot"
	OpDestroy  Operation = "destroy"
	OpStart    Operation = "start"
	OpShutdown Operation = "shutdown"
	OpSuspend  Operation = "suspend"
	OpResume   Operation = "resume"
)

// Operations lists the lifecycle operations in a stable order.
var Operations = []Operation{OpReboot, OpDestroy, OpStart, OpShutdown, OpSuspend, OpResume}

// Event describes one completed driver call.
type Event struct {
	Operation Operation
	// Node is the targeted node; nil for OpList.
	Node *compute.Node
	// Success is the boolean result of a lifecycle operation.
	Success bool
	// Err is the error returned to the caller, if any.
	Err error
	// Count is the number of nodes returned by OpList.
	Count    int
	Duration time.Duration
}

// Recorder observes driver calls. Implementations must not block.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Recorders fans an event out to several recorders.
type Recorders []Recorder

// Record implements Recorder.
func (rs Recorders) Record(ctx context.Context, ev Event) {
	for _, r := range rs {
		if r != nil {
			r.Record(ctx, ev)
		}
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Event) {}
