package compute

import (
	"errors"
	"fmt"
)

// NodeState is the generic lifecycle state of a node.
type NodeState string

const (
	// NodeStateRunning means the node is up.
	NodeStateRunning NodeState = "running"
	// NodeStatePending means the node exists but is waiting on a resource.
	NodeStatePending NodeState = "pending"
	// NodeStateTerminated means the node is not running.
	NodeStateTerminated NodeState = "terminated"
	// NodeStateUnknown covers every state a driver cannot classify.
	NodeStateUnknown NodeState = "unknown"
)

// String implements fmt.Stringer.
func (s NodeState) String() string {
	return string(s)
}

var (
	// ErrMissingDependency is returned when a driver is constructed in a
	// process that has no client for its hypervisor.
	ErrMissingDependency = errors.New("hypervisor client is not available in this process")

	// ErrInvalidUUID is returned when a node carries a UUID that cannot be parsed.
	ErrInvalidUUID = errors.New("invalid node uuid")
)

// Keys used in Node.Extra by hypervisor drivers.
const (
	ExtraUUID        = "uuid"
	ExtraOSType      = "os_type"
	ExtraTypes       = "types"
	ExtraUsedMemory  = "used_memory"
	ExtraVCPUCount   = "vcpu_count"
	ExtraUsedCPUTime = "used_cpu_time"
)

// Node is a compute instance as exposed by a NodeDriver.
type Node struct {
	ID         int            `json:"id" yaml:"id"`
	UUID       string         `json:"uuid" yaml:"uuid"`
	Name       string         `json:"name" yaml:"name"`
	State      NodeState      `json:"state" yaml:"state"`
	PublicIPs  []string       `json:"publicIPs" yaml:"publicIPs"`
	PrivateIPs []string       `json:"privateIPs" yaml:"privateIPs"`
	Provider   string         `json:"provider" yaml:"provider"`
	Extra      map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// NewNode builds a Node. The uuid is the driver's own identity for the
// instance and is what drivers use to find it again.
func NewNode(id int, uuid, name string, state NodeState, publicIPs, privateIPs []string, provider string, extra map[string]any) *Node {
	if publicIPs == nil {
		publicIPs = []string{}
	}
	if privateIPs == nil {
		privateIPs = []string{}
	}
	if extra == nil {
		extra = map[string]any{}
	}
	return &Node{
		ID:         id,
		UUID:       uuid,
		Name:       name,
		State:      state,
		PublicIPs:  publicIPs,
		PrivateIPs: privateIPs,
		Provider:   provider,
		Extra:      extra,
	}
}

// NodeRef returns a Node that carries only a UUID. It is enough to target
// lifecycle operations, which resolve nodes by UUID.
func NodeRef(uuid string) *Node {
	return &Node{UUID: uuid, PublicIPs: []string{}, PrivateIPs: []string{}}
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n.Name == "" {
		return n.UUID
	}
	return fmt.Sprintf("%s (%s)", n.Name, n.UUID)
}

// NodeDetails is the configuration view of a node, read from the
// hypervisor's definition of the instance, plus its current state.
type NodeDetails struct {
	UUID  string    `json:"uuid" yaml:"uuid"`
	Name  string    `json:"name" yaml:"name"`
	Type  string    `json:"type" yaml:"type"`
	State NodeState `json:"state" yaml:"state"`
	// DomainState is the hypervisor's own name for the state, e.g. "paused".
	DomainState string          `json:"domainState,omitempty" yaml:"domainState,omitempty"`
	Arch        string          `json:"arch,omitempty" yaml:"arch,omitempty"`
	MemoryKiB   uint64          `json:"memoryKiB" yaml:"memoryKiB"`
	VCPUs       uint            `json:"vcpus" yaml:"vcpus"`
	Disks       []DiskDetails   `json:"disks,omitempty" yaml:"disks,omitempty"`
	Interfaces  []InterfaceInfo `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
}

// DiskDetails describes one disk attached to a node.
type DiskDetails struct {
	Device string `json:"device" yaml:"device"`
	Target string `json:"target" yaml:"target"`
	Bus    string `json:"bus,omitempty" yaml:"bus,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// InterfaceInfo describes one network interface attached to a node.
type InterfaceInfo struct {
	MAC    string `json:"mac,omitempty" yaml:"mac,omitempty"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Model  string `json:"model,omitempty" yaml:"model,omitempty"`
}
