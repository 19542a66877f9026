package compute

import "context"

// NodeDriver is the capability set every compute driver provides.
type NodeDriver interface {
	// Name returns the human readable provider name.
	Name() string

	// ListNodes returns every node known to the driver.
	ListNodes(ctx context.Context) ([]*Node, error)

	// RebootNode reboots a node. The bool reports whether the hypervisor
	// accepted the request; the error is reserved for failures to reach
	// or resolve the node.
	RebootNode(ctx context.Context, node *Node) (bool, error)

	// DestroyNode forcefully stops a node.
	DestroyNode(ctx context.Context, node *Node) (bool, error)
}

// PowerManager is implemented by drivers with power-state extension operations.
type PowerManager interface {
	StartNode(ctx context.Context, node *Node) (bool, error)
	ShutdownNode(ctx context.Context, node *Node) (bool, error)
	SuspendNode(ctx context.Context, node *Node) (bool, error)
	ResumeNode(ctx context.Context, node *Node) (bool, error)
}
