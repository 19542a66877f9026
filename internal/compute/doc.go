// Package compute defines the provider-neutral view of compute instances.
//
// A Node is the generic representation of one virtual machine as seen by a
// NodeDriver. Drivers translate their hypervisor-specific objects into Nodes
// and resolve Nodes back into native objects when an operation is requested.
//
// The package has no knowledge of any particular hypervisor. Backends live in
// their own packages (see internal/driver for the libvirt backend) and depend
// on compute, never the other way round.
package compute
