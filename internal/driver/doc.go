// Package driver implements compute.NodeDriver on top of libvirt.
//
// A Driver holds one libvirt connection and translates between libvirt
// domains and compute.Node values:
//   - domain states are mapped onto compute.NodeState with MapState
//   - ListNodes snapshots every domain known to the connection
//   - lifecycle operations (reboot, destroy, start, shutdown, suspend,
//     resume) resolve the node's UUID to a domain on every call and report
//     whether the hypervisor accepted the request
//
// Result Reporting:
//
// A lifecycle operation returns (true, nil) when libvirt accepted it and
// (false, nil) when libvirt answered with an error status. Failures to reach
// the daemon or to find the domain are returned as errors and are never
// folded into false.
//
// Client Registration:
//
// The package does not dial libvirt itself. A client package registers an
// OpenFunc with RegisterClient from its init function (internal/libvirt does
// this); New fails with compute.ErrMissingDependency when none is registered.
//
//	import _ "github.com/jbweber/lvnode/internal/libvirt"
//
//	d, err := driver.New("qemu:///system")
//	if err != nil {
//	    return err
//	}
//	defer d.Close()
//
//	nodes, err := d.ListNodes(ctx)
package driver
