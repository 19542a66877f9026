// Package libvirt opens connections to libvirt daemons from libvirt URIs.
//
// This package wraps github.com/digitalocean/go-libvirt to provide:
//   - URI parsing (qemu:///system, qemu+tcp://host/system, qemu+ssh://user@host/system)
//   - Dialer selection for the local socket, plain TCP, or an SSH tunnel
//   - Connection management (connect, disconnect, ping)
//
// Importing the package registers it as the hypervisor client used by
// driver.New:
//
//	import _ "github.com/jbweber/lvnode/internal/libvirt"
//
//	d, err := driver.New("qemu+ssh://root@kvm1/system")
//
// Connection Management:
//
// Connect can also be used directly when only the raw RPC client is needed:
//
//	client, err := libvirt.Connect("qemu:///system", libvirt.Options{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if err := client.Ping(); err != nil {
//	    return err
//	}
//
// Consumer-Side Interfaces:
//
// This package does not define interfaces. The driver package defines
// driver.Hypervisor with only the operations it needs, and *libvirt.Libvirt
// satisfies it implicitly.
package libvirt
