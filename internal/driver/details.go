package driver

import (
	"context"
	"fmt"
	"strings"

	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/lvnode/internal/compute"
)

// NodeDetails reads the node's domain definition and reports its
// configured resources, disks and network interfaces along with the
// domain's current state.
func (d *Driver) NodeDetails(_ context.Context, node *compute.Node) (*compute.NodeDetails, error) {
	dom, err := d.domainForNode(node)
	if err != nil {
		return nil, err
	}

	xml, err := d.conn.DomainGetXMLDesc(dom, 0)
	if err != nil {
		return nil, err
	}

	details, err := parseDomainXML(xml)
	if err != nil {
		return nil, err
	}

	state, _, _, _, _, err := d.conn.DomainGetInfo(dom)
	if err != nil {
		return nil, err
	}
	details.State = MapState(int(state))
	details.DomainState = DescribeState(int(state))

	return details, nil
}

// parseDomainXML converts a libvirt domain definition into NodeDetails.
func parseDomainXML(xml string) (*compute.NodeDetails, error) {
	var domain libvirtxml.Domain
	if err := domain.Unmarshal(xml); err != nil {
		return nil, fmt.Errorf("failed to parse domain XML: %w", err)
	}

	details := &compute.NodeDetails{
		UUID: domain.UUID,
		Name: domain.Name,
		Type: domain.Type,
	}

	if domain.OS != nil && domain.OS.Type != nil {
		details.Arch = domain.OS.Type.Arch
	}
	if domain.Memory != nil {
		kib, err := memoryKiB(domain.Memory.Value, domain.Memory.Unit)
		if err != nil {
			return nil, err
		}
		details.MemoryKiB = kib
	}
	if domain.VCPU != nil {
		details.VCPUs = domain.VCPU.Value
	}

	if domain.Devices == nil {
		return details, nil
	}

	for _, disk := range domain.Devices.Disks {
		dd := compute.DiskDetails{Device: disk.Device}
		if disk.Target != nil {
			dd.Target = disk.Target.Dev
			dd.Bus = disk.Target.Bus
		}
		dd.Source = diskSource(disk.Source)
		details.Disks = append(details.Disks, dd)
	}

	for _, iface := range domain.Devices.Interfaces {
		info := compute.InterfaceInfo{}
		if iface.MAC != nil {
			info.MAC = iface.MAC.Address
		}
		if iface.Model != nil {
			info.Model = iface.Model.Type
		}
		info.Source = interfaceSource(iface.Source)
		details.Interfaces = append(details.Interfaces, info)
	}

	return details, nil
}

// diskSource returns a printable reference to where a disk's data lives.
func diskSource(src *libvirtxml.DomainDiskSource) string {
	switch {
	case src == nil:
		return ""
	case src.File != nil:
		return src.File.File
	case src.Block != nil:
		return src.Block.Dev
	case src.Volume != nil:
		return src.Volume.Pool + "/" + src.Volume.Volume
	default:
		return ""
	}
}

// interfaceSource returns the network or bridge an interface is attached to.
func interfaceSource(src *libvirtxml.DomainInterfaceSource) string {
	switch {
	case src == nil:
		return ""
	case src.Network != nil:
		return "network:" + src.Network.Network
	case src.Bridge != nil:
		return "bridge:" + src.Bridge.Bridge
	default:
		return ""
	}
}

// memoryKiB converts a libvirt memory value to KiB.
func memoryKiB(value uint, unit string) (uint64, error) {
	v := uint64(value)
	switch strings.ToLower(unit) {
	case "", "k", "kib":
		return v, nil
	case "b", "bytes":
		return v / 1024, nil
	case "kb":
		return v * 1000 / 1024, nil
	case "m", "mib":
		return v * 1024, nil
	case "mb":
		return v * 1000 * 1000 / 1024, nil
	case "g", "gib":
		return v * 1024 * 1024, nil
	case "gb":
		return v * 1000 * 1000 * 1000 / 1024, nil
	default:
		return 0, fmt.Errorf("unsupported memory unit %q", unit)
	}
}
