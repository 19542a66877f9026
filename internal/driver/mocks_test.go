package driver

import (
	"fmt"
	"sync"

	"github.com/digitalocean/go-libvirt"
)

// mockHypervisor is a mock implementation of the Hypervisor interface for testing.
type mockHypervisor struct {
	mu sync.Mutex

	// Configurable behavior
	connectListAllDomainsFunc func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)
	connectGetTypeFunc        func() (string, error)
	connectGetLibVersionFunc  func() (uint64, error)
	domainLookupByUUIDFunc    func(uuid libvirt.UUID) (libvirt.Domain, error)
	domainGetInfoFunc         func(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error)
	domainGetOsTypeFunc       func(dom libvirt.Domain) (string, error)
	domainGetXMLDescFunc      func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	domainRebootFunc          func(dom libvirt.Domain, flags libvirt.DomainRebootFlagValues) error
	domainDestroyFunc         func(dom libvirt.Domain) error
	domainCreateFunc          func(dom libvirt.Domain) error
	domainShutdownFunc        func(dom libvirt.Domain) error
	domainSuspendFunc         func(dom libvirt.Domain) error
	domainResumeFunc          func(dom libvirt.Domain) error
	disconnectFunc            func() error

	// Call tracking
	connectListAllDomainsCalls int
	connectGetTypeCalls        int
	domainLookupByUUIDCalls    []libvirt.UUID
	domainGetInfoCalls         []libvirt.Domain
	domainRebootCalls          []libvirt.Domain
	domainRebootFlags          []libvirt.DomainRebootFlagValues
	domainDestroyCalls         []libvirt.Domain
	domainCreateCalls          []libvirt.Domain
	domainShutdownCalls        []libvirt.Domain
	domainSuspendCalls         []libvirt.Domain
	domainResumeCalls          []libvirt.Domain
	disconnectCalls            int
}

// newMockHypervisor creates a mock with no domains and successful operations.
func newMockHypervisor() *mockHypervisor {
	m := &mockHypervisor{}

	// Default: no domains
	m.connectListAllDomainsFunc = func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
		return []libvirt.Domain{}, 0, nil
	}
	m.connectGetTypeFunc = func() (string, error) {
		return "QEMU", nil
	}
	m.connectGetLibVersionFunc = func() (uint64, error) {
		return 10000000, nil
	}

	// Default: lookup fails with VIR_ERR_NO_DOMAIN
	m.domainLookupByUUIDFunc = func(uuid libvirt.UUID) (libvirt.Domain, error) {
		return libvirt.Domain{}, libvirt.Error{Code: errNoDomain, Message: fmt.Sprintf("Domain not found: no domain with matching uuid '%x'", uuid)}
	}

	// Default: running, 2 GiB, 2 vCPUs
	m.domainGetInfoFunc = func(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
		return 1, 2097152, 2097152, 2, 0, nil
	}
	m.domainGetOsTypeFunc = func(dom libvirt.Domain) (string, error) {
		return "hvm", nil
	}
	m.domainGetXMLDescFunc = func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
		return fmt.Sprintf("<domain type='kvm'><name>%s</name></domain>", dom.Name), nil
	}

	// Default: every operation succeeds
	m.domainRebootFunc = func(dom libvirt.Domain, flags libvirt.DomainRebootFlagValues) error { return nil }
	m.domainDestroyFunc = func(dom libvirt.Domain) error { return nil }
	m.domainCreateFunc = func(dom libvirt.Domain) error { return nil }
	m.domainShutdownFunc = func(dom libvirt.Domain) error { return nil }
	m.domainSuspendFunc = func(dom libvirt.Domain) error { return nil }
	m.domainResumeFunc = func(dom libvirt.Domain) error { return nil }
	m.disconnectFunc = func() error { return nil }

	return m
}

// withDomains makes the mock report the given domains from both listing and lookup.
func (m *mockHypervisor) withDomains(domains ...libvirt.Domain) *mockHypervisor {
	m.connectListAllDomainsFunc = func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
		return domains, uint32(len(domains)), nil
	}
	notFound := m.domainLookupByUUIDFunc
	m.domainLookupByUUIDFunc = func(uuid libvirt.UUID) (libvirt.Domain, error) {
		for _, d := range domains {
			if d.UUID == uuid {
				return d, nil
			}
		}
		return notFound(uuid)
	}
	return m
}

func (m *mockHypervisor) ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectListAllDomainsCalls++
	return m.connectListAllDomainsFunc(needResults, flags)
}

func (m *mockHypervisor) ConnectGetType() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectGetTypeCalls++
	return m.connectGetTypeFunc()
}

func (m *mockHypervisor) ConnectGetLibVersion() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectGetLibVersionFunc()
}

func (m *mockHypervisor) DomainLookupByUUID(uuid libvirt.UUID) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainLookupByUUIDCalls = append(m.domainLookupByUUIDCalls, uuid)
	return m.domainLookupByUUIDFunc(uuid)
}

func (m *mockHypervisor) DomainGetInfo(dom libvirt.Domain) (uint8, uint64, uint64, uint16, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainGetInfoCalls = append(m.domainGetInfoCalls, dom)
	return m.domainGetInfoFunc(dom)
}

func (m *mockHypervisor) DomainGetOsType(dom libvirt.Domain) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.domainGetOsTypeFunc(dom)
}

func (m *mockHypervisor) DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.domainGetXMLDescFunc(dom, flags)
}

func (m *mockHypervisor) DomainReboot(dom libvirt.Domain, flags libvirt.DomainRebootFlagValues) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainRebootCalls = append(m.domainRebootCalls, dom)
	m.domainRebootFlags = append(m.domainRebootFlags, flags)
	return m.domainRebootFunc(dom, flags)
}

func (m *mockHypervisor) DomainDestroy(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDestroyCalls = append(m.domainDestroyCalls, dom)
	return m.domainDestroyFunc(dom)
}

func (m *mockHypervisor) DomainCreate(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainCreateCalls = append(m.domainCreateCalls, dom)
	return m.domainCreateFunc(dom)
}

func (m *mockHypervisor) DomainShutdown(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainShutdownCalls = append(m.domainShutdownCalls, dom)
	return m.domainShutdownFunc(dom)
}

func (m *mockHypervisor) DomainSuspend(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainSuspendCalls = append(m.domainSuspendCalls, dom)
	return m.domainSuspendFunc(dom)
}

func (m *mockHypervisor) DomainResume(dom libvirt.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainResumeCalls = append(m.domainResumeCalls, dom)
	return m.domainResumeFunc(dom)
}

func (m *mockHypervisor) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectCalls++
	return m.disconnectFunc()
}
