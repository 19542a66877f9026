package driver

import "sync"

// OpenFunc opens a hypervisor connection for a URI.
type OpenFunc func(uri string) (Hypervisor, error)

var (
	clientMu   sync.RWMutex
	clientName string
	clientOpen OpenFunc
)

// RegisterClient makes a hypervisor client available to New. It is meant
// to be called from the init function of the client package and panics if
// called twice or with a nil OpenFunc.
func RegisterClient(name string, open OpenFunc) {
	clientMu.Lock()
	defer clientMu.Unlock()

	if open == nil {
		panic("driver: RegisterClient open func is nil")
	}
	if clientOpen != nil {
		panic("driver: RegisterClient called twice (already registered: " + clientName + ")")
	}
	clientName = name
	clientOpen = open
}

// ClientName returns the name of the registered client, or "" if none.
func ClientName() string {
	clientMu.RLock()
	defer clientMu.RUnlock()
	return clientName
}

func registeredClient() (OpenFunc, bool) {
	clientMu.RLock()
	defer clientMu.RUnlock()
	return clientOpen, clientOpen != nil
}
