package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/jbweber/lvnode/internal/compute"
)

// ProviderName is the provider name reported by the driver.
const ProviderName = "Libvirt"

// errNoDomain is libvirt's VIR_ERR_NO_DOMAIN.
const errNoDomain = 42

var errClosed = errors.New("driver is closed")

var (
	_ compute.NodeDriver   = (*Driver)(nil)
	_ compute.PowerManager = (*Driver)(nil)
)

// Driver is a compute.NodeDriver backed by a single libvirt connection.
//
// A Driver does not lock around the connection; go-libvirt serialises
// requests on the socket itself.
type Driver struct {
	uri      string
	conn     Hypervisor
	log      logr.Logger
	recorder Recorder
	now      func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for driver diagnostics.
func WithLogger(log logr.Logger) Option {
	return func(d *Driver) {
		d.log = log
	}
}

// WithRecorder sets the recorder notified after every driver call.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) {
		if r != nil {
			d.recorder = r
		}
	}
}

// New opens a connection to the libvirt URI and returns a Driver for it.
//
// New returns compute.ErrMissingDependency, without dialing, when no
// hypervisor client has been registered. Errors from opening the
// connection are returned as they are.
func New(uri string, opts ...Option) (*Driver, error) {
	open, ok := registeredClient()
	if !ok {
		return nil, compute.ErrMissingDependency
	}

	conn, err := open(uri)
	if err != nil {
		return nil, err
	}

	return newWithConn(uri, conn, opts...), nil
}

// newWithConn builds a Driver around an already open connection.
// This allows for testing by accepting interfaces instead of concrete types.
func newWithConn(uri string, conn Hypervisor, opts ...Option) *Driver {
	d := &Driver{
		uri:      uri,
		conn:     conn,
		log:      logr.Discard(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements compute.NodeDriver.
func (d *Driver) Name() string {
	return ProviderName
}

// URI returns the URI the driver was opened with.
func (d *Driver) URI() string {
	return d.uri
}

// Close releases the libvirt connection.
func (d *Driver) Close() error {
	if d.conn == nil {
		return nil
	}
	if err := d.conn.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect from libvirt: %w", err)
	}
	d.conn = nil
	return nil
}

// Ping verifies the connection is still alive.
func (d *Driver) Ping() error {
	if d.conn == nil {
		return errClosed
	}
	if _, err := d.conn.ConnectGetLibVersion(); err != nil {
		return fmt.Errorf("libvirt connection is dead: %w", err)
	}
	return nil
}

// ListNodes returns one node per domain, running or not.
//
// Any failure while reading a domain aborts the listing; no partial list is
// returned.
func (d *Driver) ListNodes(ctx context.Context) ([]*compute.Node, error) {
	start := d.now()
	nodes, err := d.listNodes()
	d.recorder.Record(ctx, Event{
		Operation: OpList,
		Err:       err,
		Success:   err == nil,
		Count:     len(nodes),
		Duration:  d.now().Sub(start),
	})
	if err != nil {
		return nil, err
	}

	d.log.V(1).Info("listed nodes", "uri", d.uri, "count", len(nodes))
	return nodes, nil
}

func (d *Driver) listNodes() ([]*compute.Node, error) {
	if d.conn == nil {
		return nil, errClosed
	}

	// NeedResults: 1 means populate the domains slice
	// Flags: 0 means all domains (active and inactive)
	domains, _, err := d.conn.ConnectListAllDomains(1, 0)
	if err != nil {
		return nil, err
	}

	nodes := make([]*compute.Node, 0, len(domains))
	if len(domains) == 0 {
		return nodes, nil
	}

	hvType, err := d.conn.ConnectGetType()
	if err != nil {
		return nil, err
	}

	for _, dom := range domains {
		node, err := d.nodeFromDomain(dom, hvType)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	return nodes, nil
}

// nodeFromDomain snapshots a single domain.
func (d *Driver) nodeFromDomain(dom libvirt.Domain, hvType string) (*compute.Node, error) {
	state, _, memory, nrVirtCPU, cpuTime, err := d.conn.DomainGetInfo(dom)
	if err != nil {
		return nil, err
	}

	osType, err := d.conn.DomainGetOsType(dom)
	if err != nil {
		return nil, err
	}

	domUUID := formatUUID(dom.UUID)

	// IP addresses are not derived from the domain definition.
	extra := map[string]any{
		compute.ExtraUUID:        domUUID,
		compute.ExtraOSType:      osType,
		compute.ExtraTypes:       hvType,
		compute.ExtraUsedMemory:  memory / 1024,
		compute.ExtraVCPUCount:   nrVirtCPU,
		compute.ExtraUsedCPUTime: cpuTime,
	}

	return compute.NewNode(
		int(dom.ID),
		domUUID,
		dom.Name,
		MapState(int(state)),
		[]string{},
		[]string{},
		ProviderName,
		extra,
	), nil
}

// RebootNode implements compute.NodeDriver.
func (d *Driver) RebootNode(ctx context.Context, node *compute.Node) (bool, error) {
	return d.lifecycle(ctx, OpReboot, node, func(dom libvirt.Domain) error {
		return d.conn.DomainReboot(dom, 0)
	})
}

// DestroyNode implements compute.NodeDriver. The domain is stopped
// immediately, without asking the guest.
func (d *Driver) DestroyNode(ctx context.Context, node *compute.Node) (bool, error) {
	return d.lifecycle(ctx, OpDestroy, node, func(dom libvirt.Domain) error {
		return d.conn.DomainDestroy(dom)
	})
}

// StartNode starts a stopped node.
func (d *Driver) StartNode(ctx context.Context, node *compute.Node) (bool, error) {
	return d.lifecycle(ctx, OpStart, node, func(dom libvirt.Domain) error {
		return d.conn.DomainCreate(dom)
	})
}

// ShutdownNode asks a running node to shut down.
func (d *Driver) ShutdownNode(ctx context.Context, node *compute.Node) (bool, error) {
	return d.lifecycle(ctx, OpShutdown, node, func(dom libvirt.Domain) error {
		return d.conn.DomainShutdown(dom)
	})
}

// SuspendNode suspends a running node.
func (d *Driver) SuspendNode(ctx context.Context, node *compute.Node) (bool, error) {
	return d.lifecycle(ctx, OpSuspend, node, func(dom libvirt.Domain) error {
		return d.conn.DomainSuspend(dom)
	})
}

// ResumeNode resumes a suspended node.
func (d *Driver) ResumeNode(ctx context.Context, node *compute.Node) (bool, error) {
	return d.lifecycle(ctx, OpResume, node, func(dom libvirt.Domain) error {
		return d.conn.DomainResume(dom)
	})
}

// Do runs the lifecycle operation named by op.
func (d *Driver) Do(ctx context.Context, op Operation, node *compute.Node) (bool, error) {
	switch op {
	case OpReboot:
		return d.RebootNode(ctx, node)
	case OpDestroy:
		return d.DestroyNode(ctx, node)
	case OpStart:
		return d.StartNode(ctx, node)
	case OpShutdown:
		return d.ShutdownNode(ctx, node)
	case OpSuspend:
		return d.SuspendNode(ctx, node)
	case OpResume:
		return d.ResumeNode(ctx, node)
	default:
		return false, fmt.Errorf("unsupported operation %q", op)
	}
}

// lifecycle resolves the node and runs call against the resolved domain.
func (d *Driver) lifecycle(ctx context.Context, op Operation, node *compute.Node, call func(libvirt.Domain) error) (bool, error) {
	start := d.now()
	log := d.log.WithValues("operation", string(op))
	if node != nil {
		log = log.WithValues("uuid", node.UUID)
	}

	ok, err := d.resolveAndCall(node, func(dom libvirt.Domain) error {
		err := call(dom)
		if isRejection(err) {
			log.Info("hypervisor rejected operation", "reason", err.Error())
		}
		return err
	})

	d.recorder.Record(ctx, Event{
		Operation: op,
		Node:      node,
		Success:   ok,
		Err:       err,
		Duration:  d.now().Sub(start),
	})

	if err == nil {
		log.V(1).Info("operation finished", "success", ok)
	}
	return ok, err
}

func (d *Driver) resolveAndCall(node *compute.Node, call func(libvirt.Domain) error) (bool, error) {
	dom, err := d.domainForNode(node)
	if err != nil {
		return false, err
	}
	return exitStatus(func() error { return call(dom) })
}

// domainForNode looks up the node's domain by UUID. The lookup is repeated
// on every call so operations always target the current domain.
func (d *Driver) domainForNode(node *compute.Node) (libvirt.Domain, error) {
	if node == nil {
		return libvirt.Domain{}, fmt.Errorf("%w: node is nil", compute.ErrInvalidUUID)
	}
	if d.conn == nil {
		return libvirt.Domain{}, errClosed
	}
	u, err := parseUUID(node.UUID)
	if err != nil {
		return libvirt.Domain{}, err
	}
	return d.conn.DomainLookupByUUID(u)
}

// exitStatus runs a libvirt call and reports whether it succeeded.
//
// A libvirt error status becomes false with a nil error. Any other error
// (transport, connection) is returned.
func exitStatus(call func() error) (bool, error) {
	err := call()
	switch {
	case err == nil:
		return true, nil
	case isRejection(err):
		return false, nil
	default:
		return false, err
	}
}

// isRejection reports whether err is an error status sent back by libvirt,
// as opposed to a failure to talk to it.
func isRejection(err error) bool {
	if err == nil {
		return false
	}
	var e libvirt.Error
	if errors.As(err, &e) {
		return true
	}
	var pe *libvirt.Error
	return errors.As(err, &pe)
}

// IsNodeNotFound reports whether err is libvirt's "no such domain" error.
func IsNodeNotFound(err error) bool {
	var e libvirt.Error
	if errors.As(err, &e) {
		return e.Code == errNoDomain
	}
	var pe *libvirt.Error
	if errors.As(err, &pe) && pe != nil {
		return pe.Code == errNoDomain
	}
	return false
}

func parseUUID(s string) (libvirt.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return libvirt.UUID{}, fmt.Errorf("%w %q: %v", compute.ErrInvalidUUID, s, err)
	}
	return libvirt.UUID(u), nil
}

func formatUUID(u libvirt.UUID) string {
	return uuid.UUID(u).String()
}
