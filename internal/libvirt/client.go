package libvirt

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket"
	"github.com/digitalocean/go-libvirt/socket/dialers"
	"github.com/go-logr/logr"

	"github.com/jbweber/lvnode/internal/driver"
)

// ClientName is the name this package registers with the driver.
const ClientName = "go-libvirt"

const defaultTimeout = 5 * time.Second

func init() {
	driver.RegisterClient(ClientName, Open)
}

// Options holds connection settings that are not part of the URI.
// URI query parameters take precedence over these.
type Options struct {
	// Timeout bounds dialing. Zero means 5 seconds.
	Timeout time.Duration
	// Socket overrides the daemon socket path.
	Socket string
	SSH    SSHOptions
	Log    logr.Logger
}

// SSHOptions configures qemu+ssh:// connections.
type SSHOptions struct {
	User       string
	KeyFile    string
	KnownHosts string
}

var (
	defaultsMu sync.RWMutex
	defaults   = Options{Timeout: defaultTimeout, Log: logr.Discard()}
)

// SetDefaults sets the options used by Open, and so by driver.New.
func SetDefaults(opts Options) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaults = opts
}

func currentDefaults() Options {
	defaultsMu.RLock()
	defer defaultsMu.RUnlock()
	return defaults
}

// Client wraps a go-libvirt connection opened from a libvirt URI.
type Client struct {
	uri     string
	libvirt *libvirt.Libvirt
}

// Open connects to uri with the package defaults. It is the opener
// registered with the driver package.
func Open(uri string) (driver.Hypervisor, error) {
	c, err := Connect(uri, currentDefaults())
	if err != nil {
		return nil, err
	}
	return c.Libvirt(), nil
}

// Connect establishes a connection to the libvirt daemon named by uri.
// It returns a Client that must be closed via Close() when done.
func Connect(uri string, opts Options) (*Client, error) {
	target, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	dialer, err := newDialer(target, opts)
	if err != nil {
		return nil, err
	}

	l := libvirt.NewWithDialer(dialer)
	if err := l.ConnectToURI(libvirt.ConnectURI(target.DriverURI)); err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt at %s: %w", uri, err)
	}

	return &Client{uri: uri, libvirt: l}, nil
}

// newDialer picks the go-libvirt dialer for the target's transport.
func newDialer(t *Target, opts Options) (socket.Dialer, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	log := opts.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	sock := t.Socket
	if opts.Socket != "" && sock == DefaultSocket {
		sock = opts.Socket
	}

	switch t.Transport {
	case TransportUnix:
		return dialers.NewLocal(
			dialers.WithSocket(sock),
			dialers.WithLocalTimeout(timeout),
		), nil

	case TransportTCP:
		host, port, err := splitHostPort(t.Host)
		if err != nil {
			return nil, err
		}
		return dialers.NewRemote(
			host,
			dialers.UsePort(port),
			dialers.WithRemoteTimeout(timeout),
		), nil

	case TransportSSH:
		d := &sshDialer{
			addr:       t.Host,
			user:       firstNonEmpty(t.User, opts.SSH.User, os.Getenv("USER")),
			socket:     sock,
			keyFile:    firstNonEmpty(t.KeyFile, opts.SSH.KeyFile),
			knownHosts: firstNonEmpty(t.KnownHosts, opts.SSH.KnownHosts),
			noVerify:   t.NoVerify,
			timeout:    timeout,
			log:        log,
		}
		if d.user == "" {
			return nil, fmt.Errorf("no ssh user for %s", t.Host)
		}
		return d, nil

	default:
		return nil, fmt.Errorf("unsupported transport %q", t.Transport)
	}
}

// ConnectWithContext establishes a connection with context support for cancellation.
func ConnectWithContext(ctx context.Context, uri string, opts Options) (*Client, error) {
	type result struct {
		client *Client
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		c, err := Connect(uri, opts)
		resultCh <- result{client: c, err: err}
	}()

	select {
	case <-ctx.Done():
		// Close a connection that completes after cancellation.
		go func() {
			if res := <-resultCh; res.client != nil {
				_ = res.client.Close()
			}
		}()
		return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
	case res := <-resultCh:
		return res.client, res.err
	}
}

// URI returns the URI the client was opened with.
func (c *Client) URI() string {
	return c.uri
}

// Close closes the libvirt connection and releases resources.
// It is safe to call Close multiple times.
func (c *Client) Close() error {
	if c.libvirt == nil {
		return nil
	}

	if err := c.libvirt.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect from libvirt: %w", err)
	}
	c.libvirt = nil

	return nil
}

// Libvirt returns the underlying go-libvirt client for direct API access.
func (c *Client) Libvirt() *libvirt.Libvirt {
	return c.libvirt
}

// Ping verifies the connection is still alive by calling a simple libvirt API.
func (c *Client) Ping() error {
	if c.libvirt == nil {
		return fmt.Errorf("client not connected")
	}

	if _, err := c.libvirt.ConnectGetLibVersion(); err != nil {
		return fmt.Errorf("libvirt connection is dead: %w", err)
	}

	return nil
}

func splitHostPort(hostport string) (string, string, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", "", fmt.Errorf("invalid host %q: %w", hostport, err)
	}
	return host, port, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
