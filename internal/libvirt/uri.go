package libvirt

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Transport is how the connection to the libvirt daemon is carried.
type Transport string

const (
	TransportUnix Transport = "unix"
	TransportTCP  Transport = "tcp"
	TransportSSH  Transport = "ssh"
)

const (
	// DefaultSocket is the system libvirtd socket.
	DefaultSocket = "/var/run/libvirt/libvirt-sock"

	defaultTCPPort = "16509"
	defaultSSHPort = "22"
)

// Target is a parsed libvirt connection URI.
type Target struct {
	Transport Transport
	// Host is host:port for remote transports.
	Host string
	// User is the SSH login, from the URI userinfo.
	User string
	// Socket is the daemon socket path, local or on the SSH host.
	Socket string
	// DriverURI is the URI handed to the daemon once connected,
	// e.g. "qemu:///system" for "qemu+ssh://root@host/system".
	DriverURI string

	// Parameters understood from the URI query string.
	KeyFile    string
	KnownHosts string
	NoVerify   bool
}

// ParseURI splits a libvirt URI of the form driver[+transport]://[user@][host][:port]/path[?params]
// into the dialing target and the driver URI.
//
// Supported query parameters: socket, keyfile, known_hosts, no_verify.
func ParseURI(raw string) (*Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid libvirt URI %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("invalid libvirt URI %q: missing driver", raw)
	}

	drv, transport, hasTransport := strings.Cut(u.Scheme, "+")
	if drv == "" {
		return nil, fmt.Errorf("invalid libvirt URI %q: missing driver", raw)
	}

	t := &Target{
		DriverURI: drv + "://" + u.Path,
	}

	switch {
	case !hasTransport && u.Host == "":
		t.Transport = TransportUnix
	case transport == "unix":
		t.Transport = TransportUnix
	case transport == "tcp":
		t.Transport = TransportTCP
	case transport == "ssh":
		t.Transport = TransportSSH
	case !hasTransport:
		return nil, fmt.Errorf("libvirt URI %q: tls transport is not supported, use +tcp or +ssh", raw)
	default:
		return nil, fmt.Errorf("libvirt URI %q: unsupported transport %q", raw, transport)
	}

	if t.Transport != TransportUnix {
		if u.Hostname() == "" {
			return nil, fmt.Errorf("libvirt URI %q: %s transport needs a host", raw, t.Transport)
		}
		port := u.Port()
		if port == "" {
			port = defaultTCPPort
			if t.Transport == TransportSSH {
				port = defaultSSHPort
			}
		}
		t.Host = net.JoinHostPort(u.Hostname(), port)
		if u.User != nil {
			t.User = u.User.Username()
		}
	}

	q := u.Query()
	t.Socket = q.Get("socket")
	t.KeyFile = q.Get("keyfile")
	t.KnownHosts = q.Get("known_hosts")
	if v := q.Get("no_verify"); v != "" {
		t.NoVerify, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("libvirt URI %q: invalid no_verify value %q", raw, v)
		}
	}

	if t.Socket == "" && t.Transport != TransportTCP {
		t.Socket = defaultSocket(u.Path, t.Transport)
	}

	return t, nil
}

// defaultSocket picks the daemon socket for a driver path. Session daemons
// listen under the user's runtime directory.
func defaultSocket(path string, transport Transport) string {
	if path == "/session" && transport == TransportUnix {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return filepath.Join(dir, "libvirt", "libvirt-sock")
		}
	}
	return DefaultSocket
}
