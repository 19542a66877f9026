package libvirt

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// sshDialer tunnels the libvirt RPC stream to the daemon's unix socket on a
// remote host, the way qemu+ssh:// does with netcat.
type sshDialer struct {
	addr       string
	user       string
	socket     string
	keyFile    string
	knownHosts string
	noVerify   bool
	timeout    time.Duration
	log        logr.Logger
}

// Dial implements socket.Dialer.
func (d *sshDialer) Dial() (net.Conn, error) {
	config, closeAgent, err := d.clientConfig()
	if err != nil {
		return nil, err
	}
	defer closeAgent()

	client, err := ssh.Dial("tcp", d.addr, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %s: %w", d.addr, err)
	}

	conn, err := client.Dial("unix", d.socket)
	if err != nil {
		closeAndLog(d.log, client.Close)
		return nil, fmt.Errorf("unable to open %s on %s: %w", d.socket, d.addr, err)
	}

	d.log.V(1).Info("ssh tunnel established", "host", d.addr, "socket", d.socket)
	return &sshConn{Conn: conn, client: client}, nil
}

// clientConfig collects auth methods from the key file and a running agent.
// The returned func releases the agent connection.
func (d *sshDialer) clientConfig() (*ssh.ClientConfig, func(), error) {
	var auth []ssh.AuthMethod
	closeAgent := func() {}

	if d.keyFile != "" {
		key, err := os.ReadFile(d.keyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			d.log.V(1).Info("ssh agent unavailable", "socket", sock, "error", err.Error())
		} else {
			auth = append(auth, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			closeAgent = func() { closeAndLog(d.log, conn.Close) }
		}
	}

	if len(auth) == 0 {
		return nil, nil, fmt.Errorf("no ssh credentials: set a key file or run an ssh agent")
	}

	hostKey, err := d.hostKeyCallback()
	if err != nil {
		closeAgent()
		return nil, nil, err
	}

	return &ssh.ClientConfig{
		User:            d.user,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         d.timeout,
	}, closeAgent, nil
}

func (d *sshDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.noVerify {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := d.knownHosts
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("unable to locate known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load known hosts from %s: %w", path, err)
	}
	return cb, nil
}

// sshConn closes the SSH client along with the forwarded stream.
type sshConn struct {
	net.Conn
	client *ssh.Client
}

func (c *sshConn) Close() error {
	err := c.Conn.Close()
	if cerr := c.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func closeAndLog(log logr.Logger, f func() error) {
	if err := f(); err != nil {
		log.V(1).Info("error closing ssh connection", "error", err.Error())
	}
}
