package libvirt

import (
	"context"
	"testing"
	"time"

	"github.com/digitalocean/go-libvirt/socket/dialers"

	"github.com/jbweber/lvnode/internal/driver"
)

// TestConnect tests basic connection functionality.
// This is an integration test that requires libvirt to be running.
func TestConnect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	c, err := Connect("qemu:///system", Options{})
	if err != nil {
		t.Skipf("libvirt not available: %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}()

	if err := c.Ping(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if c.URI() != "qemu:///system" {
		t.Errorf("expected URI qemu:///system, got %s", c.URI())
	}
}

// TestConnect_InvalidSocket tests connection failure with invalid socket.
func TestConnect_InvalidSocket(t *testing.T) {
	_, err := Connect("qemu:///system?socket=/nonexistent/socket", Options{Timeout: 100 * time.Millisecond})
	if err == nil {
		t.Fatal("expected error connecting to nonexistent socket, got nil")
	}
}

func TestConnect_InvalidURI(t *testing.T) {
	if _, err := Connect("qemu+tls://host/system", Options{}); err == nil {
		t.Fatal("expected error for unsupported transport, got nil")
	}
}

// TestConnectWithContext_Cancellation tests context cancellation.
func TestConnectWithContext_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConnectWithContext(ctx, "qemu:///system", Options{})
	if err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

// TestClose_Idempotent tests that Close can be called multiple times safely.
func TestClose_Idempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	c, err := Connect("qemu:///system", Options{})
	if err != nil {
		t.Skipf("libvirt not available: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

// TestPing_Disconnected tests Ping on a disconnected client.
func TestPing_Disconnected(t *testing.T) {
	c := &Client{libvirt: nil}

	if err := c.Ping(); err == nil {
		t.Fatal("expected error from Ping on nil client, got nil")
	}
}

func TestRegisteredWithDriver(t *testing.T) {
	if got := driver.ClientName(); got != ClientName {
		t.Errorf("expected registered client %q, got %q", ClientName, got)
	}
}

func TestNewDialer(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		opts   Options
		check  func(t *testing.T, d any)
		errMsg string
	}{
		{
			name: "local socket",
			uri:  "qemu:///system",
			check: func(t *testing.T, d any) {
				if _, ok := d.(*dialers.Local); !ok {
					t.Errorf("expected *dialers.Local, got %T", d)
				}
			},
		},
		{
			name: "tcp",
			uri:  "qemu+tcp://kvm1.example.com/system",
			check: func(t *testing.T, d any) {
				if _, ok := d.(*dialers.Remote); !ok {
					t.Errorf("expected *dialers.Remote, got %T", d)
				}
			},
		},
		{
			name: "ssh with options",
			uri:  "qemu+ssh://kvm1.example.com/system",
			opts: Options{
				Socket: "/run/libvirt/libvirt-sock",
				SSH:    SSHOptions{User: "ops", KeyFile: "/home/ops/.ssh/id_ed25519", KnownHosts: "/tmp/known_hosts"},
			},
			check: func(t *testing.T, d any) {
				sd, ok := d.(*sshDialer)
				if !ok {
					t.Fatalf("expected *sshDialer, got %T", d)
				}
				if sd.addr != "kvm1.example.com:22" {
					t.Errorf("expected addr kvm1.example.com:22, got %s", sd.addr)
				}
				if sd.user != "ops" {
					t.Errorf("expected user ops, got %s", sd.user)
				}
				if sd.socket != "/run/libvirt/libvirt-sock" {
					t.Errorf("expected socket override, got %s", sd.socket)
				}
				if sd.keyFile != "/home/ops/.ssh/id_ed25519" || sd.knownHosts != "/tmp/known_hosts" {
					t.Errorf("unexpected key settings: %s %s", sd.keyFile, sd.knownHosts)
				}
				if sd.timeout != defaultTimeout {
					t.Errorf("expected default timeout, got %s", sd.timeout)
				}
			},
		},
		{
			name: "ssh uri wins over options",
			uri:  "qemu+ssh://root@kvm1.example.com:2222/system?keyfile=/root/key&no_verify=1",
			opts: Options{
				Timeout: time.Second,
				SSH:     SSHOptions{User: "ops", KeyFile: "/home/ops/key"},
			},
			check: func(t *testing.T, d any) {
				sd := d.(*sshDialer)
				if sd.user != "root" || sd.keyFile != "/root/key" {
					t.Errorf("expected URI user and key, got %s %s", sd.user, sd.keyFile)
				}
				if sd.addr != "kvm1.example.com:2222" || !sd.noVerify {
					t.Errorf("unexpected dialer: %+v", sd)
				}
				if sd.timeout != time.Second {
					t.Errorf("expected 1s timeout, got %s", sd.timeout)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := ParseURI(tt.uri)
			if err != nil {
				t.Fatalf("ParseURI failed: %v", err)
			}
			d, err := newDialer(target, tt.opts)
			if err != nil {
				t.Fatalf("newDialer failed: %v", err)
			}
			tt.check(t, d)
		})
	}
}
