package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/jbweber/lvnode/internal/compute"
	"github.com/jbweber/lvnode/internal/config"
	"github.com/jbweber/lvnode/internal/driver"
)

type fakeLister struct {
	nodes []*compute.Node
	err   error
	calls int
}

func (f *fakeLister) ListNodes(ctx context.Context) ([]*compute.Node, error) {
	f.calls++
	return f.nodes, f.err
}

func testNodes() []*compute.Node {
	return []*compute.Node{
		compute.NewNode(1, "6a1c3c8e-0d4e-4a36-9f0b-5e1f4b2d7c11", "web", compute.NodeStateRunning, nil, nil, driver.ProviderName, nil),
		compute.NewNode(-1, "0f2b8a54-93a7-4c3e-8d61-2b7e4f9a1c05", "db", compute.NodeStateTerminated, nil, nil, driver.ProviderName, nil),
	}
}

func TestResolveNode(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		wantName string
		wantErr  string
	}{
		{name: "by uuid", ref: "0f2b8a54-93a7-4c3e-8d61-2b7e4f9a1c05", wantName: "db"},
		{name: "by upper-case uuid", ref: "6A1C3C8E-0D4E-4A36-9F0B-5E1F4B2D7C11", wantName: "web"},
		{name: "by name", ref: "web", wantName: "web"},
		{name: "name is case sensitive", ref: "WEB", wantErr: `node "WEB" not found`},
		{name: "unknown", ref: "cache", wantErr: `node "cache" not found`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLister{nodes: testNodes()}
			node, err := resolveNode(context.Background(), l, tt.ref)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("resolveNode(%q) error = %v, want %q", tt.ref, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveNode(%q) unexpected error: %v", tt.ref, err)
			}
			if node.Name != tt.wantName {
				t.Errorf("resolveNode(%q) = %s, want %s", tt.ref, node.Name, tt.wantName)
			}
		})
	}
}

func TestResolveNode_UUIDBeatsName(t *testing.T) {
	nodes := testNodes()
	// A domain whose name is another domain's UUID.
	nodes = append(nodes, compute.NewNode(2, "9d7e7a40-3b51-4f0c-a2d8-6c4e1f0b8a77", nodes[1].UUID, compute.NodeStateRunning, nil, nil, driver.ProviderName, nil))

	node, err := resolveNode(context.Background(), &fakeLister{nodes: nodes}, nodes[1].UUID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Name != "db" {
		t.Errorf("got %s, want db", node.Name)
	}
}

func TestResolveNode_AmbiguousName(t *testing.T) {
	nodes := testNodes()
	nodes = append(nodes, compute.NewNode(2, "9d7e7a40-3b51-4f0c-a2d8-6c4e1f0b8a77", "web", compute.NodeStateRunning, nil, nil, driver.ProviderName, nil))

	_, err := resolveNode(context.Background(), &fakeLister{nodes: nodes}, "web")
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguous error, got %v", err)
	}
}

func TestResolveNode_ListError(t *testing.T) {
	listErr := errors.New("connection reset")
	_, err := resolveNode(context.Background(), &fakeLister{err: listErr}, "web")
	if !errors.Is(err, listErr) {
		t.Fatalf("expected wrapped list error, got %v", err)
	}
}

func TestFormatLibVersion(t *testing.T) {
	tests := map[uint64]string{
		8006000:  "8.6.0",
		10000000: "10.0.0",
		9010002:  "9.10.2",
	}
	for in, want := range tests {
		if got := formatLibVersion(in); got != want {
			t.Errorf("formatLibVersion(%d) = %s, want %s", in, got, want)
		}
	}
}

func TestLifecycleCommands(t *testing.T) {
	cmds := lifecycleCommands()
	if len(cmds) != len(driver.Operations) {
		t.Fatalf("got %d commands, want %d", len(cmds), len(driver.Operations))
	}
	for i, op := range driver.Operations {
		if cmds[i].Name() != string(op) {
			t.Errorf("command %d = %s, want %s", i, cmds[i].Name(), op)
		}
		if cmds[i].Short == "" {
			t.Errorf("command %s has no short help", op)
		}
		if err := cmds[i].Args(cmds[i], nil); err == nil {
			t.Errorf("command %s accepted zero arguments", op)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	t.Cleanup(func() {
		uriFlag, logLevel, outputFormat, noHeaders = "", "", "", false
	})

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "")

	c := config.Default()
	c.Output.NoHeaders = true

	uriFlag = " qemu+ssh://root@hv1/system "
	logLevel = "DEBUG"
	outputFormat = "json"
	applyFlags(cmd, c)

	if c.Connection.URI != "qemu+ssh://root@hv1/system" {
		t.Errorf("URI = %q", c.Connection.URI)
	}
	if c.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", c.Log.Level)
	}
	if c.Output.Format != "json" {
		t.Errorf("Output.Format = %q, want json", c.Output.Format)
	}
	if !c.Output.NoHeaders {
		t.Error("NoHeaders from config was overwritten by an unset flag")
	}

	if err := cmd.Flags().Set("no-headers", "false"); err != nil {
		t.Fatal(err)
	}
	applyFlags(cmd, c)
	if c.Output.NoHeaders {
		t.Error("explicit --no-headers=false was ignored")
	}
}

func TestApplyFlags_KeepsConfigWhenUnset(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	c := config.Default()
	c.Connection.URI = "qemu:///session"

	applyFlags(cmd, c)

	if c.Connection.URI != "qemu:///session" {
		t.Errorf("URI = %q, want qemu:///session", c.Connection.URI)
	}
	if c.Output.Format != "table" {
		t.Errorf("Output.Format = %q, want table", c.Output.Format)
	}
}

func TestRootCommands(t *testing.T) {
	want := []string{"list", "get", "reboot", "destroy", "start", "shutdown", "suspend", "resume", "history", "serve", "token", "test-conn"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestOpenSession_ConnectErrorWrappedOnce(t *testing.T) {
	saved := cfg
	t.Cleanup(func() { cfg = saved })

	cfg = config.Default()
	cfg.Connection.URI = "qemu:///system?socket=/nonexistent/lvnode.sock"
	cfg.Journal.Enabled = false

	_, err := openSession()
	if err == nil {
		t.Fatal("expected error connecting to a missing socket, got nil")
	}
	if n := strings.Count(err.Error(), cfg.Connection.URI); n != 1 {
		t.Errorf("URI appears %d times in connect error: %v", n, err)
	}
}

func TestServeUntilDone_GracefulStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	if err := serveUntilDone(ctx, srv, "qemu:///system"); err != nil {
		t.Fatalf("expected clean shutdown, got: %v", err)
	}
}
