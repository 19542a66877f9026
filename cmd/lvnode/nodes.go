package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jbweber/lvnode/internal/compute"
	"github.com/jbweber/lvnode/internal/driver"
	"github.com/jbweber/lvnode/internal/journal"
)

var errRejected = errors.New("operation was rejected by the hypervisor")

// nodeLister is the part of the driver used to resolve node references.
type nodeLister interface {
	ListNodes(ctx context.Context) ([]*compute.Node, error)
}

// session is an open driver plus the journal it records to, if enabled.
type session struct {
	driver  *driver.Driver
	journal *journal.Store
}

func (s *session) Close() {
	if err := s.driver.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", err)
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close journal: %v\n", err)
		}
	}
}

// openSession connects to the configured URI. Driver calls are recorded in
// the journal when it is enabled, along with any extra recorders.
func openSession(extra ...driver.Recorder) (*session, error) {
	s := &session{}
	recorders := driver.Recorders(extra)

	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		s.journal = store
		recorders = append(recorders, journal.NewRecorder(store, log.WithName("journal")))
	}

	log.V(1).Info("opening driver", "client", driver.ClientName(), "uri", cfg.Connection.URI)
	drv, err := driver.New(cfg.Connection.URI,
		driver.WithLogger(log.WithName("driver")),
		driver.WithRecorder(recorders),
	)
	if err != nil {
		if s.journal != nil {
			_ = s.journal.Close()
		}
		return nil, err
	}
	s.driver = drv
	return s, nil
}

// resolveNode finds the node named by ref, which is a UUID or a domain name.
func resolveNode(ctx context.Context, l nodeLister, ref string) (*compute.Node, error) {
	nodes, err := l.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	for _, n := range nodes {
		if strings.EqualFold(n.UUID, ref) {
			return n, nil
		}
	}

	var match *compute.Node
	for _, n := range nodes {
		if n.Name != ref {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("node name %q is ambiguous, use the UUID", ref)
		}
		match = n
	}
	if match == nil {
		return nil, fmt.Errorf("node %q not found", ref)
	}
	return match, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List nodes",
	Long: `List every domain on the hypervisor, running or not.

Shows name, UUID, state, domain ID, vCPUs, memory and OS type.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		nodes, err := s.driver.ListNodes(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list nodes: %w", err)
		}

		result, err := formatter.FormatNodeList(nodes)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), result)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <node>",
	Short: "Get details about a node",
	Long: `Get the definition of a node: type, architecture, memory, vCPUs,
disks and network interfaces.

Output formats:
  -o table  Human-readable summary (default)
  -o yaml   YAML document
  -o json   JSON document`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		node, err := resolveNode(ctx, s.driver, args[0])
		if err != nil {
			return err
		}

		details, err := s.driver.NodeDetails(ctx, node)
		if err != nil {
			return fmt.Errorf("failed to get node: %w", err)
		}

		result, err := formatter.FormatDetails(details)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), result)
		return nil
	},
}

var lifecycleHelp = map[driver.Operation]string{
	driver.OpReboot:   "Reboot a node",
	driver.OpDestroy:  "Force-stop a node",
	driver.OpStart:    "Start a stopped node",
	driver.OpShutdown: "Ask a node to shut down",
	driver.OpSuspend:  "Pause a running node",
	driver.OpResume:   "Resume a paused node",
}

// lifecycleCommands builds one command per lifecycle operation.
func lifecycleCommands() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(driver.Operations))
	for _, op := range driver.Operations {
		cmds = append(cmds, &cobra.Command{
			Use:   string(op) + " <node>",
			Short: lifecycleHelp[op],
			Long: lifecycleHelp[op] + `.

The command exits non-zero when the hypervisor rejects the request, for
example when the node is already in the requested state.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runLifecycle(cmd, op, args[0])
			},
		})
	}
	return cmds
}

func runLifecycle(cmd *cobra.Command, op driver.Operation, ref string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	node, err := resolveNode(ctx, s.driver, ref)
	if err != nil {
		return err
	}

	ok, err := s.driver.Do(ctx, op, node)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", op, node, err)
	}
	if !ok {
		return errRejected
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s\n", op, node)
	return nil
}
