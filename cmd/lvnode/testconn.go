package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbweber/lvnode/internal/libvirt"
)

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test libvirt connection",
	Long:  `Test connectivity to the libvirt daemon and display version information.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Testing libvirt connection to %s...\n", cfg.Connection.URI)

		client, err := libvirt.ConnectWithContext(cmd.Context(), cfg.Connection.URI, libvirt.Options{
			Timeout: cfg.Connection.Timeout,
			Socket:  cfg.Connection.Socket,
			SSH: libvirt.SSHOptions{
				User:       cfg.Connection.SSH.User,
				KeyFile:    cfg.Connection.SSH.KeyFile,
				KnownHosts: cfg.Connection.SSH.KnownHosts,
			},
			Log: log.WithName("libvirt"),
		})
		if err != nil {
			return fmt.Errorf("failed to connect to libvirt: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close libvirt connection: %v\n", closeErr)
			}
		}()

		fmt.Fprintln(out, "✓ Connected to libvirt daemon")

		if err := client.Ping(); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		version, err := client.Libvirt().ConnectGetLibVersion()
		if err != nil {
			return fmt.Errorf("failed to get libvirt version: %w", err)
		}
		fmt.Fprintf(out, "✓ Libvirt version: %s\n", formatLibVersion(version))

		hvType, err := client.Libvirt().ConnectGetType()
		if err != nil {
			return fmt.Errorf("failed to get hypervisor type: %w", err)
		}
		fmt.Fprintf(out, "✓ Hypervisor type: %s\n", hvType)

		hostname, err := client.Libvirt().ConnectGetHostname()
		if err != nil {
			return fmt.Errorf("failed to get hostname: %w", err)
		}
		fmt.Fprintf(out, "✓ Hypervisor hostname: %s\n", hostname)
		fmt.Fprintf(out, "✓ Connection URI: %s\n", client.URI())

		fmt.Fprintln(out, "\nConnection test successful!")
		return nil
	},
}

// formatLibVersion renders libvirt's packed version (e.g. 8006000) as 8.6.0.
func formatLibVersion(v uint64) string {
	return fmt.Sprintf("%d.%d.%d", v/1000000, (v%1000000)/1000, v%1000)
}
