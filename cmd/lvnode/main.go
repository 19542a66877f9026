package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/jbweber/lvnode/internal/config"
	"github.com/jbweber/lvnode/internal/libvirt"
	"github.com/jbweber/lvnode/internal/logging"
	"github.com/jbweber/lvnode/internal/output"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Persistent flags.
var (
	configPath   string
	uriFlag      string
	logLevel     string
	outputFormat string
	noHeaders    bool
)

// Set by the root PersistentPreRunE.
var (
	cfg *config.Config
	log = logr.Discard()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lvnode",
	Short: "lvnode - libvirt node driver",
	Long: `lvnode lists and controls the domains of a libvirt hypervisor as
generic compute nodes.

Nodes can be addressed by UUID or by domain name. The connection is
described by a libvirt URI, e.g. qemu:///system or qemu+ssh://user@host/system.`,
	Version:           fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.config/lvnode/config.yaml)")
	flags.StringVar(&uriFlag, "uri", "", "libvirt connection URI (overrides connection.uri)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVarP(&outputFormat, "output", "o", "", "output format: table, yaml, json")
	flags.BoolVar(&noHeaders, "no-headers", false, "omit table headers")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	for _, c := range lifecycleCommands() {
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(testConnCmd)
}

// setup loads the configuration, applies flag overrides, and configures
// logging and the libvirt client defaults.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	applyFlags(cmd, loaded)
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.Setup(logging.Options{
		Development: loaded.Log.Development,
		Level:       loaded.Log.Level,
	})
	if err != nil {
		return err
	}

	cfg = loaded
	log = logger

	libvirt.SetDefaults(libvirt.Options{
		Timeout: cfg.Connection.Timeout,
		Socket:  cfg.Connection.Socket,
		SSH: libvirt.SSHOptions{
			User:       cfg.Connection.SSH.User,
			KeyFile:    cfg.Connection.SSH.KeyFile,
			KnownHosts: cfg.Connection.SSH.KnownHosts,
		},
		Log: log.WithName("libvirt"),
	})
	return nil
}

// applyFlags copies explicitly set persistent flags over c.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	if uriFlag != "" {
		c.Connection.URI = uriFlag
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if outputFormat != "" {
		c.Output.Format = outputFormat
	}
	if cmd.Flags().Changed("no-headers") {
		c.Output.NoHeaders = noHeaders
	}
	c.Normalize()
}

func newFormatter() (output.Formatter, error) {
	if err := output.ValidateFormat(cfg.Output.Format); err != nil {
		return nil, err
	}
	return output.NewFormatter(output.Options{
		Format:    output.Format(cfg.Output.Format),
		NoHeaders: cfg.Output.NoHeaders,
	})
}
