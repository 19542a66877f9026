package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jbweber/lvnode/internal/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [node]",
	Short: "Show recorded node operations",
	Long: `Show the operation journal, newest first.

With a node argument only operations on that node are shown. A UUID is
used as given; a domain name is resolved through the hypervisor.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Journal.Enabled {
			return errors.New("the operation journal is disabled (journal.enabled: false)")
		}

		formatter, err := newFormatter()
		if err != nil {
			return err
		}

		filter := journal.Filter{Limit: historyLimit}
		if len(args) == 1 {
			id, err := historyNodeUUID(cmd, args[0])
			if err != nil {
				return err
			}
			filter.UUID = id
		}

		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				log.Error(closeErr, "failed to close journal")
			}
		}()

		entries, err := store.List(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}

		result, err := formatter.FormatEntries(entries)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum number of entries (0 for all)")
}

// historyNodeUUID returns the UUID for ref, connecting to the hypervisor
// only when ref is not already a UUID.
func historyNodeUUID(cmd *cobra.Command, ref string) (string, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id.String(), nil
	}

	s, err := openSession()
	if err != nil {
		return "", err
	}
	defer s.Close()

	node, err := resolveNode(cmd.Context(), s.driver, ref)
	if err != nil {
		return "", err
	}
	return node.UUID, nil
}
