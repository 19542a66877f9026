// Package output renders nodes, node details and journal entries for the
// lvnode CLI. Tables are meant for people; yaml and json keep every field.
package output

import (
	"fmt"
	"strings"

	"github.com/jbweber/lvnode/internal/compute"
	"github.com/jbweber/lvnode/internal/journal"
)

// Format names an output encoding selected with -o.
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
)

// Formats lists the accepted -o values in help order.
var Formats = []Format{FormatTable, FormatYAML, FormatJSON}

// Formatter turns lvnode values into printable text. Every method returns
// the complete output, trailing newline included.
type Formatter interface {
	FormatNode(node *compute.Node) (string, error)
	FormatNodeList(nodes []*compute.Node) (string, error)
	FormatDetails(details *compute.NodeDetails) (string, error)
	FormatEntries(entries []journal.Entry) (string, error)
}

// Options selects the encoding. NoHeaders only affects tables.
type Options struct {
	Format    Format
	NoHeaders bool
}

// NewFormatter returns the Formatter for opts.Format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	}
	return nil, fmt.Errorf("unsupported output format %q (supported: %s)", opts.Format, formatNames())
}

// ValidateFormat reports whether format is one of Formats.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if Format(format) == f {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %q (valid: %s)", format, formatNames())
}

func formatNames() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
