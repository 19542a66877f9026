package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/lvnode/internal/compute"
	"github.com/jbweber/lvnode/internal/journal"
)

// JSONFormatter formats resources as JSON.
type JSONFormatter struct{}

// FormatNode formats a single node as JSON.
func (f *JSONFormatter) FormatNode(node *compute.Node) (string, error) {
	return marshalJSON(node, "node")
}

// FormatNodeList formats a list of nodes as a JSON array.
func (f *JSONFormatter) FormatNodeList(nodes []*compute.Node) (string, error) {
	if len(nodes) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(nodes, "nodes")
}

// FormatDetails formats node details as JSON.
func (f *JSONFormatter) FormatDetails(details *compute.NodeDetails) (string, error) {
	return marshalJSON(details, "node details")
}

// FormatEntries formats journal entries as a JSON array.
func (f *JSONFormatter) FormatEntries(entries []journal.Entry) (string, error) {
	if len(entries) == 0 {
		return "[]\n", nil
	}
	return marshalJSON(entries, "operations")
}

func marshalJSON(v any, what string) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s to JSON: %w", what, err)
	}
	return string(data) + "\n", nil
}
