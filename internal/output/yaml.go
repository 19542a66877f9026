package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/lvnode/internal/compute"
	"github.com/jbweber/lvnode/internal/journal"
)

// YAMLFormatter formats resources as YAML.
type YAMLFormatter struct{}

// FormatNode formats a single node as YAML.
func (f *YAMLFormatter) FormatNode(node *compute.Node) (string, error) {
	data, err := yaml.Marshal(node)
	if err != nil {
		return "", fmt.Errorf("failed to marshal node to YAML: %w", err)
	}
	return string(data), nil
}

// FormatNodeList formats a list of nodes as YAML.
// Outputs as a YAML stream (multiple documents separated by ---).
func (f *YAMLFormatter) FormatNodeList(nodes []*compute.Node) (string, error) {
	if len(nodes) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	for i, n := range nodes {
		data, err := yaml.Marshal(n)
		if err != nil {
			return "", fmt.Errorf("failed to marshal node %s to YAML: %w", n.Name, err)
		}

		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(data)
	}

	return buf.String(), nil
}

// FormatDetails formats node details as YAML.
func (f *YAMLFormatter) FormatDetails(details *compute.NodeDetails) (string, error) {
	data, err := yaml.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("failed to marshal node details to YAML: %w", err)
	}
	return string(data), nil
}

// FormatEntries formats journal entries as a YAML sequence.
func (f *YAMLFormatter) FormatEntries(entries []journal.Entry) (string, error) {
	if len(entries) == 0 {
		return "[]\n", nil
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to marshal operations to YAML: %w", err)
	}
	return string(data), nil
}
