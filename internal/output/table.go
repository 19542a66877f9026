package output

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jbweber/lvnode/internal/compute"
	"github.com/jbweber/lvnode/internal/journal"
)

// TableFormatter formats resources as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool

	now func() time.Time
}

// FormatNode formats a single node as a table row.
func (f *TableFormatter) FormatNode(node *compute.Node) (string, error) {
	return f.FormatNodeList([]*compute.Node{node})
}

// FormatNodeList formats a list of nodes as a table.
func (f *TableFormatter) FormatNodeList(nodes []*compute.Node) (string, error) {
	if len(nodes) == 0 {
		return "No nodes found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tUUID\tSTATE\tID\tVCPUs\tMEMORY\tOS")
	}

	for _, n := range nodes {
		id := "-"
		if n.ID >= 0 {
			id = strconv.Itoa(n.ID)
		}

		memory := "-"
		if v, ok := n.Extra[compute.ExtraUsedMemory]; ok {
			memory = fmt.Sprintf("%v MiB", v)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			n.Name, n.UUID, n.State, id,
			extraString(n, compute.ExtraVCPUCount), memory, extraString(n, compute.ExtraOSType))
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatDetails formats a node definition as a key/value block followed by
// its disks and interfaces.
func (f *TableFormatter) FormatDetails(d *compute.NodeDetails) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Name:\t%s\n", d.Name)
	_, _ = fmt.Fprintf(w, "UUID:\t%s\n", d.UUID)
	_, _ = fmt.Fprintf(w, "Type:\t%s\n", dash(d.Type))
	_, _ = fmt.Fprintf(w, "State:\t%s\n", detailsState(d))
	_, _ = fmt.Fprintf(w, "Arch:\t%s\n", dash(d.Arch))
	_, _ = fmt.Fprintf(w, "vCPUs:\t%d\n", d.VCPUs)
	_, _ = fmt.Fprintf(w, "Memory:\t%d MiB\n", d.MemoryKiB/1024)
	_ = w.Flush()

	if len(d.Disks) > 0 {
		buf.WriteString("\nDisks:\n")
		w = tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		if !f.NoHeaders {
			_, _ = fmt.Fprintln(w, "  TARGET\tDEVICE\tBUS\tSOURCE")
		}
		for _, disk := range d.Disks {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
				dash(disk.Target), dash(disk.Device), dash(disk.Bus), dash(disk.Source))
		}
		_ = w.Flush()
	}

	if len(d.Interfaces) > 0 {
		buf.WriteString("\nInterfaces:\n")
		w = tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		if !f.NoHeaders {
			_, _ = fmt.Fprintln(w, "  MAC\tSOURCE\tMODEL")
		}
		for _, iface := range d.Interfaces {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", dash(iface.MAC), dash(iface.Source), dash(iface.Model))
		}
		_ = w.Flush()
	}

	return buf.String(), nil
}

// FormatEntries formats journal entries as a table.
func (f *TableFormatter) FormatEntries(entries []journal.Entry) (string, error) {
	if len(entries) == 0 {
		return "No operations recorded\n", nil
	}

	now := time.Now
	if f.now != nil {
		now = f.now
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "ID\tOPERATION\tNODE\tRESULT\tDURATION\tAGE")
	}

	for _, e := range entries {
		node := e.NodeName
		if node == "" {
			node = e.NodeUUID
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Operation, dash(node), entryResult(e),
			e.Duration.Round(time.Millisecond), formatAge(now().Sub(e.Time)))
	}

	_ = w.Flush()
	return buf.String(), nil
}

func entryResult(e journal.Entry) string {
	switch {
	case e.Error != "":
		return "error: " + e.Error
	case e.Success:
		return "ok"
	default:
		return "rejected"
	}
}

func extraString(n *compute.Node, key string) string {
	v, ok := n.Extra[key]
	if !ok {
		return "-"
	}
	return dash(fmt.Sprint(v))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatAge formats a duration as a human-readable age string.
// Examples: "5s", "2m", "3h", "4d", "2w", "1y"
func formatAge(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}

	weeks := days / 7
	// Up to 8 weeks
	if weeks < 8 {
		return fmt.Sprintf("%dw", weeks)
	}

	if years := days / 365; years > 0 {
		return fmt.Sprintf("%dy", years)
	}

	return fmt.Sprintf("%dd", days)
}

// detailsState renders the generic state with the hypervisor's name for it.
func detailsState(d *compute.NodeDetails) string {
	switch {
	case d.State == "":
		return dash(d.DomainState)
	case d.DomainState == "" || d.DomainState == string(d.State):
		return string(d.State)
	default:
		return fmt.Sprintf("%s (%s)", d.State, d.DomainState)
	}
}
