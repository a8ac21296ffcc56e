package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed adds the gate name and, with a trace, the timing values to
	// node labels. When false only the node name is shown.
	Detailed bool

	// Trace, when set, marks the critical path. It must describe the
	// network being drawn.
	Trace *timing.Trace
}

// ToDOT converts a network to Graphviz DOT text, inputs at the top.
func ToDOT(net *network.Network, opts Options) string {
	floor := 0.0
	if opts.Trace != nil {
		floor = opts.Trace.MinSlack()
	}
	critical := func(s delay.Time) bool {
		return opts.Trace != nil && s.Worst() <= floor+delay.Epsilon
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	order := net.TopoOrder()
	for _, id := range order {
		nd, _ := net.Node(id)
		attrs := fmtAttrs(nd, fmtLabel(nd, opts))
		if opts.Trace != nil && critical(opts.Trace.Slack(id)) {
			attrs = append(attrs, "color=red", "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", nd.Name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, id := range order {
		nd, _ := net.Node(id)
		for pin, f := range net.Fanins(id) {
			from, _ := net.Node(f)
			var attrs []string
			if len(net.Fanins(id)) > 1 {
				attrs = append(attrs, fmt.Sprintf("headlabel=\"%d\"", pin))
			}
			if opts.Trace != nil && critical(opts.Trace.EdgeSlack(id, pin)) {
				attrs = append(attrs, "color=red", "penwidth=2")
			}
			if len(attrs) == 0 {
				fmt.Fprintf(&buf, "  %q -> %q;\n", from.Name, nd.Name)
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", from.Name, nd.Name, strings.Join(attrs, ", "))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(nd *network.Node, opts Options) string {
	if !opts.Detailed {
		return nd.Name
	}
	parts := []string{nd.Name}
	if nd.Gate != "" {
		parts = append(parts, nd.Gate)
	}
	if tr := opts.Trace; tr != nil {
		parts = append(parts,
			"arr: "+fmtTime(tr.Arrival(nd.ID)),
			"req: "+fmtTime(tr.Required(nd.ID)),
			"slack: "+fmtTime(tr.Slack(nd.ID)),
		)
	}
	return strings.Join(parts, "\n")
}

func fmtTime(t delay.Time) string {
	if t.IsInf() {
		return "-"
	}
	return fmt.Sprintf("%.2f/%.2f", t.Rise, t.Fall)
}

func fmtAttrs(nd *network.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case nd.IsInput():
		attrs = append(attrs, "shape=invtriangle")
	case nd.IsOutput():
		attrs = append(attrs, "shape=triangle")
	case nd.Synthetic:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=black")
	}
	return attrs
}
