package export

import (
	"fmt"
	"strings"

	"github.com/ericmjl/canvas-chat-sub001/graph"
)

// Exporter renders a canvas graph in diagram and transcript formats
type Exporter struct {
	graph *graph.Store
}

// NewExporter creates a new canvas exporter for the given graph
func NewExporter(g *graph.Store) *Exporter {
	return &Exporter{graph: g}
}

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

// DrawMermaid generates a Mermaid diagram representation of the canvas
func (e *Exporter) DrawMermaid() string {
	return e.DrawMermaidWithOptions(MermaidOptions{
		Direction: "TD",
	})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options
func (e *Exporter) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	sb.WriteString(fmt.Sprintf("flowchart %s\n", direction))

	for _, node := range e.graph.AllNodes() {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", mermaidID(node.ID), mermaidEscape(nodeLabel(node))))
	}

	for _, edge := range e.graph.AllEdges() {
		switch edge.Kind {
		case graph.EdgeReply, graph.EdgeMerge:
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", mermaidID(edge.Source), mermaidID(edge.Target)))
		default:
			sb.WriteString(fmt.Sprintf("    %s -.->|%s| %s\n", mermaidID(edge.Source), edge.Kind, mermaidID(edge.Target)))
		}
	}

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the canvas
func (e *Exporter) DrawDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph canvas {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")

	for _, node := range e.graph.AllNodes() {
		attrs := ""
		if node.Kind.UserAuthored() {
			attrs = ", style=filled, fillcolor=lightblue"
		} else if node.Kind == graph.KindAI {
			attrs = ", style=filled, fillcolor=lightyellow"
		}
		sb.WriteString(fmt.Sprintf("    %q [label=%q%s];\n", string(node.ID), nodeLabel(node), attrs))
	}

	for _, edge := range e.graph.AllEdges() {
		style := ""
		if edge.Kind != graph.EdgeReply && edge.Kind != graph.EdgeMerge {
			style = fmt.Sprintf(" [style=dashed, label=%q]", string(edge.Kind))
		}
		sb.WriteString(fmt.Sprintf("    %q -> %q%s;\n", string(edge.Source), string(edge.Target), style))
	}

	sb.WriteString("}\n")
	return sb.String()
}

const labelLimit = 40

// nodeLabel picks a short display label: the summary when present,
// otherwise an excerpt of the content, otherwise the kind.
func nodeLabel(node graph.Node) string {
	label := node.Summary
	if label == "" {
		label = node.Content
	}
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return string(node.Kind)
	}
	if runes := []rune(label); len(runes) > labelLimit {
		label = string(runes[:labelLimit]) + "…"
	}
	return fmt.Sprintf("%s: %s", node.Kind, label)
}

// mermaidID shortens a node ID to something Mermaid accepts as an
// identifier. UUIDs contain dashes, which Mermaid tolerates, but the
// first 8 characters keep diagrams readable.
func mermaidID(id graph.NodeID) string {
	s := strings.ReplaceAll(string(id), "-", "")
	if len(s) > 8 {
		s = s[:8]
	}
	return "n" + s
}

func mermaidEscape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
