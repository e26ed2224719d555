package export

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ericmjl/canvas-chat-sub001/graph"
)

// Transcript renders the conversation leading to the selected nodes as
// markdown, one section per message in context order.
func (e *Exporter) Transcript(selection []graph.NodeID) string {
	resolver := graph.NewResolver(e.graph)
	messages := resolver.ResolveContext(selection)

	var sb strings.Builder
	sb.WriteString("# Conversation\n")
	for _, msg := range messages {
		heading := "Assistant"
		if msg.Role == graph.RoleUser {
			heading = "User"
		}
		fmt.Fprintf(&sb, "\n## %s\n\n%s\n", heading, strings.TrimSpace(msg.Content))
	}
	return sb.String()
}

// TranscriptHTML renders the transcript as sanitized HTML.
func (e *Exporter) TranscriptHTML(selection []graph.NodeID) []byte {
	md := e.Transcript(selection)

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	out := markdown.Render(doc, renderer)

	return bluemonday.UGCPolicy().SanitizeBytes(out)
}

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))
	bodyStyle = lipgloss.NewStyle().
			PaddingLeft(2)
)

// TranscriptTerm renders the transcript styled for a terminal.
func (e *Exporter) TranscriptTerm(selection []graph.NodeID) string {
	resolver := graph.NewResolver(e.graph)
	messages := resolver.ResolveContext(selection)

	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		if msg.Role == graph.RoleUser {
			sb.WriteString(userStyle.Render("You"))
		} else {
			sb.WriteString(assistantStyle.Render("Assistant"))
		}
		sb.WriteString("\n")
		sb.WriteString(bodyStyle.Render(strings.TrimSpace(msg.Content)))
		sb.WriteString("\n")
	}
	return sb.String()
}
