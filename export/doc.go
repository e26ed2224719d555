// Package export renders a canvas for humans: Mermaid and DOT diagrams of
// the graph structure, and conversation transcripts as markdown, sanitized
// HTML, or styled terminal output.
package export
