package export

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericmjl/canvas-chat-sub001/graph"
)

// seedCanvas builds human -> ai -> human with a side reference.
func seedCanvas(t *testing.T) (*graph.Store, []graph.Node) {
	t.Helper()
	s := graph.NewStore()
	q, err := s.AddNode(graph.Node{Kind: graph.KindHuman, Content: "what is raft"})
	require.NoError(t, err)
	a, err := s.AddNode(graph.Node{Kind: graph.KindAI, Content: "a consensus algorithm"})
	require.NoError(t, err)
	f, err := s.AddNode(graph.Node{Kind: graph.KindHuman, Content: "compare with paxos"})
	require.NoError(t, err)
	ref, err := s.AddNode(graph.Node{Kind: graph.KindReference, Summary: "raft paper", Content: "In Search of an Understandable Consensus Algorithm"})
	require.NoError(t, err)

	_, _ = s.AddEdge(graph.Edge{Source: q.ID, Target: a.ID, Kind: graph.EdgeReply})
	_, _ = s.AddEdge(graph.Edge{Source: a.ID, Target: f.ID, Kind: graph.EdgeReply})
	_, _ = s.AddEdge(graph.Edge{Source: a.ID, Target: ref.ID, Kind: graph.EdgeReference})
	return s, []graph.Node{q, a, f, ref}
}

func TestExporter_DrawMermaid(t *testing.T) {
	t.Parallel()

	s, nodes := seedCanvas(t)
	out := NewExporter(s).DrawMermaid()

	assert.True(t, strings.HasPrefix(out, "flowchart TD\n"))
	assert.Contains(t, out, "what is raft")
	assert.Contains(t, out, "a consensus algorithm")
	// Reply edges are solid, reference edges dashed and labeled.
	assert.Contains(t, out, " --> ")
	assert.Contains(t, out, "-.->|reference|")

	// Every node renders exactly once.
	for _, n := range nodes {
		assert.Equal(t, 1, strings.Count(out, "["+`"`+nodeLabel(n)))
	}
}

func TestExporter_DrawMermaidDirection(t *testing.T) {
	t.Parallel()

	s, _ := seedCanvas(t)
	out := NewExporter(s).DrawMermaidWithOptions(MermaidOptions{Direction: "LR"})
	assert.True(t, strings.HasPrefix(out, "flowchart LR\n"))
}

func TestExporter_DrawDOT(t *testing.T) {
	t.Parallel()

	s, _ := seedCanvas(t)
	out := NewExporter(s).DrawDOT()

	assert.True(t, strings.HasPrefix(out, "digraph canvas {\n"))
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Contains(t, out, "rankdir=TD")
	assert.Contains(t, out, "what is raft")
	assert.Contains(t, out, "style=dashed")
	assert.Contains(t, out, "fillcolor=lightblue")
	assert.Contains(t, out, "fillcolor=lightyellow")
}

func TestNodeLabel(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 100)
	label := nodeLabel(graph.Node{Kind: graph.KindAI, Content: long})
	assert.Less(t, len(label), 60)
	assert.True(t, strings.HasPrefix(label, "ai: "))

	// Summary wins over content; kind alone when both are empty.
	assert.Equal(t, "note: short", nodeLabel(graph.Node{Kind: graph.KindNote, Summary: "short", Content: "ignored"}))
	assert.Equal(t, "matrix", nodeLabel(graph.Node{Kind: graph.KindMatrix}))

	// Truncation lands on a rune boundary for multi-byte text.
	wide := nodeLabel(graph.Node{Kind: graph.KindAI, Content: strings.Repeat("é", 100)})
	assert.True(t, utf8.ValidString(wide))
	assert.True(t, strings.HasSuffix(wide, "é…"))
}

func TestExporter_Transcript(t *testing.T) {
	t.Parallel()

	s, nodes := seedCanvas(t)
	out := NewExporter(s).Transcript([]graph.NodeID{nodes[2].ID})

	assert.True(t, strings.HasPrefix(out, "# Conversation\n"))

	// Context order: user, assistant, user. The reference node never
	// appears in a transcript.
	iQ := strings.Index(out, "what is raft")
	iA := strings.Index(out, "a consensus algorithm")
	iF := strings.Index(out, "compare with paxos")
	assert.True(t, iQ >= 0 && iA > iQ && iF > iA)
	assert.NotContains(t, out, "Understandable Consensus")
	assert.Equal(t, 2, strings.Count(out, "## User"))
	assert.Equal(t, 1, strings.Count(out, "## Assistant"))
}

func TestExporter_TranscriptHTML(t *testing.T) {
	t.Parallel()

	s := graph.NewStore()
	n, err := s.AddNode(graph.Node{Kind: graph.KindHuman, Content: "plain *emphasis* <script>alert(1)</script>"})
	require.NoError(t, err)

	out := string(NewExporter(s).TranscriptHTML([]graph.NodeID{n.ID}))

	assert.Contains(t, out, "<em>emphasis</em>")
	assert.Contains(t, out, "<h2")
	assert.NotContains(t, out, "<script>")
}

func TestExporter_TranscriptTerm(t *testing.T) {
	t.Parallel()

	s, nodes := seedCanvas(t)
	out := NewExporter(s).TranscriptTerm([]graph.NodeID{nodes[1].ID})

	assert.Contains(t, out, "You")
	assert.Contains(t, out, "Assistant")
	assert.Contains(t, out, "what is raft")
	assert.Contains(t, out, "a consensus algorithm")
}
