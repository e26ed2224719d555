package graph

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildThread creates human -> ai -> human and returns the three nodes.
func buildThread(t *testing.T, s *Store) (Node, Node, Node) {
	t.Helper()
	q, err := s.AddNode(Node{Kind: KindHuman, Content: "what is a monad"})
	require.NoError(t, err)
	a, err := s.AddNode(Node{Kind: KindAI, Content: "a monoid in the category of endofunctors"})
	require.NoError(t, err)
	f, err := s.AddNode(Node{Kind: KindHuman, Content: "in plain words please"})
	require.NoError(t, err)
	_, err = s.AddEdge(Edge{Source: q.ID, Target: a.ID, Kind: EdgeReply})
	require.NoError(t, err)
	_, err = s.AddEdge(Edge{Source: a.ID, Target: f.ID, Kind: EdgeReply})
	require.NoError(t, err)
	return q, a, f
}

func TestResolver_LinearThread(t *testing.T) {
	t.Parallel()

	s := NewStore()
	q, a, f := buildThread(t, s)

	messages := NewResolver(s).ResolveContext([]NodeID{f.ID})
	require.Len(t, messages, 3)

	assert.Equal(t, q.ID, messages[0].NodeID)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, a.ID, messages[1].NodeID)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.Equal(t, f.ID, messages[2].NodeID)
	assert.Equal(t, RoleUser, messages[2].Role)
}

func TestResolver_DiamondDeduplicates(t *testing.T) {
	t.Parallel()

	s := NewStore()
	root, _ := s.AddNode(Node{Kind: KindHuman, Content: "root"})
	left, _ := s.AddNode(Node{Kind: KindAI, Content: "left"})
	right, _ := s.AddNode(Node{Kind: KindAI, Content: "right"})
	merged, _ := s.AddNode(Node{Kind: KindHuman, Content: "compare these"})

	_, _ = s.AddEdge(Edge{Source: root.ID, Target: left.ID, Kind: EdgeReply})
	_, _ = s.AddEdge(Edge{Source: root.ID, Target: right.ID, Kind: EdgeReply})
	_, _ = s.AddEdge(Edge{Source: left.ID, Target: merged.ID, Kind: EdgeMerge})
	_, _ = s.AddEdge(Edge{Source: right.ID, Target: merged.ID, Kind: EdgeMerge})

	messages := NewResolver(s).ResolveContext([]NodeID{merged.ID})
	require.Len(t, messages, 4)

	// The shared root appears exactly once despite two paths to it.
	seen := map[NodeID]int{}
	for _, m := range messages {
		seen[m.NodeID]++
	}
	assert.Equal(t, 1, seen[root.ID])
	assert.Equal(t, root.ID, messages[0].NodeID)
}

func TestResolver_MultiSelectionInterleavesByCreation(t *testing.T) {
	t.Parallel()

	s := NewStore()
	a, _ := s.AddNode(Node{Kind: KindHuman, Content: "branch a"})
	b, _ := s.AddNode(Node{Kind: KindHuman, Content: "branch b"})

	messages := NewResolver(s).ResolveContext([]NodeID{b.ID, a.ID})
	require.Len(t, messages, 2)
	// Creation order wins over selection order.
	assert.Equal(t, a.ID, messages[0].NodeID)
	assert.Equal(t, b.ID, messages[1].NodeID)
}

func TestResolver_FiltersNonConversational(t *testing.T) {
	t.Parallel()

	s := NewStore()
	q, _ := s.AddNode(Node{Kind: KindHuman, Content: "q"})
	search, _ := s.AddNode(Node{Kind: KindSearch, Content: "some query"})
	note, _ := s.AddNode(Node{Kind: KindNote, Content: "aside"})

	_, _ = s.AddEdge(Edge{Source: q.ID, Target: search.ID, Kind: EdgeReference})
	_, _ = s.AddEdge(Edge{Source: search.ID, Target: note.ID, Kind: EdgeReply})

	messages := NewResolver(s).ResolveContext([]NodeID{note.ID})
	require.Len(t, messages, 2)
	assert.Equal(t, q.ID, messages[0].NodeID)
	assert.Equal(t, note.ID, messages[1].NodeID)
}

func TestResolver_MissingSelection(t *testing.T) {
	t.Parallel()

	s := NewStore()
	messages := NewResolver(s).ResolveContext([]NodeID{"ghost"})
	assert.Empty(t, messages)
}

func TestResolver_ImagePassthrough(t *testing.T) {
	t.Parallel()

	s := NewStore()
	payload := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8})
	img, _ := s.AddNode(Node{Kind: KindImage, ImageData: payload, MIMEType: "image/jpeg"})

	messages := NewResolver(s).ResolveContext([]NodeID{img.ID})
	require.Len(t, messages, 1)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, "image/jpeg", messages[0].MIMEType)
	assert.Equal(t, payload, messages[0].ImageData)
}

func TestResolver_EstimateTokens(t *testing.T) {
	t.Parallel()

	s := NewStore()
	n, _ := s.AddNode(Node{Kind: KindHuman, Content: "12345678"})

	r := NewResolver(s)
	assert.Equal(t, 2, r.EstimateTokens([]NodeID{n.ID}))
	assert.Equal(t, 0, r.EstimateTokens(nil))
}
