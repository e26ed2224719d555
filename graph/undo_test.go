package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoLog_MoveRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore()
	n, err := s.AddNode(Node{Kind: KindNote, Position: Position{X: 0, Y: 0}})
	require.NoError(t, err)

	action := &MoveNodesAction{Moves: []NodeMove{{
		ID:   n.ID,
		From: Position{X: 0, Y: 0},
		To:   Position{X: 50, Y: 50},
	}}}
	require.NoError(t, action.Apply(s))

	u := NewUndoLog(s)
	u.Push(action)

	got, _ := s.GetNode(n.ID)
	assert.Equal(t, Position{X: 50, Y: 50}, got.Position)

	undone, err := u.Undo()
	require.NoError(t, err)
	assert.Equal(t, ActionMoveNodes, undone.Kind())
	got, _ = s.GetNode(n.ID)
	assert.Equal(t, Position{X: 0, Y: 0}, got.Position)

	redone, err := u.Redo()
	require.NoError(t, err)
	assert.Equal(t, ActionMoveNodes, redone.Kind())
	got, _ = s.GetNode(n.ID)
	assert.Equal(t, Position{X: 50, Y: 50}, got.Position)
}

func TestUndoLog_EmptyStacksAreNoOps(t *testing.T) {
	t.Parallel()

	u := NewUndoLog(NewStore())

	action, err := u.Undo()
	assert.NoError(t, err)
	assert.Nil(t, action)

	action, err = u.Redo()
	assert.NoError(t, err)
	assert.Nil(t, action)
}

func TestUndoLog_PushClearsRedo(t *testing.T) {
	t.Parallel()

	s := NewStore()
	n, _ := s.AddNode(Node{Kind: KindNote})
	u := NewUndoLog(s)

	first := &EditTitleAction{ID: n.ID, Before: "", After: "one"}
	require.NoError(t, first.Apply(s))
	u.Push(first)

	_, err := u.Undo()
	require.NoError(t, err)
	require.True(t, u.CanRedo())

	second := &EditTitleAction{ID: n.ID, Before: "", After: "two"}
	require.NoError(t, second.Apply(s))
	u.Push(second)

	assert.False(t, u.CanRedo())
}

func TestUndoLog_BoundDropsOldest(t *testing.T) {
	t.Parallel()

	s := NewStore()
	n, _ := s.AddNode(Node{Kind: KindNote})
	u := NewUndoLogWithLimit(s, 3)

	for i := 0; i < 5; i++ {
		a := &EditTitleAction{ID: n.ID, After: fmt.Sprintf("title-%d", i)}
		require.NoError(t, a.Apply(s))
		u.Push(a)
	}

	// Only the newest three actions are undoable.
	for i := 0; i < 3; i++ {
		action, err := u.Undo()
		require.NoError(t, err)
		require.NotNil(t, action)
	}
	action, err := u.Undo()
	assert.NoError(t, err)
	assert.Nil(t, action)
}

func TestDeleteNodesAction_RestoresNodesAndEdges(t *testing.T) {
	t.Parallel()

	s := NewStore()
	q, _ := s.AddNode(Node{Kind: KindHuman, Content: "q"})
	a, _ := s.AddNode(Node{Kind: KindAI, Content: "a"})
	f, _ := s.AddNode(Node{Kind: KindHuman, Content: "f"})
	_, _ = s.AddEdge(Edge{Source: q.ID, Target: a.ID, Kind: EdgeReply})
	_, _ = s.AddEdge(Edge{Source: a.ID, Target: f.ID, Kind: EdgeReply})

	u := NewUndoLog(s)
	action, err := NewDeleteNodesAction(s, []NodeID{a.ID, f.ID})
	require.NoError(t, err)
	u.Push(action)

	assert.Equal(t, 1, s.Len())
	// The a->f edge is shared between the two deletions; captured once.
	assert.Len(t, action.Edges, 2)

	_, err = u.Undo()
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	restored, ok := s.GetNode(a.ID)
	require.True(t, ok)
	assert.Equal(t, "a", restored.Content)
	assert.Equal(t, a.CreatedAt, restored.CreatedAt)
	assert.Len(t, s.Children(q.ID), 1)
	assert.Len(t, s.Children(a.ID), 1)

	// Redo deletes again.
	_, err = u.Redo()
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestTagChangeAction_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore()
	n, _ := s.AddNode(Node{Kind: KindNote, Tags: map[TagID]struct{}{"old": {}}})

	action := &TagChangeAction{
		ID:     n.ID,
		Before: map[TagID]struct{}{"old": {}},
		After:  map[TagID]struct{}{"new": {}, "extra": {}},
	}
	require.NoError(t, action.Apply(s))

	got, _ := s.GetNode(n.ID)
	assert.Len(t, got.Tags, 2)

	require.NoError(t, action.Revert(s))
	got, _ = s.GetNode(n.ID)
	require.Len(t, got.Tags, 1)
	_, has := got.Tags["old"]
	assert.True(t, has)
}

func TestFillCellAction_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore()
	m, _ := s.AddNode(Node{
		Kind:     KindMatrix,
		RowItems: []string{"go", "rust"},
		ColItems: []string{"speed"},
	})

	action := &FillCellAction{ID: m.ID, Row: 1, Col: 0, Before: "", After: "fast"}
	require.NoError(t, action.Apply(s))

	got, _ := s.GetNode(m.ID)
	assert.Equal(t, "fast", got.Cells[CellKey(1, 0)])

	// Revert with an empty before clears the key entirely.
	require.NoError(t, action.Revert(s))
	got, _ = s.GetNode(m.ID)
	_, present := got.Cells[CellKey(1, 0)]
	assert.False(t, present)
}
