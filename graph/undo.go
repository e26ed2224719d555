package graph

import "fmt"

// ActionKind discriminates recorded undo actions.
type ActionKind string

const (
	ActionDeleteNodes ActionKind = "delete_nodes"
	ActionMoveNodes   ActionKind = "move_nodes"
	ActionEditTitle   ActionKind = "edit_title"
	ActionTagChange   ActionKind = "tag_change"
	ActionFillCell    ActionKind = "fill_cell"
)

// Action is a recorded, self-sufficient mutation. Apply replays it forward
// (redo) and Revert replays it backward (undo); both work purely from the
// stored payload, never from recomputation. Layout and generated content
// are not reproducible deterministically, so snapshots are the only safe
// source of truth.
type Action interface {
	Kind() ActionKind
	Apply(store *Store) error
	Revert(store *Store) error
}

// DefaultUndoLimit bounds the undo stack.
const DefaultUndoLimit = 50

// UndoLog is a bounded linear-history undo/redo stack. It is explicit
// state owned by whoever constructs it; independent canvases get
// independent logs.
type UndoLog struct {
	store *Store
	limit int
	undo  []Action
	redo  []Action
}

// NewUndoLog creates an undo log bound to a store with the default limit.
func NewUndoLog(store *Store) *UndoLog {
	return NewUndoLogWithLimit(store, DefaultUndoLimit)
}

// NewUndoLogWithLimit creates an undo log with a custom stack bound.
func NewUndoLogWithLimit(store *Store, limit int) *UndoLog {
	if limit <= 0 {
		limit = DefaultUndoLimit
	}
	return &UndoLog{store: store, limit: limit}
}

// Push records an already-applied action. Pushing clears the redo stack;
// the oldest entry is dropped when the bound is hit.
func (u *UndoLog) Push(action Action) {
	u.undo = append(u.undo, action)
	if len(u.undo) > u.limit {
		u.undo = u.undo[1:]
	}
	u.redo = u.redo[:0]
}

// Undo reverts the most recent action and returns it, or nil when the
// stack is empty (a no-op, not an error).
func (u *UndoLog) Undo() (Action, error) {
	if len(u.undo) == 0 {
		return nil, nil
	}
	action := u.undo[len(u.undo)-1]
	if err := action.Revert(u.store); err != nil {
		return nil, fmt.Errorf("undo %s: %w", action.Kind(), err)
	}
	u.undo = u.undo[:len(u.undo)-1]
	u.redo = append(u.redo, action)
	return action, nil
}

// Redo re-applies the most recently undone action and returns it, or nil
// when there is nothing to redo.
func (u *UndoLog) Redo() (Action, error) {
	if len(u.redo) == 0 {
		return nil, nil
	}
	action := u.redo[len(u.redo)-1]
	if err := action.Apply(u.store); err != nil {
		return nil, fmt.Errorf("redo %s: %w", action.Kind(), err)
	}
	u.redo = u.redo[:len(u.redo)-1]
	u.undo = append(u.undo, action)
	return action, nil
}

// CanUndo reports whether an undo is available.
func (u *UndoLog) CanUndo() bool { return len(u.undo) > 0 }

// CanRedo reports whether a redo is available.
func (u *UndoLog) CanRedo() bool { return len(u.redo) > 0 }

// Clear drops both stacks.
func (u *UndoLog) Clear() {
	u.undo = u.undo[:0]
	u.redo = u.redo[:0]
}

// DeleteNodesAction records a node deletion with full node and edge
// snapshots so undo reconstructs everything verbatim. New object identity
// is fine; id equality is what matters.
type DeleteNodesAction struct {
	Nodes []Node
	Edges []Edge
}

// NewDeleteNodesAction removes the given nodes from the store (cascading
// to incident edges) and returns the recorded action. Incident edges
// between deleted nodes are captured exactly once.
func NewDeleteNodesAction(store *Store, ids []NodeID) (*DeleteNodesAction, error) {
	action := &DeleteNodesAction{}
	seen := make(map[EdgeID]struct{})
	for _, id := range ids {
		node, edges, err := store.RemoveNode(id)
		if err != nil {
			return nil, err
		}
		action.Nodes = append(action.Nodes, node)
		for _, e := range edges {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			action.Edges = append(action.Edges, e)
		}
	}
	return action, nil
}

// Kind implements Action.
func (a *DeleteNodesAction) Kind() ActionKind { return ActionDeleteNodes }

// Apply re-deletes the recorded nodes.
func (a *DeleteNodesAction) Apply(store *Store) error {
	for _, n := range a.Nodes {
		if _, _, err := store.RemoveNode(n.ID); err != nil {
			return err
		}
	}
	return nil
}

// Revert reconstructs the recorded nodes and edges from snapshots.
func (a *DeleteNodesAction) Revert(store *Store) error {
	for _, n := range a.Nodes {
		if _, err := store.AddNode(n); err != nil {
			return err
		}
	}
	for _, e := range a.Edges {
		if _, err := store.AddEdge(e); err != nil {
			return err
		}
	}
	return nil
}

// NodeMove records one node's position change.
type NodeMove struct {
	ID   NodeID
	From Position
	To   Position
}

// MoveNodesAction records a drag of one or more nodes; either direction is
// a pure field assignment.
type MoveNodesAction struct {
	Moves []NodeMove
}

// Kind implements Action.
func (a *MoveNodesAction) Kind() ActionKind { return ActionMoveNodes }

// Apply sets every node to its destination position.
func (a *MoveNodesAction) Apply(store *Store) error {
	for _, m := range a.Moves {
		to := m.To
		if _, err := store.UpdateNode(m.ID, func(n *Node) { n.Position = to }); err != nil {
			return err
		}
	}
	return nil
}

// Revert sets every node back to its origin position.
func (a *MoveNodesAction) Revert(store *Store) error {
	for _, m := range a.Moves {
		from := m.From
		if _, err := store.UpdateNode(m.ID, func(n *Node) { n.Position = from }); err != nil {
			return err
		}
	}
	return nil
}

// EditTitleAction records an edit of a node's summary title.
type EditTitleAction struct {
	ID     NodeID
	Before string
	After  string
}

// Kind implements Action.
func (a *EditTitleAction) Kind() ActionKind { return ActionEditTitle }

// Apply sets the post-edit title.
func (a *EditTitleAction) Apply(store *Store) error {
	_, err := store.UpdateNode(a.ID, func(n *Node) { n.Summary = a.After })
	return err
}

// Revert restores the pre-edit title.
func (a *EditTitleAction) Revert(store *Store) error {
	_, err := store.UpdateNode(a.ID, func(n *Node) { n.Summary = a.Before })
	return err
}

// TagChangeAction records a change of a node's tag set.
type TagChangeAction struct {
	ID     NodeID
	Before map[TagID]struct{}
	After  map[TagID]struct{}
}

// Kind implements Action.
func (a *TagChangeAction) Kind() ActionKind { return ActionTagChange }

// Apply sets the post-change tags.
func (a *TagChangeAction) Apply(store *Store) error {
	_, err := store.UpdateNode(a.ID, func(n *Node) { n.Tags = cloneTags(a.After) })
	return err
}

// Revert restores the pre-change tags.
func (a *TagChangeAction) Revert(store *Store) error {
	_, err := store.UpdateNode(a.ID, func(n *Node) { n.Tags = cloneTags(a.Before) })
	return err
}

func cloneTags(tags map[TagID]struct{}) map[TagID]struct{} {
	if tags == nil {
		return nil
	}
	out := make(map[TagID]struct{}, len(tags))
	for t := range tags {
		out[t] = struct{}{}
	}
	return out
}

// FillCellAction records one matrix cell write with both old and new
// values, so either direction is idempotent.
type FillCellAction struct {
	ID     NodeID
	Row    int
	Col    int
	Before string
	After  string
}

// Kind implements Action.
func (a *FillCellAction) Kind() ActionKind { return ActionFillCell }

// Apply writes the new cell value.
func (a *FillCellAction) Apply(store *Store) error {
	return a.setCell(store, a.After)
}

// Revert writes the old cell value; an empty old value clears the cell.
func (a *FillCellAction) Revert(store *Store) error {
	return a.setCell(store, a.Before)
}

func (a *FillCellAction) setCell(store *Store, value string) error {
	_, err := store.UpdateNode(a.ID, func(n *Node) {
		if value == "" {
			delete(n.Cells, CellKey(a.Row, a.Col))
			return
		}
		if n.Cells == nil {
			n.Cells = make(map[string]string)
		}
		n.Cells[CellKey(a.Row, a.Col)] = value
	})
	return err
}
