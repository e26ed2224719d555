package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Store owns the nodes and edges of one canvas plus the adjacency indices
// used for traversal. All operations are safe for concurrent use; values
// returned to callers are copies, so held results never alias live state.
//
// Parent/child lookup is O(1) amortized through two adjacency indices that
// are maintained incrementally on every add/remove, never rebuilt by scan.
type Store struct {
	mu    sync.RWMutex
	nodes map[NodeID]Node
	edges map[EdgeID]Edge

	// outgoing[n] holds edge ids with Source == n, incoming[n] those with
	// Target == n.
	outgoing map[NodeID][]EdgeID
	incoming map[NodeID][]EdgeID

	lastCreated time.Time
	now         func() time.Time

	listenerMu sync.RWMutex
	listeners  []Listener
}

// NewStore creates an empty canvas store.
func NewStore() *Store {
	return &Store{
		nodes:    make(map[NodeID]Node),
		edges:    make(map[EdgeID]Edge),
		outgoing: make(map[NodeID][]EdgeID),
		incoming: make(map[NodeID][]EdgeID),
		now:      time.Now,
	}
}

// NewStoreFromSnapshot reconstructs a store from a persisted snapshot.
// Edges referencing missing nodes are rejected.
func NewStoreFromSnapshot(snap Snapshot) (*Store, error) {
	s := NewStore()
	for _, n := range snap.Nodes {
		if _, err := s.AddNode(n); err != nil {
			return nil, fmt.Errorf("restore node %s: %w", n.ID, err)
		}
	}
	for _, e := range snap.Edges {
		if _, err := s.AddEdge(e); err != nil {
			return nil, fmt.Errorf("restore edge %s: %w", e.ID, err)
		}
	}
	return s, nil
}

// AddNode inserts a node. A missing id is minted; a missing CreatedAt is
// assigned monotonically so creation order is a total order even when the
// wall clock stalls. Returns the stored copy.
func (s *Store) AddNode(n Node) (Node, error) {
	s.mu.Lock()
	if n.ID == "" {
		n.ID = NewNodeID()
	}
	if _, exists := s.nodes[n.ID]; exists {
		s.mu.Unlock()
		return Node{}, fmt.Errorf("add node %s: %w", n.ID, ErrDuplicateID)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.nextTimestampLocked()
	} else if n.CreatedAt.After(s.lastCreated) {
		// Restored nodes keep their original timestamps but still advance
		// the monotonic floor.
		s.lastCreated = n.CreatedAt
	}
	stored := n.Clone()
	s.nodes[n.ID] = stored
	s.mu.Unlock()

	s.notify(func(l Listener) { l.OnNodeAdded(stored.Clone()) })
	return stored.Clone(), nil
}

// nextTimestampLocked returns a strictly increasing creation timestamp.
func (s *Store) nextTimestampLocked() time.Time {
	ts := s.now()
	if !ts.After(s.lastCreated) {
		ts = s.lastCreated.Add(time.Nanosecond)
	}
	s.lastCreated = ts
	return ts
}

// GetNode returns a copy of the node, if present.
func (s *Store) GetNode(id NodeID) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

// UpdateNode applies mutate to the node under the store lock and returns
// the updated copy. Identity and creation time are immutable; changes to
// them inside mutate are discarded.
func (s *Store) UpdateNode(id NodeID, mutate func(*Node)) (Node, error) {
	s.mu.Lock()
	n, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return Node{}, fmt.Errorf("update node %s: %w", id, ErrNodeNotFound)
	}
	updated := n.Clone()
	mutate(&updated)
	updated.ID = n.ID
	updated.CreatedAt = n.CreatedAt
	s.nodes[id] = updated
	s.mu.Unlock()

	s.notify(func(l Listener) { l.OnNodeUpdated(updated.Clone()) })
	return updated.Clone(), nil
}

// RemoveNode deletes a node and, atomically, every incident edge. The
// removed node and edges are returned so callers (the undo log) can
// snapshot them. Only the removed node's own index entries are touched.
func (s *Store) RemoveNode(id NodeID) (Node, []Edge, error) {
	s.mu.Lock()
	n, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return Node{}, nil, fmt.Errorf("remove node %s: %w", id, ErrNodeNotFound)
	}

	// Collect incident edge ids from both indices; an edge from the node
	// to itself would appear in both, so dedupe.
	seen := make(map[EdgeID]struct{})
	var removed []Edge
	for _, eid := range append(append([]EdgeID(nil), s.outgoing[id]...), s.incoming[id]...) {
		if _, dup := seen[eid]; dup {
			continue
		}
		seen[eid] = struct{}{}
		e := s.edges[eid]
		removed = append(removed, e)
		s.removeEdgeLocked(e)
	}
	delete(s.nodes, id)
	delete(s.outgoing, id)
	delete(s.incoming, id)
	s.mu.Unlock()

	for _, e := range removed {
		e := e
		s.notify(func(l Listener) { l.OnEdgeRemoved(e) })
	}
	s.notify(func(l Listener) { l.OnNodeRemoved(n.Clone()) })
	return n.Clone(), removed, nil
}

// AddEdge inserts a directed edge. Both endpoints must already exist;
// referencing a missing node is a caller bug, rejected at the call site.
func (s *Store) AddEdge(e Edge) (Edge, error) {
	s.mu.Lock()
	if e.ID == "" {
		e.ID = NewEdgeID()
	}
	if _, exists := s.edges[e.ID]; exists {
		s.mu.Unlock()
		return Edge{}, fmt.Errorf("add edge %s: %w", e.ID, ErrDuplicateID)
	}
	if _, ok := s.nodes[e.Source]; !ok {
		s.mu.Unlock()
		return Edge{}, fmt.Errorf("add edge: source %s: %w", e.Source, ErrNodeNotFound)
	}
	if _, ok := s.nodes[e.Target]; !ok {
		s.mu.Unlock()
		return Edge{}, fmt.Errorf("add edge: target %s: %w", e.Target, ErrNodeNotFound)
	}
	s.edges[e.ID] = e
	s.outgoing[e.Source] = append(s.outgoing[e.Source], e.ID)
	s.incoming[e.Target] = append(s.incoming[e.Target], e.ID)
	s.mu.Unlock()

	s.notify(func(l Listener) { l.OnEdgeAdded(e) })
	return e, nil
}

// RemoveEdge deletes a single edge by id and returns it.
func (s *Store) RemoveEdge(id EdgeID) (Edge, error) {
	s.mu.Lock()
	e, ok := s.edges[id]
	if !ok {
		s.mu.Unlock()
		return Edge{}, fmt.Errorf("remove edge %s: %w", id, ErrEdgeNotFound)
	}
	s.removeEdgeLocked(e)
	s.mu.Unlock()

	s.notify(func(l Listener) { l.OnEdgeRemoved(e) })
	return e, nil
}

// removeEdgeLocked unlinks e from the edge map and both adjacency indices.
func (s *Store) removeEdgeLocked(e Edge) {
	delete(s.edges, e.ID)
	s.outgoing[e.Source] = dropEdgeID(s.outgoing[e.Source], e.ID)
	s.incoming[e.Target] = dropEdgeID(s.incoming[e.Target], e.ID)
}

func dropEdgeID(ids []EdgeID, id EdgeID) []EdgeID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Parents returns the source nodes of all edges pointing at id.
func (s *Store) Parents(id NodeID) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Node
	for _, eid := range s.incoming[id] {
		e := s.edges[eid]
		if n, ok := s.nodes[e.Source]; ok {
			out = append(out, n.Clone())
		}
	}
	return out
}

// Children returns the target nodes of all edges originating at id.
func (s *Store) Children(id NodeID) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Node
	for _, eid := range s.outgoing[id] {
		e := s.edges[eid]
		if n, ok := s.nodes[e.Target]; ok {
			out = append(out, n.Clone())
		}
	}
	return out
}

// ParentEdges returns the incoming edges of id.
func (s *Store) ParentEdges(id NodeID) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Edge, 0, len(s.incoming[id]))
	for _, eid := range s.incoming[id] {
		out = append(out, s.edges[eid])
	}
	return out
}

// ChildEdges returns the outgoing edges of id.
func (s *Store) ChildEdges(id NodeID) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Edge, 0, len(s.outgoing[id]))
	for _, eid := range s.outgoing[id] {
		out = append(out, s.edges[eid])
	}
	return out
}

// AllNodes returns every node ordered by creation time (id tie-break), a
// stable complete listing an external indexer can consume at any time.
func (s *Store) AllNodes() []Node {
	s.mu.RLock()
	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// AllEdges returns every edge in id order.
func (s *Store) AllEdges() []Edge {
	s.mu.RLock()
	out := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsEmpty reports whether the canvas has no nodes.
func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes) == 0
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Snapshot returns a complete dump of the canvas for persistence.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{Nodes: s.AllNodes(), Edges: s.AllEdges()}
}
