package graph

import (
	"sort"

	"github.com/ericmjl/canvas-chat-sub001/log"
)

// Resolver turns an arbitrary selection of nodes into the ordered,
// deduplicated message sequence sent to a model.
type Resolver struct {
	store  *Store
	logger log.Logger
}

// NewResolver creates a resolver over the given store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store, logger: log.GetDefaultLogger()}
}

// SetLogger overrides the logger used for traversal anomalies.
func (r *Resolver) SetLogger(logger log.Logger) {
	r.logger = logger
}

// ResolveContext collects the full ancestor history of every selected
// node, deduplicates nodes reachable through multiple paths, filters to
// conversational kinds, and orders by creation time.
//
// Ordering is deliberately by CreatedAt, not topological: wall-clock
// creation order is trusted to correlate with conversational order, and
// merge selections interleave naturally under it. Ties break on id so the
// output is stable.
//
// Each ancestor appears at most once no matter how many selected nodes
// share it. Diamond patterns from merge edges are expected; a revisit is
// logged at debug level and skipped, never mistaken for a cycle.
func (r *Resolver) ResolveContext(ids []NodeID) []Message {
	visited := make(map[NodeID]struct{})
	collected := make(map[NodeID]Node)

	var walk func(id NodeID)
	walk = func(id NodeID) {
		if _, seen := visited[id]; seen {
			r.logger.Debug("context walk revisited node %s (diamond or repeated selection)", id)
			return
		}
		visited[id] = struct{}{}

		n, ok := r.store.GetNode(id)
		if !ok {
			return
		}
		collected[id] = n
		for _, parent := range r.store.Parents(id) {
			walk(parent.ID)
		}
	}
	for _, id := range ids {
		walk(id)
	}

	nodes := make([]Node, 0, len(collected))
	for _, n := range collected {
		if n.Kind.Conversational() {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].ID < nodes[j].ID
		}
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})

	messages := make([]Message, 0, len(nodes))
	for _, n := range nodes {
		role := RoleAssistant
		if n.Kind.UserAuthored() {
			role = RoleUser
		}
		messages = append(messages, Message{
			Role:      role,
			Content:   n.Content,
			NodeID:    n.ID,
			ImageData: n.ImageData,
			MIMEType:  n.MIMEType,
		})
	}
	return messages
}

// EstimateTokens approximates the token count of the resolved context for
// the selection. The character-count/4 heuristic is deliberately cheap and
// never authoritative; use it for budget hints only.
func (r *Resolver) EstimateTokens(ids []NodeID) int {
	total := 0
	for _, m := range r.ResolveContext(ids) {
		total += len(m.Content)
	}
	return total / 4
}
