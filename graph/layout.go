package graph

import (
	"math"
	"sort"

	"github.com/ericmjl/canvas-chat-sub001/log"
)

// LayoutConfig holds the geometry constants used by placement.
type LayoutConfig struct {
	// DefaultWidth/DefaultHeight are assumed for nodes that have not been
	// measured yet.
	DefaultWidth  float64
	DefaultHeight float64

	// HGap/VGap are the horizontal and vertical spacing between nodes.
	HGap float64
	VGap float64

	// Padding expands bounding boxes during overlap checks.
	Padding float64

	// MaxShifts bounds each direction of the overlap search.
	MaxShifts int

	// Origin is where the first node of an empty canvas lands.
	Origin Position
}

// DefaultLayoutConfig returns the standard canvas geometry.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		DefaultWidth:  320,
		DefaultHeight: 200,
		HGap:          80,
		VGap:          40,
		Padding:       20,
		MaxShifts:     20,
		Origin:        Position{X: 100, Y: 100},
	}
}

// LayoutEngine places new nodes relative to their parents and resolves
// overlaps with existing nodes. It never fails: when the bounded overlap
// search is exhausted, the last candidate is returned and the overlap is
// accepted as a degraded outcome.
type LayoutEngine struct {
	store  *Store
	config LayoutConfig
	logger log.Logger
}

// NewLayoutEngine creates a layout engine with the default geometry.
func NewLayoutEngine(store *Store) *LayoutEngine {
	return NewLayoutEngineWithConfig(store, DefaultLayoutConfig())
}

// NewLayoutEngineWithConfig creates a layout engine with custom geometry.
func NewLayoutEngineWithConfig(store *Store, config LayoutConfig) *LayoutEngine {
	if config.MaxShifts <= 0 {
		config.MaxShifts = 20
	}
	return &LayoutEngine{store: store, config: config, logger: log.GetDefaultLogger()}
}

// SetLogger overrides the logger used for degradation reports.
func (le *LayoutEngine) SetLogger(logger log.Logger) {
	le.logger = logger
}

// rect is an axis-aligned bounding box.
type rect struct {
	x, y, w, h float64
}

func (a rect) intersects(b rect) bool {
	return a.x < b.x+b.w && a.x+a.w > b.x && a.y < b.y+b.h && a.y+a.h > b.y
}

// nodeSize returns the node's measured size or the configured default.
func (le *LayoutEngine) nodeSize(n Node) Size {
	if n.Size.IsZero() {
		return Size{Width: le.config.DefaultWidth, Height: le.config.DefaultHeight}
	}
	return n.Size
}

func (le *LayoutEngine) nodeRect(n Node) rect {
	sz := le.nodeSize(n)
	p := le.config.Padding
	return rect{x: n.Position.X - p, y: n.Position.Y - p, w: sz.Width + 2*p, h: sz.Height + 2*p}
}

// AutoPosition computes where a new node should land given its parents.
//
// No parents: the canvas origin. One parent: to the parent's right. A
// merge (multiple parents): right of the rightmost parent, vertically at
// the mean of the parents. The candidate then shifts down a bounded number
// of times to clear overlaps, then once to the right and down again; if
// both passes are exhausted the overlapping position is returned anyway.
func (le *LayoutEngine) AutoPosition(parentIDs []NodeID) Position {
	var parents []Node
	for _, id := range parentIDs {
		if n, ok := le.store.GetNode(id); ok {
			parents = append(parents, n)
		}
	}

	var candidate Position
	switch len(parents) {
	case 0:
		candidate = le.config.Origin
	case 1:
		p := parents[0]
		candidate = Position{
			X: p.Position.X + le.nodeSize(p).Width + le.config.HGap,
			Y: p.Position.Y,
		}
	default:
		rightEdge := math.Inf(-1)
		sumY := 0.0
		for _, p := range parents {
			edge := p.Position.X + le.nodeSize(p).Width
			if edge > rightEdge {
				rightEdge = edge
			}
			sumY += p.Position.Y
		}
		candidate = Position{
			X: rightEdge + le.config.HGap,
			Y: sumY / float64(len(parents)),
		}
	}

	return le.resolveOverlap(candidate)
}

// resolveOverlap runs the bounded down-then-right search from candidate.
func (le *LayoutEngine) resolveOverlap(candidate Position) Position {
	existing := le.store.AllNodes()
	startY := candidate.Y

	for pass := 0; pass < 2; pass++ {
		for attempt := 0; attempt < le.config.MaxShifts; attempt++ {
			if !le.overlapsAny(candidate, existing) {
				return candidate
			}
			candidate.Y += le.config.DefaultHeight + le.config.VGap
		}
		// Column exhausted: move one column right and restart the
		// downward search from the original y.
		candidate.X += le.config.DefaultWidth + le.config.HGap
		candidate.Y = startY
	}

	if le.overlapsAny(candidate, existing) {
		le.logger.Debug("layout: overlap search exhausted, placing at (%.0f, %.0f) anyway", candidate.X, candidate.Y)
	}
	return candidate
}

func (le *LayoutEngine) overlapsAny(candidate Position, existing []Node) bool {
	p := le.config.Padding
	box := rect{
		x: candidate.X - p,
		y: candidate.Y - p,
		w: le.config.DefaultWidth + 2*p,
		h: le.config.DefaultHeight + 2*p,
	}
	for _, n := range existing {
		if box.intersects(le.nodeRect(n)) {
			return true
		}
	}
	return false
}

// HierarchicalLayout recomputes positions for the entire graph, placing
// nodes in depth columns from the roots. Node identities are untouched and
// directly connected nodes always end up in different columns, so no
// connected pair overlaps.
func (le *LayoutEngine) HierarchicalLayout() map[NodeID]Position {
	nodes := le.store.AllNodes()
	if len(nodes) == 0 {
		return map[NodeID]Position{}
	}

	// Longest-path depth from the roots. The visited set guards against a
	// malformed cycle ever looping the walk.
	depth := make(map[NodeID]int, len(nodes))
	var assign func(id NodeID, trail map[NodeID]struct{}) int
	assign = func(id NodeID, trail map[NodeID]struct{}) int {
		if d, ok := depth[id]; ok {
			return d
		}
		if _, looping := trail[id]; looping {
			le.logger.Warn("layout: cycle detected through node %s", id)
			return 0
		}
		trail[id] = struct{}{}
		defer delete(trail, id)

		d := 0
		for _, parent := range le.store.Parents(id) {
			if pd := assign(parent.ID, trail) + 1; pd > d {
				d = pd
			}
		}
		depth[id] = d
		return d
	}
	for _, n := range nodes {
		assign(n.ID, make(map[NodeID]struct{}))
	}

	// Group by column, keep creation order within each (AllNodes is
	// already sorted by creation time).
	columns := make(map[int][]NodeID)
	maxDepth := 0
	for _, n := range nodes {
		d := depth[n.ID]
		columns[d] = append(columns[d], n.ID)
		if d > maxDepth {
			maxDepth = d
		}
	}

	positions := make(map[NodeID]Position, len(nodes))
	for d := 0; d <= maxDepth; d++ {
		for row, id := range columns[d] {
			positions[id] = Position{
				X: le.config.Origin.X + float64(d)*(le.config.DefaultWidth+le.config.HGap),
				Y: le.config.Origin.Y + float64(row)*(le.config.DefaultHeight+le.config.VGap),
			}
		}
	}

	le.applyPositions(positions)
	return positions
}

// ForceDirectedLayout runs a bounded spring/repulsion pass over the whole
// graph. It is a convenience for untangling dense canvases; the only hard
// guarantees are that positions are produced and identities unchanged.
func (le *LayoutEngine) ForceDirectedLayout(iterations int) map[NodeID]Position {
	if iterations <= 0 {
		iterations = 50
	}
	nodes := le.store.AllNodes()
	if len(nodes) == 0 {
		return map[NodeID]Position{}
	}

	ids := make([]NodeID, len(nodes))
	pos := make(map[NodeID]Position, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
		pos[n.ID] = n.Position
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	k := le.config.DefaultWidth + le.config.HGap // ideal spacing
	maxStep := k / 2
	edges := le.store.AllEdges()

	for iter := 0; iter < iterations; iter++ {
		disp := make(map[NodeID]Position, len(ids))

		// Pairwise repulsion.
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := pos[ids[i]], pos[ids[j]]
				dx, dy := a.X-b.X, a.Y-b.Y
				dist := math.Hypot(dx, dy)
				if dist < 1 {
					dist, dx = 1, 1
				}
				force := k * k / dist
				ux, uy := dx/dist, dy/dist
				da, db := disp[ids[i]], disp[ids[j]]
				da.X += ux * force
				da.Y += uy * force
				db.X -= ux * force
				db.Y -= uy * force
				disp[ids[i]], disp[ids[j]] = da, db
			}
		}

		// Spring attraction along edges.
		for _, e := range edges {
			a, aok := pos[e.Source]
			b, bok := pos[e.Target]
			if !aok || !bok {
				continue
			}
			dx, dy := a.X-b.X, a.Y-b.Y
			dist := math.Hypot(dx, dy)
			if dist < 1 {
				continue
			}
			force := dist * dist / k
			ux, uy := dx/dist, dy/dist
			da, db := disp[e.Source], disp[e.Target]
			da.X -= ux * force
			da.Y -= uy * force
			db.X += ux * force
			db.Y += uy * force
			disp[e.Source], disp[e.Target] = da, db
		}

		// Apply clamped displacement.
		for _, id := range ids {
			d := disp[id]
			step := math.Hypot(d.X, d.Y)
			if step < 1 {
				continue
			}
			scale := math.Min(step, maxStep) / step
			p := pos[id]
			p.X += d.X * scale
			p.Y += d.Y * scale
			pos[id] = p
		}
	}

	le.applyPositions(pos)
	return pos
}

func (le *LayoutEngine) applyPositions(positions map[NodeID]Position) {
	for id, p := range positions {
		p := p
		// Node may have been deleted mid-layout; skipping is fine.
		_, _ = le.store.UpdateNode(id, func(n *Node) { n.Position = p })
	}
}
