package store

import (
	"context"
	"sync"
	"time"

	"github.com/ericmjl/canvas-chat-sub001/graph"
	"github.com/ericmjl/canvas-chat-sub001/log"
)

// Committer persists a live graph into a CanvasStore. It registers itself
// as a graph listener so any mutation marks the canvas dirty; Flush writes
// a snapshot only when something changed since the last save. Run flushes
// on an interval until the context ends, then performs a final flush.
type Committer struct {
	store  CanvasStore
	graph  *graph.Store
	logger log.Logger

	id    string
	title string

	mu      sync.Mutex
	dirty   bool
	version int
}

// NewCommitter wires a committer to the graph's listener hooks. The canvas
// starts clean; the first mutation (or MarkDirty) arms the next flush.
func NewCommitter(cs CanvasStore, g *graph.Store, canvasID, title string) *Committer {
	c := &Committer{
		store:  cs,
		graph:  g,
		logger: log.GetDefaultLogger(),
		id:     canvasID,
		title:  title,
	}
	g.AddListener(&graph.ListenerFuncs{
		NodeAdded:   func(graph.Node) { c.MarkDirty() },
		NodeRemoved: func(graph.Node) { c.MarkDirty() },
		NodeUpdated: func(graph.Node) { c.MarkDirty() },
		EdgeAdded:   func(graph.Edge) { c.MarkDirty() },
		EdgeRemoved: func(graph.Edge) { c.MarkDirty() },
	})
	return c
}

// SetLogger replaces the committer's logger.
func (c *Committer) SetLogger(l log.Logger) {
	c.mu.Lock()
	c.logger = l
	c.mu.Unlock()
}

// MarkDirty arms the next flush even without a graph mutation.
func (c *Committer) MarkDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// Dirty reports whether unsaved changes exist.
func (c *Committer) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Flush saves a snapshot if the canvas is dirty. Saving bumps the canvas
// version. A save failure leaves the canvas dirty for the next attempt.
func (c *Committer) Flush(ctx context.Context) error {
	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return nil
	}
	version := c.version + 1
	c.dirty = false
	c.mu.Unlock()

	canvas := &Canvas{
		ID:        c.id,
		Title:     c.title,
		Graph:     c.graph.Snapshot(),
		UpdatedAt: time.Now(),
		Version:   version,
	}
	if err := c.store.Save(ctx, canvas); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.version = version
	c.mu.Unlock()
	return nil
}

// Run flushes on the given interval until ctx is done, then makes a final
// flush with a fresh short-lived context so shutdown does not lose edits.
func (c *Committer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Flush(ctx); err != nil {
				c.logger.Warn("canvas %s: flush failed: %v", c.id, err)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := c.Flush(final); err != nil {
				c.logger.Error("canvas %s: final flush failed: %v", c.id, err)
			}
			cancel()
			return
		}
	}
}
