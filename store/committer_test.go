package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericmjl/canvas-chat-sub001/graph"
)

// recordingStore is a CanvasStore that records saves and can fail.
type recordingStore struct {
	mu     sync.Mutex
	saves  []*Canvas
	failMu sync.Mutex
	fail   error
}

func (r *recordingStore) Save(_ context.Context, canvas *Canvas) error {
	r.failMu.Lock()
	fail := r.fail
	r.failMu.Unlock()
	if fail != nil {
		return fail
	}
	cp := *canvas
	r.mu.Lock()
	r.saves = append(r.saves, &cp)
	r.mu.Unlock()
	return nil
}

func (r *recordingStore) Load(context.Context, string) (*Canvas, error) {
	return nil, ErrCanvasNotFound
}
func (r *recordingStore) List(context.Context) ([]*Canvas, error) { return nil, nil }
func (r *recordingStore) Delete(context.Context, string) error    { return nil }
func (r *recordingStore) Clear(context.Context) error             { return nil }

func (r *recordingStore) setFail(err error) {
	r.failMu.Lock()
	r.fail = err
	r.failMu.Unlock()
}

func (r *recordingStore) all() []*Canvas {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Canvas(nil), r.saves...)
}

func TestCommitter_FlushOnlyWhenDirty(t *testing.T) {
	t.Parallel()

	g := graph.NewStore()
	rs := &recordingStore{}
	c := NewCommitter(rs, g, "canvas-1", "Test canvas")
	ctx := context.Background()

	// Clean canvas: nothing to do.
	require.NoError(t, c.Flush(ctx))
	assert.Empty(t, rs.all())

	// A graph mutation arms the flush through the listener.
	_, err := g.AddNode(graph.Node{Kind: graph.KindHuman, Content: "hi"})
	require.NoError(t, err)
	assert.True(t, c.Dirty())

	require.NoError(t, c.Flush(ctx))
	saves := rs.all()
	require.Len(t, saves, 1)
	assert.Equal(t, "canvas-1", saves[0].ID)
	assert.Equal(t, "Test canvas", saves[0].Title)
	assert.Equal(t, 1, saves[0].Version)
	assert.Len(t, saves[0].Graph.Nodes, 1)
	assert.False(t, c.Dirty())

	// Clean again: second flush is a no-op.
	require.NoError(t, c.Flush(ctx))
	assert.Len(t, rs.all(), 1)
}

func TestCommitter_VersionAdvances(t *testing.T) {
	t.Parallel()

	g := graph.NewStore()
	rs := &recordingStore{}
	c := NewCommitter(rs, g, "canvas-1", "t")
	ctx := context.Background()

	_, _ = g.AddNode(graph.Node{Kind: graph.KindNote})
	require.NoError(t, c.Flush(ctx))

	_, _ = g.AddNode(graph.Node{Kind: graph.KindNote})
	require.NoError(t, c.Flush(ctx))

	saves := rs.all()
	require.Len(t, saves, 2)
	assert.Equal(t, 1, saves[0].Version)
	assert.Equal(t, 2, saves[1].Version)
	assert.Len(t, saves[1].Graph.Nodes, 2)
}

func TestCommitter_FailedFlushStaysDirty(t *testing.T) {
	t.Parallel()

	g := graph.NewStore()
	rs := &recordingStore{}
	c := NewCommitter(rs, g, "canvas-1", "t")
	ctx := context.Background()

	_, _ = g.AddNode(graph.Node{Kind: graph.KindNote})

	rs.setFail(errors.New("disk full"))
	assert.Error(t, c.Flush(ctx))
	assert.True(t, c.Dirty())

	// The retry picks the edits back up, version unchanged by the failure.
	rs.setFail(nil)
	require.NoError(t, c.Flush(ctx))
	saves := rs.all()
	require.Len(t, saves, 1)
	assert.Equal(t, 1, saves[0].Version)
}

func TestCommitter_RunFinalFlush(t *testing.T) {
	t.Parallel()

	g := graph.NewStore()
	rs := &recordingStore{}
	c := NewCommitter(rs, g, "canvas-1", "t")

	_, _ = g.AddNode(graph.Node{Kind: graph.KindNote})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, time.Hour) // interval never fires; only the final flush
	}()
	cancel()
	<-done

	assert.Len(t, rs.all(), 1)
	assert.False(t, c.Dirty())
}
