package generate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericmjl/canvas-chat-sub001/graph"
	"github.com/ericmjl/canvas-chat-sub001/llm"
)

// newThread seeds a store with human -> ai and returns both plus the store.
func newThread(t *testing.T) (*graph.Store, graph.Node, graph.Node) {
	t.Helper()
	s := graph.NewStore()
	q, err := s.AddNode(graph.Node{Kind: graph.KindHuman, Content: "hello"})
	require.NoError(t, err)
	a, err := s.AddNode(graph.Node{Kind: graph.KindAI})
	require.NoError(t, err)
	_, err = s.AddEdge(graph.Edge{Source: q.ID, Target: a.ID, Kind: graph.EdgeReply})
	require.NoError(t, err)
	return s, q, a
}

func TestController_StreamsIntoNode(t *testing.T) {
	t.Parallel()

	s, _, target := newThread(t)
	client := &llm.ScriptedClient{Chunks: []string{"Hello", ", ", "world"}}

	var mu sync.Mutex
	var chunks []string
	c := NewController(s, Config{
		Client: client,
		Hooks: Hooks{
			OnChunk: func(_ graph.NodeID, chunk, _ string) {
				mu.Lock()
				chunks = append(chunks, chunk)
				mu.Unlock()
			},
		},
	})

	req := c.BuildRequest([]graph.NodeID{target.ID}, target.ID, "test-model")
	require.Len(t, req.Messages, 2) // the empty AI node is conversational too

	require.NoError(t, c.Start(context.Background(), target.ID, req))
	c.Wait(target.ID)

	node, _ := s.GetNode(target.ID)
	assert.Equal(t, "Hello, world", node.Content)

	mu.Lock()
	assert.Equal(t, []string{"Hello", ", ", "world"}, chunks)
	mu.Unlock()

	// Completed sessions are released.
	_, ok := c.SessionState(target.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, c.ActiveSessions())
}

func TestController_RejectsSecondSession(t *testing.T) {
	t.Parallel()

	s, _, target := newThread(t)
	client := &llm.ScriptedClient{Chunks: []string{"Hi"}, BlockAfterChunks: true}
	c := NewController(s, Config{Client: client})

	require.NoError(t, c.Start(context.Background(), target.ID, RequestContext{Model: "m"}))
	<-client.Streamed()

	err := c.Start(context.Background(), target.ID, RequestContext{Model: "m"})
	assert.ErrorIs(t, err, ErrSessionActive)

	require.NoError(t, c.Stop(target.ID))
}

func TestController_StopAppendsMarker(t *testing.T) {
	t.Parallel()

	s, _, target := newThread(t)
	client := &llm.ScriptedClient{Chunks: []string{"Hi"}, BlockAfterChunks: true}
	c := NewController(s, Config{Client: client})

	require.NoError(t, c.Start(context.Background(), target.ID, RequestContext{Model: "m"}))
	<-client.Streamed()
	require.NoError(t, c.Stop(target.ID))

	node, _ := s.GetNode(target.ID)
	assert.Equal(t, "Hi"+StoppedMarker, node.Content)

	state, ok := c.SessionState(target.ID)
	require.True(t, ok)
	assert.Equal(t, StateStopped, state)
	assert.Equal(t, 0, c.ActiveSessions())
}

func TestController_StopWithoutSession(t *testing.T) {
	t.Parallel()

	s, _, target := newThread(t)
	c := NewController(s, Config{Client: &llm.ScriptedClient{}})

	assert.ErrorIs(t, c.Stop(target.ID), ErrNoSession)
}

func TestController_ContinueResumesStopped(t *testing.T) {
	t.Parallel()

	s, _, target := newThread(t)
	client := &llm.ScriptedClient{Chunks: []string{"Part one."}, BlockAfterChunks: true}
	c := NewController(s, Config{Client: client})

	require.NoError(t, c.Start(context.Background(), target.ID, RequestContext{
		Messages: []graph.Message{{Role: graph.RoleUser, Content: "hello"}},
		Model:    "m",
	}))
	<-client.Streamed()
	require.NoError(t, c.Stop(target.ID))

	// Second leg streams normally.
	client.Chunks = []string{" Part two."}
	client.BlockAfterChunks = false

	require.NoError(t, c.Continue(context.Background(), target.ID))
	c.Wait(target.ID)

	node, _ := s.GetNode(target.ID)
	assert.Equal(t, "Part one. Part two.", node.Content)
	assert.NotContains(t, node.Content, StoppedMarker)

	// The resume request carries the prior turn, the partial answer as
	// an assistant message, and a continue instruction.
	reqs := client.Requests()
	require.Len(t, reqs, 2)
	resume := reqs[1].Messages
	require.Len(t, resume, 3)
	assert.Equal(t, graph.RoleUser, resume[0].Role)
	assert.Equal(t, graph.RoleAssistant, resume[1].Role)
	assert.Equal(t, "Part one.", resume[1].Content)
	assert.Equal(t, graph.RoleUser, resume[2].Role)
}

func TestController_ContinueRequiresStopped(t *testing.T) {
	t.Parallel()

	s, _, target := newThread(t)
	c := NewController(s, Config{Client: &llm.ScriptedClient{}})

	err := c.Continue(context.Background(), target.ID)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestController_ErrorClassifiedAndRetryable(t *testing.T) {
	t.Parallel()

	s, _, target := newThread(t)
	client := &llm.ScriptedClient{
		Chunks: []string{"partial"},
		Err:    errors.New("rate limit exceeded"),
	}

	var hookInfo *llm.ErrorInfo
	var hookDone sync.WaitGroup
	hookDone.Add(1)
	c := NewController(s, Config{
		Client: client,
		Hooks: Hooks{
			OnSessionError: func(_ graph.NodeID, info *llm.ErrorInfo, _ RequestContext) {
				hookInfo = info
				hookDone.Done()
			},
		},
	})

	require.NoError(t, c.Start(context.Background(), target.ID, RequestContext{
		Messages: []graph.Message{{Role: graph.RoleUser, Content: "hello"}},
		Model:    "m",
	}))
	c.Wait(target.ID)
	hookDone.Wait()

	state, ok := c.SessionState(target.ID)
	require.True(t, ok)
	assert.Equal(t, StateErrored, state)

	info := c.NodeError(target.ID)
	require.NotNil(t, info)
	assert.Equal(t, llm.ErrRateLimit, info.Kind)
	assert.True(t, info.CanRetry)
	assert.Equal(t, info, hookInfo)

	// Retry clears the partial content and re-issues the same request.
	client.Err = nil
	client.Chunks = []string{"full answer"}
	require.NoError(t, c.Retry(context.Background(), target.ID))
	c.Wait(target.ID)

	node, _ := s.GetNode(target.ID)
	assert.Equal(t, "full answer", node.Content)
	assert.Nil(t, c.NodeError(target.ID))

	reqs := client.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, reqs[0].Messages, reqs[1].Messages)
}

func TestController_RetryRequiresErrored(t *testing.T) {
	t.Parallel()

	s, _, target := newThread(t)
	client := &llm.ScriptedClient{Chunks: []string{"Hi"}, BlockAfterChunks: true}
	c := NewController(s, Config{Client: client})

	require.NoError(t, c.Start(context.Background(), target.ID, RequestContext{Model: "m"}))
	<-client.Streamed()
	require.NoError(t, c.Stop(target.ID))

	err := c.Retry(context.Background(), target.ID)
	assert.ErrorIs(t, err, ErrNotRetryable)
}

// clientFunc adapts a func to llm.Client for one-off test transports.
type clientFunc func(ctx context.Context, req llm.ChatRequest, fn llm.StreamFunc) error

func (f clientFunc) StreamChat(ctx context.Context, req llm.ChatRequest, fn llm.StreamFunc) error {
	return f(ctx, req, fn)
}

func TestController_NodeDeletedMidStream(t *testing.T) {
	t.Parallel()

	s, _, target := newThread(t)

	firstWritten := make(chan struct{})
	proceed := make(chan struct{})
	client := clientFunc(func(ctx context.Context, _ llm.ChatRequest, fn llm.StreamFunc) error {
		if err := fn(ctx, []byte("Hi")); err != nil {
			return err
		}
		close(firstWritten)
		<-proceed
		return fn(ctx, []byte(" more"))
	})
	c := NewController(s, Config{Client: client})

	require.NoError(t, c.Start(context.Background(), target.ID, RequestContext{Model: "m"}))
	<-firstWritten

	_, _, err := s.RemoveNode(target.ID)
	require.NoError(t, err)
	close(proceed)

	// The session notices the deletion at the next write and releases
	// quietly: no error, no marker, no resurrection of the node.
	c.Wait(target.ID)
	_, ok := c.SessionState(target.ID)
	assert.False(t, ok)
	assert.Nil(t, c.NodeError(target.ID))
	_, exists := s.GetNode(target.ID)
	assert.False(t, exists)
}

func TestController_StartMissingNode(t *testing.T) {
	t.Parallel()

	s := graph.NewStore()
	c := NewController(s, Config{Client: &llm.ScriptedClient{}})

	err := c.Start(context.Background(), "ghost", RequestContext{Model: "m"})
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestController_ClearError(t *testing.T) {
	t.Parallel()

	s, _, target := newThread(t)
	client := &llm.ScriptedClient{Err: errors.New("internal server error")}
	c := NewController(s, Config{Client: client})

	require.NoError(t, c.Start(context.Background(), target.ID, RequestContext{Model: "m"}))
	c.Wait(target.ID)

	require.NotNil(t, c.NodeError(target.ID))
	c.ClearError(target.ID)
	assert.Nil(t, c.NodeError(target.ID))
}

func TestSessionState_String(t *testing.T) {
	t.Parallel()

	for state, want := range map[SessionState]string{
		StateIdle:      "idle",
		StateStreaming: "streaming",
		StateCompleted: "completed",
		StateStopped:   "stopped",
		StateErrored:   "errored",
	} {
		assert.Equal(t, want, state.String())
	}
}

func TestBuildRequest_UsesResolvedContext(t *testing.T) {
	t.Parallel()

	s, q, target := newThread(t)
	c := NewController(s, Config{Client: &llm.ScriptedClient{}})

	req := c.BuildRequest([]graph.NodeID{target.ID}, target.ID, "model-x")
	assert.Equal(t, "model-x", req.Model)
	assert.Equal(t, target.ID, req.OriginatingNodeID)
	require.NotEmpty(t, req.Messages)
	assert.Equal(t, q.ID, req.Messages[0].NodeID)
	assert.True(t, strings.Contains(req.Messages[0].Content, "hello"))
}
