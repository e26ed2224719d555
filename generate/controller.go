package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ericmjl/canvas-chat-sub001/graph"
	"github.com/ericmjl/canvas-chat-sub001/llm"
	"github.com/ericmjl/canvas-chat-sub001/log"
)

var (
	// ErrSessionActive is returned when starting a session for a node
	// that already has one streaming. A node's content has exactly one
	// writer at a time.
	ErrSessionActive = errors.New("session already active for node")

	// ErrNoSession is returned when stop/continue/retry target a node
	// with no session.
	ErrNoSession = errors.New("no session for node")

	// ErrNotResumable is returned when Continue targets a session that
	// is not in the stopped state.
	ErrNotResumable = errors.New("session is not resumable")

	// ErrNotRetryable is returned when Retry targets a session that is
	// not in the errored state.
	ErrNotRetryable = errors.New("session is not retryable")
)

// StoppedMarker is appended to a node's content when its stream is
// stopped by the user. Continue strips it before resuming.
const StoppedMarker = "\n\n*[Generation stopped]*"

const continueInstruction = "Continue exactly where you left off. Do not repeat content you already produced."

// Config carries the controller's injected collaborators.
type Config struct {
	// Client is the streaming LLM transport. Required.
	Client llm.Client

	// Hooks notify the presentation layer. Optional.
	Hooks Hooks

	// Layout positions nodes the controller creates (committee opinions,
	// syntheses). Defaults to a layout engine with standard geometry.
	Layout *graph.LayoutEngine

	// Logger defaults to the package-level logger.
	Logger log.Logger
}

// Controller orchestrates streaming generation sessions that mutate the
// canvas. All registries are explicit instance state, so independent
// canvases can run controllers in isolation.
//
// Convention enforced by the session registry: while a session is
// streaming it is the only writer to its node's content, and no second
// session can be registered for the same node. Before every write the
// controller re-checks that the node still exists and treats deletion as
// an implicit cancellation, silently dropping the writes.
type Controller struct {
	store    *graph.Store
	resolver *graph.Resolver
	layout   *graph.LayoutEngine
	client   llm.Client
	hooks    Hooks
	logger   log.Logger
	registry *TaskRegistry

	mu       sync.Mutex
	sessions map[graph.NodeID]*session
	nodeErrs map[graph.NodeID]*llm.ErrorInfo
}

// NewController creates a controller over the given store.
func NewController(store *graph.Store, cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	layout := cfg.Layout
	if layout == nil {
		layout = graph.NewLayoutEngine(store)
	}
	return &Controller{
		store:    store,
		resolver: graph.NewResolver(store),
		layout:   layout,
		client:   cfg.Client,
		hooks:    cfg.Hooks,
		logger:   logger,
		registry: NewTaskRegistry(),
		sessions: make(map[graph.NodeID]*session),
		nodeErrs: make(map[graph.NodeID]*llm.ErrorInfo),
	}
}

// Registry exposes the task registry (matrix cells, committee members).
func (c *Controller) Registry() *TaskRegistry { return c.registry }

// BuildRequest resolves the selection into a request context targeting
// nodeID with the given model.
func (c *Controller) BuildRequest(selection []graph.NodeID, nodeID graph.NodeID, model string) RequestContext {
	return RequestContext{
		Messages:          c.resolver.ResolveContext(selection),
		Model:             model,
		OriginatingNodeID: nodeID,
	}
}

// Start registers a session for nodeID and begins streaming into its
// content. Returns ErrSessionActive if the node already has a streaming
// session; retained stopped/errored sessions are replaced.
func (c *Controller) Start(ctx context.Context, nodeID graph.NodeID, req RequestContext) error {
	if _, ok := c.store.GetNode(nodeID); !ok {
		return fmt.Errorf("start %s: %w", nodeID, graph.ErrNodeNotFound)
	}

	c.mu.Lock()
	if s, ok := c.sessions[nodeID]; ok && s.state == StateStreaming {
		c.mu.Unlock()
		return fmt.Errorf("start %s: %w", nodeID, ErrSessionActive)
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &session{
		nodeID:  nodeID,
		request: req,
		state:   StateStreaming,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.sessions[nodeID] = s
	c.mu.Unlock()

	go c.run(sctx, s)
	return nil
}

// run is the streaming goroutine: the sole mutation path for the node's
// content while the session lives.
func (c *Controller) run(ctx context.Context, s *session) {
	defer close(s.done)
	defer s.cancel()

	err := c.client.StreamChat(ctx, llm.ChatRequest{Messages: s.request.Messages, Model: s.request.Model},
		func(ctx context.Context, chunk []byte) error {
			// Node deleted out from under the session: implicit
			// cancellation, no further writes.
			if _, ok := c.store.GetNode(s.nodeID); !ok {
				c.logger.Debug("generate: node %s deleted mid-stream, dropping writes", s.nodeID)
				return context.Canceled
			}
			text := string(chunk)
			updated, uerr := c.store.UpdateNode(s.nodeID, func(n *graph.Node) {
				n.Content += text
			})
			if uerr != nil {
				return context.Canceled
			}
			c.hooks.chunk(s.nodeID, text, updated.Content)
			return nil
		})

	c.finish(s, err)
}

// finish applies the terminal state transition for s.
func (c *Controller) finish(s *session, err error) {
	node, exists := c.store.GetNode(s.nodeID)

	c.mu.Lock()
	current := c.sessions[s.nodeID] == s
	switch {
	case !exists:
		// Deleted mid-stream: release with no marker and no error.
		if current {
			delete(c.sessions, s.nodeID)
		}
		c.mu.Unlock()
		return

	case err == nil:
		s.state = StateCompleted
		if current {
			delete(c.sessions, s.nodeID)
		}
		c.mu.Unlock()
		c.hooks.done(s.nodeID, node.Content)
		return

	case errors.Is(err, context.Canceled):
		// User stop: keep content as-is plus the marker; retain the
		// request context so Continue can resume.
		s.state = StateStopped
		c.mu.Unlock()
		updated, uerr := c.store.UpdateNode(s.nodeID, func(n *graph.Node) {
			n.Content += StoppedMarker
		})
		if uerr == nil {
			c.hooks.chunk(s.nodeID, StoppedMarker, updated.Content)
		}
		return

	default:
		info := llm.Classify(err)
		if info == nil {
			// Classified as user cancellation after all.
			s.state = StateStopped
			c.mu.Unlock()
			return
		}
		s.state = StateErrored
		c.nodeErrs[s.nodeID] = info
		c.mu.Unlock()
		c.hooks.sessionError(s.nodeID, info, s.request)
		return
	}
}

// Stop cancels the node's streaming session. The stream stops at the next
// chunk boundary; Stop blocks until the session has settled, so callers
// observe the stopped marker once it returns.
func (c *Controller) Stop(nodeID graph.NodeID) error {
	c.mu.Lock()
	s, ok := c.sessions[nodeID]
	active := ok && s.state == StateStreaming
	c.mu.Unlock()

	if !active {
		return fmt.Errorf("stop %s: %w", nodeID, ErrNoSession)
	}
	s.cancel()
	<-s.done
	return nil
}

// Continue resumes a stopped session: the new request is the retained
// messages plus the partial assistant content plus a continue
// instruction. New output concatenates to the partial content.
func (c *Controller) Continue(ctx context.Context, nodeID graph.NodeID) error {
	c.mu.Lock()
	s, ok := c.sessions[nodeID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("continue %s: %w", nodeID, ErrNoSession)
	}
	if s.state != StateStopped {
		c.mu.Unlock()
		return fmt.Errorf("continue %s (%s): %w", nodeID, s.state, ErrNotResumable)
	}
	prior := s.request
	c.mu.Unlock()

	node, exists := c.store.GetNode(nodeID)
	if !exists {
		return fmt.Errorf("continue %s: %w", nodeID, graph.ErrNodeNotFound)
	}

	partial := strings.TrimSuffix(node.Content, StoppedMarker)
	if partial != node.Content {
		if _, err := c.store.UpdateNode(nodeID, func(n *graph.Node) { n.Content = partial }); err != nil {
			return err
		}
	}

	messages := make([]graph.Message, 0, len(prior.Messages)+2)
	messages = append(messages, prior.Messages...)
	messages = append(messages,
		graph.Message{Role: graph.RoleAssistant, Content: partial, NodeID: nodeID},
		graph.Message{Role: graph.RoleUser, Content: continueInstruction},
	)

	return c.Start(ctx, nodeID, RequestContext{
		Messages:          messages,
		Model:             prior.Model,
		OriginatingNodeID: prior.OriginatingNodeID,
	})
}

// Retry re-issues the errored session's original request verbatim,
// clearing the node's error state and partial content first.
func (c *Controller) Retry(ctx context.Context, nodeID graph.NodeID) error {
	c.mu.Lock()
	s, ok := c.sessions[nodeID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("retry %s: %w", nodeID, ErrNoSession)
	}
	if s.state != StateErrored {
		c.mu.Unlock()
		return fmt.Errorf("retry %s (%s): %w", nodeID, s.state, ErrNotRetryable)
	}
	req := s.request
	delete(c.nodeErrs, nodeID)
	c.mu.Unlock()

	return c.RetryWith(ctx, nodeID, req)
}

// RetryWith re-issues a stored request context for nodeID, clearing any
// displayed error state and partial content first.
func (c *Controller) RetryWith(ctx context.Context, nodeID graph.NodeID, req RequestContext) error {
	c.mu.Lock()
	delete(c.nodeErrs, nodeID)
	c.mu.Unlock()

	if _, err := c.store.UpdateNode(nodeID, func(n *graph.Node) { n.Content = "" }); err != nil {
		return fmt.Errorf("retry %s: %w", nodeID, err)
	}
	return c.Start(ctx, nodeID, req)
}

// Wait blocks until the node's in-flight stream settles. Nodes without a
// session return immediately. Intended for tests and batch callers.
func (c *Controller) Wait(nodeID graph.NodeID) {
	c.mu.Lock()
	s, ok := c.sessions[nodeID]
	c.mu.Unlock()
	if ok {
		<-s.done
	}
}

// SessionState returns the state of the node's session, if one exists
// (streaming or retained).
func (c *Controller) SessionState(nodeID graph.NodeID) (SessionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[nodeID]
	if !ok {
		return StateIdle, false
	}
	return s.state, true
}

// NodeError returns the classified error attached to the node, if any.
// Errors are per node, dismissible, never global.
func (c *Controller) NodeError(nodeID graph.NodeID) *llm.ErrorInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodeErrs[nodeID]
}

// ClearError dismisses the node's error state.
func (c *Controller) ClearError(nodeID graph.NodeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.nodeErrs, nodeID)
}

// ActiveSessions returns the number of sessions currently streaming.
func (c *Controller) ActiveSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sessions {
		if s.state == StateStreaming {
			n++
		}
	}
	return n
}
