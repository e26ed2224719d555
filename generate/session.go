package generate

import (
	"context"

	"github.com/ericmjl/canvas-chat-sub001/graph"
)

// SessionState is the lifecycle state of one generation session.
type SessionState int

const (
	// StateIdle is the zero state before the stream is issued.
	StateIdle SessionState = iota
	// StateStreaming means chunks are being applied to the node.
	StateStreaming
	// StateCompleted means the stream finished normally.
	StateCompleted
	// StateStopped means the user canceled; the request context is
	// retained so the session can be continued.
	StateStopped
	// StateErrored means the stream failed; the request context is
	// retained so the session can be retried.
	StateErrored
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// RequestContext is everything needed to issue (or re-issue) a streaming
// call: the resolved messages, the model, and the node the request was
// built from.
type RequestContext struct {
	Messages          []graph.Message
	Model             string
	OriginatingNodeID graph.NodeID
}

// session is one in-flight (or retained) streaming call, scoped to one
// node. Sessions are ephemeral: they are created when a streaming call
// starts and do not outlive the canvas.
type session struct {
	nodeID  graph.NodeID
	request RequestContext
	state   SessionState // guarded by the controller's mutex
	cancel  context.CancelFunc
	done    chan struct{} // closed when the streaming goroutine exits
}
