package generate

import (
	"github.com/ericmjl/canvas-chat-sub001/graph"
	"github.com/ericmjl/canvas-chat-sub001/llm"
)

// Hooks are the fire-and-forget notifications the controller sends to the
// presentation layer. All fields are optional; nil hooks are skipped. No
// return value is expected and hooks must not block.
type Hooks struct {
	// OnChunk fires for every applied chunk with the node's full content
	// so far.
	OnChunk func(nodeID graph.NodeID, chunk string, full string)

	// OnSessionDone fires when a stream completes normally.
	OnSessionDone func(nodeID graph.NodeID, final string)

	// OnSessionError fires when a stream fails. The retained request
	// context is included so the UI can offer a retry.
	OnSessionError func(nodeID graph.NodeID, info *llm.ErrorInfo, retry RequestContext)
}

func (h Hooks) chunk(nodeID graph.NodeID, chunk, full string) {
	if h.OnChunk != nil {
		h.OnChunk(nodeID, chunk, full)
	}
}

func (h Hooks) done(nodeID graph.NodeID, final string) {
	if h.OnSessionDone != nil {
		h.OnSessionDone(nodeID, final)
	}
}

func (h Hooks) sessionError(nodeID graph.NodeID, info *llm.ErrorInfo, retry RequestContext) {
	if h.OnSessionError != nil {
		h.OnSessionError(nodeID, info, retry)
	}
}
