package llm

import (
	"context"

	"github.com/ericmjl/canvas-chat-sub001/graph"
)

// ChatRequest is one streaming chat call.
type ChatRequest struct {
	// Messages is the resolved conversation context, oldest first.
	Messages []graph.Message

	// Model is the provider-specific model identifier.
	Model string
}

// StreamFunc receives one chunk of streamed output. Returning an error
// aborts the stream; the transport stops reading further chunks.
type StreamFunc func(ctx context.Context, chunk []byte) error

// Client is the provider abstraction consumed by the generation
// controller. StreamChat blocks until the stream terminates, calling fn
// for every chunk in arrival order. Cancellation is cooperative: the
// implementation must check ctx between chunks and return ctx.Err() once
// it is done. Returned errors are raw transport errors; Classify turns
// them into the stable taxonomy exactly once at the boundary.
type Client interface {
	StreamChat(ctx context.Context, req ChatRequest, fn StreamFunc) error
}
