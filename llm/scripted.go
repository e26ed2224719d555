package llm

import (
	"context"
	"sync"
)

// ScriptedClient is a deterministic Client for tests: it emits a fixed
// chunk sequence, can block to let the test cancel mid-stream, and can end
// with a scripted error.
type ScriptedClient struct {
	// Chunks are emitted in order, checking ctx before each.
	Chunks []string

	// Err, when set, is returned after the chunks (the stream fails).
	Err error

	// BlockAfterChunks keeps the stream open after the chunks until ctx
	// is canceled, returning ctx.Err(). Lets tests exercise Stop.
	BlockAfterChunks bool

	// Respond, when set, overrides Chunks/Err per request. Useful when
	// one client serves many concurrent sessions (matrix fills).
	Respond func(req ChatRequest) (chunks []string, err error)

	mu       sync.Mutex
	requests []ChatRequest
	streamed chan struct{}
}

var _ Client = (*ScriptedClient)(nil)

// Requests returns every request seen so far.
func (c *ScriptedClient) Requests() []ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatRequest(nil), c.requests...)
}

// Streamed returns a channel that is closed once the first request has
// emitted all of its chunks. Tests use it to order Stop calls after the
// content they expect has arrived.
func (c *ScriptedClient) Streamed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.streamed == nil {
		c.streamed = make(chan struct{})
	}
	return c.streamed
}

// StreamChat implements Client.
func (c *ScriptedClient) StreamChat(ctx context.Context, req ChatRequest, fn StreamFunc) error {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	if c.streamed == nil {
		c.streamed = make(chan struct{})
	}
	streamed := c.streamed
	c.mu.Unlock()

	chunks, scriptErr := c.Chunks, c.Err
	if c.Respond != nil {
		chunks, scriptErr = c.Respond(req)
	}

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, []byte(chunk)); err != nil {
			return err
		}
	}

	c.mu.Lock()
	select {
	case <-streamed:
	default:
		close(streamed)
	}
	c.mu.Unlock()

	if scriptErr != nil {
		return scriptErr
	}
	if c.BlockAfterChunks {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}
