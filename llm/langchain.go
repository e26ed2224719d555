package llm

import (
	"context"

	"github.com/ericmjl/canvas-chat-sub001/graph"
	"github.com/tmc/langchaingo/llms"
)

// LangChainClient adapts any langchaingo llms.Model to the Client
// interface, so canvases can stream from every provider langchaingo
// supports without a bespoke adapter each.
type LangChainClient struct {
	model llms.Model
}

var _ Client = (*LangChainClient)(nil)

// NewLangChainClient wraps a langchaingo model.
func NewLangChainClient(model llms.Model) *LangChainClient {
	return &LangChainClient{model: model}
}

// StreamChat implements Client via llms.WithStreamingFunc.
func (c *LangChainClient) StreamChat(ctx context.Context, req ChatRequest, fn StreamFunc) error {
	content := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := llms.ChatMessageTypeAI
		if m.Role == graph.RoleUser {
			role = llms.ChatMessageTypeHuman
		}
		parts := []llms.ContentPart{llms.TextPart(m.Content)}
		if m.ImageData != "" {
			parts = append(parts, llms.BinaryPart(m.MIMEType, []byte(m.ImageData)))
		}
		content = append(content, llms.MessageContent{Role: role, Parts: parts})
	}

	opts := []llms.CallOption{
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return fn(ctx, chunk)
		}),
	}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}

	_, err := c.model.GenerateContent(ctx, content, opts...)
	return err
}
