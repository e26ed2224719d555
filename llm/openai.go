package llm

import (
	"context"
	"errors"
	"io"

	"github.com/ericmjl/canvas-chat-sub001/graph"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient streams chat completions from the OpenAI API (or any
// compatible endpoint).
type OpenAIClient struct {
	client *openai.Client
}

var _ Client = (*OpenAIClient)(nil)

// OpenAIOption customizes the client configuration.
type OpenAIOption func(*openai.ClientConfig)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(cfg *openai.ClientConfig) {
		cfg.BaseURL = baseURL
	}
}

// NewOpenAIClient creates a streaming client with the given API key.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg)}
}

// StreamChat implements Client. Chunks are delivered in arrival order; the
// stream stops at the next chunk boundary once ctx is canceled.
func (c *OpenAIClient) StreamChat(ctx context.Context, req ChatRequest, fn StreamFunc) error {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toOpenAIMessages(req.Messages),
		Stream:   true,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := fn(ctx, []byte(delta)); err != nil {
			return err
		}
	}
}

func toOpenAIMessages(messages []graph.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleAssistant
		if m.Role == graph.RoleUser {
			role = openai.ChatMessageRoleUser
		}
		msg := openai.ChatCompletionMessage{Role: role, Content: m.Content}
		if m.ImageData != "" {
			msg.Content = ""
			msg.MultiContent = []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: m.Content},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: "data:" + m.MIMEType + ";base64," + m.ImageData,
					},
				},
			}
		}
		out = append(out, msg)
	}
	return out
}
