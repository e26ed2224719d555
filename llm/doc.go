// Package llm defines the streaming chat client abstraction the canvas
// core consumes, adapters for OpenAI-compatible APIs and langchaingo
// models, and the seven-kind error taxonomy every raw transport error is
// classified into exactly once at this boundary.
package llm
