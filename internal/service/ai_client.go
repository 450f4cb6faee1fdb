package service

import (
	"context"
)

// TextGenerator is the interface to the generative model backend. The
// analysis engine only ever needs prompt-in, text-out; providers,
// streaming formats, and embeddings live behind it.
type TextGenerator interface {
	// Generate runs one completion for the prompt (non-streaming).
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream runs one completion with streaming support. The
	// callback receives (thinkingContent, regularContent) per chunk;
	// the accumulated regular content is returned at the end.
	GenerateStream(ctx context.Context, prompt string, callback func(thinking, content string) error) (string, error)

	// CreateEmbeddings generates embeddings for texts.
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// IsEnabled returns whether the generator is configured and ready.
	IsEnabled() bool
}

// StreamChunk represents a generic streaming response chunk.
type StreamChunk struct {
	// Regular content (always present in streaming)
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	// Role (assistant, user, system)
	Role string

	// Whether this is the final chunk
	Done bool
}

// Ensure OpenAIClient implements TextGenerator
var _ TextGenerator = (*OpenAIClient)(nil)
