package driven

import (
	"context"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

// ChatOptions tunes a single completion call.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// LLMService generates chat completions. The retrieval core treats the
// language model as an external collaborator: it assembles the context
// block, the model answers.
type LLMService interface {
	// ChatCompletion generates a response for the given conversation.
	ChatCompletion(ctx context.Context, messages []domain.ChatMessage, opts ChatOptions) (*domain.ChatCompletion, error)

	// Model returns the model name being used
	Model() string

	// Close releases resources held by the service
	Close() error
}
