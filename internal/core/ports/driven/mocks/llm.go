package mocks

import (
	"context"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// MockLLMService returns canned completions and records the messages
// it was called with.
type MockLLMService struct {
	Response string
	Err      error

	// LastMessages holds the conversation from the most recent call.
	LastMessages []domain.ChatMessage
	Calls        int
}

// NewMockLLMService creates a new MockLLMService
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{Response: "mock response"}
}

func (m *MockLLMService) ChatCompletion(ctx context.Context, messages []domain.ChatMessage, opts driven.ChatOptions) (*domain.ChatCompletion, error) {
	m.Calls++
	m.LastMessages = messages
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.ChatCompletion{
		Content:      m.Response,
		Model:        "mock-chat-model",
		FinishReason: "stop",
	}, nil
}

func (m *MockLLMService) Model() string {
	return "mock-chat-model"
}

func (m *MockLLMService) Close() error {
	return nil
}
