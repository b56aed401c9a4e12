package driving

import (
	"context"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

// ChatRequest is one user turn addressed to a bot.
type ChatRequest struct {
	BotID   string
	Message string
	History []domain.ChatMessage
}

// ChatService answers user messages, grounding responses in the bot's
// documents when retrieval is enabled.
type ChatService interface {
	// Chat runs one conversation turn. Retrieval failure degrades to an
	// un-grounded response rather than failing the turn.
	Chat(ctx context.Context, req ChatRequest) (*domain.ChatResponse, error)
}
