package driving

import (
	"context"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

// CreateBotRequest carries the fields needed to create a bot.
type CreateBotRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
	UseRAG       bool   `json:"use_rag"`
}

// BotService manages bot records.
type BotService interface {
	// Create creates a new bot
	Create(ctx context.Context, req CreateBotRequest) (*domain.Bot, error)

	// Get retrieves a bot by ID
	Get(ctx context.Context, id string) (*domain.Bot, error)

	// List retrieves all bots with pagination
	List(ctx context.Context, limit, offset int) ([]*domain.Bot, error)

	// Delete removes the bot record, its document records, and
	// best-effort its vector collection.
	Delete(ctx context.Context, id string) error
}
