package driven

import (
	"context"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

// BotStore handles bot persistence (PostgreSQL)
type BotStore interface {
	// Save creates or updates a bot
	Save(ctx context.Context, bot *domain.Bot) error

	// Get retrieves a bot by ID
	Get(ctx context.Context, id string) (*domain.Bot, error)

	// List retrieves all bots with pagination
	List(ctx context.Context, limit, offset int) ([]*domain.Bot, error)

	// Delete deletes a bot
	Delete(ctx context.Context, id string) error

	// Count returns total bot count
	Count(ctx context.Context) (int, error)
}

// DocumentStore handles uploaded-document records (PostgreSQL).
// Records track ingestion status; chunk content lives in the vector store.
type DocumentStore interface {
	// Save creates or updates a document record
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document record by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// ListByBot retrieves all document records for a bot
	ListByBot(ctx context.Context, botID string) ([]*domain.Document, error)

	// UpdateStatus transitions a document's ingestion status.
	// chunkCount is persisted alongside completed transitions.
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int) error

	// Delete deletes a document record
	Delete(ctx context.Context, id string) error

	// DeleteByBot deletes all document records for a bot
	DeleteByBot(ctx context.Context, botID string) error

	// CountByBot returns document record count for a bot
	CountByBot(ctx context.Context, botID string) (int, error)
}
