package driving

import (
	"context"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

// UploadRequest describes a file already saved to local storage,
// ready for background ingestion.
type UploadRequest struct {
	BotID       string
	FilePath    string
	Filename    string
	ContentType string
	SizeBytes   int64
}

// DocumentService manages uploaded-document records and schedules
// their background ingestion.
type DocumentService interface {
	// Upload persists a document record with status processing and
	// enqueues an ingestion task. The returned record reflects the
	// pre-ingestion state.
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)

	// Get retrieves a document record by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// ListByBot retrieves all document records for a bot
	ListByBot(ctx context.Context, botID string) ([]*domain.Document, error)

	// Delete removes a document record. The bot's vector collection is
	// untouched; chunks are reclaimed when the bot is deleted.
	Delete(ctx context.Context, id string) error
}
