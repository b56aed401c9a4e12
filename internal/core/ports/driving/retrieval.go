package driving

import (
	"context"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

// RetrievalService is the document-to-context pipeline: ingestion of
// uploaded files into a bot's collection and query-time assembly of
// ranked, threshold-filtered context.
type RetrievalService interface {
	// ProcessDocument runs the full ingestion pipeline for one file:
	// extract, chunk, batch-embed, store. Returns the number of chunks
	// stored. The caller treats the pipeline as a single failure unit:
	// any step's error aborts the whole ingestion.
	ProcessDocument(ctx context.Context, botID, filePath, filename, contentType string) (int, error)

	// SearchRelevant embeds the query, searches the bot's collection, and
	// returns results ranked by similarity descending, filtered by the
	// configured similarity threshold, capped at maxResults.
	// maxResults <= 0 uses the configured default.
	SearchRelevant(ctx context.Context, botID, query string, maxResults int) ([]domain.RetrievedDocument, error)

	// DeleteBotDocuments removes the bot's entire collection.
	// Best-effort cleanup: failures are logged and reported as false,
	// never raised.
	DeleteBotDocuments(ctx context.Context, botID string) bool

	// BotDocumentCount returns the number of stored chunks for a bot,
	// or 0 when the collection is missing or the backend is unreachable.
	BotDocumentCount(ctx context.Context, botID string) int
}
