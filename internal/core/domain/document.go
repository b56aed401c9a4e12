package domain

import "time"

// DocumentStatus tracks the ingestion lifecycle of an uploaded document.
// The status is the only externally observable signal of background
// ingestion progress.
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents an uploaded file attached to a bot.
// The relational record tracks metadata and processing status; the
// extracted chunks live in the bot's vector-store collection.
type Document struct {
	ID          string         `json:"id"`
	BotID       string         `json:"bot_id"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	SizeBytes   int64          `json:"size_bytes"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	UploadedAt  time.Time      `json:"uploaded_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Chunk is a bounded substring of a source document, the unit of
// embedding and retrieval. Immutable once created.
type Chunk struct {
	Text     string            `json:"text"`
	Index    int               `json:"index"`
	Total    int               `json:"total"`
	SourceID string            `json:"source_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RetrievedDocument is a chunk returned by a similarity search,
// annotated with a normalized similarity score. Produced fresh per
// query, never persisted.
type RetrievedDocument struct {
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
	Source     string         `json:"source"`
	ChunkIndex int            `json:"chunk_index"`
}

// NormalizeSimilarity converts a backend-native distance into a
// similarity in [0, 1]. A distance of 0 maps to 1.0; distances at or
// beyond 1.0 clamp to 0 rather than going negative.
func NormalizeSimilarity(distance float64) float64 {
	if distance > 1.0 {
		distance = 1.0
	}
	if distance < 0 {
		distance = 0
	}
	return 1.0 - distance
}
