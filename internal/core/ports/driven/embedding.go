package driven

import "context"

// EmbeddingProvider turns text into fixed-length numeric vectors.
// The provider variant is a static configuration choice made once at
// process start. Implementations must be safe for concurrent use.
type EmbeddingProvider interface {
	// Embed generates an embedding for a single text.
	// Fails with domain.ErrEmbeddingFailed on upstream failure.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, order-preserving
	// and 1:1 with the input. Inputs are partitioned into the provider's
	// batch-size ceiling and issued as sequential batched calls. Any batch
	// failure aborts the whole call: no partial embeddings are returned,
	// even if earlier batches succeeded.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// Close releases resources held by the provider
	Close() error
}
