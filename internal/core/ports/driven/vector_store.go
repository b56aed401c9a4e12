package driven

import "context"

// SearchHit is one nearest-neighbor result with its backend-native
// distance. The orchestrator normalizes distances into similarities;
// backends only guarantee that smaller distance means a better match.
type SearchHit struct {
	Text     string
	Metadata map[string]any
	Distance float64
}

// VectorStore persists (vector, text, metadata) tuples under named
// collections and returns nearest neighbors for a query vector.
// Collections are isolated namespaces: points added under one
// collection are never visible to a search against another, even when
// a backend pools collections in one physical store.
//
// Implementations must be safe for concurrent use by independent
// collections. Advisory operations (delete, count) swallow backend
// errors and return a safe default rather than raising.
type VectorStore interface {
	// AddDocuments inserts texts with their vectors and metadata into the
	// collection, creating it lazily on first insert, and returns the
	// number of points added. texts, vectors, and metadatas must have
	// equal length or the call fails with domain.ErrInvalidInput. If ids
	// is nil, unique opaque identifiers are generated. A vector whose
	// dimensionality differs from the collection's (fixed by the first
	// insert) fails with domain.ErrInvalidInput.
	AddDocuments(ctx context.Context, collection string, texts []string, vectors [][]float32, metadatas []map[string]any, ids []string) (int, error)

	// SearchSimilar returns up to k nearest neighbors to the query vector,
	// best match first. filter restricts results to points whose metadata
	// exactly matches every key/value pair; backends support equality
	// filters only. A missing collection yields an empty result, not an
	// error.
	SearchSimilar(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]SearchHit, error)

	// DeleteCollection removes the collection and all its points.
	// Idempotent and best-effort: deleting a nonexistent collection
	// returns false, and backend errors are never raised to the caller.
	DeleteCollection(ctx context.Context, collection string) bool

	// CollectionCount returns the number of points in the collection,
	// or 0 if it does not exist or the backend is unreachable.
	CollectionCount(ctx context.Context, collection string) int

	// Close releases resources held by the store
	Close() error
}
