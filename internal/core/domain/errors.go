package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid (shape mismatches, bad arguments)
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates no extractor is registered for the declared content type
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtractionFailed indicates text extraction failed (corrupt file, decode error)
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrEmptyDocument indicates extraction produced no usable text
	ErrEmptyDocument = errors.New("empty document")

	// ErrNoChunksProduced indicates the chunker yielded zero chunks
	ErrNoChunksProduced = errors.New("no chunks produced")

	// ErrEmbeddingFailed indicates the embedding provider failed upstream
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrStoreUnavailable indicates the vector store backend could not be reached
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrCollectionNotFound indicates the collection does not exist.
	// Most read paths treat this as "empty" rather than an error.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
