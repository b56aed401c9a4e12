// Package services implements the driving ports by orchestrating the
// driven adapters.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/botdock-labs/botdock-core/internal/chunker"
	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driving"
)

// Ensure retrievalService implements RetrievalService
var _ driving.RetrievalService = (*retrievalService)(nil)

const (
	defaultMaxResults          = 5
	defaultSimilarityThreshold = 0.3
)

// RetrievalConfig tunes the retrieval pipeline.
type RetrievalConfig struct {
	// MaxResults is the default result cap for SearchRelevant
	MaxResults int

	// SimilarityThreshold drops results scoring below it, in [0, 1]
	SimilarityThreshold float64
}

// retrievalService implements the ingestion and search pipeline.
type retrievalService struct {
	extractors driven.ExtractorRegistry
	splitter   *chunker.Splitter
	embedder   driven.EmbeddingProvider
	store      driven.VectorStore
	logger     *slog.Logger

	maxResults int
	threshold  float64
}

// NewRetrievalService creates a new RetrievalService
func NewRetrievalService(
	extractors driven.ExtractorRegistry,
	splitter *chunker.Splitter,
	embedder driven.EmbeddingProvider,
	store driven.VectorStore,
	cfg RetrievalConfig,
	logger *slog.Logger,
) driving.RetrievalService {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = defaultSimilarityThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retrievalService{
		extractors: extractors,
		splitter:   splitter,
		embedder:   embedder,
		store:      store,
		logger:     logger.With("component", "retrieval"),
		maxResults: cfg.MaxResults,
		threshold:  cfg.SimilarityThreshold,
	}
}

// ProcessDocument runs extract, chunk, embed, store for one file.
// Any step's failure aborts the whole ingestion; the vector store is
// only written after every chunk has an embedding.
func (s *retrievalService) ProcessDocument(ctx context.Context, botID, filePath, filename, contentType string) (int, error) {
	if botID == "" || filePath == "" {
		return 0, fmt.Errorf("%w: bot ID and file path are required", domain.ErrInvalidInput)
	}

	extractor := s.extractors.Get(contentType)
	if extractor == nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, contentType)
	}

	text, err := extractor.Extract(filePath)
	if err != nil {
		return 0, fmt.Errorf("extracting %s: %w", filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: %s", domain.ErrEmptyDocument, filename)
	}

	chunks := s.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrNoChunksProduced, filename)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding %s: %w", filename, err)
	}

	metadatas := make([]map[string]any, len(chunks))
	for i := range chunks {
		metadatas[i] = map[string]any{
			"bot_id":       botID,
			"filename":     filename,
			"chunk_index":  i,
			"total_chunks": len(chunks),
			"source":       filename,
		}
	}

	collection := domain.CollectionKeyForBot(botID)
	stored, err := s.store.AddDocuments(ctx, collection, chunks, vectors, metadatas, nil)
	if err != nil {
		return 0, fmt.Errorf("storing chunks for %s: %w", filename, err)
	}

	s.logger.Info("document ingested",
		"bot_id", botID,
		"filename", filename,
		"chunks", stored,
	)
	return stored, nil
}

// SearchRelevant embeds the query and returns ranked, threshold
// filtered context.
func (s *retrievalService) SearchRelevant(ctx context.Context, botID, query string, maxResults int) ([]domain.RetrievedDocument, error) {
	if botID == "" {
		return nil, fmt.Errorf("%w: bot ID is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	collection := domain.CollectionKeyForBot(botID)
	filter := map[string]string{"bot_id": botID}
	hits, err := s.store.SearchSimilar(ctx, collection, vector, maxResults, filter)
	if err != nil {
		return nil, fmt.Errorf("searching collection: %w", err)
	}

	results := make([]domain.RetrievedDocument, 0, len(hits))
	for _, hit := range hits {
		similarity := domain.NormalizeSimilarity(hit.Distance)
		if similarity < s.threshold {
			continue
		}
		results = append(results, domain.RetrievedDocument{
			Content:    hit.Text,
			Metadata:   hit.Metadata,
			Similarity: similarity,
			Source:     metadataString(hit.Metadata, "source"),
			ChunkIndex: metadataInt(hit.Metadata, "chunk_index"),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// DeleteBotDocuments removes the bot's entire collection, best effort.
func (s *retrievalService) DeleteBotDocuments(ctx context.Context, botID string) bool {
	if botID == "" {
		return false
	}
	deleted := s.store.DeleteCollection(ctx, domain.CollectionKeyForBot(botID))
	if deleted {
		s.logger.Info("collection deleted", "bot_id", botID)
	}
	return deleted
}

// BotDocumentCount returns the number of stored chunks for a bot.
func (s *retrievalService) BotDocumentCount(ctx context.Context, botID string) int {
	if botID == "" {
		return 0
	}
	return s.store.CollectionCount(ctx, domain.CollectionKeyForBot(botID))
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

func metadataInt(metadata map[string]any, key string) int {
	if metadata == nil {
		return 0
	}
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		// JSON round-trips numbers as float64
		return int(v)
	default:
		return 0
	}
}
