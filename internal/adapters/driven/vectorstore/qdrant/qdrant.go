// Package qdrant implements a vector store backed by a Qdrant server
// over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*Store)(nil)

// Config holds Qdrant connection configuration
type Config struct {
	// BaseURL is the Qdrant endpoint (e.g., http://localhost:6333)
	BaseURL string

	// APIKey is sent in the api-key header when set
	APIKey string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 15 * time.Second,
	}
}

// Store implements driven.VectorStore using Qdrant. Collections map
// one-to-one onto Qdrant collections with cosine distance.
type Store struct {
	baseURL    string
	apiKey     string
	logger     *slog.Logger
	httpClient *http.Client
}

// New creates a Qdrant-backed vector store.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: qdrant URL is required", domain.ErrInvalidInput)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger.With("component", "qdrant_store"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type searchCondition struct {
	Key   string `json:"key"`
	Match struct {
		Value string `json:"value"`
	} `json:"match"`
}

type searchFilter struct {
	Must []searchCondition `json:"must"`
}

type searchRequest struct {
	Vector      []float32     `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	Filter      *searchFilter `json:"filter,omitempty"`
}

const textPayloadKey = "__text"

// AddDocuments upserts points, creating the collection on first
// insert. The chunk text travels in the payload alongside metadata.
func (s *Store) AddDocuments(ctx context.Context, collection string, texts []string, vectors [][]float32, metadatas []map[string]any, ids []string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	if len(vectors) != len(texts) || len(metadatas) != len(texts) {
		return 0, fmt.Errorf("%w: texts, vectors and metadatas must have equal length", domain.ErrInvalidInput)
	}
	if ids != nil && len(ids) != len(texts) {
		return 0, fmt.Errorf("%w: ids must match texts length", domain.ErrInvalidInput)
	}

	dim := 0
	for i, vec := range vectors {
		if len(vec) == 0 {
			return 0, fmt.Errorf("%w: empty vector at index %d", domain.ErrInvalidInput, i)
		}
		if dim == 0 {
			dim = len(vec)
		} else if len(vec) != dim {
			return 0, fmt.Errorf("%w: vector %d has dimension %d, batch expects %d",
				domain.ErrInvalidInput, i, len(vec), dim)
		}
	}

	if err := s.ensureCollection(ctx, collection, dim); err != nil {
		return 0, err
	}

	points := make([]qdrantPoint, len(texts))
	for i := range texts {
		id := ""
		if ids != nil {
			id = ids[i]
		}
		if id == "" {
			id = uuid.NewString()
		}
		payload := make(map[string]any, len(metadatas[i])+1)
		for k, v := range metadatas[i] {
			payload[k] = v
		}
		payload[textPayloadKey] = texts[i]
		points[i] = qdrantPoint{ID: id, Vector: vectors[i], Payload: payload}
	}

	body := map[string]any{"points": points}
	endpoint := fmt.Sprintf("%s/collections/%s/points?wait=true", s.baseURL, url.PathEscape(collection))
	if err := s.do(ctx, http.MethodPut, endpoint, body, nil); err != nil {
		return 0, fmt.Errorf("%w: upserting points: %v", domain.ErrStoreUnavailable, err)
	}
	return len(texts), nil
}

// SearchSimilar queries nearest neighbors. Qdrant returns a cosine
// similarity score; it is converted to a distance so the orchestrator
// sees the same convention as every other backend.
func (s *Store) SearchSimilar(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]driven.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}

	req := searchRequest{Vector: vector, Limit: k, WithPayload: true}
	if len(filter) > 0 {
		f := &searchFilter{}
		for key, value := range filter {
			cond := searchCondition{Key: key}
			cond.Match.Value = value
			f.Must = append(f.Must, cond)
		}
		req.Filter = f
	}

	var result struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	endpoint := fmt.Sprintf("%s/collections/%s/points/search", s.baseURL, url.PathEscape(collection))
	err := s.do(ctx, http.MethodPost, endpoint, req, &result)
	if err != nil {
		var httpErr *apiError
		if errors.As(err, &httpErr) && httpErr.status == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: searching: %v", domain.ErrStoreUnavailable, err)
	}

	hits := make([]driven.SearchHit, 0, len(result.Result))
	for _, r := range result.Result {
		text, _ := r.Payload[textPayloadKey].(string)
		metadata := make(map[string]any, len(r.Payload))
		for key, value := range r.Payload {
			if key == textPayloadKey {
				continue
			}
			metadata[key] = value
		}
		hits = append(hits, driven.SearchHit{
			Text:     text,
			Metadata: metadata,
			Distance: 1 - r.Score,
		})
	}
	return hits, nil
}

// DeleteCollection drops the Qdrant collection.
func (s *Store) DeleteCollection(ctx context.Context, collection string) bool {
	endpoint := fmt.Sprintf("%s/collections/%s", s.baseURL, url.PathEscape(collection))
	err := s.do(ctx, http.MethodDelete, endpoint, nil, nil)
	if err != nil {
		var httpErr *apiError
		if errors.As(err, &httpErr) && httpErr.status == http.StatusNotFound {
			return false
		}
		s.logger.Warn("failed to delete collection", "collection", collection, "error", err)
		return false
	}
	return true
}

// CollectionCount returns the exact point count, or 0 when the
// collection is missing or the server unreachable.
func (s *Store) CollectionCount(ctx context.Context, collection string) int {
	var result struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	endpoint := fmt.Sprintf("%s/collections/%s/points/count", s.baseURL, url.PathEscape(collection))
	if err := s.do(ctx, http.MethodPost, endpoint, map[string]any{"exact": true}, &result); err != nil {
		return 0
	}
	return result.Result.Count
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// ensureCollection creates the collection if it does not exist yet.
// Creation is idempotent; a conflict from a concurrent creator is fine.
func (s *Store) ensureCollection(ctx context.Context, collection string, dim int) error {
	endpoint := fmt.Sprintf("%s/collections/%s", s.baseURL, url.PathEscape(collection))
	err := s.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err == nil {
		return nil
	}
	var httpErr *apiError
	if !errors.As(err, &httpErr) || httpErr.status != http.StatusNotFound {
		return fmt.Errorf("%w: checking collection: %v", domain.ErrStoreUnavailable, err)
	}

	body := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": "Cosine"},
	}
	err = s.do(ctx, http.MethodPut, endpoint, body, nil)
	if err != nil {
		if errors.As(err, &httpErr) && httpErr.status == http.StatusConflict {
			return nil
		}
		return fmt.Errorf("%w: creating collection: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// apiError carries a non-2xx response for status-based branching.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("qdrant returned status %d: %s", e.status, e.body)
}

// do issues a JSON request and decodes the response into out when
// non-nil.
func (s *Store) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apiError{status: resp.StatusCode, body: strings.TrimSpace(string(respBody))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
