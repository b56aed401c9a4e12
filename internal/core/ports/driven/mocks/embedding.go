package mocks

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

// MockEmbeddingProvider is a deterministic embedding provider for tests.
// It hashes each token into a fixed number of dimensions and normalizes
// the result, so identical or near-identical texts map to near-identical
// vectors and cosine similarity behaves sensibly.
type MockEmbeddingProvider struct {
	dimensions int
	model      string
	failNext   bool
	failAlways bool

	// EmbedCalls and BatchCalls record invocation counts for assertions.
	EmbedCalls int
	BatchCalls int
}

// NewMockEmbeddingProvider creates a new MockEmbeddingProvider
func NewMockEmbeddingProvider() *MockEmbeddingProvider {
	return &MockEmbeddingProvider{
		dimensions: 64,
		model:      "mock-embedding-model",
	}
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	m.EmbedCalls++
	if err := m.maybeFail(); err != nil {
		return nil, err
	}
	return m.generateEmbedding(text), nil
}

func (m *MockEmbeddingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.BatchCalls++
	if err := m.maybeFail(); err != nil {
		return nil, err
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.generateEmbedding(text)
	}
	return result, nil
}

func (m *MockEmbeddingProvider) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingProvider) Model() string {
	return m.model
}

func (m *MockEmbeddingProvider) Close() error {
	return nil
}

func (m *MockEmbeddingProvider) maybeFail() error {
	if m.failAlways {
		return domain.ErrEmbeddingFailed
	}
	if m.failNext {
		m.failNext = false
		return domain.ErrEmbeddingFailed
	}
	return nil
}

// generateEmbedding builds a normalized bag-of-words vector.
func (m *MockEmbeddingProvider) generateEmbedding(text string) []float32 {
	embedding := make([]float32, m.dimensions)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		embedding[h.Sum32()%uint32(m.dimensions)] += 1.0
	}

	var norm float64
	for _, v := range embedding {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range embedding {
			embedding[i] *= scale
		}
	}
	return embedding
}

// Helper methods for testing

func (m *MockEmbeddingProvider) SetFailNext(fail bool) {
	m.failNext = fail
}

func (m *MockEmbeddingProvider) SetFailAlways(fail bool) {
	m.failAlways = fail
}

func (m *MockEmbeddingProvider) SetDimensions(dim int) {
	m.dimensions = dim
}
