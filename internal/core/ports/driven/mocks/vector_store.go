package mocks

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

type storedPoint struct {
	id       string
	vector   []float32
	text     string
	metadata map[string]any
}

// MockVectorStore is an in-memory vector store using brute-force cosine
// distance. Collections are fully isolated from each other.
type MockVectorStore struct {
	mu          sync.RWMutex
	collections map[string][]storedPoint
	dimensions  map[string]int
	failAdd     bool
	failSearch  bool
}

// NewMockVectorStore creates a new MockVectorStore
func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{
		collections: make(map[string][]storedPoint),
		dimensions:  make(map[string]int),
	}
}

func (m *MockVectorStore) AddDocuments(ctx context.Context, collection string, texts []string, vectors [][]float32, metadatas []map[string]any, ids []string) (int, error) {
	if m.failAdd {
		return 0, domain.ErrStoreUnavailable
	}
	if len(texts) != len(vectors) || len(texts) != len(metadatas) {
		return 0, fmt.Errorf("%w: texts/vectors/metadatas length mismatch", domain.ErrInvalidInput)
	}
	if ids != nil && len(ids) != len(texts) {
		return 0, fmt.Errorf("%w: ids length mismatch", domain.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range texts {
		if dim, ok := m.dimensions[collection]; ok {
			if len(vectors[i]) != dim {
				return 0, fmt.Errorf("%w: vector dimension %d does not match collection dimension %d",
					domain.ErrInvalidInput, len(vectors[i]), dim)
			}
		} else {
			m.dimensions[collection] = len(vectors[i])
		}

		id := ""
		if ids != nil {
			id = ids[i]
		} else {
			id = domain.GenerateID()
		}
		m.collections[collection] = append(m.collections[collection], storedPoint{
			id:       id,
			vector:   vectors[i],
			text:     texts[i],
			metadata: metadatas[i],
		})
	}
	return len(texts), nil
}

func (m *MockVectorStore) SearchSimilar(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]driven.SearchHit, error) {
	if m.failSearch {
		return nil, domain.ErrStoreUnavailable
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	points, ok := m.collections[collection]
	if !ok {
		return nil, nil
	}

	var hits []driven.SearchHit
	for _, p := range points {
		if !matchesFilter(p.metadata, filter) {
			continue
		}
		hits = append(hits, driven.SearchHit{
			Text:     p.text,
			Metadata: p.metadata,
			Distance: cosineDistance(vector, p.vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MockVectorStore) DeleteCollection(ctx context.Context, collection string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[collection]; !ok {
		return false
	}
	delete(m.collections, collection)
	delete(m.dimensions, collection)
	return true
}

func (m *MockVectorStore) CollectionCount(ctx context.Context, collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

func (m *MockVectorStore) Close() error {
	return nil
}

// Helper methods for testing

func (m *MockVectorStore) SetFailAdd(fail bool) {
	m.failAdd = fail
}

func (m *MockVectorStore) SetFailSearch(fail bool) {
	m.failSearch = fail
}

func matchesFilter(metadata map[string]any, filter map[string]string) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != want {
			return false
		}
	}
	return true
}

func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
