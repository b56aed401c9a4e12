package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
)

// MockBotStore is an in-memory BotStore for testing
type MockBotStore struct {
	mu   sync.RWMutex
	bots map[string]*domain.Bot
}

// NewMockBotStore creates a new MockBotStore
func NewMockBotStore() *MockBotStore {
	return &MockBotStore{bots: make(map[string]*domain.Bot)}
}

func (m *MockBotStore) Save(ctx context.Context, bot *domain.Bot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *bot
	m.bots[bot.ID] = &copied
	return nil
}

func (m *MockBotStore) Get(ctx context.Context, id string) (*domain.Bot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bot, ok := m.bots[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *bot
	return &copied, nil
}

func (m *MockBotStore) List(ctx context.Context, limit, offset int) ([]*domain.Bot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []*domain.Bot
	for _, b := range m.bots {
		copied := *b
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MockBotStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bots[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.bots, id)
	return nil
}

func (m *MockBotStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bots), nil
}

// MockDocumentStore is an in-memory DocumentStore for testing
type MockDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{docs: make(map[string]*domain.Document)}
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *doc
	m.docs[doc.ID] = &copied
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *MockDocumentStore) ListByBot(ctx context.Context, botID string) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Document
	for _, d := range m.docs {
		if d.BotID == botID {
			copied := *d
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockDocumentStore) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	doc.ChunkCount = chunkCount
	return nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MockDocumentStore) DeleteByBot(ctx context.Context, botID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.docs {
		if d.BotID == botID {
			delete(m.docs, id)
		}
	}
	return nil
}

func (m *MockDocumentStore) CountByBot(ctx context.Context, botID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, d := range m.docs {
		if d.BotID == botID {
			count++
		}
	}
	return count, nil
}
