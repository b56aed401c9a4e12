// Package flatfile implements a zero-dependency vector store that
// persists each collection as a gob-encoded file. Suitable for single
// instance deployments; a second process writing the same directory
// will clobber this one's state.
package flatfile

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*Store)(nil)

// point is the persisted unit. Exported fields for gob.
type point struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]any
}

// collection is the in-memory image of one collection file.
type collection struct {
	mu        sync.RWMutex
	dimension int
	points    []point
}

// Store implements driven.VectorStore on top of per-collection gob
// files under a data directory. Collections are cached in memory after
// first load; every mutation rewrites the collection file.
type Store struct {
	dir    string
	logger *slog.Logger

	mu          sync.Mutex
	collections map[string]*collection
}

// New creates a flatfile store rooted at dir, creating it if needed.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: data directory is required", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating vector store directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:         dir,
		logger:      logger.With("component", "flatfile_store"),
		collections: make(map[string]*collection),
	}, nil
}

// AddDocuments inserts texts with their vectors and metadata, creating
// the collection on first insert.
func (s *Store) AddDocuments(ctx context.Context, name string, texts []string, vectors [][]float32, metadatas []map[string]any, ids []string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	if len(vectors) != len(texts) || len(metadatas) != len(texts) {
		return 0, fmt.Errorf("%w: texts, vectors and metadatas must have equal length", domain.ErrInvalidInput)
	}
	if ids != nil && len(ids) != len(texts) {
		return 0, fmt.Errorf("%w: ids must match texts length", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	coll, err := s.load(name, true)
	if err != nil {
		return 0, err
	}

	coll.mu.Lock()
	defer coll.mu.Unlock()

	dim := coll.dimension
	for i, vec := range vectors {
		if len(vec) == 0 {
			return 0, fmt.Errorf("%w: empty vector at index %d", domain.ErrInvalidInput, i)
		}
		if dim == 0 {
			dim = len(vec)
		} else if len(vec) != dim {
			return 0, fmt.Errorf("%w: vector %d has dimension %d, collection expects %d",
				domain.ErrInvalidInput, i, len(vec), dim)
		}
	}

	staged := make([]point, len(texts))
	for i := range texts {
		id := ""
		if ids != nil {
			id = ids[i]
		}
		if id == "" {
			id = uuid.NewString()
		}
		staged[i] = point{
			ID:       id,
			Text:     texts[i],
			Vector:   vectors[i],
			Metadata: metadatas[i],
		}
	}

	// Persist before exposing the new points so a write failure leaves
	// the in-memory image matching the file.
	next := collectionFile{Dimension: dim, Points: append(append([]point{}, coll.points...), staged...)}
	if err := s.persist(name, next); err != nil {
		return 0, err
	}
	coll.dimension = next.Dimension
	coll.points = next.Points
	return len(texts), nil
}

// SearchSimilar returns the k nearest points by Euclidean distance.
func (s *Store) SearchSimilar(ctx context.Context, name string, vector []float32, k int, filter map[string]string) ([]driven.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coll, err := s.load(name, false)
	if err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	coll.mu.RLock()
	defer coll.mu.RUnlock()

	if coll.dimension != 0 && len(vector) != coll.dimension {
		return nil, fmt.Errorf("%w: query vector has dimension %d, collection expects %d",
			domain.ErrInvalidInput, len(vector), coll.dimension)
	}

	hits := make([]driven.SearchHit, 0, k)
	for _, p := range coll.points {
		if !matchesFilter(p.Metadata, filter) {
			continue
		}
		hits = append(hits, driven.SearchHit{
			Text:     p.Text,
			Metadata: p.Metadata,
			Distance: euclideanDistance(vector, p.Vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteCollection removes the collection file and its cache entry.
func (s *Store) DeleteCollection(ctx context.Context, name string) bool {
	s.mu.Lock()
	_, cached := s.collections[name]
	delete(s.collections, name)
	s.mu.Unlock()

	err := os.Remove(s.path(name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to delete collection file", "collection", name, "error", err)
		}
		return cached
	}
	return true
}

// CollectionCount returns the number of points, or 0 when the
// collection does not exist.
func (s *Store) CollectionCount(ctx context.Context, name string) int {
	coll, err := s.load(name, false)
	if err != nil {
		return 0
	}
	coll.mu.RLock()
	defer coll.mu.RUnlock()
	return len(coll.points)
}

// Close releases the in-memory cache. Files are already durable.
func (s *Store) Close() error {
	s.mu.Lock()
	s.collections = make(map[string]*collection)
	s.mu.Unlock()
	return nil
}

// load returns the cached collection, reading it from disk on first
// access. With create set, a missing collection starts empty; readers
// get domain.ErrCollectionNotFound so they never materialize one.
func (s *Store) load(name string, create bool) (*collection, error) {
	s.mu.Lock()
	if coll, ok := s.collections[name]; ok {
		s.mu.Unlock()
		return coll, nil
	}
	s.mu.Unlock()

	coll := &collection{}
	f, err := os.Open(s.path(name))
	switch {
	case err == nil:
		var file collectionFile
		decodeErr := gob.NewDecoder(f).Decode(&file)
		f.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("%w: decoding collection %s: %v", domain.ErrStoreUnavailable, name, decodeErr)
		}
		coll.dimension = file.Dimension
		coll.points = file.Points
	case errors.Is(err, os.ErrNotExist):
		if !create {
			return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
		}
	default:
		return nil, fmt.Errorf("%w: opening collection %s: %v", domain.ErrStoreUnavailable, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.collections[name]; ok {
		return existing, nil
	}
	s.collections[name] = coll
	return coll, nil
}

// collectionFile is the on-disk layout.
type collectionFile struct {
	Dimension int
	Points    []point
}

// persist rewrites the collection file atomically. Caller holds the
// collection lock.
func (s *Store) persist(name string, file collectionFile) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+sanitize(name)+"-*")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(file); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encoding collection %s: %v", domain.ErrStoreUnavailable, name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, sanitize(name)+".gob")
}

// sanitize keeps collection names filesystem-safe.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}

func matchesFilter(metadata map[string]any, filter map[string]string) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || fmt.Sprintf("%v", got) != want {
			return false
		}
	}
	return true
}

func euclideanDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
