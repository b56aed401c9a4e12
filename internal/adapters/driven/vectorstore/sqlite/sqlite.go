// Package sqlite implements a vector store on an embedded SQLite
// database. Vectors are stored as little-endian float32 blobs and
// scanned with brute-force cosine distance, which is adequate for the
// collection sizes a single bot accumulates.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name      TEXT PRIMARY KEY,
	dimension INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS points (
	id         TEXT PRIMARY KEY,
	collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
	content    TEXT NOT NULL,
	vector     BLOB NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_points_collection ON points(collection);
`

// Store implements driven.VectorStore on a SQLite database file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the database at path and applies the schema.
func New(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path is required", domain.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening sqlite database: %v", domain.ErrStoreUnavailable, err)
	}
	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent ingestion.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: applying schema: %v", domain.ErrStoreUnavailable, err)
	}

	return &Store{db: db, logger: logger.With("component", "sqlite_store")}, nil
}

// AddDocuments inserts points transactionally. The first insert into a
// collection fixes its dimension.
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	dim, err := s.collectionDimension(ctx, tx, collection)
	if err != nil {
		return 0, err
	}
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

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, dimension) VALUES (?, ?)
		 ON CONFLICT(name) DO NOTHING`, collection, dim); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO points (id, collection, content, vector, metadata) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	for i := range texts {
		id := ""
		if ids != nil {
			id = ids[i]
		}
		if id == "" {
			id = uuid.NewString()
		}
		meta, err := json.Marshal(metadatas[i])
		if err != nil {
			return 0, fmt.Errorf("%w: encoding metadata %d: %v", domain.ErrInvalidInput, i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, collection, texts[i], encodeVector(vectors[i]), string(meta)); err != nil {
			return 0, fmt.Errorf("%w: inserting point %d: %v", domain.ErrStoreUnavailable, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return len(texts), nil
}

// SearchSimilar scans the collection and ranks by cosine distance.
func (s *Store) SearchSimilar(ctx context.Context, collection string, vector []float32, k int, filter map[string]string) ([]driven.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}

	var dim int
	err := s.db.QueryRowContext(ctx,
		`SELECT dimension FROM collections WHERE name = ?`, collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query vector has dimension %d, collection expects %d",
			domain.ErrInvalidInput, len(vector), dim)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT content, vector, metadata FROM points WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var hits []driven.SearchHit
	for rows.Next() {
		var content, metaJSON string
		var blob []byte
		if err := rows.Scan(&content, &blob, &metaJSON); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}

		var metadata map[string]any
		if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
			s.logger.Warn("skipping point with corrupt metadata", "collection", collection, "error", err)
			continue
		}
		if !matchesFilter(metadata, filter) {
			continue
		}

		hits = append(hits, driven.SearchHit{
			Text:     content,
			Metadata: metadata,
			Distance: cosineDistance(vector, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteCollection removes the collection row; points cascade.
func (s *Store) DeleteCollection(ctx context.Context, collection string) bool {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, collection)
	if err != nil {
		s.logger.Warn("failed to delete collection", "collection", collection, "error", err)
		return false
	}
	affected, _ := res.RowsAffected()
	return affected > 0
}

// CollectionCount returns the number of points in the collection.
func (s *Store) CollectionCount(ctx context.Context, collection string) int {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points WHERE collection = ?`, collection).Scan(&count)
	if err != nil {
		return 0
	}
	return count
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) collectionDimension(ctx context.Context, tx *sql.Tx, collection string) (int, error) {
	var dim int
	err := tx.QueryRowContext(ctx,
		`SELECT dimension FROM collections WHERE name = ?`, collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return dim, nil
}

// encodeVector packs float32s as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
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

// cosineDistance is 1 minus cosine similarity, in [0, 2]. Zero-norm
// vectors are treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
