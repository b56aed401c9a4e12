package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save creates or updates a document record
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, bot_id, filename, content_type, size_bytes, status, chunk_count, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			content_type = EXCLUDED.content_type,
			size_bytes = EXCLUDED.size_bytes,
			status = EXCLUDED.status,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.BotID,
		doc.Filename,
		doc.ContentType,
		doc.SizeBytes,
		doc.Status,
		doc.ChunkCount,
		doc.UploadedAt,
		doc.UpdatedAt,
	)
	return err
}

// Get retrieves a document record by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	query := `
		SELECT id, bot_id, filename, content_type, size_bytes, status, chunk_count, uploaded_at, updated_at
		FROM documents
		WHERE id = $1
	`

	doc := &domain.Document{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.BotID,
		&doc.Filename,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.Status,
		&doc.ChunkCount,
		&doc.UploadedAt,
		&doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListByBot retrieves all document records for a bot, newest first
func (s *DocumentStore) ListByBot(ctx context.Context, botID string) ([]*domain.Document, error) {
	query := `
		SELECT id, bot_id, filename, content_type, size_bytes, status, chunk_count, uploaded_at, updated_at
		FROM documents
		WHERE bot_id = $1
		ORDER BY uploaded_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc := &domain.Document{}
		if err := rows.Scan(
			&doc.ID,
			&doc.BotID,
			&doc.Filename,
			&doc.ContentType,
			&doc.SizeBytes,
			&doc.Status,
			&doc.ChunkCount,
			&doc.UploadedAt,
			&doc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateStatus transitions a document's ingestion status
func (s *DocumentStore) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount int) error {
	query := `
		UPDATE documents
		SET status = $2, chunk_count = $3, updated_at = $4
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query, id, status, chunkCount, time.Now().UTC())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return nil
}

// Delete deletes a document record
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return nil
}

// DeleteByBot deletes all document records for a bot
func (s *DocumentStore) DeleteByBot(ctx context.Context, botID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE bot_id = $1`, botID)
	return err
}

// CountByBot returns document record count for a bot
func (s *DocumentStore) CountByBot(ctx context.Context, botID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE bot_id = $1`, botID).Scan(&count)
	return count, err
}
