package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService implements the DocumentService interface
type documentService struct {
	documents  driven.DocumentStore
	bots       driven.BotStore
	queue      driven.TaskQueue
	extractors driven.ExtractorRegistry
	logger     *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	documents driven.DocumentStore,
	bots driven.BotStore,
	queue driven.TaskQueue,
	extractors driven.ExtractorRegistry,
	logger *slog.Logger,
) driving.DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		documents:  documents,
		bots:       bots,
		queue:      queue,
		extractors: extractors,
		logger:     logger.With("component", "documents"),
	}
}

// Upload persists a document record with status processing and
// enqueues an ingestion task. Ingestion happens in the background; the
// record's status is the only progress signal.
func (s *documentService) Upload(ctx context.Context, req driving.UploadRequest) (*domain.Document, error) {
	if req.BotID == "" || req.FilePath == "" || req.Filename == "" {
		return nil, fmt.Errorf("%w: bot ID, file path and filename are required", domain.ErrInvalidInput)
	}

	// Reject unsupported formats before accepting the upload, so the
	// client learns immediately instead of from a failed record
	if s.extractors.Get(req.ContentType) == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, req.ContentType)
	}

	if _, err := s.bots.Get(ctx, req.BotID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          domain.GenerateID(),
		BotID:       req.BotID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		Status:      domain.DocumentStatusProcessing,
		UploadedAt:  now,
		UpdatedAt:   now,
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document record: %w", err)
	}

	task := domain.NewIngestDocumentTask(req.BotID, doc.ID, req.FilePath, req.Filename, req.ContentType)
	if err := s.queue.Enqueue(ctx, task); err != nil {
		// Without a queued task the record would stay processing forever
		if updErr := s.documents.UpdateStatus(ctx, doc.ID, domain.DocumentStatusFailed, 0); updErr != nil {
			s.logger.Error("failed to mark unqueued document failed",
				"document_id", doc.ID, "error", updErr)
		}
		return nil, fmt.Errorf("enqueueing ingestion: %w", err)
	}

	s.logger.Info("document upload accepted",
		"document_id", doc.ID,
		"bot_id", req.BotID,
		"filename", req.Filename,
	)
	return doc, nil
}

// Get retrieves a document record by ID
func (s *documentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.documents.Get(ctx, id)
}

// ListByBot retrieves all document records for a bot
func (s *documentService) ListByBot(ctx context.Context, botID string) ([]*domain.Document, error) {
	if botID == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.bots.Get(ctx, botID); err != nil {
		return nil, err
	}
	return s.documents.ListByBot(ctx, botID)
}

// Delete removes a document record
func (s *documentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	return s.documents.Delete(ctx, id)
}
