package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driving"
)

// Ensure botService implements BotService
var _ driving.BotService = (*botService)(nil)

// botService implements the BotService interface
type botService struct {
	bots      driven.BotStore
	documents driven.DocumentStore
	retrieval driving.RetrievalService
	logger    *slog.Logger
}

// NewBotService creates a new BotService
func NewBotService(
	bots driven.BotStore,
	documents driven.DocumentStore,
	retrieval driving.RetrievalService,
	logger *slog.Logger,
) driving.BotService {
	if logger == nil {
		logger = slog.Default()
	}
	return &botService{
		bots:      bots,
		documents: documents,
		retrieval: retrieval,
		logger:    logger.With("component", "bots"),
	}
}

// Create creates a new bot
func (s *botService) Create(ctx context.Context, req driving.CreateBotRequest) (*domain.Bot, error) {
	now := time.Now().UTC()
	bot := &domain.Bot{
		ID:           domain.GenerateID(),
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		Instructions: strings.TrimSpace(req.Instructions),
		UseRAG:       req.UseRAG,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := bot.Validate(); err != nil {
		return nil, fmt.Errorf("%w: name and instructions are required", err)
	}

	if err := s.bots.Save(ctx, bot); err != nil {
		return nil, fmt.Errorf("saving bot: %w", err)
	}

	s.logger.Info("bot created", "bot_id", bot.ID, "name", bot.Name)
	return bot, nil
}

// Get retrieves a bot by ID
func (s *botService) Get(ctx context.Context, id string) (*domain.Bot, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.bots.Get(ctx, id)
}

// List retrieves all bots with pagination
func (s *botService) List(ctx context.Context, limit, offset int) ([]*domain.Bot, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.bots.List(ctx, limit, offset)
}

// Delete removes the bot, its document records, and best-effort its
// vector collection.
func (s *botService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}

	// Verify existence first so a missing bot is reported before any
	// cleanup runs
	if _, err := s.bots.Get(ctx, id); err != nil {
		return err
	}

	if err := s.documents.DeleteByBot(ctx, id); err != nil {
		return fmt.Errorf("deleting document records: %w", err)
	}
	if err := s.bots.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting bot: %w", err)
	}

	// Collection cleanup never fails the delete; orphaned collections
	// are unreachable once the bot row is gone
	if !s.retrieval.DeleteBotDocuments(ctx, id) {
		s.logger.Warn("bot collection cleanup incomplete", "bot_id", id)
	}

	s.logger.Info("bot deleted", "bot_id", id)
	return nil
}
