package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driving"
)

// Ensure chatService implements ChatService
var _ driving.ChatService = (*chatService)(nil)

const maxHistoryMessages = 20

// chatService implements the ChatService interface
type chatService struct {
	bots      driven.BotStore
	retrieval driving.RetrievalService
	llm       driven.LLMService
	logger    *slog.Logger
}

// NewChatService creates a new ChatService
func NewChatService(
	bots driven.BotStore,
	retrieval driving.RetrievalService,
	llm driven.LLMService,
	logger *slog.Logger,
) driving.ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &chatService{
		bots:      bots,
		retrieval: retrieval,
		llm:       llm,
		logger:    logger.With("component", "chat"),
	}
}

// Chat runs one conversation turn. When the bot has retrieval enabled,
// relevant chunks are folded into the system prompt; retrieval failure
// degrades to an un-grounded answer rather than failing the turn.
func (s *chatService) Chat(ctx context.Context, req driving.ChatRequest) (*domain.ChatResponse, error) {
	if req.BotID == "" {
		return nil, fmt.Errorf("%w: bot ID is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}

	bot, err := s.bots.Get(ctx, req.BotID)
	if err != nil {
		return nil, err
	}

	var retrieved []domain.RetrievedDocument
	if bot.UseRAG {
		retrieved, err = s.retrieval.SearchRelevant(ctx, bot.ID, req.Message, 0)
		if err != nil {
			s.logger.Warn("retrieval failed, answering without context",
				"bot_id", bot.ID, "error", err)
			retrieved = nil
		}
	}

	messages := assembleMessages(bot, retrieved, req)

	completion, err := s.llm.ChatCompletion(ctx, messages, driven.ChatOptions{})
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	return &domain.ChatResponse{
		Content:     completion.Content,
		Model:       completion.Model,
		Sources:     uniqueSources(retrieved),
		ContextUsed: len(retrieved) > 0,
	}, nil
}

// assembleMessages builds the conversation sent to the model: system
// prompt (instructions plus context block), bounded history, then the
// user message.
func assembleMessages(bot *domain.Bot, retrieved []domain.RetrievedDocument, req driving.ChatRequest) []domain.ChatMessage {
	var system strings.Builder
	system.WriteString(bot.Instructions)

	if len(retrieved) > 0 {
		system.WriteString("\n\nUse the following context from the knowledge base to answer. ")
		system.WriteString("If the context does not contain the answer, say so instead of guessing.\n")
		for i, doc := range retrieved {
			system.WriteString(fmt.Sprintf("\n[%d] %s (%.0f%% match)\n%s\n",
				i+1, doc.Source, doc.Similarity*100, doc.Content))
		}
	}

	history := req.History
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.ChatRoleSystem,
		Content: system.String(),
	})
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.ChatRoleUser,
		Content: req.Message,
	})
	return messages
}

// uniqueSources collects source names in rank order without duplicates.
func uniqueSources(retrieved []domain.RetrievedDocument) []string {
	seen := make(map[string]bool, len(retrieved))
	sources := make([]string, 0, len(retrieved))
	for _, doc := range retrieved {
		if doc.Source == "" || seen[doc.Source] {
			continue
		}
		seen[doc.Source] = true
		sources = append(sources, doc.Source)
	}
	return sources
}
