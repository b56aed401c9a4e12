package domain

import (
	"strings"
	"time"
)

// Bot represents a configurable chat assistant owned by a user.
// Each bot has its own document collection in the vector store.
type Bot struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Instructions string    `json:"instructions"`
	UseRAG       bool      `json:"use_rag"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CollectionKey derives the vector-store collection name for a bot.
// The key namespaces one bot's chunks away from every other bot's,
// even when a backend pools collections in one physical store.
func (b *Bot) CollectionKey() string {
	return CollectionKeyForBot(b.ID)
}

// CollectionKeyForBot derives a collection name from a bot ID.
func CollectionKeyForBot(botID string) string {
	return "bot_" + botID
}

// Validate checks that the bot has the minimum required fields.
func (b *Bot) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(b.Instructions) == "" {
		return ErrInvalidInput
	}
	return nil
}
