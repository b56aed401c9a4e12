package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.BotStore = (*BotStore)(nil)

// BotStore implements driven.BotStore using PostgreSQL
type BotStore struct {
	db *DB
}

// NewBotStore creates a new BotStore
func NewBotStore(db *DB) *BotStore {
	return &BotStore{db: db}
}

// Save creates or updates a bot
func (s *BotStore) Save(ctx context.Context, bot *domain.Bot) error {
	query := `
		INSERT INTO bots (id, name, description, instructions, use_rag, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			instructions = EXCLUDED.instructions,
			use_rag = EXCLUDED.use_rag,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		bot.ID,
		bot.Name,
		bot.Description,
		bot.Instructions,
		bot.UseRAG,
		bot.CreatedAt,
		bot.UpdatedAt,
	)
	return err
}

// Get retrieves a bot by ID
func (s *BotStore) Get(ctx context.Context, id string) (*domain.Bot, error) {
	query := `
		SELECT id, name, description, instructions, use_rag, created_at, updated_at
		FROM bots
		WHERE id = $1
	`

	bot := &domain.Bot{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&bot.ID,
		&bot.Name,
		&bot.Description,
		&bot.Instructions,
		&bot.UseRAG,
		&bot.CreatedAt,
		&bot.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: bot %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return bot, nil
}

// List retrieves all bots with pagination
func (s *BotStore) List(ctx context.Context, limit, offset int) ([]*domain.Bot, error) {
	query := `
		SELECT id, name, description, instructions, use_rag, created_at, updated_at
		FROM bots
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []*domain.Bot
	for rows.Next() {
		bot := &domain.Bot{}
		if err := rows.Scan(
			&bot.ID,
			&bot.Name,
			&bot.Description,
			&bot.Instructions,
			&bot.UseRAG,
			&bot.CreatedAt,
			&bot.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bots = append(bots, bot)
	}
	return bots, rows.Err()
}

// Delete deletes a bot; document records cascade.
func (s *BotStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: bot %s", domain.ErrNotFound, id)
	}
	return nil
}

// Count returns total bot count
func (s *BotStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bots`).Scan(&count)
	return count, err
}
