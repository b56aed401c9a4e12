// Package vectorstore selects a concrete vector store backend from
// configuration.
package vectorstore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/botdock-labs/botdock-core/internal/adapters/driven/vectorstore/flatfile"
	"github.com/botdock-labs/botdock-core/internal/adapters/driven/vectorstore/qdrant"
	"github.com/botdock-labs/botdock-core/internal/adapters/driven/vectorstore/sqlite"
	"github.com/botdock-labs/botdock-core/internal/config"
	"github.com/botdock-labs/botdock-core/internal/core/domain"
	"github.com/botdock-labs/botdock-core/internal/core/ports/driven"
)

// New builds the vector store backend selected by the configuration.
func New(cfg config.VectorStoreConfig, logger *slog.Logger) (driven.VectorStore, error) {
	switch cfg.Backend {
	case config.StoreFlatfile:
		return flatfile.New(cfg.Dir, logger)
	case config.StoreSQLite:
		return sqlite.New(cfg.Path, logger)
	case config.StoreQdrant:
		qc := cfg.Qdrant
		if qc == nil {
			return nil, fmt.Errorf("%w: qdrant configuration missing", domain.ErrInvalidInput)
		}
		return qdrant.New(qdrant.Config{
			BaseURL: qc.URL,
			APIKey:  qc.APIKey,
			Timeout: time.Duration(qc.TimeoutSecs) * time.Second,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: unknown vector store backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}
