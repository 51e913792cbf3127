package session

import (
	"context"
	"fmt"

	"github.com/comigor/salesdesk/internal/config"
	"github.com/comigor/salesdesk/internal/logger"
)

// Open builds the store selected by cfg.Backend. If the SQLite database
// cannot be opened the service keeps running on the in-memory store.
func Open(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(cfg.TTL), nil
	case config.BackendSQLite:
		s, err := OpenSQLite(cfg.SQLitePath, cfg.TTL)
		if err != nil {
			logger.L.Warn("sqlite session store unavailable; using in-memory sessions", "path", cfg.SQLitePath, "error", err)
			return NewMemoryStore(cfg.TTL), nil
		}
		logger.L.Info("sqlite session store initialized", "path", cfg.SQLitePath)
		return s, nil
	case config.BackendRedis:
		return OpenRedis(ctx, cfg.RedisURL, cfg.TTL)
	default:
		return nil, fmt.Errorf("session: unsupported backend %q", cfg.Backend)
	}
}
