package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/loginguard/internal/config"
	"github.com/BradenHooton/loginguard/internal/database"
	"github.com/BradenHooton/loginguard/internal/handlers"
	"github.com/BradenHooton/loginguard/internal/repositories"
)

// attemptStore is the selected backend plus the optional capabilities it has
type attemptStore struct {
	kv      repositories.KeyValueStore
	pinger  handlers.Pinger      // nil when there is nothing remote to probe
	sweeper repositories.Sweeper // nil when the backend expires keys itself
	closeFn func()
}

func (s *attemptStore) Close() {
	if s.closeFn != nil {
		s.closeFn()
	}
}

// openStore builds the attempt store named by STORE_BACKEND
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*attemptStore, error) {
	ttl := cfg.Store.RecordTTL

	switch cfg.Store.Backend {
	case config.StoreMemory:
		store := repositories.NewMemoryStore(ttl)
		logger.Warn("using in-memory attempt store; state is lost on restart and not shared between instances")
		return &attemptStore{kv: store, sweeper: store}, nil

	case config.StoreRedis:
		store, err := repositories.NewRedisStore(ctx, repositories.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      ttl,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return &attemptStore{kv: store, pinger: store, closeFn: func() { _ = store.Close() }}, nil

	case config.StorePostgres:
		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		repo := repositories.NewLoginAttemptRepository(db, ttl)
		return &attemptStore{kv: repo, pinger: repo, sweeper: repo, closeFn: db.Close}, nil

	case config.StoreSQLite:
		store, err := repositories.NewSQLiteStore(ctx, cfg.SQLite.Path, ttl)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return &attemptStore{kv: store, pinger: store, sweeper: store, closeFn: func() { _ = store.Close() }}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
