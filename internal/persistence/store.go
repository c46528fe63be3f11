// Package persistence provides the string-keyed blob stores that hold the
// serialized collections.
package persistence

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/config"
)

// RecordStore is a string-keyed get/set blob store.
type RecordStore interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close()
}

// ChangeWatcher is implemented by stores shared between processes. Watch blocks
// until ctx is done, calling fn with the key of every write made by another
// process.
type ChangeWatcher interface {
	Watch(ctx context.Context, fn func(key string)) error
}

// changeMessage encodes a write notification as "<origin> <key>".
func changeMessage(origin, key string) string {
	return origin + " " + key
}

// foreignChange decodes a write notification and drops the ones self sent.
func foreignChange(payload, self string) (string, bool) {
	origin, key, found := strings.Cut(payload, " ")
	if !found || origin == self || key == "" {
		return "", false
	}
	return key, true
}

// Open builds the record store selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (RecordStore, error) {
	switch cfg.Store.Backend {
	case "memory", "":
		logger.Info("using in-memory record store")
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis, cfg.Store.Namespace, logger), nil
	case "postgres":
		pg, err := NewPostgresStore(ctx, cfg.Postgres, cfg.Store.Namespace, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.Pool, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return pg, nil
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.SQLite.Path, logger)
	default:
		return nil, fmt.Errorf("unknown record store backend %q", cfg.Store.Backend)
	}
}
