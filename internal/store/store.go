package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ai_app_server/config"

	"go.uber.org/zap"
)

// DocumentStore is a create-only document collection store.
type DocumentStore interface {
	// Insert writes doc (JSON-encoded) under collection/id.
	Insert(ctx context.Context, collection, id string, doc any) error
	Ping(ctx context.Context) error
	Close() error
}

// ErrDuplicateID is returned by Insert when collection/id already exists.
var ErrDuplicateID = errors.New("document id already exists")

// Open builds the store selected by cfg.StoreDriver. Connections are established lazily.
func Open(cfg config.Config, logger *zap.Logger) (DocumentStore, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, logger), nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
