package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var ErrNotFound = errors.New("storage: key not found")

// Backend stores opaque documents by key.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}

// Collection is a bounded JSON list persisted under one key. It is loaded
// once and rewritten whole on every change.
type Collection[T any] struct {
	backend Backend
	key     string
	limit   int
	logger  *slog.Logger
}

func NewCollection[T any](backend Backend, key string, limit int, logger *slog.Logger) *Collection[T] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Collection[T]{backend: backend, key: key, limit: limit, logger: logger}
}

// Load never fails: missing or corrupt data degrades to an empty list.
func (c *Collection[T]) Load(ctx context.Context) []T {
	data, err := c.backend.Read(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return []T{}
	}
	if err != nil {
		c.logger.Warn("collection load failed", "key", c.key, "err", err)
		return []T{}
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		c.logger.Warn("collection is corrupt, starting empty", "key", c.key, "err", err)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	if c.limit > 0 && len(items) > c.limit {
		items = items[:c.limit]
	}
	return items
}

func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if c.limit > 0 && len(items) > c.limit {
		items = items[:c.limit]
	}
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.key, err)
	}
	if err := c.backend.Write(ctx, c.key, data); err != nil {
		return fmt.Errorf("write %s: %w", c.key, err)
	}
	return nil
}
