// Package cache keeps fetched worksheets in Redis so that a render does not
// hit the worksheet store for every view.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rpggio/salesportal/internal/domain/sheet"
	"github.com/rpggio/salesportal/internal/repository"
)

const defaultTTL = 10 * time.Minute

// Client is the subset of the Redis client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SheetCache decorates a TabularStore with a read-through Redis cache.
// Successful writes drop the cached worksheet. Redis failures fall back to
// the underlying store.
type SheetCache struct {
	store  repository.TabularStore
	client Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewSheetCache creates a new SheetCache. A non-positive ttl uses the default.
func NewSheetCache(store repository.TabularStore, client Client, prefix string, ttl time.Duration, logger *slog.Logger) *SheetCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &SheetCache{store: store, client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Key returns the Redis key of a worksheet.
func (c *SheetCache) Key(worksheet string) string {
	return fmt.Sprintf("%s:sheet:%s", c.prefix, worksheet)
}

// Fetch returns the cached grid, loading and caching it on a miss.
func (c *SheetCache) Fetch(ctx context.Context, worksheet string) (sheet.Grid, error) {
	key := c.Key(worksheet)
	bs, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var grid sheet.Grid
		if err := json.Unmarshal(bs, &grid); err == nil {
			return grid, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	grid, err := c.store.Fetch(ctx, worksheet)
	if err != nil {
		return sheet.Grid{}, err
	}
	payload, err := json.Marshal(grid)
	if err != nil {
		return grid, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return grid, nil
}

// FindRowByID always reads through to the store; acknowledgements need the
// current row.
func (c *SheetCache) FindRowByID(ctx context.Context, worksheet, idColumn, id string) (*sheet.RowHandle, error) {
	return c.store.FindRowByID(ctx, worksheet, idColumn, id)
}

// WriteCell writes through to the store and invalidates the worksheet.
func (c *SheetCache) WriteCell(ctx context.Context, handle *sheet.RowHandle, column, value string) error {
	if err := c.store.WriteCell(ctx, handle, column, value); err != nil {
		return err
	}
	c.Invalidate(ctx, handle.Worksheet)
	return nil
}

// Invalidate drops the cached copy of worksheet.
func (c *SheetCache) Invalidate(ctx context.Context, worksheet string) {
	if err := c.client.Del(ctx, c.Key(worksheet)).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", "worksheet", worksheet, "error", err)
	}
}
