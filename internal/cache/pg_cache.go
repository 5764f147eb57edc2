package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrCacheMiss is returned when a key is not found in cache
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheExpired is returned when a cached value has expired
	ErrCacheExpired = errors.New("cache expired")
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PGCache is a key/value cache with TTL stored in the cache_entries table.
// Every key is prefixed with the cache namespace.
type PGCache struct {
	db        DB
	namespace string
	now       func() time.Time
}

// NewPGCache creates a cache whose keys live under namespace.
func NewPGCache(db DB, namespace string) *PGCache {
	return &PGCache{db: db, namespace: namespace, now: time.Now}
}

func (c *PGCache) key(k string) string {
	if c.namespace == "" {
		return k
	}
	return c.namespace + ":" + k
}

// Get retrieves a value from cache by key
func (c *PGCache) Get(ctx context.Context, key string) ([]byte, error) {
	query := `
		SELECT value, expires_at
		FROM cache_entries
		WHERE key = $1
	`

	var value []byte
	var expiresAt time.Time

	err := c.db.QueryRow(ctx, query, c.key(key)).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	if c.now().After(expiresAt) {
		_ = c.Delete(ctx, key)
		return nil, ErrCacheExpired
	}

	return value, nil
}

// Set stores a value in cache with TTL
func (c *PGCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO cache_entries (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    expires_at = EXCLUDED.expires_at
	`

	_, err := c.db.Exec(ctx, query, c.key(key), value, c.now().Add(ttl))
	return err
}

// GetJSON decodes a cached JSON value into dst.
func (c *PGCache) GetJSON(ctx context.Context, key string, dst any) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// SetJSON stores value encoded as JSON.
func (c *PGCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s for cache: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}

// Delete removes a key from cache
func (c *PGCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, c.key(key))
	return err
}

// DeletePrefix removes every key of the namespace that starts with prefix.
func (c *PGCache) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(c.key(prefix))
	result, err := c.db.Exec(ctx, `DELETE FROM cache_entries WHERE key LIKE $1`, escaped+"%")
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// CleanupExpired removes all expired entries
func (c *PGCache) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := c.db.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Janitor periodically purges expired cache entries.
type Janitor struct {
	cache    *PGCache
	logger   *slog.Logger
	interval time.Duration
}

func NewJanitor(cache *PGCache, logger *slog.Logger, interval time.Duration) *Janitor {
	return &Janitor{cache: cache, logger: logger, interval: interval}
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("cache janitor started", "interval", j.interval)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cache janitor stopped")
			return
		case <-ticker.C:
			n, err := j.cache.CleanupExpired(ctx)
			if err != nil {
				j.logger.Warn("failed to purge expired cache entries", "error", err)
				continue
			}
			j.logger.Debug("expired cache entries purged", "count", n)
		}
	}
}
