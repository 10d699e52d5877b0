// Package cache keeps the distinct weight sheet date lists in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"weighttracking/internal/domain"
)

// ErrCacheMiss is returned by a KVStore when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

const (
	keyAllDates   = "weighttracking:dates:all"
	keyFinalDates = "weighttracking:dates:final"
	// keyGeneration counts invalidations. It carries no TTL.
	keyGeneration = "weighttracking:dates:gen"
)

// KVStore is the subset of Redis the date cache needs.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// RedisKVStore is a KVStore backed by go-redis.
type RedisKVStore struct {
	client *redis.Client
}

// NewRedisKVStore wraps client.
func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKVStore) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisKVStore) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

// DateCache implements domain.DateCache on a KVStore.
type DateCache struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewDateCache returns a cache whose entries live for ttl.
func NewDateCache(kv KVStore, ttl time.Duration, logger *zap.Logger) *DateCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DateCache{kv: kv, ttl: ttl, logger: logger}
}

// dateKey names the list for one generation, e.g.
// "weighttracking:dates:final:3".
func dateKey(finalOnly bool, gen int64) string {
	base := keyAllDates
	if finalOnly {
		base = keyFinalDates
	}
	return base + ":" + strconv.FormatInt(gen, 10)
}

func (c *DateCache) generation(ctx context.Context) (int64, error) {
	raw, err := c.kv.Get(ctx, keyGeneration)
	if errors.Is(err, ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get cache generation: %w", err)
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad cache generation %q: %w", raw, err)
	}
	return gen, nil
}

// GetDates returns the list cached for the current generation, the
// generation itself and whether the list was present.
func (c *DateCache) GetDates(ctx context.Context, finalOnly bool) ([]domain.Date, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, -1, false, err
	}
	key := dateKey(finalOnly, gen)
	raw, err := c.kv.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("failed to get cached dates: %w", err)
	}
	var dates []domain.Date
	if err := json.Unmarshal([]byte(raw), &dates); err != nil {
		// A corrupt entry counts as a miss; the next SetDates overwrites it.
		c.logger.Warn("Discarding unreadable date cache entry",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, gen, false, nil
	}
	return dates, gen, true, nil
}

// SetDates stores dates for generation gen. Once Invalidate has moved past
// gen the entry is unreachable and simply expires. A negative gen, from a
// failed generation read, stores nothing.
func (c *DateCache) SetDates(ctx context.Context, finalOnly bool, gen int64, dates []domain.Date) error {
	if gen < 0 {
		return nil
	}
	if dates == nil {
		dates = []domain.Date{}
	}
	b, err := json.Marshal(dates)
	if err != nil {
		return fmt.Errorf("failed to marshal dates: %w", err)
	}
	key := dateKey(finalOnly, gen)
	if err := c.kv.Set(ctx, key, string(b), c.ttl); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	c.logger.Debug("Updated date cache",
		zap.String("key", key),
		zap.Int("count", len(dates)),
	)
	return nil
}

// Invalidate starts a new generation, which orphans both lists including any
// write still in flight for the old one.
func (c *DateCache) Invalidate(ctx context.Context) error {
	gen, err := c.kv.Incr(ctx, keyGeneration)
	if err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}
	c.logger.Debug("Invalidated date cache", zap.Int64("generation", gen))
	return nil
}
