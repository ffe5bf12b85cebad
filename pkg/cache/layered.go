package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache reads through an in-process L1 to an optional Redis L2 and
// writes through both. With a nil L2 it is a plain memory cache.
type LayeredCache struct {
	l1    *MemoryCache
	l2    *RedisCache
	l1TTL time.Duration
}

func NewLayeredCache(l2 *RedisCache, cfg LayeredConfig) *LayeredCache {
	cfg = withDefaults(cfg)
	return &LayeredCache{
		l1:    NewMemoryCache(cfg.Memory),
		l2:    l2,
		l1TTL: cfg.L1TTL,
	}
}

// memoryTTL bounds L1 lifetime only when an L2 exists to fall back on.
func (lc *LayeredCache) memoryTTL(expiration time.Duration) time.Duration {
	if lc.l2 == nil || lc.l1TTL <= 0 {
		return expiration
	}
	if expiration <= 0 || expiration > lc.l1TTL {
		return lc.l1TTL
	}
	return expiration
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if lc.l2 != nil {
		if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return lc.l1.Set(ctx, key, value, lc.memoryTTL(expiration))
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := lc.l1.Get(ctx, key, dest)
	if err == nil || !errors.Is(err, ErrCacheMiss) || lc.l2 == nil {
		return err
	}
	if err := lc.l2.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, dest, lc.memoryTTL(0))
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	if lc.l2 == nil {
		return nil
	}
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = lc.l1.DeleteByPattern(ctx, pattern)
	if lc.l2 == nil {
		return nil
	}
	return lc.l2.DeleteByPattern(ctx, pattern)
}

// Health reports the L2 state; a memory-only cache is always healthy.
func (lc *LayeredCache) Health(ctx context.Context) error {
	if lc.l2 == nil {
		return nil
	}
	return lc.l2.Health(ctx)
}

func (lc *LayeredCache) Close() error {
	_ = lc.l1.Close()
	if lc.l2 == nil {
		return nil
	}
	return lc.l2.Close()
}

var (
	_ Service = (*MemoryCache)(nil)
	_ Service = (*RedisCache)(nil)
	_ Service = (*LayeredCache)(nil)
)
