package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Service is a JSON value cache. Get decodes into dest, which must be a
// pointer. A zero expiration uses the implementation default.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	// DeleteByPattern accepts an exact key or a prefix ending in "*".
	// Literal glob characters must be backslash escaped, see PrefixPattern.
	DeleteByPattern(ctx context.Context, pattern string) error
	Close() error
}
