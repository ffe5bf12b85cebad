package cache

import (
	"time"

	"github.com/creasty/defaults"
)

// RedisConfig holds the L2 connection settings. Zero fields take the
// defaults below.
type RedisConfig struct {
	Host         string        `default:"localhost"`
	Port         int           `default:"6379"`
	Password     string
	DB           int
	PoolSize     int           `default:"10"`
	MinIdleConns int           `default:"2"`
	PoolTimeout  time.Duration `default:"4s"`
	DialTimeout  time.Duration `default:"3s"`
	Prefix       string        `default:"fincast"`
}

// MemoryConfig sizes the in-process cache.
type MemoryConfig struct {
	MaxEntries      int           `default:"1000"`
	CleanupInterval time.Duration `default:"1m"`
	// DefaultTTL applies when Set is called without an expiration.
	DefaultTTL time.Duration `default:"1h"`
}

// LayeredConfig configures the L1 in front of Redis. L1TTL caps how long
// an entry may be served from memory so that other replicas' invalidations
// become visible.
type LayeredConfig struct {
	Memory MemoryConfig
	L1TTL  time.Duration `default:"30s"`
}

func withDefaults[T any](cfg T) T {
	_ = defaults.Set(&cfg)
	return cfg
}
