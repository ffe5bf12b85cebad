package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	key      string
	value    []byte
	expireAt time.Time
}

// MemoryCache is a size-bounded LRU of JSON encoded values with per-entry
// expiry.
type MemoryCache struct {
	cfg     MemoryConfig
	mu      sync.Mutex
	items   map[string]*list.Element
	lru     *list.List // front is most recently used
	now     func() time.Time
	done    chan struct{}
	closing sync.Once
}

func NewMemoryCache(cfg MemoryConfig) *MemoryCache {
	return newMemoryCache(cfg, time.Now)
}

func newMemoryCache(cfg MemoryConfig, now func() time.Time) *MemoryCache {
	mc := &MemoryCache{
		cfg:   withDefaults(cfg),
		items: make(map[string]*list.Element),
		lru:   list.New(),
		now:   now,
		done:  make(chan struct{}),
	}
	go mc.janitor()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = mc.cfg.DefaultTTL
	}
	expireAt := mc.now().Add(expiration)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if el, ok := mc.items[key]; ok {
		e := el.Value.(*memoryEntry)
		e.value, e.expireAt = data, expireAt
		mc.lru.MoveToFront(el)
		return nil
	}
	for mc.lru.Len() >= mc.cfg.MaxEntries {
		mc.removeElement(mc.lru.Back())
	}
	mc.items[key] = mc.lru.PushFront(&memoryEntry{key: key, value: data, expireAt: expireAt})
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	el, ok := mc.items[key]
	if !ok {
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	e := el.Value.(*memoryEntry)
	if !mc.now().Before(e.expireAt) {
		mc.removeElement(el)
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	mc.lru.MoveToFront(el)
	data := e.value
	mc.mu.Unlock()

	return json.Unmarshal(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		if el, ok := mc.items[k]; ok {
			mc.removeElement(el)
		}
	}
	return nil
}

// DeleteByPattern supports exact keys and trailing "*" prefix patterns,
// with backslash escapes as in Redis MATCH.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	literal, prefix := parsePattern(pattern)

	mc.mu.Lock()
	defer mc.mu.Unlock()
	for k, el := range mc.items {
		if k == literal || (prefix && strings.HasPrefix(k, literal)) {
			mc.removeElement(el)
		}
	}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.lru.Len()
}

// removeElement requires mc.mu.
func (mc *MemoryCache) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	mc.lru.Remove(el)
	delete(mc.items, el.Value.(*memoryEntry).key)
}

func (mc *MemoryCache) janitor() {
	ticker := time.NewTicker(mc.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-mc.done:
			return
		case <-ticker.C:
			mc.purgeExpired()
		}
	}
}

func (mc *MemoryCache) purgeExpired() {
	now := mc.now()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for el := mc.lru.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*memoryEntry).expireAt) {
			mc.removeElement(el)
		}
		el = prev
	}
}

// Close stops the janitor.
func (mc *MemoryCache) Close() error {
	mc.closing.Do(func() { close(mc.done) })
	return nil
}
