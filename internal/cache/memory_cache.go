package cache

import (
	"context"
	"path"
	"sync"
	"sync/atomic"
	"time"
)

type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (i *cacheItem) expired(now time.Time) bool {
	return now.After(i.expiration)
}

// MemoryCache implements Backend with a map guarded by a mutex.
// Expired items are dropped lazily on read and by a periodic sweep.
type MemoryCache struct {
	items     map[string]*cacheItem
	mutex     sync.Mutex
	maxKeys   int
	hits      int64
	misses    int64
	evictions int64
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a memory cache. maxKeys <= 0 means unbounded.
func NewMemoryCache(maxKeys int, cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		items:   make(map[string]*cacheItem),
		maxKeys: maxKeys,
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.startCleanup(cleanupInterval)
	}
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, ok := c.items[key]
	if !ok || item.expired(time.Now()) {
		if ok {
			delete(c.items, key)
		}
		atomic.AddInt64(&c.misses, 1)
		return nil, ErrKeyNotFound
	}
	atomic.AddInt64(&c.hits, 1)
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.items[key]; !exists {
		c.evictIfNeeded()
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.items[key] = &cacheItem{value: stored, expiration: time.Now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	delete(c.items, key)
	c.mutex.Unlock()
	return nil
}

func (c *MemoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key := range c.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.items, key)
		}
	}
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, ok := c.items[key]
	return ok && !item.expired(time.Now()), nil
}

func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mutex.Lock()
		c.items = make(map[string]*cacheItem)
		c.mutex.Unlock()
	})
	return nil
}

func (c *MemoryCache) Stats() Stats {
	c.mutex.Lock()
	keys := int64(len(c.items))
	c.mutex.Unlock()
	return Stats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Keys:      keys,
		Evictions: atomic.LoadInt64(&c.evictions),
	}
}

func (c *MemoryCache) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.done:
			return
		}
	}
}

func (c *MemoryCache) cleanupExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := time.Now()
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
		}
	}
}

// evictIfNeeded makes room for one more key: expired items go first, then
// the item closest to expiry. Caller holds the mutex.
func (c *MemoryCache) evictIfNeeded() {
	if c.maxKeys <= 0 || len(c.items) < c.maxKeys {
		return
	}
	now := time.Now()
	var victim string
	var soonest time.Time
	for key, item := range c.items {
		if item.expired(now) {
			delete(c.items, key)
			atomic.AddInt64(&c.evictions, 1)
			continue
		}
		if victim == "" || item.expiration.Before(soonest) {
			victim, soonest = key, item.expiration
		}
	}
	if len(c.items) >= c.maxKeys && victim != "" {
		delete(c.items, victim)
		atomic.AddInt64(&c.evictions, 1)
	}
}
