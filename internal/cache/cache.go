// Package cache is a keyed store for expensive derived results. Entries
// expire lazily after a TTL, capacity is bounded with oldest-insertion
// eviction, and every entry is written through to a durable Store so it
// survives restarts. Values cross the boundary as JSON, so callers always
// get their own copy.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Options configure one cache instance.
type Options struct {
	TTL        time.Duration
	MaxEntries int
}

type entry struct {
	createdAt time.Time
	value     json.RawMessage
}

// Cache is safe for concurrent use. Construct one at process start and pass
// it to every consumer; there is no package-level instance.
type Cache struct {
	mu      sync.Mutex
	opts    Options
	store   Store
	entries map[string]entry

	now func() time.Time // overridable in tests
}

// New loads surviving records from the store into memory. Records that fail
// to decode are deleted and skipped.
func New(store Store, opts Options) (*Cache, error) {
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("cache: TTL must be positive, got %v", opts.TTL)
	}
	if opts.MaxEntries <= 0 {
		return nil, fmt.Errorf("cache: MaxEntries must be positive, got %d", opts.MaxEntries)
	}

	c := &Cache{
		opts:    opts,
		store:   store,
		entries: make(map[string]entry),
		now:     time.Now,
	}

	keys, err := store.Keys()
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		rec, err := store.Read(key)
		if err != nil {
			store.Delete(key)
			continue
		}
		c.entries[key] = entry{createdAt: rec.CreatedAt, value: rec.Value}
	}
	return c, nil
}

// Get returns the raw value for key, or false on a miss. An entry older than
// the TTL counts as a miss and is removed, both in memory and in the store.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	return c.GetWithTTL(key, c.opts.TTL)
}

// GetWithTTL is Get with a per-call expiry override.
func (c *Cache) GetWithTTL(key string, ttl time.Duration) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		// the record may still exist durably from a previous process
		rec, err := c.store.Read(key)
		if errors.Is(err, ErrNotFound) {
			return nil, false
		}
		if err != nil {
			c.store.Delete(key)
			return nil, false
		}
		e = entry{createdAt: rec.CreatedAt, value: rec.Value}
		c.entries[key] = e
	}

	if c.now().Sub(e.createdAt) > ttl {
		delete(c.entries, key)
		c.store.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with createdAt = now. When inserting a new key
// would exceed MaxEntries, the entry with the globally smallest createdAt is
// evicted first. Eviction and insert happen under one lock, so concurrent
// Sets never double-evict.
func (c *Cache) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal value for %q: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.opts.MaxEntries {
		c.evictOldestLocked()
	}

	e := entry{createdAt: c.now(), value: raw}
	c.entries[key] = e
	if err := c.store.Write(Record{Key: key, CreatedAt: e.createdAt, Value: raw}); err != nil {
		return err
	}
	return nil
}

// Delete removes an entry everywhere.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.store.Delete(key)
}

// Len reports the number of live in-memory entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.store.Delete(oldestKey)
	}
}

// Cached returns the value under key when present and fresh, otherwise calls
// producer, stores the result and returns it. Producer errors are returned
// without touching the cache.
func Cached[T any](c *Cache, key string, ttl time.Duration, producer func() (T, error)) (T, error) {
	if raw, ok := c.GetWithTTL(key, ttl); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		// stored shape no longer matches the requested type
		c.Delete(key)
	}

	v, err := producer()
	if err != nil {
		return v, err
	}
	if err := c.Set(key, v); err != nil {
		return v, err
	}
	return v, nil
}
