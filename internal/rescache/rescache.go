// Package rescache implements the entity resolution cache: an LRU+TTL
// cache keyed by (newName, newType, existingName), backing the AI
// resolver call in the Elements Catalog's merge algorithm so that a given
// candidate/existing pair is never re-resolved within the TTL window.
package rescache

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize and DefaultTTL bound the cache when the caller does not.
const (
	DefaultSize = 1000
	DefaultTTL  = time.Hour
)

// Key identifies a resolution lookup.
type Key struct {
	NewName      string
	NewType      string
	ExistingName string
}

func normalizeKey(k Key) Key {
	return Key{
		NewName:      strings.ToLower(k.NewName),
		NewType:      k.NewType,
		ExistingName: strings.ToLower(k.ExistingName),
	}
}

// Value is a cached resolver verdict.
type Value struct {
	IsMatch    bool
	Confidence float64
	Reasoning  string
	InsertedAt time.Time
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits    int64
	Misses  int64
	HitRate float64
}

// Cache is a thread-safe LRU+TTL cache of resolver verdicts. The hashicorp
// LRU provides capacity-bounded eviction; TTL expiry is layered on top by
// storing InsertedAt in the value and checking it on Get.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache[Key, Value]
	ttl    time.Duration
	hits   int64
	misses int64
}

// New creates a resolution cache. size<=0 and ttl<=0 fall back to the
// spec defaults.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l, _ := lru.New[Key, Value](size) // error only on size<=0, already guarded
	return &Cache{lru: l, ttl: ttl}
}

// Get returns the cached value for key, or (_, false) on miss or expiry.
// An expired entry is evicted eagerly so Stats() and Snapshot() stay honest.
func (c *Cache) Get(key Key) (Value, bool) {
	key = normalizeKey(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return Value{}, false
	}
	if time.Since(v.InsertedAt) > c.ttl {
		c.lru.Remove(key)
		c.misses++
		return Value{}, false
	}
	c.hits++
	return v, true
}

// Put inserts or overwrites key, evicting the LRU entry if the cache is at
// capacity.
func (c *Cache) Put(key Key, v Value) {
	key = normalizeKey(key)
	if v.InsertedAt.IsZero() {
		v.InsertedAt = time.Now().UTC()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, v)
}

// Stats returns cumulative hit/miss counters and hit rate.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	var rate float64
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{Hits: c.hits, Misses: c.misses, HitRate: rate}
}

// Entry pairs a key and value for snapshot/restore persistence.
type Entry struct {
	Key   Key
	Value Value
}

// Snapshot captures all live (non-expired) entries for persistence across
// pipeline invocations.
func (c *Cache) Snapshot() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.lru.Keys()
	out := make([]Entry, 0, len(keys))
	now := time.Now()
	for _, k := range keys {
		v, ok := c.lru.Peek(k)
		if !ok || now.Sub(v.InsertedAt) > c.ttl {
			continue
		}
		out = append(out, Entry{Key: k, Value: v})
	}
	return out
}

// Restore repopulates the cache from a prior Snapshot, skipping entries
// that have since expired.
func (c *Cache) Restore(entries []Entry) {
	now := time.Now()
	for _, e := range entries {
		if now.Sub(e.Value.InsertedAt) > c.ttl {
			continue
		}
		c.Put(e.Key, e.Value)
	}
}
