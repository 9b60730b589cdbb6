// Package cache provides result caching for DepGraph analysis queries.
//
// Recomputing SCCs or a full impact set on every query is wasteful when
// the graph has not changed, so analysis results are cached per graph
// version. Keys embed the graph version, which makes invalidation a
// version bump away: prior-version keys simply stop being generated and
// age out under LRU pressure or TTL.
//
// Features:
// - LRU eviction for bounded memory
// - TTL expiration for stale results
// - Thread-safe operations
// - Cache hit/miss statistics
//
// Usage:
//
//	c := cache.New[analysis.ImpactResult](1000, 5*time.Minute)
//
//	key := cache.Key(snap.Version(), "impact", id, dir.String())
//	if res, ok := c.Get(key); ok {
//		return res // Cache hit
//	}
//
//	res := computeImpact(...)
//	c.Put(key, res)
package cache

import (
	"encoding/binary"
	"hash/fnv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a thread-safe LRU+TTL cache for one analysis result type.
//
// Storage is an expirable LRU; this wrapper adds hit/miss accounting
// and an enable switch. Zero TTL means entries never expire and only
// LRU pressure evicts them.
type Cache[V any] struct {
	lru     *expirable.LRU[uint64, V]
	maxSize int
	ttl     time.Duration

	enabled atomic.Bool
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// New creates a cache holding at most maxSize entries, each living at
// most ttl (0 = no expiration).
func New[V any](maxSize int, ttl time.Duration) *Cache[V] {
	if maxSize <= 0 {
		maxSize = 1000
	}
	c := &Cache[V]{
		lru:     expirable.NewLRU[uint64, V](maxSize, nil, ttl),
		maxSize: maxSize,
		ttl:     ttl,
	}
	c.enabled.Store(true)
	return c
}

// Key hashes a graph version plus operation parameters into a cache
// key. Same version and same parameters = same key; any version bump
// yields keys disjoint from all earlier ones.
func Key(version uint64, parts ...string) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], version)
	h.Write(buf[:])
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return h.Sum64()
}

// Get retrieves a cached result if present and not expired.
func (c *Cache[V]) Get(key uint64) (V, bool) {
	var zero V
	if !c.enabled.Load() {
		c.misses.Add(1)
		return zero, false
	}
	v, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return v, true
}

// Put adds a result to the cache, evicting the least recently used
// entry if the cache is full.
func (c *Cache[V]) Put(key uint64, value V) {
	if !c.enabled.Load() {
		return
	}
	c.lru.Add(key, value)
}

// Remove drops one entry.
func (c *Cache[V]) Remove(key uint64) {
	c.lru.Remove(key)
}

// Purge removes all entries.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// SetEnabled enables or disables the cache. Disabling also purges it.
func (c *Cache[V]) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
	if !enabled {
		c.lru.Purge()
	}
}

// Stats returns cache performance statistics.
func (c *Cache[V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return Stats{
		Size:    c.lru.Len(),
		MaxSize: c.maxSize,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// Stats holds cache performance statistics.
type Stats struct {
	Size    int     // Current number of entries
	MaxSize int     // Maximum capacity
	Hits    uint64  // Number of cache hits
	Misses  uint64  // Number of cache misses
	HitRate float64 // Hit rate percentage (0-100)
}
