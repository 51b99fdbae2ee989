package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Default configuration constants.
const (
	// DefaultShardCount is the number of shards for reduced lock contention.
	// Must be a power of 2 for fast modulo via bitwise AND.
	DefaultShardCount = 16

	// DefaultCapacity is the default maximum entries per shard.
	DefaultCapacity = 256

	shardMask = DefaultShardCount - 1
)

// Hasher is a function that computes a hash for a key.
// Used by ShardedCache for shard selection.
type Hasher[K any] func(K) uint64

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// IntHasher mixes an int key with FNV-1a.
func IntHasher(i int) uint64 {
	return Uint64Hasher(uint64(i)) //#nosec G115 -- hash only
}

// Uint64Hasher computes the FNV-1a hash of the key's eight bytes.
func Uint64Hasher(u uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(u >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// ShardedOption configures ShardedCache creation.
type ShardedOption[K comparable, V any] func(*ShardedCache[K, V])

// WithEvict registers fn to be called for every entry that leaves the
// cache through capacity eviction, Delete or Clear. fn runs after the
// shard lock is released, so it may block or call back into the cache.
func WithEvict[K comparable, V any](fn func(K, V)) ShardedOption[K, V] {
	return func(c *ShardedCache[K, V]) {
		c.onEvict = fn
	}
}

// ShardedCache is a thread-safe, sharded LRU cache.
//
// Features:
//   - 16 shards for reduced lock contention
//   - LRU eviction with configurable capacity per shard
//   - an eviction hook for releasing resources held by values
//   - atomic statistics for monitoring
type ShardedCache[K comparable, V any] struct {
	shards   [DefaultShardCount]*shard[K, V]
	hasher   Hasher[K]
	capacity int // per shard
	onEvict  func(K, V)

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// shard is a single shard of the cache with its own mutex.
type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*shardEntry[K, V]
	lru     *lruList[K]
}

type shardEntry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// evicted is a key/value pair removed under a shard lock and reported to
// the eviction hook after the lock is released.
type evicted[K comparable, V any] struct {
	key   K
	value V
}

// NewSharded creates a new sharded cache with the specified capacity per shard.
// Total capacity is approximately capacity * DefaultShardCount.
//
// If capacity <= 0, DefaultCapacity is used.
func NewSharded[K comparable, V any](capacity int, hasher Hasher[K], opts ...ShardedOption[K, V]) *ShardedCache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &ShardedCache[K, V]{
		hasher:   hasher,
		capacity: capacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	for i := range c.shards {
		c.shards[i] = &shard[K, V]{
			entries: make(map[K]*shardEntry[K, V]),
			lru:     newLRUList[K](),
		}
	}
	return c
}

func (c *ShardedCache[K, V]) getShard(key K) *shard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

// Get retrieves a cached value by key and marks it most recently used.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *ShardedCache[K, V]) Get(key K) (V, bool) {
	s := c.getShard(key)

	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	s.lru.MoveToFront(entry.node)
	value := entry.value
	s.mu.Unlock()

	c.hits.Add(1)
	return value, true
}

// Set stores a value in the cache, evicting the oldest entries of the
// shard when it is at capacity. Replacing the value of an existing key
// does not invoke the eviction hook.
func (c *ShardedCache[K, V]) Set(key K, value V) {
	s := c.getShard(key)

	s.mu.Lock()
	var out []evicted[K, V]
	if existing, ok := s.entries[key]; ok {
		existing.value = value
		s.lru.MoveToFront(existing.node)
	} else {
		out = c.insert(s, key, value)
	}
	s.mu.Unlock()

	c.report(out)
}

// GetOrCreate returns a cached value or creates it with create.
// create runs with the shard lock held, which prevents duplicate creation
// for the same key; keep it fast.
func (c *ShardedCache[K, V]) GetOrCreate(key K, create func() V) V {
	v, _ := c.GetOrTryCreate(key, func() (V, error) { return create(), nil })
	return v
}

// GetOrTryCreate is GetOrCreate for constructors that can fail.
// A failed create stores nothing and returns the error.
func (c *ShardedCache[K, V]) GetOrTryCreate(key K, create func() (V, error)) (V, error) {
	s := c.getShard(key)

	s.mu.Lock()
	if entry, ok := s.entries[key]; ok {
		s.lru.MoveToFront(entry.node)
		value := entry.value
		s.mu.Unlock()
		c.hits.Add(1)
		return value, nil
	}
	c.misses.Add(1)

	value, err := create()
	if err != nil {
		s.mu.Unlock()
		var zero V
		return zero, err
	}
	out := c.insert(s, key, value)
	s.mu.Unlock()

	c.report(out)
	return value, nil
}

// Delete removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *ShardedCache[K, V]) Delete(key K) bool {
	s := c.getShard(key)

	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.lru.Remove(entry.node)
	delete(s.entries, key)
	s.mu.Unlock()

	c.report([]evicted[K, V]{{key, entry.value}})
	return true
}

// Clear removes all entries from the cache, reporting each to the
// eviction hook.
func (c *ShardedCache[K, V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		out := make([]evicted[K, V], 0, len(s.entries))
		for k, e := range s.entries {
			out = append(out, evicted[K, V]{k, e.value})
		}
		s.entries = make(map[K]*shardEntry[K, V])
		s.lru.Clear()
		s.mu.Unlock()

		c.report(out)
	}
}

// Len returns the total number of entries across all shards.
func (c *ShardedCache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// Capacity returns the per-shard capacity.
func (c *ShardedCache[K, V]) Capacity() int {
	return c.capacity
}

// Stats returns current cache statistics.
func (c *ShardedCache[K, V]) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Len:           c.Len(),
		Capacity:      c.capacity,
		TotalCapacity: c.capacity * DefaultShardCount,
		Hits:          hits,
		Misses:        misses,
		HitRate:       hitRate,
		Evictions:     c.evictions.Load(),
	}
}

// ResetStats resets all statistics counters to zero.
func (c *ShardedCache[K, V]) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// insert adds a new entry, evicting the oldest entries while the shard is
// at capacity. Caller must hold s.mu.
func (c *ShardedCache[K, V]) insert(s *shard[K, V], key K, value V) []evicted[K, V] {
	var out []evicted[K, V]
	for s.lru.Len() >= c.capacity {
		oldest, ok := s.lru.RemoveOldest()
		if !ok {
			break
		}
		if e, ok := s.entries[oldest]; ok {
			out = append(out, evicted[K, V]{oldest, e.value})
		}
		delete(s.entries, oldest)
		c.evictions.Add(1)
	}
	s.entries[key] = &shardEntry[K, V]{
		value: value,
		node:  s.lru.PushFront(key),
	}
	return out
}

// report hands removed values to the eviction hook. Must be called
// without any shard lock held.
func (c *ShardedCache[K, V]) report(out []evicted[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range out {
		c.onEvict(e.key, e.value)
	}
}

// Stats contains ShardedCache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the per-shard capacity.
	Capacity int
	// TotalCapacity is the total capacity across all shards.
	TotalCapacity int
	// Hits is the number of cache hits.
	Hits uint64
	// Misses is the number of cache misses.
	Misses uint64
	// HitRate is the cache hit rate 0.0 to 1.0.
	HitRate float64
	// Evictions is the number of entries evicted for capacity.
	Evictions uint64
}
