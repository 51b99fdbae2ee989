// Package cache provides the caching primitives behind glyph resolution.
//
// # Tiered[V]
//
// A three-level integer-keyed cache tuned for glyph codes and code points,
// which are overwhelmingly small and clustered:
//
//   - keys 0..255 live in a dense array (no allocation, no hashing)
//   - keys 256..16383 live in a two-level sparse array whose 128-entry rows
//     are allocated on first write
//   - small negative keys fold to their absolute value in a second sparse
//     array; everything else falls to a lazily created map
//
// The zero value of V means "absent". Owners that need to remember a
// negative answer store a dedicated marker value instead of zero.
//
//	codes := cache.NewTiered(cache.WithSeed[int32](1, 1))
//	codes.Put('A', 36)
//	gid, ok := codes.Get('A')
//
// # ShardedCache[K, V]
//
// A sharded LRU cache for high-concurrency scenarios. Eviction can be
// observed through a hook, which owners use to release resources held by
// evicted values:
//
//	strikes := cache.NewSharded[string, *Strike](8, cache.StringHasher,
//	    cache.WithEvict(func(_ string, s *Strike) { _ = s.Close() }))
//
// # Thread Safety
//
// Both Tiered and ShardedCache are safe for concurrent use.
// Neither should be copied after creation (they contain mutexes).
package cache
