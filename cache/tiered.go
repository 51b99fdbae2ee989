package cache

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/glyphmap"
)

// Tier boundaries of Tiered.
const (
	// DenseSize is the number of keys served by the dense array (0..255).
	DenseSize = 256

	// SparseSize bounds the keys served by the sparse arrays. Non-negative
	// keys in [DenseSize, SparseSize) and negative keys in (-SparseSize, 0)
	// use a sparse array; all other keys use the general map.
	SparseSize = 16384

	// sparseShift splits a sparse key into row (key >> 7) and column.
	sparseShift = 7

	sparseRowLen = 1 << sparseShift          // 128
	sparseRows   = SparseSize >> sparseShift // 128
)

// Tier identifies the storage layer a key maps to.
type Tier int

const (
	// TierDense is the fixed-size array for keys 0..255.
	TierDense Tier = iota
	// TierSparse is the two-level array for keys 256..16383.
	TierSparse
	// TierNegative is the two-level array for keys -16383..-1.
	TierNegative
	// TierGeneral is the map for every other key.
	TierGeneral
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierDense:
		return "dense"
	case TierSparse:
		return "sparse"
	case TierNegative:
		return "negative"
	case TierGeneral:
		return "general"
	default:
		return "unknown"
	}
}

// TierOf returns the tier that stores key.
func TierOf(key int32) Tier {
	switch {
	case key >= 0 && key < DenseSize:
		return TierDense
	case key >= 0 && key < SparseSize:
		return TierSparse
	case key < 0 && key > -SparseSize:
		return TierNegative
	default:
		return TierGeneral
	}
}

// sparseArray is a two-level array of 128 rows by 128 columns.
// A nil row means no entry in that row has been written.
type sparseArray[V comparable] struct {
	rows      [sparseRows]*[sparseRowLen]V
	allocated int
}

// get is safe on a nil receiver.
func (a *sparseArray[V]) get(k int32) V {
	var zero V
	if a == nil {
		return zero
	}
	row := a.rows[k>>sparseShift]
	if row == nil {
		return zero
	}
	return (*row)[k-(k>>sparseShift)*sparseRowLen]
}

func (a *sparseArray[V]) set(k int32, v V) (old V) {
	outer := k >> sparseShift
	row := a.rows[outer]
	if row == nil {
		var zero V
		if v == zero {
			return zero
		}
		row = new([sparseRowLen]V)
		a.rows[outer] = row
		a.allocated++
		glyphmap.Logger().Debug("cache: sparse row allocated",
			"first", outer*sparseRowLen, "rows", a.allocated)
	}
	inner := k - outer*sparseRowLen
	old = (*row)[inner]
	(*row)[inner] = v
	return old
}

// TieredOption configures Tiered creation.
type TieredOption[V comparable] func(*Tiered[V])

// WithSeed stores v under key when the cache is created.
// Seeded entries behave exactly like entries written with Put.
func WithSeed[V comparable](key int32, v V) TieredOption[V] {
	return func(c *Tiered[V]) {
		c.put(key, v)
	}
}

// Tiered is an integer-keyed cache with a dense, a sparse and a general
// tier. See the package documentation for the key layout.
//
// The zero value of V is the absent value: Get reports false for it and
// Put with the zero value removes the entry.
//
// Tiered is safe for concurrent use. All accesses are serialized by one
// mutex; Update holds that mutex across a caller-supplied function.
// Tiered must not be copied after creation (has mutex).
type Tiered[V comparable] struct {
	mu sync.Mutex

	dense    [DenseSize]V
	sparse   *sparseArray[V]
	negative *sparseArray[V]
	general  map[int32]V

	// entries counts present values per tier.
	entries [4]int

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewTiered creates an empty tiered cache. The sparse and general tiers are
// allocated on first write.
func NewTiered[V comparable](opts ...TieredOption[V]) *Tiered[V] {
	c := &Tiered[V]{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key.
// Returns (zero, false) if the key is absent.
func (c *Tiered[V]) Get(key int32) (V, bool) {
	c.mu.Lock()
	v, ok := c.get(key)
	c.mu.Unlock()
	return v, ok
}

// Put stores v under key. Putting the zero value removes the entry.
func (c *Tiered[V]) Put(key int32, v V) {
	c.mu.Lock()
	c.put(key, v)
	c.mu.Unlock()
}

// Txn is an accessor handed to Update. Its methods run without further
// locking and must not be used after Update returns.
type Txn[V comparable] struct {
	c *Tiered[V]
}

// Get returns the value stored under key.
func (tx Txn[V]) Get(key int32) (V, bool) { return tx.c.get(key) }

// Put stores v under key.
func (tx Txn[V]) Put(key int32, v V) { tx.c.put(key, v) }

// Update runs fn with the cache lock held. Other goroutines block on
// Get and Put until fn returns, so every read and write inside fn is
// atomic with respect to them.
func (c *Tiered[V]) Update(fn func(tx Txn[V])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(Txn[V]{c: c})
}

// Drain calls fn for every stored entry and then empties the cache.
// fn runs with the cache lock held and must not call back into c.
// Drain is meant for the owner's Close path.
func (c *Tiered[V]) Drain(fn func(key int32, v V)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	if fn != nil {
		for i, v := range c.dense {
			if v != zero {
				fn(int32(i), v)
			}
		}
		c.sparse.each(1, fn)
		c.negative.each(-1, fn)
		for k, v := range c.general {
			fn(k, v)
		}
	}

	c.dense = [DenseSize]V{}
	c.sparse = nil
	c.negative = nil
	c.general = nil
	c.entries = [4]int{}
}

// Len returns the number of stored entries.
func (c *Tiered[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		n += e
	}
	return n
}

// TieredStats holds statistics for a Tiered cache.
type TieredStats struct {
	// Hits and Misses count Get and Txn.Get lookups.
	Hits   uint64
	Misses uint64

	// Entries per tier.
	Dense, Sparse, Negative, General int

	// SparseRows is the number of allocated rows across both sparse arrays.
	SparseRows int
}

// HitRate returns the hit rate 0.0 to 1.0, or 0 with no lookups.
func (s TieredStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns current cache statistics.
func (c *Tiered[V]) Stats() TieredStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := TieredStats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Dense:    c.entries[TierDense],
		Sparse:   c.entries[TierSparse],
		Negative: c.entries[TierNegative],
		General:  c.entries[TierGeneral],
	}
	if c.sparse != nil {
		s.SparseRows += c.sparse.allocated
	}
	if c.negative != nil {
		s.SparseRows += c.negative.allocated
	}
	return s
}

// get looks up key. Caller must hold c.mu.
func (c *Tiered[V]) get(key int32) (V, bool) {
	var v, zero V
	switch TierOf(key) {
	case TierDense:
		v = c.dense[key]
	case TierSparse:
		v = c.sparse.get(key)
	case TierNegative:
		v = c.negative.get(-key)
	default:
		if c.general != nil {
			v = c.general[key]
		}
	}
	if v == zero {
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return v, true
}

// put stores v under key. Caller must hold c.mu.
func (c *Tiered[V]) put(key int32, v V) {
	var old, zero V
	tier := TierOf(key)
	switch tier {
	case TierDense:
		old = c.dense[key]
		c.dense[key] = v
	case TierSparse:
		if c.sparse == nil {
			if v == zero {
				return
			}
			c.sparse = &sparseArray[V]{}
		}
		old = c.sparse.set(key, v)
	case TierNegative:
		if c.negative == nil {
			if v == zero {
				return
			}
			c.negative = &sparseArray[V]{}
		}
		old = c.negative.set(-key, v)
	default:
		if c.general == nil {
			if v == zero {
				return
			}
			c.general = make(map[int32]V)
		}
		old = c.general[key]
		if v == zero {
			delete(c.general, key)
		} else {
			c.general[key] = v
		}
	}

	switch {
	case old == zero && v != zero:
		c.entries[tier]++
	case old != zero && v == zero:
		c.entries[tier]--
	}
}

// each calls fn for every present entry, multiplying folded keys by sign.
// Safe on a nil receiver.
func (a *sparseArray[V]) each(sign int32, fn func(int32, V)) {
	if a == nil {
		return
	}
	var zero V
	for r, row := range a.rows {
		if row == nil {
			continue
		}
		for i, v := range row {
			if v != zero {
				fn(sign*(int32(r)*sparseRowLen+int32(i)), v)
			}
		}
	}
}
