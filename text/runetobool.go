package text

import "sync"

// RuneToBoolMap is a memory-efficient memo from rune to bool.
// Uses 2 bits per rune: (checked, value).
// Optimized for sparse access patterns in Unicode space.
//
// Each block covers 256 runes (512 bits = 64 bytes).
// Blocks are allocated on-demand only when a rune in that range is stored.
//
// RuneToBoolMap is safe for concurrent use.
// RuneToBoolMap must not be copied after creation (has mutex).
type RuneToBoolMap struct {
	mu     sync.RWMutex
	blocks map[uint32]*block // Keyed by rune >> 8 (256-rune blocks)
}

// block holds 256 runes (512 bits = 64 bytes).
// Each rune uses 2 bits: bit 0 = checked, bit 1 = value.
type block struct {
	bits [8]uint64
}

// NewRuneToBoolMap creates a new rune-to-bool map.
func NewRuneToBoolMap() *RuneToBoolMap {
	return &RuneToBoolMap{
		blocks: make(map[uint32]*block),
	}
}

// bitPos returns the block key, word index and bit offset of r.
func bitPos(r rune) (blockIdx, wordIdx, shift uint32) {
	u := uint32(r) //#nosec G115 -- runes are non-negative here
	bit := (u & 0xFF) * 2
	return u >> 8, bit / 64, bit % 64
}

// Get returns (value, checked).
// If checked is false, the rune hasn't been stored yet.
func (m *RuneToBoolMap) Get(r rune) (value, checked bool) {
	if r < 0 {
		return false, false
	}
	blockIdx, wordIdx, shift := bitPos(r)

	m.mu.RLock()
	b, ok := m.blocks[blockIdx]
	var word uint64
	if ok {
		word = b.bits[wordIdx]
	}
	m.mu.RUnlock()

	return (word>>(shift+1))&1 != 0, (word>>shift)&1 != 0
}

// Set stores value for r and marks r as checked.
// Negative runes are ignored.
func (m *RuneToBoolMap) Set(r rune, value bool) {
	if r < 0 {
		return
	}
	blockIdx, wordIdx, shift := bitPos(r)

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blocks[blockIdx]
	if !ok {
		b = &block{}
		m.blocks[blockIdx] = b
	}
	b.bits[wordIdx] |= 1 << shift
	if value {
		b.bits[wordIdx] |= 1 << (shift + 1)
	} else {
		b.bits[wordIdx] &^= 1 << (shift + 1)
	}
}

// Memo returns the stored value for r, computing and storing it with fn
// on first use.
func (m *RuneToBoolMap) Memo(r rune, fn func(rune) bool) bool {
	if v, ok := m.Get(r); ok {
		return v
	}
	v := fn(r)
	m.Set(r, v)
	return v
}

// Blocks returns the number of allocated blocks.
func (m *RuneToBoolMap) Blocks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}

// Clear removes all entries from the map.
func (m *RuneToBoolMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = make(map[uint32]*block)
}
