package text

import (
	"errors"
	"math"
	"sync"

	"github.com/gogpu/glyphmap"
	"github.com/gogpu/glyphmap/cache"
)

// compositeKnownMissing is the cached form of a code point no component
// can display.
const compositeKnownMissing CompositeGlyphCode = math.MinInt32

// ComponentFunc loads the resolver of one composite component.
// It is called at most once, on first use of the component.
type ComponentFunc func() (Resolver, error)

// Component returns a ComponentFunc for an already loaded resolver.
func Component(r Resolver) ComponentFunc {
	return func() (Resolver, error) { return r, nil }
}

// slotState is the load state of a composite component.
type slotState uint8

const (
	slotUninitialized slotState = iota
	slotReady
	slotFailed
)

// compositeSlot lazily loads and memoizes one component.
type compositeSlot struct {
	mu       sync.Mutex
	state    slotState
	load     ComponentFunc
	resolver Resolver
}

// get returns the component's resolver, loading it on first use.
// It returns nil if the component failed to load; the failure is final.
func (s *compositeSlot) get(index int) Resolver {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case slotReady:
		return s.resolver
	case slotFailed:
		return nil
	}

	r, err := s.load()
	if err != nil || r == nil {
		s.state = slotFailed
		s.load = nil
		glyphmap.Logger().Warn("composite component failed to load", "slot", index, "err", err)
		return nil
	}
	s.state = slotReady
	s.resolver = r
	s.load = nil
	return r
}

// Composite resolves code points across an ordered list of component
// fonts. The first component with a concrete glyph wins; its slot is
// packed into the result.
//
// Only strictly positive component codes are accepted. A substitutable
// (negative) code from a component does not stop the search, so a later
// component with a real glyph is preferred.
//
// Composite is safe for concurrent use.
type Composite struct {
	slots []*compositeSlot
	codes *cache.Tiered[CompositeGlyphCode]
}

// NewComposite creates a composite over components in priority order.
// Components are loaded on first use.
func NewComposite(components ...ComponentFunc) (*Composite, error) {
	if len(components) == 0 {
		return nil, ErrNoComponents
	}
	if len(components) > MaxComponents {
		return nil, ErrTooManyComponents
	}
	c := &Composite{
		slots: make([]*compositeSlot, len(components)),
		codes: cache.NewTiered[CompositeGlyphCode](),
	}
	for i, load := range components {
		if load == nil {
			load = func() (Resolver, error) { return nil, errNilComponent }
		}
		c.slots[i] = &compositeSlot{load: load}
	}
	return c, nil
}

// NumSlots returns the number of components.
func (c *Composite) NumSlots() int {
	return len(c.slots)
}

// Slot returns the resolver of component i, loading it if necessary.
// It returns nil if i is out of range or the component failed to load.
func (c *Composite) Slot(i int) Resolver {
	if i < 0 || i >= len(c.slots) {
		return nil
	}
	return c.slots[i].get(i)
}

// Resolve returns the composite glyph code of cp.
//
// Components are tried in slot order. When none has a concrete glyph the
// result is the missing glyph of slot 0, as reported by MissingGlyphCode.
// Results, including misses, are cached; a result affected by a
// non-fatal component error is not cached.
func (c *Composite) Resolve(cp CodePoint) (CompositeGlyphCode, error) {
	code, err := c.resolve(cp)
	if code == 0 {
		return c.missing(), err
	}
	return code, err
}

// resolve is Resolve with misses reported as 0.
func (c *Composite) resolve(cp CodePoint) (CompositeGlyphCode, error) {
	if !cp.Valid() {
		return 0, nil
	}
	if v, ok := c.codes.Get(int32(cp)); ok {
		return decodeComposite(v), nil
	}

	code, cacheable, err := c.search(cp)
	if err != nil {
		return 0, err
	}
	if cacheable {
		c.codes.Put(int32(cp), encodeComposite(code))
	}
	return code, nil
}

// missing returns the composite code of the slot 0 missing glyph.
func (c *Composite) missing() CompositeGlyphCode {
	if m, ok := c.slots[0].get(0).(CharToGlyphMapper); ok {
		return PackComposite(0, m.MissingGlyphCode())
	}
	return 0
}

// search asks every component in order for cp.
func (c *Composite) search(cp CodePoint) (code CompositeGlyphCode, cacheable bool, err error) {
	cacheable = true
	for i := range c.slots {
		r := c.slots[i].get(i)
		if r == nil {
			continue
		}
		g, lookupErr := r.Lookup(cp)
		if lookupErr != nil {
			if IsFatal(lookupErr) {
				return 0, false, lookupErr
			}
			glyphmap.Logger().Warn("composite component lookup failed", "slot", i, "err", lookupErr)
			cacheable = false
			continue
		}
		if g.Concrete() {
			return PackComposite(i, g), cacheable, nil
		}
	}
	return 0, cacheable, nil
}

// ResolveMany maps a UTF-16 sequence to composite glyph codes, one per
// unit, with the surrogate handling of GlyphResolver.ResolveMany.
//
// Cache misses are resolved slot by slot: each component is asked once
// for all code points still unresolved, through LookupMany when it
// implements BatchResolver.
func (c *Composite) ResolveMany(units []uint16, out []CompositeGlyphCode) error {
	return resolveComposite(c, units, out)
}

// resolveComposite implements ResolveMany for any output code type.
func resolveComposite[G ~int32](c *Composite, units []uint16, out []G) error {
	if len(out) < len(units) {
		return ErrLengthMismatch
	}
	if len(units) == 0 {
		return nil
	}

	missing := c.missing()
	set := func(pos int, code CompositeGlyphCode) {
		if code == 0 {
			code = missing
		}
		out[pos] = G(code)
	}

	var err error
	c.codes.Update(func(tx cache.Txn[CompositeGlyphCode]) {
		var pending compositeBatch
		for pos, cp := range Normalize(units, out) {
			if v, ok := tx.Get(int32(cp)); ok {
				set(pos, decodeComposite(v))
				continue
			}
			pending.add(cp, pos)
		}
		err = c.fill(tx, &pending, set)
	})
	return err
}

// compositeBatch holds unresolved code points and their positions.
type compositeBatch struct {
	cps []CodePoint
	pos []int
}

func (b *compositeBatch) add(cp CodePoint, pos int) {
	b.cps = append(b.cps, cp)
	b.pos = append(b.pos, pos)
}

// fill resolves the pending code points and passes each result to set.
// On a fatal fault every pending position is set to 0 and nothing is
// cached.
func (c *Composite) fill(tx cache.Txn[CompositeGlyphCode], pending *compositeBatch, set func(pos int, code CompositeGlyphCode)) error {
	if len(pending.cps) == 0 {
		return nil
	}
	codes := make([]CompositeGlyphCode, len(pending.cps))
	cacheable, err := c.searchMany(pending.cps, codes)
	if err != nil {
		for _, pos := range pending.pos {
			set(pos, 0)
		}
		return err
	}
	for i, pos := range pending.pos {
		set(pos, codes[i])
		if cacheable {
			tx.Put(int32(pending.cps[i]), encodeComposite(codes[i]))
		}
	}
	return nil
}

// searchMany resolves cps into codes one slot at a time. Entries of codes
// left at 0 are missing in every component.
func (c *Composite) searchMany(cps []CodePoint, codes []CompositeGlyphCode) (cacheable bool, err error) {
	cacheable = true
	remaining := make([]int, len(cps))
	for i := range remaining {
		remaining[i] = i
	}
	query := make([]CodePoint, 0, len(cps))
	glyphs := make([]GlyphCode, len(cps))

	for slot := range c.slots {
		if len(remaining) == 0 {
			break
		}
		r := c.slots[slot].get(slot)
		if r == nil {
			continue
		}

		query = query[:0]
		for _, idx := range remaining {
			query = append(query, cps[idx])
		}
		out := glyphs[:len(query)]
		if lookupErr := lookupMany(r, query, out); lookupErr != nil {
			if IsFatal(lookupErr) {
				return false, lookupErr
			}
			glyphmap.Logger().Warn("composite component lookup failed", "slot", slot, "err", lookupErr)
			cacheable = false
			continue
		}

		next := remaining[:0]
		for j, idx := range remaining {
			if out[j].Concrete() {
				codes[idx] = PackComposite(slot, out[j])
				continue
			}
			next = append(next, idx)
		}
		remaining = next
	}
	return cacheable, nil
}

// lookupMany resolves cps through r, in one call when r supports batches.
func lookupMany(r Resolver, cps []CodePoint, out []GlyphCode) error {
	if br, ok := r.(BatchResolver); ok {
		return br.LookupMany(cps, out)
	}
	for i, cp := range cps {
		g, err := r.Lookup(cp)
		if err != nil {
			return err
		}
		out[i] = g
	}
	return nil
}

func encodeComposite(c CompositeGlyphCode) CompositeGlyphCode {
	if c == 0 {
		return compositeKnownMissing
	}
	return c
}

func decodeComposite(c CompositeGlyphCode) CompositeGlyphCode {
	if c == compositeKnownMissing {
		return 0
	}
	return c
}

// Lookup implements Resolver so composites can be components of other
// composites. A slot 0 glyph is returned as is; a glyph from a later
// slot is returned negated, as a substitutable code that the outer
// composite will not attribute to this font.
func (c *Composite) Lookup(cp CodePoint) (GlyphCode, error) {
	code, err := c.resolve(cp)
	if err != nil {
		return MissingGlyph, err
	}
	return nestedCode(code), nil
}

// LookupMany implements BatchResolver with the encoding of Lookup.
func (c *Composite) LookupMany(cps []CodePoint, out []GlyphCode) error {
	if len(out) < len(cps) {
		return ErrLengthMismatch
	}
	var err error
	c.codes.Update(func(tx cache.Txn[CompositeGlyphCode]) {
		var pending compositeBatch
		for i, cp := range cps {
			if !cp.Valid() {
				out[i] = MissingGlyph
				continue
			}
			if v, ok := tx.Get(int32(cp)); ok {
				out[i] = nestedCode(decodeComposite(v))
				continue
			}
			pending.add(cp, i)
		}
		err = c.fill(tx, &pending, func(pos int, code CompositeGlyphCode) {
			out[pos] = nestedCode(code)
		})
	})
	return err
}

func nestedCode(code CompositeGlyphCode) GlyphCode {
	switch {
	case code == 0:
		return MissingGlyph
	case code.Slot() == 0:
		return code.Glyph()
	default:
		return -GlyphCode(code)
	}
}

// CharToGlyph implements CharToGlyphMapper. The result is a
// CompositeGlyphCode converted to GlyphCode.
func (c *Composite) CharToGlyph(cp CodePoint) GlyphCode {
	code, err := c.Resolve(cp)
	if err != nil {
		glyphmap.Logger().Error("composite lookup failed", "codepoint", cp, "err", err)
	}
	return GlyphCode(code)
}

// CharsToGlyphs implements CharToGlyphMapper. out receives
// CompositeGlyphCode values converted to GlyphCode.
func (c *Composite) CharsToGlyphs(count int, units []uint16, out []GlyphCode) error {
	if count < 0 || count > len(units) {
		return ErrLengthMismatch
	}
	return resolveComposite(c, units[:count], out)
}

// CanDisplay implements CharToGlyphMapper.
func (c *Composite) CanDisplay(cp CodePoint) bool {
	code, err := c.resolve(cp)
	if err != nil {
		glyphmap.Logger().Error("composite lookup failed", "codepoint", cp, "err", err)
	}
	return code != 0
}

// NumGlyphs implements CharToGlyphMapper. It is the sum of the glyph
// counts of all loadable components that report one.
func (c *Composite) NumGlyphs() int {
	n := 0
	for i := range c.slots {
		if m, ok := c.slots[i].get(i).(CharToGlyphMapper); ok {
			n += m.NumGlyphs()
		}
	}
	return n
}

// MissingGlyphCode implements CharToGlyphMapper. It is the missing glyph
// of slot 0.
func (c *Composite) MissingGlyphCode() GlyphCode {
	return GlyphCode(c.missing())
}

// errNilComponent is reported for a nil ComponentFunc.
var errNilComponent = errors.New("text: nil composite component")
