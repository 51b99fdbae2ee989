package text

import (
	"errors"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/glyphmap"
	"github.com/gogpu/glyphmap/cache"
)

// knownMissing is the cached form of a resolved MissingGlyph.
// It is distinct from the cache's absent value so that a code point the
// backend could not map is never queried again. Backends never produce it:
// their negative codes are small substitution indices.
const knownMissing GlyphCode = math.MinInt32

// seedCodePoint is pre-resolved in every glyph-code cache.
const seedCodePoint = 1

func encodeCached(g GlyphCode) GlyphCode {
	if g == MissingGlyph {
		return knownMissing
	}
	return g
}

func decodeCached(g GlyphCode) GlyphCode {
	if g == knownMissing {
		return MissingGlyph
	}
	return g
}

// newGlyphCodeCache returns a code point to glyph code cache.
func newGlyphCodeCache() *cache.Tiered[GlyphCode] {
	return cache.NewTiered(cache.WithSeed[GlyphCode](seedCodePoint, 1))
}

// GlyphResolver maps code points to glyph codes for one physical font.
//
// Every code point is resolved by the Backend at most once in the absence
// of backend faults; the result, including "missing", is cached for the
// lifetime of the resolver. ResolveMany issues a single backend call for
// all cache misses of its input.
//
// GlyphResolver is safe for concurrent use. Two goroutines that miss on
// the same code point through ResolveOne may both call the backend; the
// results are equal and the last write wins.
type GlyphResolver struct {
	backend Backend
	codes   *cache.Tiered[GlyphCode]
	config  resolverConfig

	calls   atomic.Uint64
	batches sync.Pool // *missBatch
}

// missBatch collects cache misses of one ResolveMany call.
type missBatch struct {
	cps []CodePoint
	pos []int
	out []GlyphCode
}

func (b *missBatch) add(cp CodePoint, pos int) {
	b.cps = append(b.cps, cp)
	b.pos = append(b.pos, pos)
}

func (b *missBatch) reset() {
	b.cps = b.cps[:0]
	b.pos = b.pos[:0]
	b.out = b.out[:0]
}

// NewGlyphResolver creates a resolver over backend.
func NewGlyphResolver(backend Backend, opts ...ResolverOption) *GlyphResolver {
	config := defaultResolverConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &GlyphResolver{
		backend: backend,
		codes:   newGlyphCodeCache(),
		config:  config,
	}
}

// ResolveOne returns the glyph code of cp, or MissingGlyphCode when the
// font has no glyph for it.
//
// A cache hit returns without calling the backend. Otherwise the backend
// is asked for exactly this code point and the result is cached. Code
// points outside [0, MaxCodePoint] are missing and never reach the
// backend. The error is non-nil only for fatal backend faults.
func (r *GlyphResolver) ResolveOne(cp CodePoint) (GlyphCode, error) {
	g, err := r.Lookup(cp)
	return r.external(g), err
}

// Lookup implements Resolver. It is ResolveOne, except that absent code
// points are reported as MissingGlyph whatever WithMissingGlyph says.
func (r *GlyphResolver) Lookup(cp CodePoint) (GlyphCode, error) {
	if !cp.Valid() {
		return MissingGlyph, nil
	}
	if g, ok := r.codes.Get(int32(cp)); ok {
		return decodeCached(g), nil
	}

	var out [1]GlyphCode
	if err := r.shape([]CodePoint{cp}, out[:]); err != nil {
		return MissingGlyph, r.fault(err, 1)
	}
	r.codes.Put(int32(cp), encodeCached(out[0]))
	return out[0], nil
}

// external maps MissingGlyph to the configured missing-glyph code.
func (r *GlyphResolver) external(g GlyphCode) GlyphCode {
	if g == MissingGlyph {
		return r.config.missingGlyph
	}
	return g
}

// ResolveMany maps a UTF-16 sequence to glyph codes, one per unit.
//
// Valid surrogate pairs produce the glyph of the combined code point at
// the high unit's position and InvisibleGlyph at the low unit's position.
// Unpaired surrogates are resolved as their raw values. Absent characters
// get MissingGlyphCode.
//
// All cache misses are resolved by one backend call made while the cache
// lock is held. When every unit hits the cache the backend is not called.
// out must be at least as long as units.
func (r *GlyphResolver) ResolveMany(units []uint16, out []GlyphCode) error {
	if len(out) < len(units) {
		return ErrLengthMismatch
	}
	if len(units) == 0 {
		return nil
	}

	batch := r.getBatch()
	defer r.batches.Put(batch)

	var err error
	r.codes.Update(func(tx cache.Txn[GlyphCode]) {
		for pos, cp := range Normalize(units, out) {
			if g, ok := tx.Get(int32(cp)); ok {
				out[pos] = decodeCached(g)
				continue
			}
			batch.add(cp, pos)
		}
		err = r.fill(tx, batch, out)
	})
	if r.config.missingGlyph != MissingGlyph {
		for i, g := range out[:len(units)] {
			out[i] = r.external(g)
		}
	}
	return err
}

// LookupMany implements BatchResolver. It resolves each code point of cps
// into out with at most one backend call. Absent code points are reported
// as MissingGlyph, as by Lookup.
func (r *GlyphResolver) LookupMany(cps []CodePoint, out []GlyphCode) error {
	if len(out) < len(cps) {
		return ErrLengthMismatch
	}
	if len(cps) == 0 {
		return nil
	}

	batch := r.getBatch()
	defer r.batches.Put(batch)

	var err error
	r.codes.Update(func(tx cache.Txn[GlyphCode]) {
		for i, cp := range cps {
			if !cp.Valid() {
				out[i] = MissingGlyph
				continue
			}
			if g, ok := tx.Get(int32(cp)); ok {
				out[i] = decodeCached(g)
				continue
			}
			batch.add(cp, i)
		}
		err = r.fill(tx, batch, out)
	})
	return err
}

// fill resolves the misses collected in batch with one backend call and
// scatters the results to out. On a backend fault every position of the
// batch becomes MissingGlyph and nothing is cached.
func (r *GlyphResolver) fill(tx cache.Txn[GlyphCode], batch *missBatch, out []GlyphCode) error {
	if len(batch.cps) == 0 {
		return nil
	}
	batch.out = slices.Grow(batch.out, len(batch.cps))[:len(batch.cps)]
	if err := r.shape(batch.cps, batch.out); err != nil {
		for _, pos := range batch.pos {
			out[pos] = MissingGlyph
		}
		return r.fault(err, len(batch.cps))
	}
	for i, pos := range batch.pos {
		g := batch.out[i]
		out[pos] = g
		tx.Put(int32(batch.cps[i]), encodeCached(g))
	}
	return nil
}

func (r *GlyphResolver) getBatch() *missBatch {
	if b, ok := r.batches.Get().(*missBatch); ok {
		b.reset()
		return b
	}
	return &missBatch{}
}

// shape calls the backend once and counts the call.
func (r *GlyphResolver) shape(cps []CodePoint, out []GlyphCode) error {
	r.calls.Add(1)
	glyphmap.Logger().Debug("glyph backend call", "codepoints", len(cps))
	return r.backend.ShapeCodePoints(cps, out)
}

// fault returns err if it is fatal and logs it otherwise.
func (r *GlyphResolver) fault(err error, n int) error {
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	glyphmap.Logger().Warn("glyph backend unavailable", "codepoints", n, "err", err)
	return nil
}

// CharToGlyph implements CharToGlyphMapper.
// Fatal faults are logged and reported as MissingGlyphCode.
func (r *GlyphResolver) CharToGlyph(cp CodePoint) GlyphCode {
	g, err := r.ResolveOne(cp)
	if err != nil {
		glyphmap.Logger().Error("glyph lookup failed", "codepoint", cp, "err", err)
		return r.config.missingGlyph
	}
	return g
}

// CharsToGlyphs implements CharToGlyphMapper. It resolves the first count
// units of units into out.
func (r *GlyphResolver) CharsToGlyphs(count int, units []uint16, out []GlyphCode) error {
	if count < 0 || count > len(units) {
		return ErrLengthMismatch
	}
	return r.ResolveMany(units[:count], out)
}

// CanDisplay implements CharToGlyphMapper.
func (r *GlyphResolver) CanDisplay(cp CodePoint) bool {
	g, err := r.Lookup(cp)
	if err != nil {
		glyphmap.Logger().Error("glyph lookup failed", "codepoint", cp, "err", err)
		return false
	}
	return g.Present()
}

// NumGlyphs implements CharToGlyphMapper. It returns the backend's glyph
// count when known, otherwise the WithNumGlyphs value.
func (r *GlyphResolver) NumGlyphs() int {
	if gc, ok := r.backend.(GlyphCounter); ok {
		if n := gc.NumGlyphs(); n > 0 {
			return n
		}
	}
	return r.config.numGlyphs
}

// MissingGlyphCode implements CharToGlyphMapper.
func (r *GlyphResolver) MissingGlyphCode() GlyphCode {
	return r.config.missingGlyph
}

// ResolverStats holds resolver statistics.
type ResolverStats struct {
	// BackendCalls is the number of calls made to the backend.
	BackendCalls uint64
	// Cache holds the glyph-code cache statistics.
	Cache cache.TieredStats
}

// Stats returns resolver statistics.
func (r *GlyphResolver) Stats() ResolverStats {
	return ResolverStats{
		BackendCalls: r.calls.Load(),
		Cache:        r.codes.Stats(),
	}
}
