package text

import (
	"fmt"
	"image"
	"math"
	"sync/atomic"

	"golang.org/x/image/math/f64"

	"github.com/gogpu/glyphmap"
	"github.com/gogpu/glyphmap/cache"
)

// identity is the identity affine transform.
var identity = f64.Aff3{1, 0, 0, 0, 1, 0}

// StrikeDesc describes a font instance at one size and transform.
type StrikeDesc struct {
	// Size is the font size in pixels per em.
	Size float64

	// Transform is applied to glyph outlines after scaling.
	// The zero value means identity.
	Transform f64.Aff3

	// Hinting selects the hinting of rasterized glyphs.
	Hinting Hinting
}

// transform returns the effective transform of d.
func (d StrikeDesc) transform() f64.Aff3 {
	if d.Transform == (f64.Aff3{}) {
		return identity
	}
	return d.Transform
}

// String returns a key that identifies d. Sizes are kept exact, so two
// descriptions share a key only when their sizes are equal.
func (d StrikeDesc) String() string {
	m := d.transform()
	return fmt.Sprintf("%g[%g %g %g %g %g %g]%s", d.Size, m[0], m[1], m[2], m[3], m[4], m[5], d.Hinting)
}

// zeroAdvance is the cached form of a zero advance.
var zeroAdvance = float32(math.Inf(-1))

// Strike caches glyph metrics and images of one font at one StrikeDesc.
//
// Advances and image handles are cached per glyph code for the lifetime
// of the strike. Close releases every cached image handle exactly once.
//
// Strike is safe for concurrent use.
type Strike struct {
	desc     StrikeDesc
	backend  AdvanceBackend
	raster   Rasterizer
	store    *ImageStore
	advances *cache.Tiered[float32]
	images   *cache.Tiered[ImageHandle]

	closed atomic.Bool
	calls  atomic.Uint64
}

// NewStrike creates a strike. raster may be nil, in which case Image
// reports ErrNoOutline. store may be nil, in which case the strike owns a
// private store.
func NewStrike(desc StrikeDesc, backend AdvanceBackend, raster Rasterizer, store *ImageStore) (*Strike, error) {
	if desc.Size <= 0 || math.IsNaN(desc.Size) || math.IsInf(desc.Size, 0) {
		return nil, ErrInvalidSize
	}
	if store == nil {
		store = NewImageStore()
	}
	return &Strike{
		desc:     desc,
		backend:  backend,
		raster:   raster,
		store:    store,
		advances: cache.NewTiered[float32](),
		images:   cache.NewTiered[ImageHandle](),
	}, nil
}

// Desc returns the strike description.
func (s *Strike) Desc() StrikeDesc {
	return s.desc
}

// Advance returns the horizontal advance of g in pixels. InvisibleGlyph
// advances by 0 without a backend call.
func (s *Strike) Advance(g GlyphCode) (float32, error) {
	if s.closed.Load() {
		return 0, ErrStrikeClosed
	}
	if g.Invisible() {
		return 0, nil
	}
	if v, ok := s.advances.Get(int32(g)); ok {
		return decodeAdvance(v), nil
	}
	var out [1]float32
	if err := s.measure([]GlyphCode{g}, out[:]); err != nil {
		return 0, err
	}
	s.advances.Put(int32(g), encodeAdvance(out[0]))
	return out[0], nil
}

// Advances writes the advance of each glyph into out. All cache misses
// are measured with one backend call. InvisibleGlyph entries, as written
// by CharsToGlyphs for low surrogates, advance by 0 and are not measured.
func (s *Strike) Advances(glyphs []GlyphCode, out []float32) error {
	if len(out) < len(glyphs) {
		return ErrLengthMismatch
	}
	if s.closed.Load() {
		return ErrStrikeClosed
	}

	var err error
	s.advances.Update(func(tx cache.Txn[float32]) {
		var (
			miss []GlyphCode
			pos  []int
		)
		for i, g := range glyphs {
			if g.Invisible() {
				out[i] = 0
				continue
			}
			if v, ok := tx.Get(int32(g)); ok {
				out[i] = decodeAdvance(v)
				continue
			}
			miss = append(miss, g)
			pos = append(pos, i)
		}
		if len(miss) == 0 {
			return
		}
		measured := make([]float32, len(miss))
		if err = s.measure(miss, measured); err != nil {
			return
		}
		for i, p := range pos {
			out[p] = measured[i]
			tx.Put(int32(miss[i]), encodeAdvance(measured[i]))
		}
	})
	return err
}

func (s *Strike) measure(glyphs []GlyphCode, out []float32) error {
	s.calls.Add(1)
	if err := s.backend.GlyphAdvances(glyphs, s.desc.Size, out); err != nil {
		return fmt.Errorf("text: measure %d glyphs: %w", len(glyphs), err)
	}
	return nil
}

// Image returns the rasterized image of g. The image is rendered once and
// held by the strike's ImageStore until Close. InvisibleGlyph has an
// empty image.
func (s *Strike) Image(g GlyphCode) (*GlyphImage, error) {
	if s.closed.Load() {
		return nil, ErrStrikeClosed
	}
	if g.Invisible() {
		return &GlyphImage{Mask: image.NewAlpha(image.Rectangle{})}, nil
	}
	if h, ok := s.images.Get(int32(g)); ok {
		if img, ok := s.store.Get(h); ok {
			return img, nil
		}
	}
	if s.raster == nil {
		return nil, ErrNoOutline
	}

	var (
		img *GlyphImage
		err error
	)
	s.images.Update(func(tx cache.Txn[ImageHandle]) {
		// Close drains under this lock.
		if s.closed.Load() {
			err = ErrStrikeClosed
			return
		}
		if h, ok := tx.Get(int32(g)); ok {
			if cached, ok := s.store.Get(h); ok {
				img = cached
				return
			}
		}
		img, err = s.raster.Rasterize(g, s.desc)
		if err != nil {
			err = fmt.Errorf("text: rasterize glyph %d: %w", g, err)
			return
		}
		tx.Put(int32(g), s.store.Add(img))
	})
	return img, err
}

// StrikeStats holds strike statistics.
type StrikeStats struct {
	// BackendCalls is the number of advance backend calls.
	BackendCalls uint64
	// Advances holds the advance cache statistics.
	Advances cache.TieredStats
	// Images is the number of cached image handles.
	Images int
}

// Stats returns strike statistics.
func (s *Strike) Stats() StrikeStats {
	return StrikeStats{
		BackendCalls: s.calls.Load(),
		Advances:     s.advances.Stats(),
		Images:       s.images.Len(),
	}
}

// Closed reports whether Close has been called.
func (s *Strike) Closed() bool {
	return s.closed.Load()
}

// Close releases every cached image handle and empties the caches.
// Calling Close more than once is a no-op.
func (s *Strike) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	released := 0
	s.images.Drain(func(_ int32, h ImageHandle) {
		if s.store.Release(h) {
			released++
		}
	})
	s.advances.Drain(nil)
	glyphmap.Logger().Debug("strike closed", "desc", s.desc.String(), "images", released)
	return nil
}

func encodeAdvance(v float32) float32 {
	if v == 0 {
		return zeroAdvance
	}
	return v
}

func decodeAdvance(v float32) float32 {
	if v == zeroAdvance {
		return 0
	}
	return v
}
