package text

import (
	"errors"
	"image"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"
)

// ErrNoOutline is returned when a glyph cannot be rasterized because its
// font exposes no outlines.
var ErrNoOutline = errors.New("text: glyph outlines not available")

// GlyphImage represents a rasterized glyph.
// This contains the alpha mask and positioning information.
type GlyphImage struct {
	// Mask is the alpha mask (grayscale image).
	// This represents the glyph's shape. Its bounds equal Bounds.
	Mask *image.Alpha

	// Bounds relative to glyph origin.
	// The origin is on the baseline at the left edge; Y grows downward.
	Bounds image.Rectangle
}

// Empty reports whether the image has no pixels (e.g. a space).
func (g *GlyphImage) Empty() bool {
	return g == nil || g.Bounds.Empty()
}

// ImageHandle identifies a glyph image held by an ImageStore.
// The zero handle never names an image.
type ImageHandle uint32

// ImageStore owns rasterized glyph images and hands out handles to them.
// A handle stays valid until it is released.
//
// ImageStore is safe for concurrent use.
type ImageStore struct {
	mu       sync.Mutex
	next     ImageHandle
	images   map[ImageHandle]*GlyphImage
	released uint64
}

// NewImageStore creates an empty image store.
func NewImageStore() *ImageStore {
	return &ImageStore{images: make(map[ImageHandle]*GlyphImage)}
}

// Add stores img and returns its handle.
func (s *ImageStore) Add(img *GlyphImage) ImageHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	if s.next == 0 {
		s.next++
	}
	s.images[s.next] = img
	return s.next
}

// Get returns the image of h.
func (s *ImageStore) Get(h ImageHandle) (*GlyphImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[h]
	return img, ok
}

// Release frees the image of h. It reports false if h was not held.
func (s *ImageStore) Release(h ImageHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[h]; !ok {
		return false
	}
	delete(s.images, h)
	s.released++
	return true
}

// Len returns the number of images currently held.
func (s *ImageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// Released returns the number of successful Release calls.
func (s *ImageStore) Released() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Rasterizer renders glyph images for a strike.
type Rasterizer interface {
	Rasterize(g GlyphCode, desc StrikeDesc) (*GlyphImage, error)
}

// Outliner provides glyph outlines scaled to ppem pixels per em.
type Outliner interface {
	LoadGlyph(g GlyphCode, ppem float64) (sfnt.Segments, error)
}

// OutlineRasterizer fills glyph outlines with golang.org/x/image/vector.
type OutlineRasterizer struct {
	outlines Outliner
}

// NewOutlineRasterizer creates a rasterizer over o.
func NewOutlineRasterizer(o Outliner) *OutlineRasterizer {
	return &OutlineRasterizer{outlines: o}
}

// Rasterize implements Rasterizer. The outline is loaded at desc.Size
// and transformed by desc.Transform before filling.
func (r *OutlineRasterizer) Rasterize(g GlyphCode, desc StrikeDesc) (*GlyphImage, error) {
	if r.outlines == nil {
		return nil, ErrNoOutline
	}
	segs, err := r.outlines.LoadGlyph(g, desc.Size)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return &GlyphImage{Mask: image.NewAlpha(image.Rectangle{})}, nil
	}

	m := desc.transform()
	pts := make([][2]float32, 0, 3*len(segs))
	minX, minY := float32(math.Inf(1)), float32(math.Inf(1))
	maxX, maxY := float32(math.Inf(-1)), float32(math.Inf(-1))
	for _, seg := range segs {
		for i := range segmentArgs(seg.Op) {
			x, y := apply(m, seg.Args[i].X, seg.Args[i].Y)
			minX, minY = min(minX, x), min(minY, y)
			maxX, maxY = max(maxX, x), max(maxY, y)
			pts = append(pts, [2]float32{x, y})
		}
	}

	bounds := image.Rect(
		int(math.Floor(float64(minX))), int(math.Floor(float64(minY))),
		int(math.Ceil(float64(maxX))), int(math.Ceil(float64(maxY))),
	)
	mask := image.NewAlpha(bounds)
	if bounds.Empty() {
		return &GlyphImage{Mask: mask, Bounds: bounds}, nil
	}

	dx, dy := float32(-bounds.Min.X), float32(-bounds.Min.Y)
	rast := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	rast.DrawOp = draw.Src
	p := pts
	for _, seg := range segs {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			rast.ClosePath()
			rast.MoveTo(p[0][0]+dx, p[0][1]+dy)
		case sfnt.SegmentOpLineTo:
			rast.LineTo(p[0][0]+dx, p[0][1]+dy)
		case sfnt.SegmentOpQuadTo:
			rast.QuadTo(p[0][0]+dx, p[0][1]+dy, p[1][0]+dx, p[1][1]+dy)
		case sfnt.SegmentOpCubeTo:
			rast.CubeTo(p[0][0]+dx, p[0][1]+dy, p[1][0]+dx, p[1][1]+dy, p[2][0]+dx, p[2][1]+dy)
		}
		p = p[segmentArgs(seg.Op):]
	}
	rast.ClosePath()
	rast.Draw(mask, mask.Bounds(), image.Opaque, bounds.Min)

	return &GlyphImage{Mask: mask, Bounds: bounds}, nil
}

// segmentArgs returns the number of points used by op.
func segmentArgs(op sfnt.SegmentOp) int {
	switch op {
	case sfnt.SegmentOpQuadTo:
		return 2
	case sfnt.SegmentOpCubeTo:
		return 3
	default:
		return 1
	}
}

// apply maps a 26.6 point through m.
func apply[T ~int32](m f64.Aff3, x, y T) (float32, float32) {
	fx, fy := float64(x)/64, float64(y)/64
	return float32(m[0]*fx + m[1]*fy + m[2]), float32(m[3]*fx + m[4]*fy + m[5])
}
