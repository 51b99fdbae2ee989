package text

import (
	"errors"
	"image"
	"slices"
	"sync"
	"testing"
	"unicode/utf16"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/f64"
)

// fakeAdvances returns glyph/10 pixels per glyph and records calls.
type fakeAdvances struct {
	mu    sync.Mutex
	calls [][]GlyphCode
}

func (f *fakeAdvances) GlyphAdvances(glyphs []GlyphCode, ppem float64, out []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, slices.Clone(glyphs))
	for i, g := range glyphs {
		out[i] = float32(g) / 10 * float32(ppem) / 16
	}
	return nil
}

func (f *fakeAdvances) numCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// squareRaster renders a g x g square for every glyph.
type squareRaster struct {
	mu    sync.Mutex
	calls int
}

func (r *squareRaster) Rasterize(g GlyphCode, _ StrikeDesc) (*GlyphImage, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if g < 0 {
		return nil, errors.New("no outline")
	}
	b := image.Rect(0, -int(g), int(g), 0)
	return &GlyphImage{Mask: image.NewAlpha(b), Bounds: b}, nil
}

func newTestStrike(t *testing.T, backend AdvanceBackend, raster Rasterizer, store *ImageStore) *Strike {
	t.Helper()
	s, err := NewStrike(StrikeDesc{Size: 16}, backend, raster, store)
	if err != nil {
		t.Fatalf("NewStrike: %v", err)
	}
	return s
}

func TestNewStrikeInvalidSize(t *testing.T) {
	for _, size := range []float64{0, -3} {
		if _, err := NewStrike(StrikeDesc{Size: size}, &fakeAdvances{}, nil, nil); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("size %v: err = %v", size, err)
		}
	}
}

func TestStrikeAdvanceCached(t *testing.T) {
	backend := &fakeAdvances{}
	s := newTestStrike(t, backend, nil, nil)

	for i := 0; i < 3; i++ {
		adv, err := s.Advance(20)
		if err != nil {
			t.Fatal(err)
		}
		if adv != 2 {
			t.Errorf("Advance(20) = %v, want 2", adv)
		}
	}
	// Zero advances are cached as well.
	for i := 0; i < 2; i++ {
		if adv, _ := s.Advance(0); adv != 0 {
			t.Errorf("Advance(0) = %v", adv)
		}
	}
	if n := backend.numCalls(); n != 2 {
		t.Errorf("backend calls = %d, want 2", n)
	}
}

func TestStrikeAdvancesBatch(t *testing.T) {
	backend := &fakeAdvances{}
	s := newTestStrike(t, backend, nil, nil)
	_, _ = s.Advance(10)

	glyphs := []GlyphCode{10, 20, 30, 20}
	out := make([]float32, len(glyphs))
	if err := s.Advances(glyphs, out); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(out, []float32{1, 2, 3, 2}) {
		t.Errorf("out = %v", out)
	}
	if n := backend.numCalls(); n != 2 {
		t.Errorf("backend calls = %d, want 2", n)
	}
	if got := backend.calls[1]; !slices.Equal(got, []GlyphCode{20, 30, 20}) {
		t.Errorf("batch = %v", got)
	}
	if err := s.Advances(glyphs, out[:1]); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
}

func TestStrikeInvisibleGlyph(t *testing.T) {
	backend := &fakeAdvances{}
	raster := &squareRaster{}
	s := newTestStrike(t, backend, raster, nil)

	adv, err := s.Advance(InvisibleGlyph)
	if err != nil || adv != 0 {
		t.Errorf("Advance(InvisibleGlyph) = %v, %v, want 0, nil", adv, err)
	}
	img, err := s.Image(InvisibleGlyph)
	if err != nil || !img.Empty() {
		t.Errorf("Image(InvisibleGlyph) = %v, %v, want empty image", img, err)
	}

	glyphs := []GlyphCode{10, 0, InvisibleGlyph, 20}
	out := make([]float32, len(glyphs))
	if err := s.Advances(glyphs, out); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(out, []float32{1, 0, 0, 2}) {
		t.Errorf("out = %v", out)
	}
	if n := backend.numCalls(); n != 1 {
		t.Fatalf("backend calls = %d, want 1", n)
	}
	if got := backend.calls[0]; !slices.Equal(got, []GlyphCode{10, 0, 20}) {
		t.Errorf("batch = %v, want InvisibleGlyph left out", got)
	}
	if raster.calls != 0 {
		t.Errorf("rasterizer calls = %d, want 0", raster.calls)
	}
}

func TestStrikeMeasuresMappedText(t *testing.T) {
	for _, parser := range []string{"ximage", "gotext"} {
		t.Run(parser, func(t *testing.T) {
			source := newTestSource(t, goregular.TTF, WithParser(parser))
			s, err := source.Strike(StrikeDesc{Size: 16})
			if err != nil {
				t.Fatal(err)
			}
			defer func() {
				_ = s.Close()
			}()

			units := utf16.Encode([]rune("A\U0001F600"))
			glyphs := make([]GlyphCode, len(units))
			if err := source.Mapper().CharsToGlyphs(len(units), units, glyphs); err != nil {
				t.Fatal(err)
			}
			if glyphs[1] != MissingGlyph || glyphs[2] != InvisibleGlyph {
				t.Fatalf("glyphs = %v, want [A 0 InvisibleGlyph]", glyphs)
			}

			advances := make([]float32, len(glyphs))
			if err := s.Advances(glyphs, advances); err != nil {
				t.Fatalf("Advances(%v): %v", glyphs, err)
			}
			if advances[0] <= 0 {
				t.Errorf("advance of 'A' = %v, want > 0", advances[0])
			}
			if advances[1] <= 0 {
				t.Errorf("advance of .notdef = %v, want > 0", advances[1])
			}
			if advances[2] != 0 {
				t.Errorf("advance of InvisibleGlyph = %v, want 0", advances[2])
			}
		})
	}
}

func TestStrikeImageCached(t *testing.T) {
	raster := &squareRaster{}
	s := newTestStrike(t, &fakeAdvances{}, raster, nil)

	a, err := s.Image(5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Image(5)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("Image returned a different image for a cached glyph")
	}
	if raster.calls != 1 {
		t.Errorf("raster calls = %d, want 1", raster.calls)
	}
	if _, err := s.Image(-1); err == nil {
		t.Error("expected rasterizer error")
	}
	if got := s.Stats().Images; got != 1 {
		t.Errorf("Stats().Images = %d, want 1", got)
	}
}

func TestStrikeImageWithoutRasterizer(t *testing.T) {
	s := newTestStrike(t, &fakeAdvances{}, nil, nil)
	if _, err := s.Image(3); !errors.Is(err, ErrNoOutline) {
		t.Errorf("err = %v, want ErrNoOutline", err)
	}
}

func TestStrikeCloseReleasesHandles(t *testing.T) {
	store := NewImageStore()
	s := newTestStrike(t, &fakeAdvances{}, &squareRaster{}, store)
	other := newTestStrike(t, &fakeAdvances{}, &squareRaster{}, store)

	glyphs := []GlyphCode{1, 2, 300, 20000, 70000}
	for _, g := range glyphs {
		if _, err := s.Image(g); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := other.Image(1); err != nil {
		t.Fatal(err)
	}
	if store.Len() != len(glyphs)+1 {
		t.Fatalf("store.Len() = %d", store.Len())
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if got := store.Released(); got != uint64(len(glyphs)) {
		t.Errorf("released = %d, want %d", got, len(glyphs))
	}
	if store.Len() != 1 {
		t.Errorf("store.Len() = %d, want other strike's image only", store.Len())
	}

	// Double close releases nothing more.
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if got := store.Released(); got != uint64(len(glyphs)) {
		t.Errorf("released after second Close = %d", got)
	}

	if !s.Closed() {
		t.Error("Closed() = false")
	}
	if _, err := s.Image(1); !errors.Is(err, ErrStrikeClosed) {
		t.Errorf("Image after Close: err = %v", err)
	}
	if _, err := s.Advance(1); !errors.Is(err, ErrStrikeClosed) {
		t.Errorf("Advance after Close: err = %v", err)
	}
	if err := s.Advances([]GlyphCode{1}, make([]float32, 1)); !errors.Is(err, ErrStrikeClosed) {
		t.Errorf("Advances after Close: err = %v", err)
	}
}

func TestStrikeConcurrentImages(t *testing.T) {
	store := NewImageStore()
	raster := &squareRaster{}
	s := newTestStrike(t, &fakeAdvances{}, raster, store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for g := GlyphCode(1); g <= 32; g++ {
				if _, err := s.Image(g); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if store.Len() != 32 {
		t.Errorf("store.Len() = %d, want 32 (one handle per glyph)", store.Len())
	}
	_ = s.Close()
	if store.Len() != 0 {
		t.Errorf("store.Len() after Close = %d", store.Len())
	}
}

func TestStrikeDescString(t *testing.T) {
	a := StrikeDesc{Size: 12}
	b := StrikeDesc{Size: 12, Transform: f64.Aff3{1, 0, 0, 0, 1, 0}}
	c := StrikeDesc{Size: 12, Transform: f64.Aff3{1, 0.2, 0, 0, 1, 0}}
	if a.String() != b.String() {
		t.Errorf("zero transform %q differs from identity %q", a.String(), b.String())
	}
	if a.String() == c.String() {
		t.Error("sheared strike has the same key")
	}
	if a.String() == (StrikeDesc{Size: 12, Hinting: HintingFull}).String() {
		t.Error("hinting is not part of the key")
	}
	if (StrikeDesc{Size: 16.001}).String() == (StrikeDesc{Size: 16.004}).String() {
		t.Error("close sizes share a key")
	}
}

func TestSourceStrike(t *testing.T) {
	source := newTestSource(t, goregular.TTF)
	s, err := source.Strike(StrikeDesc{Size: 32})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = s.Close()
	}()

	g := source.Mapper().CharToGlyph('O')
	img, err := s.Image(g)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if img.Empty() {
		t.Fatal("'O' rasterized to an empty image")
	}
	if img.Bounds.Min.Y >= 0 {
		t.Errorf("bounds %v do not extend above the baseline", img.Bounds)
	}
	var ink int
	for _, a := range img.Mask.Pix {
		if a > 0 {
			ink++
		}
	}
	if ink == 0 {
		t.Error("'O' mask has no coverage")
	}

	space, err := s.Image(source.Mapper().CharToGlyph(' '))
	if err != nil {
		t.Fatal(err)
	}
	if !space.Empty() {
		t.Errorf("space bounds = %v, want empty", space.Bounds)
	}

	adv, err := s.Advance(g)
	if err != nil || adv <= 0 {
		t.Errorf("Advance('O') = %v, %v", adv, err)
	}
	if source.Images().Len() != 2 {
		t.Errorf("source images = %d, want 2", source.Images().Len())
	}
}

func TestImageStore(t *testing.T) {
	store := NewImageStore()
	h := store.Add(&GlyphImage{})
	if h == 0 {
		t.Fatal("Add returned the zero handle")
	}
	if _, ok := store.Get(h); !ok {
		t.Error("Get of live handle failed")
	}
	if !store.Release(h) {
		t.Error("Release of live handle failed")
	}
	if store.Release(h) {
		t.Error("handle released twice")
	}
	if _, ok := store.Get(0); ok {
		t.Error("zero handle names an image")
	}
}
