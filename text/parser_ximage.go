package text

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/glyphmap"
)

// ximageParser implements FontParser using golang.org/x/image/font/opentype.
type ximageParser struct{}

// Parse implements FontParser.Parse.
func (p *ximageParser) Parse(data []byte) (ParsedFont, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("text: failed to parse font: %w", err)
	}
	return &ximageParsedFont{font: f}, nil
}

// ximageParsedFont implements ParsedFont using sfnt.Font.
//
// sfnt.Font is safe for concurrent use but sfnt.Buffer is not, so every
// batch borrows its own buffer from bufPool.
type ximageParsedFont struct {
	font    *opentype.Font
	bufPool sync.Pool
}

func (f *ximageParsedFont) buffer() *sfnt.Buffer {
	if b, ok := f.bufPool.Get().(*sfnt.Buffer); ok {
		return b
	}
	return &sfnt.Buffer{}
}

// Name implements ParsedFont.Name.
func (f *ximageParsedFont) Name() string {
	if buf, err := f.font.Name(nil, sfnt.NameIDFamily); err == nil && buf != "" {
		return buf
	}
	return ""
}

// FullName implements ParsedFont.FullName.
func (f *ximageParsedFont) FullName() string {
	if buf, err := f.font.Name(nil, sfnt.NameIDFull); err == nil && buf != "" {
		return buf
	}
	return ""
}

// NumGlyphs implements GlyphCounter.
func (f *ximageParsedFont) NumGlyphs() int {
	return f.font.NumGlyphs()
}

// UnitsPerEm implements ParsedFont.UnitsPerEm.
func (f *ximageParsedFont) UnitsPerEm() int {
	return int(f.font.UnitsPerEm())
}

// ShapeCodePoints implements Backend. Code points without a cmap entry
// map to MissingGlyph; a malformed cmap is fatal.
func (f *ximageParsedFont) ShapeCodePoints(cps []CodePoint, out []GlyphCode) error {
	if len(out) < len(cps) {
		return ErrLengthMismatch
	}
	buf := f.buffer()
	defer f.bufPool.Put(buf)

	for i, cp := range cps {
		idx, err := f.font.GlyphIndex(buf, rune(cp))
		switch {
		case err == nil:
			out[i] = GlyphCode(idx)
		case errors.Is(err, sfnt.ErrNotFound):
			out[i] = MissingGlyph
		default:
			return &FatalError{Op: "GlyphIndex", Err: err}
		}
	}
	glyphmap.Logger().Debug("ximage batch", "font", f.Name(), "codepoints", len(cps))
	return nil
}

// GlyphAdvances implements AdvanceBackend.
func (f *ximageParsedFont) GlyphAdvances(glyphs []GlyphCode, ppem float64, out []float32) error {
	if len(out) < len(glyphs) {
		return ErrLengthMismatch
	}
	buf := f.buffer()
	defer f.bufPool.Put(buf)

	size := fixed.Int26_6(ppem * 64)
	for i, g := range glyphs {
		if !g.measurable() {
			out[i] = 0
			continue
		}
		advance, err := f.font.GlyphAdvance(buf, sfnt.GlyphIndex(g), size, font.HintingFull) //#nosec G115 -- glyph index < NumGlyphs
		if err != nil {
			return fmt.Errorf("text: glyph %d advance: %w", g, err)
		}
		out[i] = float32(fixedToFloat64(advance))
	}
	return nil
}

// LoadGlyph returns the outline of g at ppem pixels per em.
func (f *ximageParsedFont) LoadGlyph(g GlyphCode, ppem float64) (sfnt.Segments, error) {
	if !g.measurable() {
		return nil, nil
	}
	buf := f.buffer()
	defer f.bufPool.Put(buf)

	segs, err := f.font.LoadGlyph(buf, sfnt.GlyphIndex(g), fixed.Int26_6(ppem*64), nil) //#nosec G115 -- glyph index < NumGlyphs
	if err != nil {
		return nil, err
	}
	// segs aliases buf, which goes back to the pool.
	return append(sfnt.Segments(nil), segs...), nil
}

// fixedToFloat64 converts fixed.Int26_6 to float64.
func fixedToFloat64(x fixed.Int26_6) float64 {
	return float64(x) / 64.0
}
