package text

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-text/typesetting/font"

	"github.com/gogpu/glyphmap"
)

// gotextParser implements FontParser using github.com/go-text/typesetting.
type gotextParser struct{}

// Parse implements FontParser.Parse.
// ParseTTF returns a *Face which embeds the thread-safe *Font; only the
// Font is kept.
func (p *gotextParser) Parse(data []byte) (ParsedFont, error) {
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("text: failed to parse font: %w", err)
	}
	return &gotextParsedFont{font: face.Font}, nil
}

// gotextParsedFont implements ParsedFont using go-text font.Font.
//
// font.Face is not safe for concurrent use, so each batch wraps the shared
// Font in a fresh Face.
type gotextParsedFont struct {
	font *font.Font
}

// Name implements ParsedFont.Name. go-text does not expose the name
// table through Font; callers name these sources with WithName.
func (f *gotextParsedFont) Name() string { return "" }

// FullName implements ParsedFont.FullName.
func (f *gotextParsedFont) FullName() string { return "" }

// NumGlyphs implements GlyphCounter. The glyph count is not exposed by
// Font, so 0 (unknown) is reported.
func (f *gotextParsedFont) NumGlyphs() int { return 0 }

// UnitsPerEm implements ParsedFont.UnitsPerEm.
func (f *gotextParsedFont) UnitsPerEm() int {
	return int(f.font.Upem())
}

// ShapeCodePoints implements Backend using the nominal cmap mapping.
func (f *gotextParsedFont) ShapeCodePoints(cps []CodePoint, out []GlyphCode) error {
	if len(out) < len(cps) {
		return ErrLengthMismatch
	}
	for i, cp := range cps {
		gid, ok := f.font.NominalGlyph(rune(cp))
		if !ok {
			out[i] = MissingGlyph
			continue
		}
		out[i] = GlyphCode(gid) //#nosec G115 -- glyph ids fit in 24 bits
	}
	glyphmap.Logger().Debug("gotext batch", "codepoints", len(cps))
	return nil
}

// GlyphAdvances implements AdvanceBackend. Advances are returned in font
// units by go-text and scaled by ppem/upem.
func (f *gotextParsedFont) GlyphAdvances(glyphs []GlyphCode, ppem float64, out []float32) error {
	if len(out) < len(glyphs) {
		return ErrLengthMismatch
	}
	upem := f.font.Upem()
	if upem == 0 {
		return errors.New("text: invalid units per em")
	}
	face := font.NewFace(f.font)
	scale := float32(ppem) / float32(upem)
	for i, g := range glyphs {
		if !g.measurable() {
			out[i] = 0
			continue
		}
		out[i] = face.HorizontalAdvance(font.GID(g)) * scale //#nosec G115 -- measurable glyph codes are non-negative
	}
	return nil
}
