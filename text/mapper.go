package text

// Resolver is the minimal lookup contract of a font.
//
// Lookup returns 0 when the font has no glyph for cp, a positive code for
// a glyph of a physical font and a negative code for a glyph available
// through substitution. The error is non-nil only for fatal faults.
type Resolver interface {
	Lookup(cp CodePoint) (GlyphCode, error)
}

// BatchResolver is implemented by resolvers that can resolve many code
// points at once. Composites use it to issue one call per component for
// a whole batch.
type BatchResolver interface {
	Resolver
	LookupMany(cps []CodePoint, out []GlyphCode) error
}

// CharToGlyphMapper is the mapping surface consumed by text layout.
//
// Implemented by *GlyphResolver and *Composite. Composite glyph codes
// are CompositeGlyphCode values converted to GlyphCode.
type CharToGlyphMapper interface {
	// CharToGlyph returns the glyph code of cp, or MissingGlyph.
	CharToGlyph(cp CodePoint) GlyphCode

	// CharsToGlyphs maps the first count UTF-16 units of units into out,
	// one code per unit. Low surrogates of valid pairs get InvisibleGlyph.
	CharsToGlyphs(count int, units []uint16, out []GlyphCode) error

	// CanDisplay reports whether the font has a glyph for cp.
	CanDisplay(cp CodePoint) bool

	// NumGlyphs returns the number of glyphs in the font, or 0 if unknown.
	NumGlyphs() int

	// MissingGlyphCode returns the code of the glyph drawn for missing
	// characters.
	MissingGlyphCode() GlyphCode
}

var (
	_ BatchResolver     = (*GlyphResolver)(nil)
	_ CharToGlyphMapper = (*GlyphResolver)(nil)
	_ BatchResolver     = (*Composite)(nil)
	_ CharToGlyphMapper = (*Composite)(nil)
)

// CanDisplayUpTo returns the index of the first UTF-16 unit of units
// whose character m cannot display, or -1 if m can display all of them.
// For a surrogate pair the index of the high unit is returned.
func CanDisplayUpTo(m CharToGlyphMapper, units []uint16) int {
	for pos, cp := range Normalize[GlyphCode](units, nil) {
		if !m.CanDisplay(cp) {
			return pos
		}
	}
	return -1
}

// CanDisplayString is CanDisplayUpTo for a Go string. The returned index
// counts UTF-16 units.
func CanDisplayString(m CharToGlyphMapper, s string) int {
	return CanDisplayUpTo(m, DecodeString(s))
}
