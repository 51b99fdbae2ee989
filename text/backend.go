package text

// Backend maps code points to glyph codes for one physical font.
//
// ShapeCodePoints writes exactly one code into out for each position of
// cps, in order. A code of 0 means the font has no glyph; a negative code
// means the glyph is available through substitution. Backends are called
// synchronously and may be slow; resolvers batch requests so that one
// ResolveMany issues at most one call.
//
// An error wrapped in *FatalError is propagated to the caller. Any other
// error is treated as "backend unavailable" and every requested position
// resolves to MissingGlyph.
type Backend interface {
	ShapeCodePoints(cps []CodePoint, out []GlyphCode) error
}

// GlyphCounter is implemented by backends that know the glyph count of
// their font.
type GlyphCounter interface {
	NumGlyphs() int
}

// AdvanceBackend is implemented by backends that measure glyph advances.
// ppem is the size in pixels per em. One advance is written per glyph.
type AdvanceBackend interface {
	GlyphAdvances(glyphs []GlyphCode, ppem float64, out []float32) error
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(cps []CodePoint, out []GlyphCode) error

// ShapeCodePoints calls f(cps, out).
func (f BackendFunc) ShapeCodePoints(cps []CodePoint, out []GlyphCode) error {
	return f(cps, out)
}
