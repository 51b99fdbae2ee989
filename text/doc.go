// Package text maps UTF-16 text to glyph codes of one or more fonts.
//
// The mapping pipeline follows a separation of concerns:
//
//   - FontSource: Heavyweight, shared font resource (parses TTF/OTF files)
//     and the Backend of one physical font
//   - GlyphResolver: per-font code point to glyph code cache that batches
//     its misses into one backend call
//   - Composite: ordered fallback over several resolvers, producing
//     slot-tagged CompositeGlyphCode values
//   - Strike: a font at one size and transform, caching advances and
//     rasterized glyph images
//   - Registry: named sources, composites over names and an LRU of strikes
//   - FontParser: Pluggable font parsing backend (default: golang.org/x/image)
//
// # Example usage
//
//	// Load font (do once, share across application)
//	source, err := text.NewFontSourceFromFile("NotoSans-Regular.ttf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer source.Close()
//
//	units := text.DecodeString("naïve 😀")
//	glyphs := make([]text.GlyphCode, len(units))
//	if err := source.Mapper().ResolveMany(units, glyphs); err != nil {
//	    log.Fatal(err)
//	}
//
//	// glyphs[len(glyphs)-1] is text.InvisibleGlyph: the low surrogate
//	// of the emoji shares the glyph written at the high surrogate.
//
// # Glyph codes
//
// A GlyphCode of 0 is the missing glyph. Positive codes are glyphs of a
// physical font. Negative codes are available through substitution (for
// example a nested composite resolving a character from a later slot) and
// are usable for measurement only.
//
// # Pluggable Parser Backend
//
// By default, golang.org/x/image/font/opentype is used. The "gotext"
// parser uses github.com/go-text/typesetting instead:
//
//	source, err := text.NewFontSource(data, text.WithParser("gotext"))
//
// Custom parsers can be registered with RegisterParser.
package text
