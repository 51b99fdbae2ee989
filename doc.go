// Package glyphmap maps Unicode code points to glyph codes and caches the
// results, glyph advances and glyph images that an expensive font backend
// produces.
//
// The layer sits between text layout code and a font backend:
//
//   - cache: the dense/sparse/general tiered cache and a sharded LRU
//   - text: surrogate normalization, the batching GlyphResolver,
//     composite (fallback) resolution, strikes, font sources and a registry
//
// # Example usage
//
//	source, err := text.NewFontSourceFromFile("NotoSans-Regular.ttf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer source.Close()
//
//	units := text.DecodeString("Hello, 😀")
//	glyphs := make([]text.GlyphCode, len(units))
//	if err := source.Mapper().CharsToGlyphs(len(units), units, glyphs); err != nil {
//	    log.Fatal(err)
//	}
//
// # Logging
//
// glyphmap is silent by default. Call [SetLogger] to route diagnostics to
// any [log/slog] handler.
package glyphmap
