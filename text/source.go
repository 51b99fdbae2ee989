package text

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font/sfnt"

	"github.com/gogpu/glyphmap"
)

// FontSource represents a loaded font file.
//
// A FontSource is the Backend of one physical font. It owns the font's
// single GlyphResolver (Mapper) and an ImageStore shared by all strikes
// created from it. FontSource is heavyweight and should be shared across
// the application.
//
// FontSource is safe for concurrent use.
// FontSource must not be copied after creation (enforced by copyCheck).
type FontSource struct {
	// addr is used for copy protection (Ebitengine pattern).
	// It must point to the FontSource itself.
	addr *FontSource

	// mu protects parsed and closed.
	mu     sync.RWMutex
	parsed ParsedFont
	closed bool

	name   string
	images *ImageStore

	mapperOnce sync.Once
	mapper     *GlyphResolver

	config sourceConfig
}

// NewFontSource creates a FontSource from font data (TTF or OTF).
// The data slice is copied internally and can be reused after this call.
//
// Options can be used to select the parser backend and the name.
func NewFontSource(data []byte, opts ...SourceOption) (*FontSource, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}

	config := defaultSourceConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Parsers keep referencing the bytes they parse.
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	parsed, err := getParser(config.parserName).Parse(dataCopy)
	if err != nil {
		return nil, err
	}

	s := &FontSource{
		parsed: parsed,
		images: NewImageStore(),
		config: config,
	}
	s.addr = s // Self-reference for copy detection

	s.name = config.name
	if s.name == "" {
		s.name = extractFontName(parsed)
	}
	glyphmap.Logger().Debug("font source loaded", "name", s.name, "parser", config.parserName)
	return s, nil
}

// NewFontSourceFromFile loads a FontSource from a font file path.
func NewFontSourceFromFile(path string, opts ...SourceOption) (*FontSource, error) {
	// #nosec G304 -- Font file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("text: failed to read font file: %w", err)
	}

	return NewFontSource(data, opts...)
}

// Name returns the font name.
func (s *FontSource) Name() string {
	s.copyCheck()
	return s.name
}

// Parsed returns the parsed font, or nil after Close.
func (s *FontSource) Parsed() ParsedFont {
	s.copyCheck()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parsed
}

// Backend returns the source as a Backend.
func (s *FontSource) Backend() Backend {
	s.copyCheck()
	return s
}

// Mapper returns the font's glyph resolver. It is created on first use
// and shared by all callers.
func (s *FontSource) Mapper() *GlyphResolver {
	s.copyCheck()
	s.mapperOnce.Do(func() {
		s.mapper = NewGlyphResolver(s, s.config.resolver...)
	})
	return s.mapper
}

// Strike creates a strike of the font at desc. Strikes of one source
// share its ImageStore.
func (s *FontSource) Strike(desc StrikeDesc) (*Strike, error) {
	s.copyCheck()
	var raster Rasterizer
	s.mu.RLock()
	if _, ok := s.parsed.(Outliner); ok {
		raster = NewOutlineRasterizer(s)
	}
	s.mu.RUnlock()
	return NewStrike(desc, s, raster, s.images)
}

// Images returns the image store shared by the source's strikes.
func (s *FontSource) Images() *ImageStore {
	return s.images
}

// ShapeCodePoints implements Backend. A closed source reports
// ErrSourceClosed, which resolvers treat as a transient fault.
func (s *FontSource) ShapeCodePoints(cps []CodePoint, out []GlyphCode) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSourceClosed
	}
	return s.parsed.ShapeCodePoints(cps, out)
}

// GlyphAdvances implements AdvanceBackend.
func (s *FontSource) GlyphAdvances(glyphs []GlyphCode, ppem float64, out []float32) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSourceClosed
	}
	return s.parsed.GlyphAdvances(glyphs, ppem, out)
}

// LoadGlyph implements Outliner.
func (s *FontSource) LoadGlyph(g GlyphCode, ppem float64) (sfnt.Segments, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSourceClosed
	}
	o, ok := s.parsed.(Outliner)
	if !ok {
		return nil, ErrNoOutline
	}
	return o.LoadGlyph(g, ppem)
}

// NumGlyphs implements GlyphCounter.
func (s *FontSource) NumGlyphs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	return s.parsed.NumGlyphs()
}

// Close releases the parsed font. The source's Mapper keeps answering
// from its cache; code points not yet cached resolve to MissingGlyph.
// Strikes should be closed before their source.
func (s *FontSource) Close() error {
	s.copyCheck()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.parsed = nil
	glyphmap.Logger().Debug("font source closed", "name", s.name)
	return nil
}

// copyCheck panics if FontSource was copied by value.
// This is the Ebitengine pattern for preventing accidental copies.
func (s *FontSource) copyCheck() {
	if s == nil {
		panic("text: FontSource is nil (did you check the error from NewFontSource?)")
	}
	if s.addr != s {
		panic("text: FontSource must not be copied by value")
	}
}

// extractFontName extracts the font family name from the parsed font.
func extractFontName(parsed ParsedFont) string {
	if name := parsed.Name(); name != "" {
		return name
	}
	if fullName := parsed.FullName(); fullName != "" {
		return fullName
	}
	return "Unknown Font"
}
