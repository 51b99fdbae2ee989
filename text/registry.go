package text

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/flopp/go-findfont"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/glyphmap"
	"github.com/gogpu/glyphmap/cache"
)

// FallbackName is the registry name of the built-in fallback font.
const FallbackName = "fallback"

var (
	fallbackOnce   sync.Once
	fallbackSource *FontSource
	fallbackErr    error
)

// FallbackSource returns the Go Sans Regular font, parsed on first use.
func FallbackSource() (*FontSource, error) {
	fallbackOnce.Do(func() {
		fallbackSource, fallbackErr = NewFontSource(goregular.TTF, WithName("Go Regular"))
	})
	return fallbackSource, fallbackErr
}

var (
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
)

// GlobalRegistry is an application-wide registry, created on first use.
// Libraries should accept a *Registry instead of using it.
func GlobalRegistry() *Registry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Registry holds named font sources and the strikes derived from them.
//
// Strikes are kept in an LRU cache; a strike pushed out of the cache is
// closed, so callers must not keep using a strike after requesting more
// distinct strikes than the capacity. Close closes every strike and every
// registered source.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*FontSource
	closed  bool

	strikes *cache.ShardedCache[string, *Strike]
	config  registryConfig
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	config := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&config)
	}
	r := &Registry{
		sources: make(map[string]*FontSource),
		config:  config,
	}
	r.strikes = cache.NewSharded(config.strikeCapacity, cache.StringHasher,
		cache.WithEvict(func(key string, s *Strike) {
			glyphmap.Logger().Info("registry strike evicted", "strike", key)
			_ = s.Close()
		}))
	return r
}

// Register stores src under the normalized form of name. An existing
// font with the same normalized name is not replaced.
// It returns the key src is stored under.
func (r *Registry) Register(name string, src *FontSource) (string, error) {
	if src == nil {
		return "", fmt.Errorf("text: register %q: nil source", name)
	}
	key := registryKey(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrRegistryClosed
	}
	if _, ok := r.sources[key]; !ok {
		r.sources[key] = src
		glyphmap.Logger().Info("registry stores font", "font", src.Name(), "key", key)
	}
	return key, nil
}

// RegisterFile loads a font file and registers it under its file name.
func (r *Registry) RegisterFile(filename string, opts ...SourceOption) (string, error) {
	src, err := NewFontSourceFromFile(filename, opts...)
	if err != nil {
		return "", err
	}
	return r.Register(path.Base(filename), src)
}

// RegisterSystem locates an installed font by file or family name in the
// system font directories and registers it under the name of the file found.
func (r *Registry) RegisterSystem(name string, opts ...SourceOption) (string, error) {
	fpath, err := findfont.Find(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnknownFont, name, err)
	}
	glyphmap.Logger().Debug("registry found system font", "font", name, "path", fpath)
	return r.RegisterFile(fpath, opts...)
}

// Source returns the font registered under name. The name is normalized
// before lookup. FallbackName returns FallbackSource when it was not
// registered explicitly.
func (r *Registry) Source(name string) (*FontSource, error) {
	key := registryKey(name)

	r.mu.RLock()
	src, ok := r.sources[key]
	r.mu.RUnlock()
	if ok {
		return src, nil
	}
	if key == FallbackName {
		return FallbackSource()
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFont, key)
}

// Names returns the sorted keys of all registered fonts.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for k := range r.sources {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Mapper returns the glyph resolver of the font registered under name.
func (r *Registry) Mapper(name string) (*GlyphResolver, error) {
	src, err := r.Source(name)
	if err != nil {
		return nil, err
	}
	return src.Mapper(), nil
}

// Composite returns a composite over the named fonts in order, followed
// by the fallback font unless disabled with WithFallback(false).
//
// Components are looked up on first use. A name that is not registered
// by then fails its slot only; the composite keeps using the others.
func (r *Registry) Composite(names ...string) (*Composite, error) {
	components := make([]ComponentFunc, 0, len(names)+1)
	for _, name := range names {
		components = append(components, func() (Resolver, error) {
			m, err := r.Mapper(name)
			if err != nil {
				return nil, err
			}
			return m, nil
		})
	}
	if r.config.fallback {
		components = append(components, func() (Resolver, error) {
			src, err := FallbackSource()
			if err != nil {
				return nil, err
			}
			return src.Mapper(), nil
		})
	}
	return NewComposite(components...)
}

// Strike returns the strike of the named font at desc, creating it on
// first use.
func (r *Registry) Strike(name string, desc StrikeDesc) (*Strike, error) {
	src, err := r.Source(name)
	if err != nil {
		return nil, err
	}
	key := NormalizeTypeCaseName(name, desc)
	return r.strikes.GetOrTryCreate(key, func() (*Strike, error) {
		glyphmap.Logger().Info("registry creates strike", "strike", key)
		return src.Strike(desc)
	})
}

// StrikeStats returns the statistics of the strike cache.
func (r *Registry) StrikeStats() cache.Stats {
	return r.strikes.Stats()
}

// Close closes every strike and every registered source. The fallback
// source is shared process-wide and stays open.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sources := r.sources
	r.sources = make(map[string]*FontSource)
	r.mu.Unlock()

	r.strikes.Clear()
	for key, src := range sources {
		if src == fallbackSource {
			continue
		}
		if err := src.Close(); err != nil {
			return fmt.Errorf("text: close font %s: %w", key, err)
		}
	}
	glyphmap.Logger().Info("registry closed", "fonts", len(sources))
	return nil
}

// fontExtensions are the file extensions removed from font names.
var fontExtensions = []string{".ttf", ".otf", ".ttc", ".otc"}

// styleSuffixes are the suffixes NormalizeFontname appends.
var styleSuffixes = []string{"-italic", "-light", "-bold"}

// trimFontExt removes a known font file extension from name.
func trimFontExt(name string) string {
	ext := strings.ToLower(path.Ext(name))
	for _, known := range fontExtensions {
		if ext == known {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// NormalizeFontname returns the registry key of a font name: trimmed,
// spaces replaced by underscores, font file extension removed, lower
// case, with style and weight suffixes. Suffixes already present are
// replaced, so a key normalizes to itself.
func NormalizeFontname(fname string, style xfont.Style, weight xfont.Weight) string {
	fname = strings.TrimSpace(fname)
	fname = strings.ReplaceAll(fname, " ", "_")
	fname = strings.ToLower(trimFontExt(fname))
	for trimmed := true; trimmed; {
		trimmed = false
		for _, suffix := range styleSuffixes {
			if rest, ok := strings.CutSuffix(fname, suffix); ok && rest != "" {
				fname, trimmed = rest, true
			}
		}
	}
	switch style {
	case xfont.StyleItalic, xfont.StyleOblique:
		fname += "-italic"
	}
	switch weight {
	case xfont.WeightLight, xfont.WeightExtraLight:
		fname += "-light"
	case xfont.WeightBold, xfont.WeightExtraBold, xfont.WeightSemiBold:
		fname += "-bold"
	}
	return fname
}

// registryKey is the key a font name is stored and looked up under.
func registryKey(name string) string {
	style, weight := GuessStyleAndWeight(name)
	return NormalizeFontname(name, style, weight)
}

// NormalizeTypeCaseName returns the registry key of a strike.
func NormalizeTypeCaseName(fname string, desc StrikeDesc) string {
	return registryKey(fname) + "@" + desc.String()
}

// GuessStyleAndWeight guesses a font's style and weight from its name or
// file name, e.g. "NotoSans-BoldItalic.ttf" or a registry key.
func GuessStyleAndWeight(fontname string) (xfont.Style, xfont.Weight) {
	name := strings.ToLower(trimFontExt(path.Base(strings.TrimSpace(fontname))))

	style := xfont.StyleNormal
	if strings.Contains(name, "italic") || strings.Contains(name, "oblique") {
		style = xfont.StyleItalic
	}

	weight := xfont.WeightNormal
	switch {
	case strings.Contains(name, "extralight"), strings.Contains(name, "xlight"):
		weight = xfont.WeightExtraLight
	case strings.Contains(name, "light"):
		weight = xfont.WeightLight
	case strings.Contains(name, "semibold"):
		weight = xfont.WeightSemiBold
	case strings.Contains(name, "extrabold"), strings.Contains(name, "xbold"), strings.Contains(name, "black"):
		weight = xfont.WeightExtraBold
	case strings.Contains(name, "bold"), strings.HasSuffix(name, "-b"):
		weight = xfont.WeightBold
	}
	return style, weight
}
