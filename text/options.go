package text

// SourceOption configures FontSource creation.
type SourceOption func(*sourceConfig)

// sourceConfig holds configuration for FontSource.
type sourceConfig struct {
	parserName string
	name       string
	resolver   []ResolverOption
}

// defaultSourceConfig returns the default source configuration.
func defaultSourceConfig() sourceConfig {
	return sourceConfig{
		parserName: defaultParserName, // Default parser (ximage)
	}
}

// WithParser specifies the font parser backend.
// The default is "ximage" which uses golang.org/x/image/font/opentype.
// "gotext" selects github.com/go-text/typesetting.
//
// Custom parsers can be registered with RegisterParser.
func WithParser(name string) SourceOption {
	return func(c *sourceConfig) {
		c.parserName = name
	}
}

// WithName overrides the name read from the font's name table.
func WithName(name string) SourceOption {
	return func(c *sourceConfig) {
		c.name = name
	}
}

// WithResolverOptions passes options to the source's glyph resolver.
func WithResolverOptions(opts ...ResolverOption) SourceOption {
	return func(c *sourceConfig) {
		c.resolver = append(c.resolver, opts...)
	}
}

// ResolverOption configures a GlyphResolver.
type ResolverOption func(*resolverConfig)

// resolverConfig holds configuration for GlyphResolver.
type resolverConfig struct {
	missingGlyph GlyphCode
	numGlyphs    int
}

// defaultResolverConfig returns the default resolver configuration.
func defaultResolverConfig() resolverConfig {
	return resolverConfig{
		missingGlyph: MissingGlyph,
	}
}

// WithMissingGlyph sets the code returned for absent characters by
// ResolveOne, ResolveMany, CharToGlyph and CharsToGlyphs, and reported by
// MissingGlyphCode. Lookup and LookupMany keep reporting MissingGlyph.
func WithMissingGlyph(g GlyphCode) ResolverOption {
	return func(c *resolverConfig) {
		c.missingGlyph = g
	}
}

// WithNumGlyphs sets the glyph count reported by NumGlyphs for backends
// that do not implement GlyphCounter.
func WithNumGlyphs(n int) ResolverOption {
	return func(c *resolverConfig) {
		c.numGlyphs = n
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryConfig)

// registryConfig holds configuration for Registry.
type registryConfig struct {
	strikeCapacity int
	fallback       bool
}

// defaultRegistryConfig returns the default registry configuration.
func defaultRegistryConfig() registryConfig {
	return registryConfig{
		strikeCapacity: 4,
		fallback:       true,
	}
}

// WithStrikeCapacity sets the number of strikes each shard of the
// registry's strike cache keeps open. Least recently used strikes beyond
// the capacity of their shard are closed.
func WithStrikeCapacity(n int) RegistryOption {
	return func(c *registryConfig) {
		if n > 0 {
			c.strikeCapacity = n
		}
	}
}

// WithFallback controls whether composites built by the registry end with
// the Go Sans fallback font.
func WithFallback(enabled bool) RegistryOption {
	return func(c *registryConfig) {
		c.fallback = enabled
	}
}
