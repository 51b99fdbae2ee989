package text

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

func newTestSource(t *testing.T, data []byte, opts ...SourceOption) *FontSource {
	t.Helper()
	source, err := NewFontSource(data, opts...)
	if err != nil {
		t.Fatalf("NewFontSource failed: %v", err)
	}
	t.Cleanup(func() {
		_ = source.Close()
	})
	return source
}

func TestNewFontSourceEmpty(t *testing.T) {
	if _, err := NewFontSource(nil); !errors.Is(err, ErrEmptyFontData) {
		t.Errorf("err = %v, want ErrEmptyFontData", err)
	}
}

func TestNewFontSourceInvalid(t *testing.T) {
	if _, err := NewFontSource([]byte("not a font")); err == nil {
		t.Error("expected parse error")
	}
}

func TestFontSourceName(t *testing.T) {
	source := newTestSource(t, goregular.TTF)
	if name := source.Name(); name == "" || name == "Unknown Font" {
		t.Errorf("Name() = %q", name)
	}
	named := newTestSource(t, goregular.TTF, WithName("Body"))
	if named.Name() != "Body" {
		t.Errorf("Name() = %q, want Body", named.Name())
	}
}

func TestNewFontSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GoMono.ttf")
	if err := os.WriteFile(path, gomono.TTF, 0o600); err != nil {
		t.Fatal(err)
	}
	source, err := NewFontSourceFromFile(path)
	if err != nil {
		t.Fatalf("NewFontSourceFromFile: %v", err)
	}
	defer func() {
		_ = source.Close()
	}()
	if !source.Mapper().CanDisplay('M') {
		t.Error("GoMono cannot display 'M'")
	}

	if _, err := NewFontSourceFromFile(filepath.Join(t.TempDir(), "missing.ttf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFontSourceParsers(t *testing.T) {
	ximage := newTestSource(t, goregular.TTF)
	gotext := newTestSource(t, goregular.TTF, WithParser("gotext"))

	units := DecodeString("Hg?")
	want := make([]GlyphCode, len(units))
	got := make([]GlyphCode, len(units))
	if err := ximage.Mapper().ResolveMany(units, want); err != nil {
		t.Fatal(err)
	}
	if err := gotext.Mapper().ResolveMany(units, got); err != nil {
		t.Fatal(err)
	}
	for i := range units {
		if !want[i].Concrete() {
			t.Errorf("ximage glyph[%d] = %d, want concrete", i, want[i])
		}
		if got[i] != want[i] {
			t.Errorf("gotext glyph[%d] = %d, ximage = %d", i, got[i], want[i])
		}
	}

	adv := make([]float32, 2)
	if err := ximage.Parsed().GlyphAdvances(want[:1], 16, adv[:1]); err != nil {
		t.Fatal(err)
	}
	if err := gotext.Parsed().GlyphAdvances(want[:1], 16, adv[1:]); err != nil {
		t.Fatal(err)
	}
	if adv[0] <= 0 || math.Abs(float64(adv[0]-adv[1])) > 1 {
		t.Errorf("advances ximage=%v gotext=%v", adv[0], adv[1])
	}
}

func TestFontSourceUnknownParserFallsBack(t *testing.T) {
	source := newTestSource(t, goregular.TTF, WithParser("nope"))
	if _, ok := source.Parsed().(*ximageParsedFont); !ok {
		t.Errorf("Parsed() = %T, want default parser", source.Parsed())
	}
}

func TestFontSourceMissingGlyph(t *testing.T) {
	source := newTestSource(t, goregular.TTF)
	m := source.Mapper()

	// Plane 16 private use is not covered by Go Regular.
	if g := m.CharToGlyph(0x10FFFD); g != MissingGlyph {
		t.Errorf("CharToGlyph(U+10FFFD) = %d, want missing", g)
	}
	if m.NumGlyphs() <= 0 {
		t.Errorf("NumGlyphs() = %d", m.NumGlyphs())
	}
	if source.Mapper() != m {
		t.Error("Mapper() is not shared")
	}
}

func TestFontSourceClosed(t *testing.T) {
	source, err := NewFontSource(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	m := source.Mapper()
	a := m.CharToGlyph('a')
	if err := source.Close(); err != nil {
		t.Fatal(err)
	}
	if err := source.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	// Cached answers survive; new lookups see a non-fatal fault.
	if got := m.CharToGlyph('a'); got != a {
		t.Errorf("cached 'a' = %d, want %d", got, a)
	}
	g, err := m.ResolveOne('b')
	if err != nil {
		t.Errorf("ResolveOne after Close returned fatal error %v", err)
	}
	if g != MissingGlyph {
		t.Errorf("ResolveOne after Close = %d, want missing", g)
	}
	if source.NumGlyphs() != 0 {
		t.Error("closed source reports glyphs")
	}
	if source.Parsed() != nil {
		t.Error("Parsed() after Close is not nil")
	}
}

func TestFontSourceCopyCheck(t *testing.T) {
	source := newTestSource(t, goregular.TTF)
	defer func() {
		if recover() == nil {
			t.Error("copying FontSource did not panic")
		}
	}()
	//nolint:govet // copying on purpose
	copied := *source
	_ = copied.Name()
}

func TestRegisterParser(t *testing.T) {
	RegisterParser("test-ximage", &ximageParser{})
	t.Cleanup(func() {
		parserMu.Lock()
		delete(parserRegistry, "test-ximage")
		parserMu.Unlock()
	})

	source := newTestSource(t, goregular.TTF, WithParser("test-ximage"))
	if !source.Mapper().CanDisplay('x') {
		t.Error("custom parser cannot display 'x'")
	}
	found := false
	for _, name := range Parsers() {
		if name == "test-ximage" {
			found = true
		}
	}
	if !found {
		t.Error("Parsers() does not list the registered parser")
	}
}
