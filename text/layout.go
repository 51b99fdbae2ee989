package text

import (
	"github.com/go-text/typesetting/language"
	"golang.org/x/text/unicode/bidi"
)

// minLayoutCodePoint is the first code point that can need complex layout.
// Everything below is ASCII, Latin-1 or Latin Extended text that maps one
// character to one glyph.
const minLayoutCodePoint = 0x0300

// Joiners that change glyph selection of their neighbours.
const (
	zeroWidthNonJoiner = 0x200C
	zeroWidthJoiner    = 0x200D
)

// complexScripts need shaping beyond a cmap lookup: reordering,
// contextual forms or mark positioning.
var complexScripts = map[language.Script]bool{
	language.Arabic:     true,
	language.Hebrew:     true,
	language.Syriac:     true,
	language.Thaana:     true,
	language.Nko:        true,
	language.Mandaic:    true,
	language.Devanagari: true,
	language.Bengali:    true,
	language.Gurmukhi:   true,
	language.Gujarati:   true,
	language.Oriya:      true,
	language.Tamil:      true,
	language.Telugu:     true,
	language.Kannada:    true,
	language.Malayalam:  true,
	language.Sinhala:    true,
	language.Thai:       true,
	language.Lao:        true,
	language.Tibetan:    true,
	language.Myanmar:    true,
	language.Khmer:      true,
	language.Mongolian:  true,
	language.Inherited:  true, // combining marks
}

// layoutMemo caches per-rune answers of runeRequiresLayout.
var layoutMemo = NewRuneToBoolMap()

// RequiresLayout reports whether the UTF-16 text needs complex layout
// (shaping, bidi reordering or mark positioning) rather than a direct
// one-glyph-per-character mapping.
func RequiresLayout(units []uint16) bool {
	for _, cp := range Normalize[GlyphCode](units, nil) {
		if CodePointRequiresLayout(cp) {
			return true
		}
	}
	return false
}

// StringRequiresLayout is RequiresLayout for a Go string.
func StringRequiresLayout(s string) bool {
	for _, r := range s {
		if CodePointRequiresLayout(CodePoint(r)) {
			return true
		}
	}
	return false
}

// CodePointRequiresLayout reports whether cp alone forces complex layout.
func CodePointRequiresLayout(cp CodePoint) bool {
	if cp < minLayoutCodePoint || !cp.Valid() {
		return false
	}
	return layoutMemo.Memo(rune(cp), runeRequiresLayout)
}

func runeRequiresLayout(r rune) bool {
	if r == zeroWidthJoiner || r == zeroWidthNonJoiner {
		return true
	}
	if complexScripts[language.LookupScript(r)] {
		return true
	}
	props, _ := bidi.LookupRune(r)
	switch props.Class() {
	case bidi.R, bidi.AL, bidi.NSM,
		bidi.LRE, bidi.RLE, bidi.LRO, bidi.RLO, bidi.PDF,
		bidi.LRI, bidi.RLI, bidi.FSI, bidi.PDI:
		return true
	}
	return false
}
