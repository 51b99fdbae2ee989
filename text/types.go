package text

import "fmt"

// unknownStr is the string returned for unknown enum values.
const unknownStr = "Unknown"

// CodePoint is a Unicode scalar value after surrogate-pair combination.
type CodePoint int32

// MaxCodePoint is the largest valid Unicode code point.
const MaxCodePoint CodePoint = 0x10FFFF

// Valid reports whether c is in [0, MaxCodePoint].
func (c CodePoint) Valid() bool {
	return c >= 0 && c <= MaxCodePoint
}

// String returns the U+XXXX notation of c.
func (c CodePoint) String() string {
	return fmt.Sprintf("U+%04X", int32(c))
}

// GlyphCode identifies a glyph within one resolved font.
//
// The value space has three regions:
//   - 0 (MissingGlyph): the font has no glyph for the code point
//   - > 0: a concrete glyph of the physical font that produced it
//   - < 0: present through a substitution mechanism of the producing font;
//     usable for measurement but not attributable to a physical font
//
// The exact negative encoding belongs to whoever produced the code.
// Callers should use Substitutable rather than inspect negative values.
type GlyphCode int32

const (
	// MissingGlyph is the designated missing-glyph code.
	MissingGlyph GlyphCode = 0

	// InvisibleGlyph marks the output slot of a low surrogate so that
	// glyph counts and metrics skip it.
	InvisibleGlyph GlyphCode = 0xFFFF
)

// Present reports whether g names a glyph, concrete or substitutable.
func (g GlyphCode) Present() bool { return g != MissingGlyph }

// Concrete reports whether g is a glyph index of a physical font.
func (g GlyphCode) Concrete() bool { return g > 0 }

// Substitutable reports whether g is resolved through substitution.
func (g GlyphCode) Substitutable() bool { return g < 0 }

// Invisible reports whether g is the low-surrogate placeholder.
func (g GlyphCode) Invisible() bool { return g == InvisibleGlyph }

// measurable reports whether g indexes a glyph of the font that produced
// it. Glyph 0 is the font's .notdef box and has real metrics.
func (g GlyphCode) measurable() bool { return g >= 0 && g != InvisibleGlyph }

// Composite glyph code layout.
const (
	// SlotShift is the bit position of the slot inside a CompositeGlyphCode.
	SlotShift = 24

	// GlyphMask selects the glyph bits of a CompositeGlyphCode.
	GlyphMask = 1<<SlotShift - 1

	// MaxComponents is the number of slots a composite can address.
	// Slots stay below 128 so packed codes are never negative.
	MaxComponents = 127
)

// CompositeGlyphCode is a GlyphCode tagged with the slot of the component
// font that produced it. It can be used as an opaque integer key.
type CompositeGlyphCode int32

// PackComposite tags g with slot. Only the low 24 bits of g are kept.
func PackComposite(slot int, g GlyphCode) CompositeGlyphCode {
	return CompositeGlyphCode(int32(slot)<<SlotShift | int32(g)&GlyphMask) //#nosec G115 -- slot < MaxComponents
}

// Slot returns the component slot that produced the glyph.
func (c CompositeGlyphCode) Slot() int {
	return int(uint32(c) >> SlotShift)
}

// Glyph returns the glyph code within the component's font.
func (c CompositeGlyphCode) Glyph() GlyphCode {
	return GlyphCode(int32(c) & GlyphMask)
}

// String returns "slot:glyph".
func (c CompositeGlyphCode) String() string {
	return fmt.Sprintf("%d:%d", c.Slot(), c.Glyph())
}

// Hinting specifies font hinting mode for strikes.
type Hinting int

const (
	// HintingNone disables hinting.
	HintingNone Hinting = iota
	// HintingVertical applies vertical hinting only.
	HintingVertical
	// HintingFull applies full hinting.
	HintingFull
)

// String returns the string representation of the hinting.
func (h Hinting) String() string {
	switch h {
	case HintingNone:
		return "None"
	case HintingVertical:
		return "Vertical"
	case HintingFull:
		return "Full"
	default:
		return unknownStr
	}
}
