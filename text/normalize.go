package text

import (
	"iter"
	"unicode/utf16"
)

// UTF-16 surrogate ranges.
const (
	highSurrogateMin = 0xD800
	highSurrogateMax = 0xDBFF
	lowSurrogateMin  = 0xDC00
	lowSurrogateMax  = 0xDFFF

	surrogateBase = 0x10000
)

// IsHighSurrogate reports whether u is in 0xD800..0xDBFF.
func IsHighSurrogate(u uint16) bool {
	return u >= highSurrogateMin && u <= highSurrogateMax
}

// IsLowSurrogate reports whether u is in 0xDC00..0xDFFF.
func IsLowSurrogate(u uint16) bool {
	return u >= lowSurrogateMin && u <= lowSurrogateMax
}

// CombineSurrogates returns the code point encoded by a high/low pair.
// The result is only meaningful for a valid pair.
func CombineSurrogates(hi, lo uint16) CodePoint {
	return CodePoint((int32(hi)-highSurrogateMin)*0x400 + (int32(lo) - lowSurrogateMin) + surrogateBase)
}

// Normalize iterates over the logical characters of a UTF-16 sequence.
//
// It yields (position, code point) for each character, where position is
// the index of the character's first unit. A valid adjacent high/low pair
// yields the combined code point at the high unit's position and writes
// InvisibleGlyph into out at the low unit's position before the pair is
// yielded, so no slot of out is left unset by a consumer that only
// fills yielded positions.
//
// Unpaired or reversed surrogates are yielded as their raw 16-bit values.
// A high surrogate in the last position is a normal single unit.
//
// out may be nil or shorter than units; positions beyond it are not written.
func Normalize[G ~int32](units []uint16, out []G) iter.Seq2[int, CodePoint] {
	return func(yield func(int, CodePoint) bool) {
		for i := 0; i < len(units); i++ {
			u := units[i]
			if IsHighSurrogate(u) && i+1 < len(units) && IsLowSurrogate(units[i+1]) {
				if i+1 < len(out) {
					out[i+1] = G(InvisibleGlyph)
				}
				if !yield(i, CombineSurrogates(u, units[i+1])) {
					return
				}
				i++
				continue
			}
			if !yield(i, CodePoint(u)) {
				return
			}
		}
	}
}

// IsSupplementary reports whether c needs a surrogate pair in UTF-16.
func IsSupplementary(c CodePoint) bool {
	return c >= surrogateBase && c <= MaxCodePoint
}

// DecodeString returns the UTF-16 code units of s.
func DecodeString(s string) []uint16 {
	return utf16.Encode([]rune(s))
}
