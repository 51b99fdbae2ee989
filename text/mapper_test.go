package text

import "testing"

func TestCanDisplayUpTo(t *testing.T) {
	r := NewGlyphResolver(newCountingBackend(plusHundred))

	tests := []struct {
		name  string
		units []uint16
		want  int
	}{
		{"empty", nil, -1},
		{"all letters", DecodeString("abc"), -1},
		{"digit", DecodeString("ab1c"), 2},
		{"displayable pair", DecodeString("a😀"), -1},
		{"missing pair", DecodeString("a🙂b"), 1},
		{"unpaired surrogate", []uint16{'a', 0xD83D, 'b'}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanDisplayUpTo(r, tt.units); got != tt.want {
				t.Errorf("CanDisplayUpTo() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCanDisplayString(t *testing.T) {
	c, _ := NewComposite(
		Component(NewGlyphResolver(newCountingBackend(plusHundred))),
	)
	if got := CanDisplayString(c, "😀x?"); got != 3 {
		t.Errorf("CanDisplayString() = %d, want 3 (UTF-16 index)", got)
	}
}
