package text

import "testing"

func TestRequiresLayout(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want bool
	}{
		{"empty", "", false},
		{"ascii", "Hello, World!", false},
		{"latin-1", "café naïve", false},
		{"cjk", "日本語", false},
		{"emoji", "😀", false},
		{"arabic", "مرحبا", true},
		{"hebrew", "שלום", true},
		{"devanagari", "नमस्ते", true},
		{"thai", "สวัสดี", true},
		{"combining mark", "e\u0301", true},
		{"zwj", "a\u200db", true},
		{"rtl override", "a\u202eb", true},
		{"mixed", "abc مرحبا", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiresLayout(DecodeString(tt.s)); got != tt.want {
				t.Errorf("RequiresLayout(%q) = %v, want %v", tt.s, got, tt.want)
			}
			if got := StringRequiresLayout(tt.s); got != tt.want {
				t.Errorf("StringRequiresLayout(%q) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestCodePointRequiresLayoutFastPath(t *testing.T) {
	before := layoutMemo.Blocks()
	for cp := CodePoint(0); cp < minLayoutCodePoint; cp++ {
		if CodePointRequiresLayout(cp) {
			t.Fatalf("CodePointRequiresLayout(%v) = true", cp)
		}
	}
	if layoutMemo.Blocks() != before {
		t.Error("fast path populated the memo")
	}
	if CodePointRequiresLayout(-1) || CodePointRequiresLayout(MaxCodePoint+1) {
		t.Error("invalid code points require layout")
	}
}

func BenchmarkRequiresLayoutLatin(b *testing.B) {
	units := DecodeString("The quick brown fox jumps over the lazy dog")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = RequiresLayout(units)
	}
}
