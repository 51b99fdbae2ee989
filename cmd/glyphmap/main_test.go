package main

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gomono"
)

func TestGlyphmapMainExitCodes(t *testing.T) {
	mono := filepath.Join(t.TempDir(), "GoMono.ttf")
	if err := os.WriteFile(mono, gomono.TTF, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"fallback only", []string{"-text", "Ab"}, 0},
		{"font file", []string{"-font", mono, "-text", "A\U0001F600"}, 0},
		{"gotext parser", []string{"-font", mono, "-parser", "gotext", "-text", "x"}, 0},
		{"missing font", []string{"-font", filepath.Join(t.TempDir(), "no-such-font-7f3a.ttf")}, 1},
		{"bad size", []string{"-size", "0", "-text", "A"}, 1},
		{"bad flag", []string{"-nope"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := glyphmapMain(tt.args); got != tt.want {
				t.Errorf("glyphmapMain(%q) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}
