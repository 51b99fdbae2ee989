package text

import (
	"sync"
	"testing"
)

func TestRuneToBoolMap(t *testing.T) {
	m := NewRuneToBoolMap()

	if v, ok := m.Get('a'); v || ok {
		t.Errorf("Get on empty map = %v, %v", v, ok)
	}

	m.Set('a', true)
	m.Set('b', false)
	m.Set(0x1F600, true)

	tests := []struct {
		r           rune
		value, seen bool
	}{
		{'a', true, true},
		{'b', false, true},
		{'c', false, false},
		{0x1F600, true, true},
		{0x1F601, false, false},
	}
	for _, tt := range tests {
		v, ok := m.Get(tt.r)
		if v != tt.value || ok != tt.seen {
			t.Errorf("Get(%U) = %v, %v, want %v, %v", tt.r, v, ok, tt.value, tt.seen)
		}
	}
	if m.Blocks() != 2 {
		t.Errorf("Blocks() = %d, want 2", m.Blocks())
	}

	m.Set('a', false)
	if v, ok := m.Get('a'); v || !ok {
		t.Errorf("overwrite: Get('a') = %v, %v", v, ok)
	}

	m.Clear()
	if _, ok := m.Get('b'); ok || m.Blocks() != 0 {
		t.Error("Clear did not empty the map")
	}
}

func TestRuneToBoolMapNegative(t *testing.T) {
	m := NewRuneToBoolMap()
	m.Set(-1, true)
	if _, ok := m.Get(-1); ok {
		t.Error("negative rune stored")
	}
}

func TestRuneToBoolMapMemo(t *testing.T) {
	m := NewRuneToBoolMap()
	calls := 0
	fn := func(r rune) bool {
		calls++
		return r%2 == 0
	}
	for i := 0; i < 3; i++ {
		if !m.Memo(4, fn) {
			t.Error("Memo(4) = false")
		}
	}
	if calls != 1 {
		t.Errorf("fn calls = %d, want 1", calls)
	}
}

func TestRuneToBoolMapConcurrent(t *testing.T) {
	m := NewRuneToBoolMap()
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for r := rune(0); r < 2048; r++ {
				m.Set(r, r%3 == 0)
				_, _ = m.Get(r + rune(g))
			}
		}(g)
	}
	wg.Wait()
	for r := rune(0); r < 2048; r++ {
		if v, ok := m.Get(r); !ok || v != (r%3 == 0) {
			t.Fatalf("Get(%d) = %v, %v", r, v, ok)
		}
	}
}
