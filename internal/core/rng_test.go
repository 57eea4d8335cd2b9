package core

import "testing"

func TestRNGSeedReplaysStream(t *testing.T) {
	r := NewRNG(42)
	first := make([]int, 16)
	for i := range first {
		first[i] = r.IntN(4)
	}
	r.Seed(42)
	for i, want := range first {
		if got := r.IntN(4); got != want {
			t.Fatalf("draw %d after reseed = %d, want %d", i, got, want)
		}
	}
}

func TestRNGIntNBounds(t *testing.T) {
	r := NewRNG(7)
	if got := r.IntN(0); got != 0 {
		t.Fatalf("IntN(0) = %d, want 0", got)
	}
	for i := 0; i < 1000; i++ {
		if v := r.IntN(3); v < 0 || v >= 3 {
			t.Fatalf("IntN(3) out of range: %d", v)
		}
	}
}
