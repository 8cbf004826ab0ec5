package fingerprint

import "testing"

func TestSumDeterministicAndKeyed(t *testing.T) {
	a := New([]byte("key-a"))
	b := New([]byte("key-b"))

	if a.Sum("x", "y") != a.Sum("x", "y") {
		t.Error("same key and parts must fingerprint identically")
	}
	if a.Sum("x", "y") == b.Sum("x", "y") {
		t.Error("different keys must fingerprint differently")
	}
	// The separator keeps adjacent parts from colliding.
	if a.Sum("ab", "c") == a.Sum("a", "bc") {
		t.Error("part boundaries must be unambiguous")
	}
}

func TestUniformRange(t *testing.T) {
	k := New([]byte("key"))
	var sum float64
	const n = 1000
	for i := 0; i < n; i++ {
		v := k.Uniform("part", string(rune(i)))
		if v < 0 || v >= 1 {
			t.Fatalf("Uniform = %v, want [0,1)", v)
		}
		sum += v
	}
	// Mean of 1000 uniform draws should sit near 0.5.
	if mean := sum / n; mean < 0.45 || mean > 0.55 {
		t.Errorf("mean %.4f, want near 0.5", mean)
	}
}
