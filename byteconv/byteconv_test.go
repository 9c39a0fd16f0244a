package byteconv

import (
	"math"
	"testing"
)

func TestFloat32Layout(t *testing.T) {
	// 1.0f is 0x3F800000, stored little-endian.
	b := Float32s([]float32{1, -2})
	want := []byte{0x00, 0x00, 0x80, 0x3F, 0x00, 0x00, 0x00, 0xC0}
	if len(b) != len(want) {
		t.Fatalf("len = %d, want %d", len(b), len(want))
	}
	for i := range want {
		if b[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, b[i], want[i])
		}
	}
}

func TestFloat64Layout(t *testing.T) {
	b := Float64s([]float64{1})
	want := []byte{0, 0, 0, 0, 0, 0, 0xF0, 0x3F}
	for i := range want {
		if b[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, b[i], want[i])
		}
	}
}

func TestSizes(t *testing.T) {
	const n = 17
	if got := len(Float32s(make([]float32, n*n))); got != 4*n*n {
		t.Errorf("float32 map size = %d, want %d", got, 4*n*n)
	}
	if got := len(Float64s(make([]float64, n*n))); got != 8*n*n {
		t.Errorf("float64 map size = %d, want %d", got, 8*n*n)
	}
}

func TestDecode(t *testing.T) {
	src := []float64{0, 1.5, -3.25, math.MaxFloat64}
	got, err := DecodeFloat64s(Float64s(src))
	if err != nil {
		t.Fatal(err)
	}
	for i := range src {
		if got[i] != src[i] {
			t.Errorf("[%d] = %v, want %v", i, got[i], src[i])
		}
	}

	if _, err := DecodeFloat32s([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated float32 stream")
	}
	if _, err := DecodeFloat64s([]byte{1, 2, 3, 4}); err == nil {
		t.Error("expected error for truncated float64 stream")
	}
}

func TestSquareSide(t *testing.T) {
	if n, err := SquareSide(129 * 129); err != nil || n != 129 {
		t.Errorf("SquareSide(129²) = %d, %v", n, err)
	}
	if _, err := SquareSide(10); err == nil {
		t.Error("expected error for non-square count")
	}
}
