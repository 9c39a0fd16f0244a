// Package byteconv serializes 2D float maps as flat little-endian byte streams.
//
// Maps are stored row-major: element (i, j) of an n×m map lives at index i*m+j.
// A float32 map of n×m elements occupies 4·n·m bytes, a float64 map 8·n·m.
package byteconv

import (
	"encoding/binary"
	"fmt"
	"math"
)

// AppendFloat32s appends the little-endian encoding of src to dst.
func AppendFloat32s(dst []byte, src []float32) []byte {
	for _, v := range src {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// AppendFloat64s appends the little-endian encoding of src to dst.
func AppendFloat64s(dst []byte, src []float64) []byte {
	for _, v := range src {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
	}
	return dst
}

// Float32s encodes src into a new buffer.
func Float32s(src []float32) []byte {
	return AppendFloat32s(make([]byte, 0, 4*len(src)), src)
}

// Float64s encodes src into a new buffer.
func Float64s(src []float64) []byte {
	return AppendFloat64s(make([]byte, 0, 8*len(src)), src)
}

// DecodeFloat32s decodes a float32 stream.
func DecodeFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("float32 stream length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

// DecodeFloat64s decodes a float64 stream.
func DecodeFloat64s(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("float64 stream length %d is not a multiple of 8", len(b))
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out, nil
}

// SquareSide returns n when count == n*n, or an error.
func SquareSide(count int) (int, error) {
	n := int(math.Sqrt(float64(count)) + 0.5)
	if n*n != count {
		return 0, fmt.Errorf("%d elements do not form a square map", count)
	}
	return n, nil
}
