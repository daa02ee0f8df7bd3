package bitio

import (
	"fmt"
	"math/bits"
)

// VarCodec is a variable-radix code for non-negative integers.
//
// A value is split into n = max(1, ceil(bitlen(v)/Radix)) chunks of Radix
// bits. The encoding is n-1 one bits, a zero bit, then the n*Radix payload
// bits, least significant first. Small radices favour small values.
type VarCodec struct {
	Radix uint8
}

// NewVarCodec returns a codec with the given radix in [1, 64].
func NewVarCodec(radix uint8) VarCodec {
	if radix == 0 || radix > 64 {
		panic(fmt.Sprintf("bitio: invalid radix %d", radix))
	}
	return VarCodec{Radix: radix}
}

func (c VarCodec) chunks(v uint64) uint64 {
	n := (uint64(bits.Len64(v)) + uint64(c.Radix) - 1) / uint64(c.Radix)
	return max(n, 1)
}

// Len returns the encoded size of v in bits.
func (c VarCodec) Len(v uint64) uint64 {
	n := c.chunks(v)
	return n + n*uint64(c.Radix)
}

// Encode appends the code for v to w.
func (c VarCodec) Encode(w *Writer, v uint64) {
	n := c.chunks(v)
	for i := uint64(1); i < n; i++ {
		w.WriteBits(1, 1)
	}
	w.WriteBits(0, 1)
	for i := uint64(0); i < n; i++ {
		w.WriteBits(v>>(i*uint64(c.Radix)), c.Radix)
	}
}

// Decode reads one value from r.
func (c VarCodec) Decode(r *Reader) uint64 {
	n := r.readUnary() + 1
	var v uint64
	for i := uint64(0); i < n; i++ {
		shift := i * uint64(c.Radix)
		chunk := r.ReadBits(c.Radix)
		if shift < 64 {
			v |= chunk << shift
		}
	}
	return v
}
