package bitio

import "math/bits"

// Writer appends bits to a growing []uint64.
type Writer struct {
	words []uint64
	n     uint64 // bits written
}

// NewWriter returns a Writer with room for capacityBits bits.
func NewWriter(capacityBits uint64) *Writer {
	return &Writer{words: make([]uint64, 0, (capacityBits+63)/64)}
}

// Len returns the number of bits written.
func (w *Writer) Len() uint64 { return w.n }

// Words returns the backing words. The last word may be partially filled.
func (w *Writer) Words() []uint64 { return w.words }

// Truncate rolls the writer back to bitLen bits.
func (w *Writer) Truncate(bitLen uint64) {
	if bitLen >= w.n {
		return
	}
	w.words = w.words[:(bitLen+63)/64]
	if r := bitLen % 64; r != 0 {
		w.words[len(w.words)-1] &= (uint64(1) << r) - 1
	}
	w.n = bitLen
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(b bool) {
	if b {
		w.WriteBits(1, 1)
	} else {
		w.WriteBits(0, 1)
	}
}

// WriteBits appends the low n bits of v (n <= 64).
func (w *Writer) WriteBits(v uint64, n uint8) {
	if n == 0 {
		return
	}
	if n < 64 {
		v &= (uint64(1) << n) - 1
	}
	off := w.n % 64
	if off == 0 {
		w.words = append(w.words, 0)
	}
	w.words[len(w.words)-1] |= v << off
	if off+uint64(n) > 64 {
		w.words = append(w.words, v>>(64-off))
	}
	w.n += uint64(n)
}

// Reader reads bits from a []uint64 starting at a bit position.
type Reader struct {
	words []uint64
	pos   uint64
}

// NewReader returns a Reader positioned at bit pos of words.
func NewReader(words []uint64, pos uint64) *Reader {
	return &Reader{words: words, pos: pos}
}

// Pos returns the current bit position.
func (r *Reader) Pos() uint64 { return r.pos }

// Seek moves the reader to bit position pos.
func (r *Reader) Seek(pos uint64) { r.pos = pos }

// ReadBit reads a single bit.
func (r *Reader) ReadBit() bool {
	return r.ReadBits(1) == 1
}

// ReadBits reads n bits (n <= 64). Bits past the end read as zero.
func (r *Reader) ReadBits(n uint8) uint64 {
	if n == 0 {
		return 0
	}
	wordIdx := r.pos / 64
	off := r.pos % 64
	r.pos += uint64(n)
	if wordIdx >= uint64(len(r.words)) {
		return 0
	}
	v := r.words[wordIdx] >> off
	if off+uint64(n) > 64 && wordIdx+1 < uint64(len(r.words)) {
		v |= r.words[wordIdx+1] << (64 - off)
	}
	if n < 64 {
		v &= (uint64(1) << n) - 1
	}
	return v
}

// readUnary counts one bits up to and including the terminating zero.
func (r *Reader) readUnary() uint64 {
	var count uint64
	for {
		wordIdx := r.pos / 64
		if wordIdx >= uint64(len(r.words)) {
			return count
		}
		off := r.pos % 64
		rest := ^(r.words[wordIdx] >> off)
		avail := 64 - off
		zeros := uint64(bits.TrailingZeros64(rest))
		if zeros < avail {
			r.pos += zeros + 1
			return count + zeros
		}
		count += avail
		r.pos += avail
	}
}
