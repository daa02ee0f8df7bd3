package bitpack

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
)

// Array stores unsigned integers of a configurable bit width.
//
// Array is not safe for concurrent mutation. Concurrent readers are safe once
// writers are done.
type Array struct {
	words  []uint64
	width  uint8
	length uint64
}

// New creates an Array of the given width with room for capacity elements.
// Width must be in [1, 64].
func New(width uint8, capacity uint64) *Array {
	if width == 0 || width > 64 {
		panic(fmt.Sprintf("bitpack: invalid width %d", width))
	}
	return &Array{
		words: make([]uint64, wordsFor(capacity, width)),
		width: width,
	}
}

// BitsFor returns the number of bits needed to represent maxValue (minimum 1).
func BitsFor(maxValue uint64) uint8 {
	if maxValue == 0 {
		return 1
	}
	return uint8(bits.Len64(maxValue))
}

func wordsFor(n uint64, width uint8) uint64 {
	return (n*uint64(width) + 63) / 64
}

func mask(width uint8) uint64 {
	if width == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// Width returns the element width in bits.
func (a *Array) Width() uint8 { return a.width }

// Len returns the number of addressable elements.
func (a *Array) Len() uint64 { return a.length }

// Capacity returns the number of elements the backing store can hold.
func (a *Array) Capacity() uint64 {
	return uint64(len(a.words)) * 64 / uint64(a.width)
}

// SizeBytes returns the memory held by the backing store.
func (a *Array) SizeBytes() uint64 { return uint64(len(a.words)) * 8 }

// Get returns element i. Elements beyond Len read as zero.
func (a *Array) Get(i uint64) uint64 {
	if i >= a.length {
		return 0
	}
	return a.GetBits(i*uint64(a.width), a.width)
}

// Set stores v at element i, growing the array if needed.
// It panics if v does not fit the array width.
func (a *Array) Set(i uint64, v uint64) {
	if a.width < 64 && v>>a.width != 0 {
		panic(fmt.Sprintf("bitpack: value %d exceeds width %d", v, a.width))
	}
	if i >= a.length {
		a.Grow(i + 1)
		a.length = i + 1
	}
	a.SetBits(i*uint64(a.width), a.width, v)
}

// Append stores v after the last element.
func (a *Array) Append(v uint64) {
	a.Set(a.length, v)
}

// SetLen sets the number of addressable elements, growing the backing store.
// Newly exposed elements read as zero.
func (a *Array) SetLen(n uint64) {
	a.Grow(n)
	if n < a.length {
		// Clear truncated elements so a later SetLen re-exposes zeros.
		for i := n; i < a.length; i++ {
			a.SetBits(i*uint64(a.width), a.width, 0)
		}
	}
	a.length = n
}

// GetBits reads width bits starting at bit position pos.
func (a *Array) GetBits(pos uint64, width uint8) uint64 {
	wordIdx := pos / 64
	bitOffset := pos % 64
	if wordIdx >= uint64(len(a.words)) {
		return 0
	}

	val := a.words[wordIdx] >> bitOffset
	if bitOffset+uint64(width) > 64 && wordIdx+1 < uint64(len(a.words)) {
		val |= a.words[wordIdx+1] << (64 - bitOffset)
	}
	return val & mask(width)
}

// SetBits writes the low width bits of v at bit position pos.
// The backing store must already cover the range.
func (a *Array) SetBits(pos uint64, width uint8, v uint64) {
	m := mask(width)
	v &= m
	wordIdx := pos / 64
	bitOffset := pos % 64

	a.words[wordIdx] &^= m << bitOffset
	a.words[wordIdx] |= v << bitOffset

	// Spill into the next word.
	if bitOffset+uint64(width) > 64 {
		spill := bitOffset + uint64(width) - 64
		hi := (uint64(1) << spill) - 1
		a.words[wordIdx+1] &^= hi
		a.words[wordIdx+1] |= v >> (64 - bitOffset)
	}
}

// Grow ensures the backing store can hold at least n elements.
// Capacity grows by at least 1.5x to amortize appends.
func (a *Array) Grow(n uint64) {
	need := wordsFor(n, a.width)
	if need <= uint64(len(a.words)) {
		return
	}
	newLen := max(need, uint64(len(a.words))*3/2)
	words := make([]uint64, newLen)
	copy(words, a.words)
	a.words = words
}

// Trim shrinks the backing store to exactly Len elements.
func (a *Array) Trim() {
	need := wordsFor(a.length, a.width)
	if need == uint64(len(a.words)) {
		return
	}
	words := make([]uint64, need)
	copy(words, a.words)
	a.words = words
}

// Widen repacks the array to a larger width. Narrower widths are ignored.
func (a *Array) Widen(width uint8) {
	if width <= a.width {
		return
	}
	if width > 64 {
		panic(fmt.Sprintf("bitpack: invalid width %d", width))
	}
	out := New(width, a.length)
	for i := uint64(0); i < a.length; i++ {
		out.SetBits(i*uint64(width), width, a.Get(i))
	}
	out.length = a.length
	*a = *out
}

// Narrow repacks the array to a smaller width. Every element must fit.
func (a *Array) Narrow(width uint8) {
	if width >= a.width {
		return
	}
	out := New(width, a.length)
	for i := uint64(0); i < a.length; i++ {
		out.Set(i, a.Get(i))
	}
	*a = *out
}

// Swap exchanges elements i and j.
func (a *Array) Swap(i, j uint64) {
	vi, vj := a.Get(i), a.Get(j)
	a.SetBits(i*uint64(a.width), a.width, vj)
	a.SetBits(j*uint64(a.width), a.width, vi)
}

// Search scans elements starting at from for target, wrapping once from hi
// back to lo. The scan stops at the first element equal to target (found) or
// equal to empty (not found, the empty index is returned). If the range holds
// neither, Search returns hi and false.
//
// This is the linear-probe primitive for hash tables that own the slot range
// [lo, hi).
func (a *Array) Search(target, empty, lo, hi, from uint64) (uint64, bool) {
	if lo >= hi {
		return hi, false
	}
	i := from
	for n := hi - lo; n > 0; n-- {
		v := a.Get(i)
		if v == target {
			return i, true
		}
		if v == empty {
			return i, false
		}
		i++
		if i == hi {
			i = lo
		}
	}
	return hi, false
}

// WriteTo writes the array to w.
func (a *Array) WriteTo(w io.Writer) (int64, error) {
	var hdr [17]byte
	hdr[0] = a.width
	binary.LittleEndian.PutUint64(hdr[1:9], a.length)
	n := wordsFor(a.length, a.width)
	binary.LittleEndian.PutUint64(hdr[9:17], n)
	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}
	written := int64(len(hdr))

	buf := make([]byte, 8*min(n, 4096))
	for start := uint64(0); start < n; {
		end := min(start+uint64(len(buf)/8), n)
		for i := start; i < end; i++ {
			binary.LittleEndian.PutUint64(buf[(i-start)*8:], a.words[i])
		}
		m, err := w.Write(buf[:(end-start)*8])
		written += int64(m)
		if err != nil {
			return written, err
		}
		start = end
	}
	return written, nil
}

// ReadFrom replaces the array contents with data read from r.
func (a *Array) ReadFrom(r io.Reader) (int64, error) {
	var hdr [17]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	width := hdr[0]
	length := binary.LittleEndian.Uint64(hdr[1:9])
	n := binary.LittleEndian.Uint64(hdr[9:17])
	if width == 0 || width > 64 || n != wordsFor(length, width) {
		return int64(len(hdr)), fmt.Errorf("bitpack: corrupt header (width=%d len=%d words=%d)", width, length, n)
	}

	words := make([]uint64, n)
	buf := make([]byte, 8*min(n, 4096))
	read := int64(len(hdr))
	for start := uint64(0); start < n; {
		end := min(start+uint64(len(buf)/8), n)
		m, err := io.ReadFull(r, buf[:(end-start)*8])
		read += int64(m)
		if err != nil {
			return read, err
		}
		for i := start; i < end; i++ {
			words[i] = binary.LittleEndian.Uint64(buf[(i-start)*8:])
		}
		start = end
	}

	a.words = words
	a.width = width
	a.length = length
	return read, nil
}
