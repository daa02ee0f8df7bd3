package hashtable

import (
	"io"
	"iter"

	"github.com/hupe1980/ngramstore/internal/bitpack"
)

// Implicit is a word-ranged open-addressing table. Slots hold context+1 with
// 0 marking an empty slot; the word is implied by the slot's range.
type Implicit struct {
	layout Layout
	ranges *Ranges
	slots  *bitpack.Array
	filled int64
}

// NewImplicit creates a table over ranges. contextLimit is the capacity of the
// next-shorter order and sizes the slot width.
func NewImplicit(layout Layout, ranges *Ranges, contextLimit uint64) *Implicit {
	slots := bitpack.New(bitpack.BitsFor(contextLimit+1), ranges.Total())
	slots.SetLen(ranges.Total())
	return &Implicit{layout: layout, ranges: ranges, slots: slots}
}

// Kind implements Table.
func (t *Implicit) Kind() Kind { return KindImplicit }

// Ranges returns the word ranges of the table.
func (t *Implicit) Ranges() *Ranges { return t.ranges }

func (t *Implicit) probe(k Key) (idx uint64, found, ok bool) {
	start, size, ok := t.ranges.Range(k.Word)
	if !ok || size == 0 {
		return 0, false, false
	}
	stored := uint64(k.Context) + 1
	from := start + hash64(stored)%size
	idx, found = t.slots.Search(stored, 0, start, start+size, from)
	return idx, found, idx < start+size
}

// Put implements Table.
func (t *Implicit) Put(k Key) (int64, bool, error) {
	if k.Context < 0 {
		return NotFound, false, ErrContextNotFound
	}
	if k.Context >= t.layout.MaxContext() {
		return NotFound, false, ErrKeyOverflow
	}
	if k.Word < 0 || int(k.Word) >= t.ranges.NumWords() {
		return NotFound, false, ErrCapacityExceeded
	}
	idx, found, ok := t.probe(k)
	if found {
		return int64(idx), false, nil
	}
	if !ok {
		return NotFound, false, ErrCapacityExceeded
	}
	stored := uint64(k.Context) + 1
	if w := bitpack.BitsFor(stored); w > t.slots.Width() {
		t.slots.Widen(w)
	}
	t.slots.Set(idx, stored)
	t.filled++
	return int64(idx), true, nil
}

// Offset implements Table.
func (t *Implicit) Offset(k Key) int64 {
	if k.Context < 0 {
		return NotFound
	}
	idx, found, _ := t.probe(k)
	if !found {
		return NotFound
	}
	return int64(idx)
}

// Key implements Table.
func (t *Implicit) Key(off int64) Key {
	return Key{
		Word:    t.ranges.WordAt(uint64(off)),
		Context: int64(t.slots.Get(uint64(off))) - 1,
	}
}

// IsEmpty implements Table.
func (t *Implicit) IsEmpty(off int64) bool {
	return off < 0 || t.slots.Get(uint64(off)) == 0
}

// Len implements Table.
func (t *Implicit) Len() int64 { return t.filled }

// Capacity implements Table.
func (t *Implicit) Capacity() int64 { return int64(t.ranges.Total()) }

// Occupancy returns the filled and total slots of a word's range.
func (t *Implicit) Occupancy(word int32) (filled, size uint64) {
	start, size, ok := t.ranges.Range(word)
	if !ok {
		return 0, 0
	}
	for i := start; i < start+size; i++ {
		if t.slots.Get(i) != 0 {
			filled++
		}
	}
	return filled, size
}

// All implements Table. Offsets are visited in order, so words ascend.
func (t *Implicit) All() iter.Seq2[int64, Key] {
	return func(yield func(int64, Key) bool) {
		n := t.ranges.NumWords()
		for w := 0; w < n; w++ {
			start, size, _ := t.ranges.Range(int32(w))
			for i := start; i < start+size; i++ {
				v := t.slots.Get(i)
				if v == 0 {
					continue
				}
				if !yield(int64(i), Key{Word: int32(w), Context: int64(v) - 1}) {
					return
				}
			}
		}
	}
}

// SizeBytes implements Table.
func (t *Implicit) SizeBytes() uint64 {
	return t.slots.SizeBytes() + t.ranges.SizeBytes()
}

// WriteTo implements io.WriterTo.
func (t *Implicit) WriteTo(w io.Writer) (int64, error) {
	n, err := writeHeader(w, KindImplicit, t.filled)
	if err != nil {
		return n, err
	}
	m, err := t.ranges.WriteTo(w)
	n += m
	if err != nil {
		return n, err
	}
	m, err = t.slots.WriteTo(w)
	return n + m, err
}

func readImplicit(r io.Reader, layout Layout, filled int64) (*Implicit, error) {
	ranges, err := readRanges(r)
	if err != nil {
		return nil, err
	}
	slots := bitpack.New(1, 0)
	if _, err := slots.ReadFrom(r); err != nil {
		return nil, err
	}
	return &Implicit{layout: layout, ranges: ranges, slots: slots, filled: filled}, nil
}
