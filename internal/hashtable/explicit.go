package hashtable

import (
	"io"
	"iter"

	"github.com/hupe1980/ngramstore/internal/bitpack"
)

// Explicit is an open-addressing table that stores the full packed key per
// slot, with context+1 in the context bits so that 0 marks an empty slot.
// It has a single table-wide probe range and does not need per-word counts.
type Explicit struct {
	layout Layout
	slots  *bitpack.Array
	filled int64
}

// NewExplicit creates a table with capacity slots (minimum 1).
func NewExplicit(layout Layout, capacity uint64) *Explicit {
	capacity = max(capacity, 1)
	slots := bitpack.New(64, capacity)
	slots.SetLen(capacity)
	return &Explicit{layout: layout, slots: slots}
}

// Kind implements Table.
func (t *Explicit) Kind() Kind { return KindExplicit }

func (t *Explicit) stored(k Key) (uint64, error) {
	if k.Context < 0 {
		return 0, ErrContextNotFound
	}
	return t.layout.Pack(Key{Word: k.Word, Context: k.Context + 1})
}

func (t *Explicit) probe(stored uint64) (uint64, bool) {
	n := t.slots.Len()
	return t.slots.Search(stored, 0, 0, n, hash64(stored)%n)
}

// Put implements Table.
func (t *Explicit) Put(k Key) (int64, bool, error) {
	stored, err := t.stored(k)
	if err != nil {
		return NotFound, false, err
	}
	idx, found := t.probe(stored)
	if found {
		return int64(idx), false, nil
	}
	if idx >= t.slots.Len() {
		return NotFound, false, ErrCapacityExceeded
	}
	t.slots.Set(idx, stored)
	t.filled++
	return int64(idx), true, nil
}

// Offset implements Table.
func (t *Explicit) Offset(k Key) int64 {
	stored, err := t.stored(k)
	if err != nil {
		return NotFound
	}
	idx, found := t.probe(stored)
	if !found {
		return NotFound
	}
	return int64(idx)
}

// Key implements Table.
func (t *Explicit) Key(off int64) Key {
	k := t.layout.Unpack(t.slots.Get(uint64(off)))
	k.Context--
	return k
}

// IsEmpty implements Table.
func (t *Explicit) IsEmpty(off int64) bool {
	return off < 0 || t.slots.Get(uint64(off)) == 0
}

// Len implements Table.
func (t *Explicit) Len() int64 { return t.filled }

// Capacity implements Table.
func (t *Explicit) Capacity() int64 { return int64(t.slots.Len()) }

// NeedsGrow reports whether one more insert would push the table above
// maxLoad.
func (t *Explicit) NeedsGrow(maxLoad float64) bool {
	return float64(t.filled+1) > maxLoad*float64(t.slots.Len())
}

// All implements Table.
func (t *Explicit) All() iter.Seq2[int64, Key] {
	return func(yield func(int64, Key) bool) {
		for i := uint64(0); i < t.slots.Len(); i++ {
			if t.slots.Get(i) == 0 {
				continue
			}
			if !yield(int64(i), t.Key(int64(i))) {
				return
			}
		}
	}
}

// SizeBytes implements Table.
func (t *Explicit) SizeBytes() uint64 { return t.slots.SizeBytes() }

// WriteTo implements io.WriterTo.
func (t *Explicit) WriteTo(w io.Writer) (int64, error) {
	n, err := writeHeader(w, KindExplicit, t.filled)
	if err != nil {
		return n, err
	}
	m, err := t.slots.WriteTo(w)
	return n + m, err
}

func readExplicit(r io.Reader, layout Layout, filled int64) (*Explicit, error) {
	slots := bitpack.New(64, 0)
	if _, err := slots.ReadFrom(r); err != nil {
		return nil, err
	}
	return &Explicit{layout: layout, slots: slots, filled: filled}, nil
}
