package hashtable

import (
	"io"
	"iter"

	"github.com/bits-and-blooms/bitset"
)

// Unigram is the identity table of order 1: word w lives at offset w.
type Unigram struct {
	present *bitset.BitSet
	size    int64 // highest word id + 1
	filled  int64
}

// NewUnigram creates a unigram table sized for vocabSize words. It grows on
// demand.
func NewUnigram(vocabSize uint64) *Unigram {
	return &Unigram{present: bitset.New(uint(vocabSize))}
}

// Kind implements Table.
func (t *Unigram) Kind() Kind { return KindUnigram }

// Put implements Table. The context is ignored.
func (t *Unigram) Put(k Key) (int64, bool, error) {
	if k.Word < 0 {
		return NotFound, false, ErrKeyOverflow
	}
	w := uint(k.Word)
	if t.present.Test(w) {
		return int64(w), false, nil
	}
	t.present.Set(w)
	t.filled++
	t.size = max(t.size, int64(w)+1)
	return int64(w), true, nil
}

// Offset implements Table.
func (t *Unigram) Offset(k Key) int64 {
	if k.Word < 0 || !t.present.Test(uint(k.Word)) {
		return NotFound
	}
	return int64(k.Word)
}

// Key implements Table.
func (t *Unigram) Key(off int64) Key { return Key{Word: int32(off), Context: NotFound} }

// IsEmpty implements Table.
func (t *Unigram) IsEmpty(off int64) bool {
	return off < 0 || !t.present.Test(uint(off))
}

// Len implements Table.
func (t *Unigram) Len() int64 { return t.filled }

// Capacity implements Table. It equals the vocabulary size seen so far.
func (t *Unigram) Capacity() int64 { return t.size }

// All implements Table.
func (t *Unigram) All() iter.Seq2[int64, Key] {
	return func(yield func(int64, Key) bool) {
		for i, ok := t.present.NextSet(0); ok; i, ok = t.present.NextSet(i + 1) {
			if !yield(int64(i), t.Key(int64(i))) {
				return
			}
		}
	}
}

// SizeBytes implements Table.
func (t *Unigram) SizeBytes() uint64 { return uint64(t.present.BinaryStorageSize()) }

// WriteTo implements io.WriterTo.
func (t *Unigram) WriteTo(w io.Writer) (int64, error) {
	n, err := writeHeader(w, KindUnigram, t.filled)
	if err != nil {
		return n, err
	}
	m, err := t.present.WriteTo(w)
	return n + m, err
}

func readUnigram(r io.Reader, filled int64) (*Unigram, error) {
	present := new(bitset.BitSet)
	if _, err := present.ReadFrom(r); err != nil {
		return nil, err
	}
	var size int64
	for i, ok := present.NextSet(0); ok; i, ok = present.NextSet(i + 1) {
		size = int64(i) + 1
	}
	return &Unigram{present: present, size: size, filled: filled}, nil
}
