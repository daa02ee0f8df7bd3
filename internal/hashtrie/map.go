package hashtrie

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"

	"github.com/hupe1980/ngramstore/internal/hashtable"
	"github.com/hupe1980/ngramstore/internal/rank"
)

// Map is a frozen trie. It is immutable and safe for concurrent use.
type Map[V comparable] struct {
	trie[V]
}

// Config returns the configuration the map was built with.
func (m *Map[V]) Config() Config { return m.cfg }

// MaxOrder returns the longest n-gram length.
func (m *Map[V]) MaxOrder() int { return m.cfg.MaxOrder }

// Direction returns the trie direction.
func (m *Map[V]) Direction() Direction { return m.cfg.Direction }

// VocabSize returns the number of unigram slots (highest word id + 1).
func (m *Map[V]) VocabSize() int64 { return m.vocab }

// Offset extends the n-gram at (ctxOff, ctxOrder) by word. Use ctxOrder -1
// for the empty context. The result lives at order ctxOrder+1.
func (m *Map[V]) Offset(ctxOff int64, ctxOrder int, word int32) int64 {
	return m.offset(ctxOff, ctxOrder, word)
}

// ValueAndOffset is Offset plus the value stored at the result.
func (m *Map[V]) ValueAndOffset(ctxOff int64, ctxOrder int, word int32) (int64, V, bool) {
	off := m.offset(ctxOff, ctxOrder, word)
	v, ok := m.valueAt(ctxOrder+1, off)
	return off, v, ok
}

// OffsetForNgram returns the offset and order of the longest n-gram present
// along the walk of ngram, or NotFound and -1 if not even the first consumed
// word is known.
func (m *Map[V]) OffsetForNgram(ngram []int32) (int64, int) { return m.walk(ngram) }

// Get returns the value of ngram. Absent n-grams and placeholders return
// false.
func (m *Map[V]) Get(ngram []int32) (V, bool) { return m.get(ngram) }

// Contains reports whether ngram has a slot, including placeholder slots.
func (m *Map[V]) Contains(ngram []int32) bool { return m.exact(ngram) != NotFound }

// Value returns the value at (order, off); placeholders return false.
func (m *Map[V]) Value(order int, off int64) (V, bool) { return m.valueAt(order, off) }

// SuffixOffset returns the offset, at order-1, of the n-gram at (order, off)
// without its first consumed word. It requires StoreSuffixOffsets.
func (m *Map[V]) SuffixOffset(order int, off int64) (int64, bool) {
	if order < 1 || order >= len(m.tables) || off < 0 {
		return NotFound, false
	}
	return m.values.Suffix(order, uint64(off))
}

// Ngrams yields every n-gram of order with its value.
func (m *Map[V]) Ngrams(order int) iter.Seq2[[]int32, rank.Value[V]] { return m.ngrams(order) }

// Len returns the number of n-grams at order.
func (m *Map[V]) Len(order int) int64 {
	if order < 0 || order >= len(m.tables) {
		return 0
	}
	return m.tables[order].Len()
}

// Capacity returns the number of slots at order.
func (m *Map[V]) Capacity(order int) int64 {
	if order < 0 || order >= len(m.tables) {
		return 0
	}
	return m.tables[order].Capacity()
}

// Kind returns the table variant of order, or false if order is out of
// range.
func (m *Map[V]) Kind(order int) (hashtable.Kind, bool) {
	if order < 0 || order >= len(m.tables) {
		return 0, false
	}
	return m.tables[order].Kind(), true
}

// Occupancy returns the filled and reserved slots of word's range at order.
// Only implicit orders have per-word ranges.
func (m *Map[V]) Occupancy(order int, word int32) (filled, size uint64, ok bool) {
	if order < 0 || order >= len(m.tables) {
		return 0, 0, false
	}
	tbl, ok := m.tables[order].(*hashtable.Implicit)
	if !ok {
		return 0, 0, false
	}
	filled, size = tbl.Occupancy(word)
	return filled, size, true
}

// Values returns the rank table.
func (m *Map[V]) Values() *rank.Table[V] { return m.values.Table() }

// SizeBytes returns the memory held by tables and value columns.
func (m *Map[V]) SizeBytes() uint64 { return m.sizeBytes() }

const mapHeaderSize = 12

// WriteTo writes the map. ReadMap reads it back.
func (m *Map[V]) WriteTo(w io.Writer) (int64, error) {
	var hdr [mapHeaderSize]byte
	hdr[0] = byte(m.cfg.MaxOrder)
	hdr[1] = m.cfg.WordBits
	hdr[2] = byte(m.cfg.Direction)
	if m.cfg.StoreSuffixOffsets {
		hdr[3] = 1
	}
	binary.LittleEndian.PutUint64(hdr[4:], uint64(m.vocab))
	nn, err := w.Write(hdr[:])
	n := int64(nn)
	if err != nil {
		return n, err
	}
	for _, tbl := range m.tables {
		k, err := tbl.WriteTo(w)
		n += k
		if err != nil {
			return n, err
		}
	}
	k, err := m.values.WriteTo(w)
	return n + k, err
}

// ReadMap reads a map written by WriteTo.
func ReadMap[V comparable](r io.Reader) (*Map[V], error) {
	var hdr [mapHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.MaxOrder = int(hdr[0])
	cfg.WordBits = hdr[1]
	cfg.Direction = Direction(hdr[2])
	cfg.StoreSuffixOffsets = hdr[3] == 1
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	layout, err := hashtable.NewLayout(cfg.WordBits)
	if err != nil {
		return nil, err
	}

	m := &Map[V]{trie: trie[V]{
		cfg:    cfg,
		layout: layout,
		tables: make([]hashtable.Table, cfg.MaxOrder),
		vocab:  int64(binary.LittleEndian.Uint64(hdr[4:])),
	}}
	for order := range m.tables {
		tbl, err := hashtable.ReadTable(r, layout)
		if err != nil {
			return nil, fmt.Errorf("hashtrie: read order %d: %w", order, err)
		}
		m.tables[order] = tbl
	}
	values, err := rank.ReadStore[V](r)
	if err != nil {
		return nil, fmt.Errorf("hashtrie: read values: %w", err)
	}
	m.values = values
	m.cfg.ValueRadix = values.Radix()
	return m, nil
}
