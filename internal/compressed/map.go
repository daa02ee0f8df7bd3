package compressed

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/hupe1980/ngramstore/internal/hashtable"
	"github.com/hupe1980/ngramstore/internal/hashtrie"
	"github.com/hupe1980/ngramstore/internal/rank"
)

// NotFound is the offset of an absent n-gram.
const NotFound = hashtable.NotFound

// Map is a frozen compressed trie. It is immutable and safe for concurrent
// use.
type Map[V comparable] struct {
	cfg      Config
	layout   hashtable.Layout
	codec    *codec
	unigrams *hashtable.Unigram
	values   *rank.Store[V]
	streams  []*stream // index 0 unused
	vocab    int64
}

// Config returns the configuration the map was built with.
func (m *Map[V]) Config() Config { return m.cfg }

// MaxOrder returns the longest n-gram length.
func (m *Map[V]) MaxOrder() int { return m.cfg.MaxOrder }

// Direction returns the trie direction.
func (m *Map[V]) Direction() hashtrie.Direction { return m.cfg.Direction }

// VocabSize returns the number of unigram slots.
func (m *Map[V]) VocabSize() int64 { return m.vocab }

// Offset extends the n-gram at (ctxOff, ctxOrder) by word.
func (m *Map[V]) Offset(ctxOff int64, ctxOrder int, word int32) int64 {
	order := ctxOrder + 1
	if order < 0 || order >= m.cfg.MaxOrder || word < 0 {
		return NotFound
	}
	if order == 0 {
		return m.unigrams.Offset(hashtable.Key{Word: word, Context: NotFound})
	}
	if ctxOff < 0 {
		return NotFound
	}
	key, err := m.layout.Pack(hashtable.Key{Word: word, Context: ctxOff})
	if err != nil {
		return NotFound
	}
	return m.codec.find(m.streams[order], key)
}

// ValueAndOffset is Offset plus the value stored at the result.
func (m *Map[V]) ValueAndOffset(ctxOff int64, ctxOrder int, word int32) (int64, V, bool) {
	off := m.Offset(ctxOff, ctxOrder, word)
	v, ok := m.Value(ctxOrder+1, off)
	return off, v, ok
}

// OffsetForNgram returns the offset and order of the longest n-gram present
// along the walk of ngram, or NotFound and -1.
func (m *Map[V]) OffsetForNgram(ngram []int32) (int64, int) {
	off, order := NotFound, -1
	for i := range ngram {
		next := m.Offset(off, i-1, m.cfg.Direction.Word(ngram, i))
		if next == NotFound {
			break
		}
		off, order = next, i
	}
	return off, order
}

func (m *Map[V]) exact(ngram []int32) int64 {
	off, order := m.OffsetForNgram(ngram)
	if len(ngram) == 0 || order != len(ngram)-1 {
		return NotFound
	}
	return off
}

// Get returns the value of ngram. Absent n-grams and placeholders return
// false.
func (m *Map[V]) Get(ngram []int32) (V, bool) {
	return m.Value(len(ngram)-1, m.exact(ngram))
}

// Contains reports whether ngram has a slot, including placeholder slots.
func (m *Map[V]) Contains(ngram []int32) bool { return m.exact(ngram) != NotFound }

// Value returns the value at (order, off); placeholders return false.
func (m *Map[V]) Value(order int, off int64) (V, bool) {
	var zero V
	if order < 0 || order >= m.cfg.MaxOrder || off < 0 {
		return zero, false
	}
	if order == 0 {
		return m.values.Get(0, uint64(off))
	}
	cur, ok := m.codec.at(m.streams[order], uint64(off))
	if !ok {
		return zero, false
	}
	return m.values.Table().Value(cur.rank)
}

func (m *Map[V]) keyAt(order int, off int64) hashtable.Key {
	if order == 0 {
		return m.unigrams.Key(off)
	}
	cur, _ := m.codec.at(m.streams[order], uint64(off))
	return m.layout.Unpack(cur.key)
}

func (m *Map[V]) ngramAt(order int, key hashtable.Key) []int32 {
	words := make([]int32, order+1)
	words[order] = key.Word
	off := key.Context
	for k := order - 1; k >= 0; k-- {
		key = m.keyAt(k, off)
		words[k] = key.Word
		off = key.Context
	}
	if m.cfg.Direction == hashtrie.Reversed {
		slices.Reverse(words)
	}
	return words
}

func (m *Map[V]) tagged(r uint64) rank.Value[V] {
	if v, ok := m.values.Table().Value(r); ok {
		return rank.Some(v)
	}
	return rank.Placeholder[V]()
}

// Ngrams yields every n-gram of order with its value, in key order.
func (m *Map[V]) Ngrams(order int) iter.Seq2[[]int32, rank.Value[V]] {
	return func(yield func([]int32, rank.Value[V]) bool) {
		if order < 0 || order >= m.cfg.MaxOrder {
			return
		}
		if order == 0 {
			for off, key := range m.unigrams.All() {
				if !yield([]int32{key.Word}, m.tagged(m.values.Rank(0, uint64(off)))) {
					return
				}
			}
			return
		}
		m.codec.all(m.streams[order], func(_, key, r uint64) bool {
			return yield(m.ngramAt(order, m.layout.Unpack(key)), m.tagged(r))
		})
	}
}

// Entries yields the decoded keys and ranks of a compressed order, in stored
// order.
func (m *Map[V]) Entries(order int) iter.Seq2[hashtable.Key, uint64] {
	return func(yield func(hashtable.Key, uint64) bool) {
		if order < 1 || order >= m.cfg.MaxOrder {
			return
		}
		m.codec.all(m.streams[order], func(_, key, r uint64) bool {
			return yield(m.layout.Unpack(key), r)
		})
	}
}

// Len returns the number of n-grams at order.
func (m *Map[V]) Len(order int) int64 {
	switch {
	case order < 0 || order >= m.cfg.MaxOrder:
		return 0
	case order == 0:
		return m.unigrams.Len()
	default:
		return int64(m.streams[order].n)
	}
}

// Blocks returns the number of blocks at order.
func (m *Map[V]) Blocks(order int) uint64 {
	if order < 1 || order >= m.cfg.MaxOrder {
		return 0
	}
	return m.streams[order].blocks
}

// Values returns the rank table.
func (m *Map[V]) Values() *rank.Table[V] { return m.values.Table() }

// SizeBytes returns the memory held by the map.
func (m *Map[V]) SizeBytes() uint64 {
	total := m.unigrams.SizeBytes() + m.values.SizeBytes()
	for _, s := range m.streams[1:] {
		total += s.sizeBytes()
	}
	return total
}

const mapHeaderSize = 16

// WriteTo writes the map. ReadMap reads it back.
func (m *Map[V]) WriteTo(w io.Writer) (int64, error) {
	var hdr [mapHeaderSize]byte
	hdr[0] = byte(m.cfg.MaxOrder)
	hdr[1] = m.cfg.WordBits
	hdr[2] = byte(m.cfg.Direction)
	hdr[3] = m.cfg.BlockWords
	hdr[4] = m.cfg.OffsetRadix
	hdr[5] = m.cfg.WordRadix
	hdr[6] = m.cfg.SuffixRadix
	hdr[7] = m.cfg.ValueRadix
	binary.LittleEndian.PutUint64(hdr[8:], uint64(m.vocab))
	nn, err := w.Write(hdr[:])
	n := int64(nn)
	if err != nil {
		return n, err
	}
	k, err := m.unigrams.WriteTo(w)
	n += k
	if err != nil {
		return n, err
	}
	k, err = m.values.WriteTo(w)
	n += k
	if err != nil {
		return n, err
	}
	for _, s := range m.streams[1:] {
		k, err = s.WriteTo(w)
		n += k
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadMap reads a map written by WriteTo.
func ReadMap[V comparable](r io.Reader) (*Map[V], error) {
	var hdr [mapHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	cfg, err := Config{
		MaxOrder:    int(hdr[0]),
		WordBits:    hdr[1],
		Direction:   hashtrie.Direction(hdr[2]),
		BlockWords:  hdr[3],
		OffsetRadix: hdr[4],
		WordRadix:   hdr[5],
		SuffixRadix: hdr[6],
		ValueRadix:  hdr[7],
	}.withDefaults()
	if err != nil {
		return nil, err
	}
	layout, err := hashtable.NewLayout(cfg.WordBits)
	if err != nil {
		return nil, err
	}
	tbl, err := hashtable.ReadTable(r, layout)
	if err != nil {
		return nil, fmt.Errorf("compressed: read unigrams: %w", err)
	}
	unigrams, ok := tbl.(*hashtable.Unigram)
	if !ok {
		return nil, fmt.Errorf("compressed: unexpected %s table for unigrams", tbl.Kind())
	}
	values, err := rank.ReadStore[V](r)
	if err != nil {
		return nil, fmt.Errorf("compressed: read values: %w", err)
	}

	m := &Map[V]{
		cfg:      cfg,
		layout:   layout,
		unigrams: unigrams,
		values:   values,
		streams:  make([]*stream, cfg.MaxOrder),
		vocab:    int64(binary.LittleEndian.Uint64(hdr[8:])),
	}
	m.codec = newCodec(cfg, layout, values)
	for order := 1; order < cfg.MaxOrder; order++ {
		s, err := readStream(r, m.codec.blockBits)
		if err != nil {
			return nil, fmt.Errorf("compressed: read order %d: %w", order, err)
		}
		m.streams[order] = s
	}
	return m, nil
}
