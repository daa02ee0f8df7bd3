package rank

import (
	"fmt"
	"io"
	"sort"

	"github.com/hupe1980/ngramstore/internal/bitio"
	"github.com/hupe1980/ngramstore/internal/bitpack"
)

// Column holds the per-slot storage of one n-gram order.
type Column struct {
	Ranks *bitpack.Array
	// Suffix holds back-pointer offset+1 per slot (0 = none). Nil when
	// suffix offsets are disabled.
	Suffix *bitpack.Array
}

// Store holds rank columns for every order against a shared Table.
type Store[V comparable] struct {
	table    *Table[V]
	cols     []*Column
	suffixes bool
	codec    bitio.VarCodec
}

// NewStore creates a store for maxOrder orders. valueRadix configures the
// variable-length code used by EncodeRank.
func NewStore[V comparable](table *Table[V], maxOrder int, suffixes bool, valueRadix uint8) *Store[V] {
	return &Store[V]{
		table:    table,
		cols:     make([]*Column, maxOrder),
		suffixes: suffixes,
		codec:    bitio.NewVarCodec(valueRadix),
	}
}

// Table returns the rank table.
func (s *Store[V]) Table() *Table[V] { return s.table }

// Radix returns the radix of the rank code.
func (s *Store[V]) Radix() uint8 { return s.codec.Radix }

// Suffixes reports whether suffix offsets are stored.
func (s *Store[V]) Suffixes() bool { return s.suffixes }

// EnsureOrder allocates the column of an order for capacity slots.
func (s *Store[V]) EnsureOrder(order int, capacity uint64) {
	col := s.cols[order]
	if col == nil {
		col = &Column{Ranks: bitpack.New(s.table.Width(), capacity)}
		if s.suffixes {
			col.Suffix = bitpack.New(bitpack.BitsFor(capacity), capacity)
		}
		s.cols[order] = col
	}
	col.Ranks.SetLen(max(col.Ranks.Len(), capacity))
	if col.Suffix != nil {
		col.Suffix.SetLen(max(col.Suffix.Len(), capacity))
	}
}

// Column returns the column of an order, or nil.
func (s *Store[V]) Column(order int) *Column {
	if order < 0 || order >= len(s.cols) {
		return nil
	}
	return s.cols[order]
}

// Set stores x at (order, off). A placeholder never replaces a real value.
func (s *Store[V]) Set(order int, off uint64, x Value[V]) error {
	r, err := s.table.rankOf(x)
	if err != nil {
		return err
	}
	if r == PlaceholderRank {
		return nil
	}
	s.SetRank(order, off, r)
	return nil
}

// Get returns the value at (order, off). Placeholders return false.
func (s *Store[V]) Get(order int, off uint64) (V, bool) {
	return s.table.Value(s.Rank(order, off))
}

// Rank returns the rank at (order, off).
func (s *Store[V]) Rank(order int, off uint64) uint64 {
	col := s.Column(order)
	if col == nil {
		return PlaceholderRank
	}
	return col.Ranks.Get(off)
}

// SetRank stores a raw rank at (order, off), widening the column if the table
// has grown past its width.
func (s *Store[V]) SetRank(order int, off uint64, r uint64) {
	col := s.cols[order]
	if w := bitpack.BitsFor(r); w > col.Ranks.Width() {
		col.Ranks.Widen(w)
	}
	col.Ranks.Set(off, r)
}

// Swap exchanges the values (and suffix offsets) of two slots.
func (s *Store[V]) Swap(order int, i, j uint64) {
	col := s.cols[order]
	col.Ranks.Swap(i, j)
	if col.Suffix != nil {
		col.Suffix.Swap(i, j)
	}
}

// SetSuffix records the back-pointer offset of a slot.
func (s *Store[V]) SetSuffix(order int, off uint64, suffix int64) {
	col := s.cols[order]
	if col.Suffix == nil || suffix < 0 {
		return
	}
	v := uint64(suffix) + 1
	if w := bitpack.BitsFor(v); w > col.Suffix.Width() {
		col.Suffix.Widen(w)
	}
	col.Suffix.Set(off, v)
}

// Suffix returns the back-pointer offset of a slot.
func (s *Store[V]) Suffix(order int, off uint64) (int64, bool) {
	col := s.Column(order)
	if col == nil || col.Suffix == nil {
		return -1, false
	}
	v := col.Suffix.Get(off)
	if v == 0 {
		return -1, false
	}
	return int64(v - 1), true
}

// Detach removes and returns the column of an order.
func (s *Store[V]) Detach(order int) *Column {
	col := s.cols[order]
	s.cols[order] = nil
	return col
}

// CopyFrom copies slot from of src into slot to of the order's column.
func (s *Store[V]) CopyFrom(order int, src *Column, from, to uint64) {
	if r := src.Ranks.Get(from); r != PlaceholderRank {
		s.SetRank(order, to, r)
	}
	if src.Suffix != nil {
		if v := src.Suffix.Get(from); v != 0 {
			s.SetSuffix(order, to, int64(v-1))
		}
	}
}

// Trim shrinks the column of an order to n slots.
func (s *Store[V]) Trim(order int, n uint64) {
	col := s.Column(order)
	if col == nil {
		return
	}
	col.Ranks.SetLen(n)
	col.Ranks.Trim()
	if col.Suffix != nil {
		col.Suffix.SetLen(n)
		col.Suffix.Trim()
	}
}

// Compact re-ranks a growing table by descending frequency across all columns
// and narrows every column to the final rank width. Fixed tables keep their
// ranks. Suffix columns are narrowed to their largest pointer either way. The
// table is fixed afterwards.
func (s *Store[V]) Compact() {
	s.narrowSuffixes()
	if !s.table.growing {
		return
	}
	n := s.table.Len()
	freq := make([]uint64, n)
	for _, col := range s.cols {
		if col == nil {
			continue
		}
		for i := uint64(0); i < col.Ranks.Len(); i++ {
			freq[col.Ranks.Get(i)]++
		}
	}

	byFreq := make([]uint64, 0, n-1)
	for r := uint64(1); r < n; r++ {
		byFreq = append(byFreq, r)
	}
	sort.SliceStable(byFreq, func(i, j int) bool {
		return freq[byFreq[i]] > freq[byFreq[j]]
	})
	perm := make([]uint64, n)
	for nr, old := range byFreq {
		perm[old] = uint64(nr + 1)
	}
	s.table.remap(perm)

	width := s.table.Width()
	for _, col := range s.cols {
		if col == nil {
			continue
		}
		out := bitpack.New(width, col.Ranks.Len())
		out.SetLen(col.Ranks.Len())
		for i := uint64(0); i < col.Ranks.Len(); i++ {
			out.Set(i, perm[col.Ranks.Get(i)])
		}
		col.Ranks = out
	}
}

// narrowSuffixes repacks every suffix column to the width of its largest
// pointer.
func (s *Store[V]) narrowSuffixes() {
	for _, col := range s.cols {
		if col == nil || col.Suffix == nil {
			continue
		}
		var top uint64
		for i := uint64(0); i < col.Suffix.Len(); i++ {
			top = max(top, col.Suffix.Get(i))
		}
		col.Suffix.Narrow(bitpack.BitsFor(top))
	}
}

// EncodeRank appends the variable-length code of r to w.
func (s *Store[V]) EncodeRank(w *bitio.Writer, r uint64) { s.codec.Encode(w, r) }

// DecodeRank reads a rank written by EncodeRank.
func (s *Store[V]) DecodeRank(r *bitio.Reader) uint64 { return s.codec.Decode(r) }

// RankLen returns the encoded size of r in bits.
func (s *Store[V]) RankLen(r uint64) uint64 { return s.codec.Len(r) }

// SizeBytes returns the memory held by all columns.
func (s *Store[V]) SizeBytes() uint64 {
	var total uint64
	for _, col := range s.cols {
		if col == nil {
			continue
		}
		total += col.Ranks.SizeBytes()
		if col.Suffix != nil {
			total += col.Suffix.SizeBytes()
		}
	}
	return total
}

// WriteTo writes the table and every column.
func (s *Store[V]) WriteTo(w io.Writer) (int64, error) {
	n, err := s.table.WriteTo(w)
	if err != nil {
		return n, err
	}
	var hdr [3]byte
	hdr[0] = byte(len(s.cols))
	if s.suffixes {
		hdr[1] = 1
	}
	hdr[2] = s.codec.Radix
	if _, err := w.Write(hdr[:]); err != nil {
		return n, err
	}
	n += int64(len(hdr))
	for _, col := range s.cols {
		present := byte(0)
		if col != nil {
			present = 1
		}
		if _, err := w.Write([]byte{present}); err != nil {
			return n, err
		}
		n++
		if col == nil {
			continue
		}
		m, err := col.Ranks.WriteTo(w)
		n += m
		if err != nil {
			return n, err
		}
		if col.Suffix != nil {
			m, err = col.Suffix.WriteTo(w)
			n += m
			if err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// ReadStore reads a store written by WriteTo.
func ReadStore[V comparable](r io.Reader) (*Store[V], error) {
	table, err := ReadTable[V](r)
	if err != nil {
		return nil, err
	}
	var hdr [3]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if hdr[2] == 0 || hdr[2] > 64 {
		return nil, fmt.Errorf("rank: invalid value radix %d", hdr[2])
	}
	s := NewStore(table, int(hdr[0]), hdr[1] == 1, hdr[2])
	var present [1]byte
	for i := range s.cols {
		if _, err := io.ReadFull(r, present[:]); err != nil {
			return nil, err
		}
		if present[0] == 0 {
			continue
		}
		col := &Column{Ranks: bitpack.New(1, 0)}
		if _, err := col.Ranks.ReadFrom(r); err != nil {
			return nil, err
		}
		if s.suffixes {
			col.Suffix = bitpack.New(1, 0)
			if _, err := col.Suffix.ReadFrom(r); err != nil {
				return nil, err
			}
		}
		s.cols[i] = col
	}
	return s, nil
}

