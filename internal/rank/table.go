package rank

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dolthub/swiss"
	"github.com/hupe1980/ngramstore/internal/bitpack"
)

// ErrUnknownValue is returned when a fixed table is asked for a value it was
// not built with.
var ErrUnknownValue = errors.New("rank: value not present in rank table")

// Histogram counts value occurrences during a counting pass.
type Histogram[V comparable] struct {
	counts *swiss.Map[V, uint64]
	order  []V
}

// NewHistogram creates an empty histogram.
func NewHistogram[V comparable]() *Histogram[V] {
	return &Histogram[V]{counts: swiss.NewMap[V, uint64](64)}
}

// Add records one occurrence of v.
func (h *Histogram[V]) Add(v V) { h.AddN(v, 1) }

// AddN records n occurrences of v.
func (h *Histogram[V]) AddN(v V, n uint64) {
	c, ok := h.counts.Get(v)
	if !ok {
		h.order = append(h.order, v)
	}
	h.counts.Put(v, c+n)
}

// Count returns the number of recorded occurrences of v.
func (h *Histogram[V]) Count(v V) uint64 {
	c, _ := h.counts.Get(v)
	return c
}

// Len returns the number of distinct values.
func (h *Histogram[V]) Len() int { return len(h.order) }

// Merge adds all counts of o into h.
func (h *Histogram[V]) Merge(o *Histogram[V]) {
	for _, v := range o.order {
		h.AddN(v, o.Count(v))
	}
}

// Table maps values to ranks and back.
type Table[V comparable] struct {
	values  []V // values[0] is the placeholder slot
	index   *swiss.Map[V, uint64]
	growing bool
}

// BuildTable creates a fixed table from a histogram. Distinct values are ranked
// by descending frequency, ties broken by first appearance.
func BuildTable[V comparable](h *Histogram[V]) *Table[V] {
	vals := make([]V, len(h.order))
	copy(vals, h.order)
	sort.SliceStable(vals, func(i, j int) bool {
		return h.Count(vals[i]) > h.Count(vals[j])
	})
	return newTable(vals, false)
}

// NewGrowingTable creates a table that assigns ranks on first sight.
// Store.Compact re-ranks it by frequency once the build is complete.
func NewGrowingTable[V comparable]() *Table[V] {
	return newTable[V](nil, true)
}

func newTable[V comparable](vals []V, growing bool) *Table[V] {
	t := &Table[V]{
		values:  make([]V, 1, len(vals)+1),
		index:   swiss.NewMap[V, uint64](uint32(len(vals) + 1)),
		growing: growing,
	}
	for _, v := range vals {
		t.index.Put(v, uint64(len(t.values)))
		t.values = append(t.values, v)
	}
	return t
}

// Len returns the number of ranks, including the placeholder rank.
func (t *Table[V]) Len() uint64 { return uint64(len(t.values)) }

// Width returns the number of bits needed to store any rank of the table.
func (t *Table[V]) Width() uint8 { return bitpack.BitsFor(t.Len() - 1) }

// Growing reports whether unseen values are assigned new ranks.
func (t *Table[V]) Growing() bool { return t.growing }

// Rank returns the rank of v.
func (t *Table[V]) Rank(v V) (uint64, bool) {
	return t.index.Get(v)
}

// Value returns the value for rank r. The placeholder rank returns false.
func (t *Table[V]) Value(r uint64) (V, bool) {
	if r == PlaceholderRank || r >= uint64(len(t.values)) {
		var zero V
		return zero, false
	}
	return t.values[r], true
}

func (t *Table[V]) rankOf(x Value[V]) (uint64, error) {
	v, ok := x.Get()
	if !ok {
		return PlaceholderRank, nil
	}
	if r, ok := t.index.Get(v); ok {
		return r, nil
	}
	if !t.growing {
		return 0, fmt.Errorf("%w: %v", ErrUnknownValue, v)
	}
	r := uint64(len(t.values))
	t.index.Put(v, r)
	t.values = append(t.values, v)
	return r, nil
}

// remap reorders ranks: perm[old] = new. The table stops growing.
func (t *Table[V]) remap(perm []uint64) {
	values := make([]V, len(t.values))
	for old, nr := range perm {
		values[nr] = t.values[old]
	}
	t.values = values
	t.index.Clear()
	for r := 1; r < len(values); r++ {
		t.index.Put(values[r], uint64(r))
	}
	t.growing = false
}

// WriteTo writes the table. V must be a fixed-size type.
func (t *Table[V]) WriteTo(w io.Writer) (int64, error) {
	var hdr [9]byte
	binary.LittleEndian.PutUint64(hdr[:8], uint64(len(t.values)-1))
	if t.growing {
		hdr[8] = 1
	}
	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, t.values[1:]); err != nil {
		return int64(len(hdr)), fmt.Errorf("rank: encode values: %w", err)
	}
	return int64(len(hdr) + binary.Size(t.values[1:])), nil
}

// ReadTable reads a table written by WriteTo.
func ReadTable[V comparable](r io.Reader) (*Table[V], error) {
	var hdr [9]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint64(hdr[:8])
	if n > 1<<32 {
		return nil, fmt.Errorf("rank: implausible table size %d", n)
	}
	vals := make([]V, n)
	if err := binary.Read(r, binary.LittleEndian, vals); err != nil {
		return nil, fmt.Errorf("rank: decode values: %w", err)
	}
	return newTable(vals, hdr[8] == 1), nil
}
