package ngramstore

import (
	"io"
	"iter"
	"time"

	"github.com/hupe1980/ngramstore/internal/compressed"
	"github.com/hupe1980/ngramstore/internal/hashtable"
	"github.com/hupe1980/ngramstore/internal/hashtrie"
	"github.com/hupe1980/ngramstore/internal/rank"
)

// Direction selects which end of an n-gram is consumed first.
type Direction = hashtrie.Direction

const (
	// Forward keys an n-gram by its last word under its prefix.
	Forward = hashtrie.Forward
	// Reversed keys an n-gram by its first word under its suffix.
	Reversed = hashtrie.Reversed
)

// NotFound is the offset of an absent n-gram. As a context offset it also
// denotes the empty context.
const NotFound = hashtable.NotFound

// Value is a stored value or a placeholder that only anchors longer n-grams.
type Value[V comparable] = rank.Value[V]

// Format names the in-memory layout of a model.
type Format string

const (
	FormatHashTrie   Format = "hashtrie"
	FormatCompressed Format = "compressed"
)

// ProbBackoff is the value of a backoff language model: log10 probability
// and log10 backoff weight.
type ProbBackoff struct {
	Prob    float32
	Backoff float32
}

// Count is the value of a count model.
type Count = uint64

// ngramMap is the read surface shared by both map layouts.
type ngramMap[V comparable] interface {
	MaxOrder() int
	Direction() hashtrie.Direction
	VocabSize() int64
	Offset(ctxOff int64, ctxOrder int, word int32) int64
	ValueAndOffset(ctxOff int64, ctxOrder int, word int32) (int64, V, bool)
	OffsetForNgram(ngram []int32) (int64, int)
	Get(ngram []int32) (V, bool)
	Contains(ngram []int32) bool
	Value(order int, off int64) (V, bool)
	Ngrams(order int) iter.Seq2[[]int32, rank.Value[V]]
	Len(order int) int64
	SizeBytes() uint64
	WriteTo(w io.Writer) (int64, error)
}

var (
	_ ngramMap[uint64] = (*hashtrie.Map[uint64])(nil)
	_ ngramMap[uint64] = (*compressed.Map[uint64])(nil)
)

// Model is an immutable n-gram map. It is safe for concurrent readers.
type Model[V comparable] struct {
	m       ngramMap[V]
	format  Format
	metrics MetricsCollector
	logger  *Logger
}

func newModel[V comparable](m ngramMap[V], o *options) *Model[V] {
	format := FormatHashTrie
	if _, ok := m.(*compressed.Map[V]); ok {
		format = FormatCompressed
	}
	return &Model[V]{m: m, format: format, metrics: o.metricsCollector, logger: o.logger}
}

// Format returns the layout of the model.
func (m *Model[V]) Format() Format { return m.format }

// MaxOrder returns the longest n-gram length.
func (m *Model[V]) MaxOrder() int { return m.m.MaxOrder() }

// Direction returns the walk direction the model was built with.
func (m *Model[V]) Direction() Direction { return m.m.Direction() }

// VocabSize returns one past the highest unigram word id.
func (m *Model[V]) VocabSize() int64 { return m.m.VocabSize() }

// Offset extends the context at ctxOff (an n-gram of order ctxOrder, or
// NotFound with ctxOrder -1 for the empty context) by word. It returns
// NotFound if the extended n-gram is absent.
func (m *Model[V]) Offset(ctxOff int64, ctxOrder int, word int32) int64 {
	return m.m.Offset(ctxOff, ctxOrder, word)
}

// ValueAndOffset is Offset plus the value of the extended n-gram. ok is
// false for absent n-grams and for placeholders.
func (m *Model[V]) ValueAndOffset(ctxOff int64, ctxOrder int, word int32) (int64, V, bool) {
	return m.m.ValueAndOffset(ctxOff, ctxOrder, word)
}

// OffsetForNgram walks ngram in the model's direction and returns the offset
// and order of the longest present n-gram along the walk.
func (m *Model[V]) OffsetForNgram(ngram []int32) (int64, int) {
	return m.m.OffsetForNgram(ngram)
}

// Get returns the value of ngram.
func (m *Model[V]) Get(ngram []int32) (V, bool) {
	start := time.Now()
	v, ok := m.m.Get(ngram)
	m.metrics.RecordLookup(time.Since(start), ok)
	return v, ok
}

// Contains reports whether ngram is stored, placeholders included.
func (m *Model[V]) Contains(ngram []int32) bool { return m.m.Contains(ngram) }

// Value returns the value stored at an offset of the given order.
func (m *Model[V]) Value(order int, off int64) (V, bool) { return m.m.Value(order, off) }

// SuffixOffset returns the offset of the n-gram at (order, off) without its
// first consumed word. It needs a hash trie model built WithSuffixOffsets.
func (m *Model[V]) SuffixOffset(order int, off int64) (int64, bool) {
	if h, ok := m.m.(*hashtrie.Map[V]); ok {
		return h.SuffixOffset(order, off)
	}
	return NotFound, false
}

// LongestValue backs off from ngram until an n-gram with a value is found.
// Placeholders are skipped. It returns the value and the length of the
// n-gram it belongs to.
func (m *Model[V]) LongestValue(ngram []int32) (V, int, bool) {
	start := time.Now()
	dir := m.m.Direction()
	for sub := ngram; len(sub) > 0; sub = dir.Backoff(sub) {
		if len(sub) > m.m.MaxOrder() {
			continue
		}
		if v, ok := m.m.Get(sub); ok {
			m.metrics.RecordLookup(time.Since(start), true)
			return v, len(sub), true
		}
	}
	m.metrics.RecordLookup(time.Since(start), false)
	var zero V
	return zero, 0, false
}

// Ngrams iterates every n-gram of length order+1, placeholders included.
func (m *Model[V]) Ngrams(order int) iter.Seq2[[]int32, Value[V]] { return m.m.Ngrams(order) }

// Len returns the number of n-grams of length order+1.
func (m *Model[V]) Len(order int) int64 { return m.m.Len(order) }

// SizeBytes returns the memory held by the model's arrays.
func (m *Model[V]) SizeBytes() uint64 { return m.m.SizeBytes() }

// OrderStats describes one order of a model.
type OrderStats struct {
	Order   int
	Entries int64
	// Table names the hash table variant of a hash trie order.
	Table string
	// Capacity is the slot count of a hash trie order.
	Capacity int64
	// Blocks is the block count of a compressed order.
	Blocks uint64
}

// Stats summarizes a model.
type Stats struct {
	Format    Format
	Direction string
	VocabSize int64
	SizeBytes uint64
	Orders    []OrderStats
}

// Stats returns per-order entry counts and sizes.
func (m *Model[V]) Stats() Stats {
	s := Stats{
		Format:    m.format,
		Direction: m.m.Direction().String(),
		VocabSize: m.m.VocabSize(),
		SizeBytes: m.m.SizeBytes(),
	}
	for order := range m.m.MaxOrder() {
		st := OrderStats{Order: order, Entries: m.m.Len(order)}
		switch t := m.m.(type) {
		case *hashtrie.Map[V]:
			st.Capacity = t.Capacity(order)
			if kind, ok := t.Kind(order); ok {
				st.Table = kind.String()
			}
		case *compressed.Map[V]:
			st.Blocks = t.Blocks(order)
		}
		s.Orders = append(s.Orders, st)
	}
	return s
}

// ReadProb returns the log10 probability of ngram.
func ReadProb(m *Model[ProbBackoff], ngram []int32) (float32, bool) {
	v, ok := m.Get(ngram)
	return v.Prob, ok
}

// ReadBackoff returns the log10 backoff weight of ngram, or 0 (no penalty)
// when ngram has no value.
func ReadBackoff(m *Model[ProbBackoff], ngram []int32) float32 {
	v, _ := m.Get(ngram)
	return v.Backoff
}

// ReadCount returns the count of ngram, or 0 when it is absent.
func ReadCount(m *Model[Count], ngram []int32) Count {
	v, _ := m.Get(ngram)
	return v
}
