package hashtrie

import (
	"iter"
	"slices"

	"github.com/hupe1980/ngramstore/internal/hashtable"
	"github.com/hupe1980/ngramstore/internal/rank"
)

// NotFound is the offset of an absent n-gram.
const NotFound = hashtable.NotFound

// trie holds the state shared by Builder and Map.
type trie[V comparable] struct {
	cfg    Config
	layout hashtable.Layout
	tables []hashtable.Table
	values *rank.Store[V]
	vocab  int64
}

func (t *trie[V]) word(ngram []int32, i int) int32 { return t.cfg.Direction.Word(ngram, i) }

func (t *trie[V]) sub(ngram []int32, n int) []int32 { return t.cfg.Direction.Sub(ngram, n) }

func (t *trie[V]) backoff(ngram []int32) []int32 { return t.cfg.Direction.Backoff(ngram) }

func (t *trie[V]) offset(ctxOff int64, ctxOrder int, word int32) int64 {
	order := ctxOrder + 1
	if order < 0 || order >= len(t.tables) || word < 0 {
		return NotFound
	}
	if order > 0 && ctxOff < 0 {
		return NotFound
	}
	return t.tables[order].Offset(hashtable.Key{Word: word, Context: ctxOff})
}

// walk extends the context one word at a time and stops at the first miss.
// It returns the offset and order of the longest match, or NotFound and -1.
func (t *trie[V]) walk(ngram []int32) (off int64, order int) {
	off, order = NotFound, -1
	for i := range ngram {
		next := t.offset(off, i-1, t.word(ngram, i))
		if next == NotFound {
			break
		}
		off, order = next, i
	}
	return off, order
}

func (t *trie[V]) exact(ngram []int32) int64 {
	if len(ngram) == 0 {
		return NotFound
	}
	off, order := t.walk(ngram)
	if order != len(ngram)-1 {
		return NotFound
	}
	return off
}

func (t *trie[V]) get(ngram []int32) (V, bool) {
	off := t.exact(ngram)
	if off == NotFound {
		var zero V
		return zero, false
	}
	return t.values.Get(len(ngram)-1, uint64(off))
}

func (t *trie[V]) valueAt(order int, off int64) (V, bool) {
	if order < 0 || order >= len(t.tables) || off < 0 {
		var zero V
		return zero, false
	}
	return t.values.Get(order, uint64(off))
}

func (t *trie[V]) rankedValue(order int, off int64) rank.Value[V] {
	if v, ok := t.values.Get(order, uint64(off)); ok {
		return rank.Some(v)
	}
	return rank.Placeholder[V]()
}

// ngramAt rebuilds the words of the n-gram at (order, off) by following
// context offsets down to the unigram.
func (t *trie[V]) ngramAt(order int, off int64) []int32 {
	words := make([]int32, order+1)
	for k := order; k >= 0; k-- {
		key := t.tables[k].Key(off)
		words[k] = key.Word
		off = key.Context
	}
	if t.cfg.Direction == Reversed {
		slices.Reverse(words)
	}
	return words
}

func (t *trie[V]) ngrams(order int) iter.Seq2[[]int32, rank.Value[V]] {
	return func(yield func([]int32, rank.Value[V]) bool) {
		if order < 0 || order >= len(t.tables) {
			return
		}
		for off := range t.tables[order].All() {
			if !yield(t.ngramAt(order, off), t.rankedValue(order, off)) {
				return
			}
		}
	}
}

func (t *trie[V]) sizeBytes() uint64 {
	total := t.values.SizeBytes()
	for _, tbl := range t.tables {
		total += tbl.SizeBytes()
	}
	return total
}
