package hashtrie

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/ngramstore/internal/rank"
)

// Counter accumulates the statistics an implicit build is sized from: per
// order, how many n-grams each key word heads.
type Counter[V comparable] struct {
	maxOrder  int
	direction Direction
	totals    []uint64
	words     [][]uint64
	vocab     *bitset.BitSet
	vocabSize int64
	hist      *rank.Histogram[V]
}

// NewCounter creates a counter for n-grams up to maxOrder words.
func NewCounter[V comparable](maxOrder int, direction Direction) *Counter[V] {
	return &Counter[V]{
		maxOrder:  maxOrder,
		direction: direction,
		totals:    make([]uint64, maxOrder),
		words:     make([][]uint64, maxOrder),
		vocab:     bitset.New(0),
		hist:      rank.NewHistogram[V](),
	}
}

// Add counts an n-gram carrying v.
func (c *Counter[V]) Add(ngram []int32, v V) error {
	if err := c.AddPlaceholder(ngram); err != nil {
		return err
	}
	c.hist.Add(v)
	return nil
}

// AddPlaceholder counts an n-gram without a value.
func (c *Counter[V]) AddPlaceholder(ngram []int32) error {
	if err := ValidateNgram(ngram, c.maxOrder); err != nil {
		return err
	}
	for _, w := range ngram {
		c.vocab.Set(uint(w))
		c.vocabSize = max(c.vocabSize, int64(w)+1)
	}
	order := len(ngram) - 1
	c.totals[order]++
	w := c.direction.Word(ngram, order)
	counts := c.words[order]
	if int(w) >= len(counts) {
		counts = append(counts, make([]uint64, int(w)+1-len(counts))...)
		c.words[order] = counts
	}
	counts[w]++
	return nil
}

// MaxOrder returns the configured n-gram length bound.
func (c *Counter[V]) MaxOrder() int { return c.maxOrder }

// Total returns the number of n-grams counted at order.
func (c *Counter[V]) Total(order int) uint64 { return c.totals[order] }

// WordCounts returns the per-key-word counts of order. The slice is shared.
func (c *Counter[V]) WordCounts(order int) []uint64 { return c.words[order] }

// VocabSize returns the highest word id seen plus one.
func (c *Counter[V]) VocabSize() int64 { return c.vocabSize }

// Words returns the number of distinct word ids seen.
func (c *Counter[V]) Words() uint { return c.vocab.Count() }

// Histogram returns the value histogram.
func (c *Counter[V]) Histogram() *rank.Histogram[V] { return c.hist }

// Merge folds the counts of o into c.
func (c *Counter[V]) Merge(o *Counter[V]) error {
	if o.maxOrder != c.maxOrder || o.direction != c.direction {
		return fmt.Errorf("%w: merging counters of different shape", ErrInvalidConfig)
	}
	for order := range c.totals {
		c.totals[order] += o.totals[order]
		counts := c.words[order]
		if n := len(o.words[order]); n > len(counts) {
			counts = append(counts, make([]uint64, n-len(counts))...)
			c.words[order] = counts
		}
		for w, n := range o.words[order] {
			counts[w] += n
		}
	}
	c.vocab.InPlaceUnion(o.vocab)
	c.vocabSize = max(c.vocabSize, o.vocabSize)
	c.hist.Merge(o.hist)
	return nil
}

// ValidateNgram checks length and word ids of an n-gram.
func ValidateNgram(ngram []int32, maxOrder int) error {
	if len(ngram) == 0 || len(ngram) > maxOrder {
		return fmt.Errorf("%w: length %d, max order %d", ErrInvalidNgram, len(ngram), maxOrder)
	}
	for _, w := range ngram {
		if w < 0 {
			return fmt.Errorf("%w: negative word id %d", ErrInvalidNgram, w)
		}
	}
	return nil
}
