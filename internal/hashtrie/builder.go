package hashtrie

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/hupe1980/ngramstore/internal/hashtable"
	"github.com/hupe1980/ngramstore/internal/rank"
)

// Builder is the mutable, insert-only phase of a trie.
type Builder[V comparable] struct {
	trie[V]
	explicit bool
	sealed   []bool
	frozen   bool
	mu       *sync.Mutex
	rehashes int
}

// NewImplicit creates a builder whose tables are sized exactly from a
// counting pass. Values are ranked by the counter's histogram, so every value
// put later must have been counted.
func NewImplicit[V comparable](cfg Config, counter *Counter[V]) (*Builder[V], error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if counter.MaxOrder() != cfg.MaxOrder || counter.direction != cfg.Direction {
		return nil, fmt.Errorf("%w: counter shape does not match config", ErrInvalidConfig)
	}
	b, err := newBuilder(cfg, rank.BuildTable(counter.Histogram()))
	if err != nil {
		return nil, err
	}

	vocab := uint64(counter.VocabSize())
	b.tables[0] = hashtable.NewUnigram(vocab)
	b.values.EnsureOrder(0, vocab)
	limit := vocab
	for order := 1; order < cfg.MaxOrder; order++ {
		ranges := hashtable.NewRanges(counter.WordCounts(order), cfg.LoadFactor)
		b.tables[order] = hashtable.NewImplicit(b.layout, ranges, limit)
		b.values.EnsureOrder(order, ranges.Total())
		limit = ranges.Total()
	}
	return b, nil
}

// NewExplicit creates a builder that grows its tables on demand. capacities
// holds optional initial slot counts per order; index 0 sizes the vocabulary.
// Ranks are assigned on first sight and re-ranked by frequency on Freeze.
func NewExplicit[V comparable](cfg Config, capacities []uint64) (*Builder[V], error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	b, err := newBuilder(cfg, rank.NewGrowingTable[V]())
	if err != nil {
		return nil, err
	}
	b.explicit = true
	capacity := func(order int) uint64 {
		if order < len(capacities) && capacities[order] > 0 {
			return capacities[order]
		}
		return defaultExplicitCapacity
	}
	b.tables[0] = hashtable.NewUnigram(capacity(0))
	b.values.EnsureOrder(0, capacity(0))
	for order := 1; order < cfg.MaxOrder; order++ {
		// Keep the initial load under the growth threshold.
		c := uint64(math.Ceil(float64(capacity(order)) / cfg.MaxLoadFactor))
		b.tables[order] = hashtable.NewExplicit(b.layout, c)
		b.values.EnsureOrder(order, c)
	}
	return b, nil
}

func newBuilder[V comparable](cfg Config, table *rank.Table[V]) (*Builder[V], error) {
	layout, err := hashtable.NewLayout(cfg.WordBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	b := &Builder[V]{
		trie: trie[V]{
			cfg:    cfg,
			layout: layout,
			tables: make([]hashtable.Table, cfg.MaxOrder),
			values: rank.NewStore(table, cfg.MaxOrder, cfg.StoreSuffixOffsets, cfg.ValueRadix),
		},
		sealed: make([]bool, cfg.MaxOrder),
	}
	if cfg.Locked {
		b.mu = &sync.Mutex{}
	}
	return b, nil
}

func (b *Builder[V]) lock() {
	if b.mu != nil {
		b.mu.Lock()
	}
}

func (b *Builder[V]) unlock() {
	if b.mu != nil {
		b.mu.Unlock()
	}
}

// Config returns the effective configuration.
func (b *Builder[V]) Config() Config { return b.cfg }

// Rehashes returns the number of growth steps so far.
func (b *Builder[V]) Rehashes() int {
	b.lock()
	defer b.unlock()
	return b.rehashes
}

// Put inserts ngram with value v and returns its offset at order
// len(ngram)-1. Every shorter context n-gram must already be present,
// otherwise a *GapError lists the missing ones.
func (b *Builder[V]) Put(ngram []int32, v V) (int64, error) {
	return b.put(ngram, rank.Some(v))
}

// PutPlaceholder inserts ngram without a value. An existing value is kept.
func (b *Builder[V]) PutPlaceholder(ngram []int32) (int64, error) {
	return b.put(ngram, rank.Placeholder[V]())
}

func (b *Builder[V]) put(ngram []int32, x rank.Value[V]) (int64, error) {
	b.lock()
	defer b.unlock()

	if b.frozen {
		return NotFound, ErrFrozen
	}
	if err := ValidateNgram(ngram, b.cfg.MaxOrder); err != nil {
		return NotFound, err
	}
	order := len(ngram) - 1
	if b.sealed[order] {
		return NotFound, fmt.Errorf("%w: order %d", ErrSealed, order)
	}

	if v, ok := x.Get(); ok && !b.values.Table().Growing() {
		if _, known := b.values.Table().Rank(v); !known {
			return NotFound, fmt.Errorf("hashtrie: put %v: %w", ngram, rank.ErrUnknownValue)
		}
	}

	ctx := NotFound
	for i := 0; i < order; i++ {
		next := b.offset(ctx, i-1, b.word(ngram, i))
		if next == NotFound {
			return NotFound, NewGapError(ngram, b.cfg.Direction, i)
		}
		ctx = next
	}

	key := hashtable.Key{Word: b.word(ngram, order), Context: ctx}
	off, err := b.insert(order, key)
	if err != nil {
		return NotFound, fmt.Errorf("hashtrie: put %v: %w", ngram, err)
	}
	if err := b.values.Set(order, uint64(off), x); err != nil {
		return NotFound, fmt.Errorf("hashtrie: put %v: %w", ngram, err)
	}
	if b.cfg.StoreSuffixOffsets && order > 0 {
		b.values.SetSuffix(order, uint64(off), b.exact(b.backoff(ngram)))
	}
	return off, nil
}

func (b *Builder[V]) insert(order int, key hashtable.Key) (int64, error) {
	tbl := b.tables[order]
	if !b.explicit {
		off, _, err := tbl.Put(key)
		return off, err
	}
	if off := tbl.Offset(key); off != NotFound {
		return off, nil
	}
	if order > 0 && tbl.(*hashtable.Explicit).NeedsGrow(b.cfg.MaxLoadFactor) {
		if err := b.grow(order); err != nil {
			return NotFound, err
		}
	}
	off, _, err := b.tables[order].Put(key)
	return off, err
}

// grow enlarges an explicit order and rebuilds every order above it, since
// their context offsets point into renumbered tables.
func (b *Builder[V]) grow(order int) error {
	oldCapacity := b.tables[order].Capacity()
	var remap []int64
	for k := order; k < b.cfg.MaxOrder; k++ {
		old := b.tables[k].(*hashtable.Explicit)
		capacity := uint64(old.Capacity())
		if k == order {
			capacity = uint64(math.Ceil(float64(capacity) * b.cfg.GrowthFactor))
		}
		tbl := hashtable.NewExplicit(b.layout, capacity)
		src := b.values.Detach(k)
		b.values.EnsureOrder(k, capacity)

		next := make([]int64, old.Capacity())
		for off, key := range old.All() {
			if k > order {
				key.Context = remap[key.Context]
			}
			n, _, err := tbl.Put(key)
			if err != nil {
				return fmt.Errorf("rehash order %d: %w", k, err)
			}
			next[off] = n
			b.values.CopyFrom(k, src, uint64(off), uint64(n))
			if k > order && src.Suffix != nil {
				if s := src.Suffix.Get(uint64(off)); s != 0 {
					b.values.SetSuffix(k, uint64(n), remap[s-1])
				}
			}
		}
		b.tables[k] = tbl
		remap = next
	}
	b.rehashes++
	if b.cfg.OnRehash != nil {
		b.cfg.OnRehash(order, oldCapacity, b.tables[order].Capacity())
	}
	return nil
}

// Seal closes an order for insertion and trims its value storage. Sealing
// twice is a no-op.
func (b *Builder[V]) Seal(order int) error {
	b.lock()
	defer b.unlock()
	if b.frozen {
		return ErrFrozen
	}
	return b.seal(order)
}

func (b *Builder[V]) seal(order int) error {
	if order < 0 || order >= b.cfg.MaxOrder {
		return fmt.Errorf("%w: seal order %d of %d", ErrInvalidConfig, order, b.cfg.MaxOrder)
	}
	if b.sealed[order] {
		return nil
	}
	tbl := b.tables[order]
	if order == 0 {
		b.vocab = tbl.Capacity()
	}
	b.values.Trim(order, uint64(tbl.Capacity()))
	b.sealed[order] = true
	return nil
}

// Sealed reports whether order has been sealed.
func (b *Builder[V]) Sealed(order int) bool {
	b.lock()
	defer b.unlock()
	return order >= 0 && order < len(b.sealed) && b.sealed[order]
}

// OffsetForNgram looks up the longest match along the walk of ngram. It may be
// used while building.
func (b *Builder[V]) OffsetForNgram(ngram []int32) (int64, int) {
	b.lock()
	defer b.unlock()
	if b.frozen {
		return NotFound, -1
	}
	return b.walk(ngram)
}

// Contains reports whether ngram has a slot, placeholder or not.
func (b *Builder[V]) Contains(ngram []int32) bool {
	b.lock()
	defer b.unlock()
	return !b.frozen && b.exact(ngram) != NotFound
}

// Len returns the number of n-grams at order.
func (b *Builder[V]) Len(order int) int64 {
	b.lock()
	defer b.unlock()
	if b.frozen || order < 0 || order >= len(b.tables) {
		return 0
	}
	return b.tables[order].Len()
}

// fillSuffixes sets the back-pointers of n-grams whose suffix arrived after
// them. Growing builds accept n-grams in any order across lengths.
func (b *Builder[V]) fillSuffixes() {
	if !b.cfg.StoreSuffixOffsets {
		return
	}
	for order := 1; order < b.cfg.MaxOrder; order++ {
		for off := range b.tables[order].All() {
			if _, ok := b.values.Suffix(order, uint64(off)); ok {
				continue
			}
			b.values.SetSuffix(order, uint64(off), b.exact(b.backoff(b.ngramAt(order, off))))
		}
	}
}

// Freeze seals every order, finalizes value ranks and hands the tables to an
// immutable Map. The builder is unusable afterwards.
func (b *Builder[V]) Freeze() (*Map[V], error) {
	b.lock()
	defer b.unlock()
	if b.frozen {
		return nil, ErrFrozen
	}
	var errs []error
	for order := range b.cfg.MaxOrder {
		errs = append(errs, b.seal(order))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	b.fillSuffixes()
	b.values.Compact()

	m := &Map[V]{trie: b.trie}
	b.frozen = true
	b.trie = trie[V]{cfg: b.cfg}
	return m, nil
}
