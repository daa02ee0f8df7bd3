package compressed

import (
	"fmt"
	"sort"

	"github.com/hupe1980/ngramstore/internal/bitpack"
	"github.com/hupe1980/ngramstore/internal/hashtable"
	"github.com/hupe1980/ngramstore/internal/hashtrie"
	"github.com/hupe1980/ngramstore/internal/rank"
)

// Builder collects one order at a time and compresses it on Seal.
type Builder[V comparable] struct {
	m      *Map[V]
	open   int            // lowest unsealed order
	keys   *bitpack.Array // pending packed keys of the open order
	frozen bool
}

// NewBuilder creates a builder over a fixed rank table.
func NewBuilder[V comparable](cfg Config, table *rank.Table[V]) (*Builder[V], error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if table.Growing() {
		return nil, ErrGrowingTable
	}
	layout, err := hashtable.NewLayout(cfg.WordBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hashtrie.ErrInvalidConfig, err)
	}
	values := rank.NewStore(table, cfg.MaxOrder, false, cfg.ValueRadix)
	values.EnsureOrder(0, 0)
	m := &Map[V]{
		cfg:      cfg,
		layout:   layout,
		codec:    newCodec(cfg, layout, values),
		unigrams: hashtable.NewUnigram(0),
		values:   values,
		streams:  make([]*stream, cfg.MaxOrder),
	}
	return &Builder[V]{m: m, keys: bitpack.New(64, 0)}, nil
}

// Put appends ngram with value v to the open order. Offsets are final only
// after sealing, so the returned value is the insertion index for orders
// above unigrams.
func (b *Builder[V]) Put(ngram []int32, v V) (int64, error) {
	return b.put(ngram, rank.Some(v))
}

// PutPlaceholder appends ngram without a value.
func (b *Builder[V]) PutPlaceholder(ngram []int32) (int64, error) {
	return b.put(ngram, rank.Placeholder[V]())
}

func (b *Builder[V]) put(ngram []int32, x rank.Value[V]) (int64, error) {
	if b.frozen {
		return NotFound, hashtrie.ErrFrozen
	}
	m := b.m
	if err := hashtrie.ValidateNgram(ngram, m.cfg.MaxOrder); err != nil {
		return NotFound, err
	}
	order := len(ngram) - 1
	switch {
	case order < b.open:
		return NotFound, fmt.Errorf("%w: order %d", hashtrie.ErrSealed, order)
	case order > b.open:
		return NotFound, fmt.Errorf("%w: put order %d while order %d is open", ErrOrderNotReady, order, b.open)
	}
	if v, ok := x.Get(); ok {
		if _, known := m.values.Table().Rank(v); !known {
			return NotFound, fmt.Errorf("compressed: put %v: %w", ngram, rank.ErrUnknownValue)
		}
	}

	ctx := NotFound
	for i := 0; i < order; i++ {
		next := m.Offset(ctx, i-1, m.cfg.Direction.Word(ngram, i))
		if next == NotFound {
			return NotFound, hashtrie.NewGapError(ngram, m.cfg.Direction, i)
		}
		ctx = next
	}
	word := m.cfg.Direction.Word(ngram, order)

	if order == 0 {
		off, _, err := m.unigrams.Put(hashtable.Key{Word: word, Context: NotFound})
		if err != nil {
			return NotFound, err
		}
		return off, m.values.Set(0, uint64(off), x)
	}

	key, err := m.layout.Pack(hashtable.Key{Word: word, Context: ctx})
	if err != nil {
		return NotFound, fmt.Errorf("compressed: put %v: %w", ngram, err)
	}
	idx := b.keys.Len()
	b.keys.Append(key)
	m.values.EnsureOrder(order, idx+1)
	if err := m.values.Set(order, idx, x); err != nil {
		return NotFound, err
	}
	return int64(idx), nil
}

// Seal closes every order up to and including order. Sealing an order twice
// is a no-op.
func (b *Builder[V]) Seal(order int) error {
	if b.frozen {
		return hashtrie.ErrFrozen
	}
	if order < 0 || order >= b.m.cfg.MaxOrder {
		return fmt.Errorf("%w: seal order %d of %d", hashtrie.ErrInvalidConfig, order, b.m.cfg.MaxOrder)
	}
	for b.open <= order {
		if err := b.sealOpen(); err != nil {
			return err
		}
	}
	return nil
}

// Sealed reports whether order has been sealed.
func (b *Builder[V]) Sealed(order int) bool { return order < b.open }

func (b *Builder[V]) sealOpen() error {
	m, order := b.m, b.open
	if order == 0 {
		m.vocab = m.unigrams.Capacity()
		m.values.Trim(0, uint64(m.vocab))
		b.open++
		return nil
	}

	m.values.EnsureOrder(order, b.keys.Len())
	p := &pending[V]{keys: b.keys, values: m.values, order: order}
	sort.Stable(p)
	n := p.dedupe()

	s, err := m.codec.encode(n,
		func(i uint64) uint64 { return b.keys.Get(i) },
		func(i uint64) uint64 { return m.values.Rank(order, i) },
	)
	if err != nil {
		return fmt.Errorf("compressed: seal order %d: %w", order, err)
	}
	m.streams[order] = s
	m.values.Detach(order)
	b.keys = bitpack.New(64, 0)
	b.open++
	return nil
}

// Freeze seals every remaining order and returns the map.
func (b *Builder[V]) Freeze() (*Map[V], error) {
	if b.frozen {
		return nil, hashtrie.ErrFrozen
	}
	if err := b.Seal(b.m.cfg.MaxOrder - 1); err != nil {
		return nil, err
	}
	m := b.m
	b.frozen = true
	b.m = nil
	return m, nil
}

// pending sorts the keys of an open order together with their ranks.
type pending[V comparable] struct {
	keys   *bitpack.Array
	values *rank.Store[V]
	order  int
}

func (p *pending[V]) Len() int           { return int(p.keys.Len()) }
func (p *pending[V]) Less(i, j int) bool { return p.keys.Get(uint64(i)) < p.keys.Get(uint64(j)) }
func (p *pending[V]) Swap(i, j int) {
	p.keys.Swap(uint64(i), uint64(j))
	p.values.Swap(p.order, uint64(i), uint64(j))
}

// dedupe merges runs of equal keys in place. The last real value of a run
// wins over earlier ones and over placeholders. It returns the new length.
func (p *pending[V]) dedupe() uint64 {
	n := p.keys.Len()
	var out uint64
	for i := uint64(0); i < n; {
		key := p.keys.Get(i)
		r := p.values.Rank(p.order, i)
		j := i + 1
		for ; j < n && p.keys.Get(j) == key; j++ {
			if rj := p.values.Rank(p.order, j); rj != rank.PlaceholderRank {
				r = rj
			}
		}
		p.keys.Set(out, key)
		p.values.SetRank(p.order, out, r)
		out++
		i = j
	}
	p.keys.SetLen(out)
	return out
}
