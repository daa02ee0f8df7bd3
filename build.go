package ngramstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/dolthub/swiss"
	"github.com/hupe1980/ngramstore/internal/compressed"
	"github.com/hupe1980/ngramstore/internal/hashtrie"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Phase is a step of a build.
type Phase uint8

const (
	// PhaseCounting sizes the tables of a counted build.
	PhaseCounting Phase = iota
	// PhaseInserting streams the source into the tables.
	PhaseInserting
	// PhaseCollectingGaps merges the contexts that were missing on insertion.
	PhaseCollectingGaps
	// PhaseBackfilling inserts placeholders for the missing contexts.
	PhaseBackfilling
	// PhaseReplaying re-inserts the n-grams that failed on a missing context.
	PhaseReplaying
	// PhaseSealed finalizes every order.
	PhaseSealed
)

func (p Phase) String() string {
	switch p {
	case PhaseCounting:
		return "counting"
	case PhaseInserting:
		return "inserting"
	case PhaseCollectingGaps:
		return "collecting_gaps"
	case PhaseBackfilling:
		return "backfilling"
	case PhaseReplaying:
		return "replaying"
	case PhaseSealed:
		return "sealed"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Source yields n-grams with their values, one at a time. A build may scan
// a source several times and every scan must yield the same sequence. fn
// must not retain ngram.
type Source[V comparable] interface {
	Scan(ctx context.Context, fn func(ngram []int32, v V) error) error
}

// SourceFunc adapts a function to a Source.
type SourceFunc[V comparable] func(ctx context.Context, fn func(ngram []int32, v V) error) error

// Scan implements Source.
func (f SourceFunc[V]) Scan(ctx context.Context, fn func(ngram []int32, v V) error) error {
	return f(ctx, fn)
}

// Entry is one n-gram of a SliceSource.
type Entry[V comparable] struct {
	Ngram []int32
	Value V
}

// SliceSource is an in-memory Source.
type SliceSource[V comparable] []Entry[V]

// Scan implements Source.
func (s SliceSource[V]) Scan(ctx context.Context, fn func(ngram []int32, v V) error) error {
	for i, e := range s {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(e.Ngram, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Build reads src into a model.
//
// By default the source is scanned once to count n-grams per word and once
// more per order to insert them into exactly sized tables. WithGrowth builds
// in one pass over growing tables instead. N-grams whose contexts are absent
// get placeholder contexts inserted and are then replayed.
func Build[V comparable](ctx context.Context, src Source[V], optFns ...Option) (*Model[V], error) {
	return BuildConcurrent(ctx, []Source[V]{src}, optFns...)
}

// BuildConcurrent is Build over several shards of one n-gram collection.
// Shards are scanned concurrently and feed one builder.
func BuildConcurrent[V comparable](ctx context.Context, srcs []Source[V], optFns ...Option) (*Model[V], error) {
	o := applyOptions(optFns)
	if len(srcs) == 0 {
		return nil, fmt.Errorf("%w: no sources", ErrInvalidConfig)
	}
	if o.maxOrder < 1 {
		return nil, fmt.Errorf("%w: max order %d", ErrInvalidConfig, o.maxOrder)
	}

	d := &driver[V]{
		o:        &o,
		srcs:     srcs,
		gaps:     newGapSet(),
		progress: &rate.Sometimes{Interval: o.progressInterval},
	}

	var (
		hm  *hashtrie.Map[V]
		err error
	)
	if o.explicit {
		hm, err = d.buildExplicit(ctx)
	} else {
		hm, err = d.buildImplicit(ctx)
	}
	if err != nil {
		d.finish(ctx)
		return nil, translateError(err)
	}

	var m ngramMap[V] = hm
	d.enter(ctx, PhaseSealed)
	if o.compressed {
		cm, err := d.compress(ctx, hm)
		if err != nil {
			d.finish(ctx)
			return nil, translateError(err)
		}
		m = cm
	}
	d.finish(ctx)
	return newModel(m, &o), nil
}

// driver runs the phases of one build.
type driver[V comparable] struct {
	o        *options
	srcs     []Source[V]
	gaps     *gapSet
	progress *rate.Sometimes

	phase  Phase
	start  time.Time
	ngrams atomic.Int64
}

func (d *driver[V]) enter(ctx context.Context, p Phase) {
	d.finish(ctx)
	d.phase = p
	d.start = time.Now()
	d.ngrams.Store(0)
}

func (d *driver[V]) finish(ctx context.Context) {
	if d.start.IsZero() {
		return
	}
	elapsed := time.Since(d.start)
	d.o.logger.LogPhase(ctx, d.phase, d.ngrams.Load(), elapsed)
	d.o.metricsCollector.RecordPhase(d.phase, elapsed)
	d.start = time.Time{}
}

func (d *driver[V]) tick(ctx context.Context) {
	n := d.ngrams.Add(1)
	d.progress.Do(func() { d.o.logger.LogProgress(ctx, d.phase, n) })
}

// scan runs every source concurrently. pos is the position of the n-gram
// within its shard.
func (d *driver[V]) scan(ctx context.Context, fn func(shard int, pos uint64, ngram []int32, v V) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for shard, src := range d.srcs {
		g.Go(func() error {
			var pos uint64
			return src.Scan(ctx, func(ngram []int32, v V) error {
				p := pos
				pos++
				d.tick(ctx)
				return fn(shard, p, ngram, v)
			})
		})
	}
	return g.Wait()
}

func (d *driver[V]) put(b *hashtrie.Builder[V], ngram []int32, v V) error {
	_, err := b.Put(ngram, v)
	d.o.metricsCollector.RecordPut(len(ngram)-1, false, err)
	return err
}

func (d *driver[V]) putPlaceholder(b *hashtrie.Builder[V], ngram []int32) error {
	_, err := b.PutPlaceholder(ngram)
	d.o.metricsCollector.RecordPut(len(ngram)-1, true, err)
	if errors.Is(err, hashtrie.ErrStructuralGap) {
		return fmt.Errorf("%w: %w", ErrGapsNotConverged, err)
	}
	return err
}

func (d *driver[V]) seal(ctx context.Context, order int, seal func(int) error, entries int64) error {
	start := time.Now()
	err := seal(order)
	d.o.logger.LogSeal(ctx, order, entries, err)
	if err == nil {
		d.o.metricsCollector.RecordSeal(order, entries, time.Since(start))
	}
	return err
}

func (d *driver[V]) freeze(ctx context.Context, b *hashtrie.Builder[V]) (*hashtrie.Map[V], error) {
	for order := range d.o.maxOrder {
		if b.Sealed(order) {
			continue
		}
		if err := d.seal(ctx, order, b.Seal, b.Len(order)); err != nil {
			return nil, err
		}
	}
	return b.Freeze()
}

// buildImplicit counts, then inserts order by order. Missing contexts are
// resolved by recounting with placeholders and rebuilding, since counted
// tables cannot grow.
func (d *driver[V]) buildImplicit(ctx context.Context) (*hashtrie.Map[V], error) {
	d.enter(ctx, PhaseCounting)
	counters := make([]*hashtrie.Counter[V], len(d.srcs))
	for i := range counters {
		counters[i] = hashtrie.NewCounter[V](d.o.maxOrder, d.o.direction)
	}
	err := d.scan(ctx, func(shard int, _ uint64, ngram []int32, v V) error {
		return counters[shard].Add(ngram, v)
	})
	if err != nil {
		return nil, err
	}
	counter := counters[0]
	for _, c := range counters[1:] {
		if err := counter.Merge(c); err != nil {
			return nil, err
		}
	}

	d.enter(ctx, PhaseInserting)
	b, failed, err := d.insertByOrder(ctx, counter, nil)
	if err != nil {
		return nil, err
	}
	if failed == 0 {
		return d.freeze(ctx, b)
	}

	d.enter(ctx, PhaseCollectingGaps)
	gaps := d.gaps.sorted()
	for _, g := range gaps {
		if err := counter.AddPlaceholder(g); err != nil {
			return nil, err
		}
	}
	d.o.logger.LogGaps(ctx, len(gaps), int(failed))
	d.o.metricsCollector.RecordGaps(len(gaps), int(failed))

	d.enter(ctx, PhaseBackfilling)
	b, failed, err = d.insertByOrder(ctx, counter, gaps)
	if err != nil {
		return nil, err
	}
	if failed > 0 {
		return nil, fmt.Errorf("%w: %d n-grams still miss a context", ErrGapsNotConverged, failed)
	}
	return d.freeze(ctx, b)
}

// insertByOrder fills a counted builder one order at a time: the
// placeholders of that length first, then the source n-grams of that length.
// placeholders must be sorted by length.
func (d *driver[V]) insertByOrder(ctx context.Context, counter *hashtrie.Counter[V], placeholders [][]int32) (*hashtrie.Builder[V], int64, error) {
	b, err := hashtrie.NewImplicit(d.o.trieConfig(len(d.srcs) > 1), counter)
	if err != nil {
		return nil, 0, err
	}

	var failed atomic.Int64
	for order := range d.o.maxOrder {
		for len(placeholders) > 0 && len(placeholders[0]) == order+1 {
			if err := d.putPlaceholder(b, placeholders[0]); err != nil {
				return nil, 0, err
			}
			placeholders = placeholders[1:]
		}
		err := d.scan(ctx, func(_ int, _ uint64, ngram []int32, v V) error {
			if len(ngram) != order+1 {
				return nil
			}
			err := d.put(b, ngram, v)
			var gap *hashtrie.GapError
			if errors.As(err, &gap) {
				d.gaps.add(gap.Missing)
				failed.Add(1)
				return nil
			}
			return err
		})
		if err != nil {
			return nil, 0, err
		}
		if err := d.seal(ctx, order, b.Seal, b.Len(order)); err != nil {
			return nil, 0, err
		}
	}
	return b, failed.Load(), nil
}

// buildExplicit streams every source once into growing tables. Positions of
// n-grams that met a missing context are remembered per shard so that only
// those are replayed after backfilling.
func (d *driver[V]) buildExplicit(ctx context.Context) (*hashtrie.Map[V], error) {
	cfg := d.o.trieConfig(len(d.srcs) > 1)
	cfg.OnRehash = func(order int, oldCapacity, newCapacity int64) {
		d.o.logger.LogRehash(ctx, order, oldCapacity, newCapacity)
		d.o.metricsCollector.RecordRehash(order, oldCapacity, newCapacity)
	}
	b, err := hashtrie.NewExplicit[V](cfg, d.o.capacities)
	if err != nil {
		return nil, err
	}

	failed := make([]*roaring64.Bitmap, len(d.srcs))
	for i := range failed {
		failed[i] = roaring64.NewBitmap()
	}

	d.enter(ctx, PhaseInserting)
	err = d.scan(ctx, func(shard int, pos uint64, ngram []int32, v V) error {
		err := d.put(b, ngram, v)
		var gap *hashtrie.GapError
		if errors.As(err, &gap) {
			d.gaps.add(gap.Missing)
			failed[shard].Add(pos)
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var replay uint64
	for _, bm := range failed {
		replay += bm.GetCardinality()
	}
	if replay == 0 {
		return d.freeze(ctx, b)
	}

	d.enter(ctx, PhaseCollectingGaps)
	gaps := d.gaps.sorted()
	d.o.logger.LogGaps(ctx, len(gaps), int(replay))

	d.enter(ctx, PhaseBackfilling)
	for _, g := range gaps {
		if err := d.putPlaceholder(b, g); err != nil {
			return nil, err
		}
		d.tick(ctx)
	}

	d.enter(ctx, PhaseReplaying)
	err = d.scan(ctx, func(shard int, pos uint64, ngram []int32, v V) error {
		if !failed[shard].Contains(pos) {
			return nil
		}
		err := d.put(b, ngram, v)
		if errors.Is(err, hashtrie.ErrStructuralGap) {
			return fmt.Errorf("%w: %w", ErrGapsNotConverged, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	d.o.metricsCollector.RecordGaps(len(gaps), int(replay))
	return d.freeze(ctx, b)
}

// compress re-encodes a finished hash trie into block streams, one sealed
// order at a time.
func (d *driver[V]) compress(ctx context.Context, hm *hashtrie.Map[V]) (*compressed.Map[V], error) {
	cb, err := compressed.NewBuilder(d.o.compressedConfig(), hm.Values())
	if err != nil {
		return nil, err
	}
	for order := range d.o.maxOrder {
		var n int64
		for ngram, x := range hm.Ngrams(order) {
			if n%4096 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			if v, ok := x.Get(); ok {
				_, err = cb.Put(ngram, v)
			} else {
				_, err = cb.PutPlaceholder(ngram)
			}
			if err != nil {
				return nil, err
			}
			n++
			d.tick(ctx)
		}
		if err := d.seal(ctx, order, cb.Seal, n); err != nil {
			return nil, err
		}
	}
	return cb.Freeze()
}

// gapSet deduplicates missing context n-grams across failed puts.
type gapSet struct {
	mu sync.Mutex
	m  *swiss.Map[string, []int32]
}

func newGapSet() *gapSet {
	return &gapSet{m: swiss.NewMap[string, []int32](64)}
}

func ngramKey(ngram []int32) string {
	b := make([]byte, 0, 4*len(ngram))
	for _, w := range ngram {
		b = binary.LittleEndian.AppendUint32(b, uint32(w))
	}
	return string(b)
}

func (s *gapSet) add(missing [][]int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ngram := range missing {
		key := ngramKey(ngram)
		if !s.m.Has(key) {
			s.m.Put(key, slices.Clone(ngram))
		}
	}
}

// sorted returns the gaps shortest first, so every placeholder's own
// contexts are inserted before it.
func (s *gapSet) sorted() [][]int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]int32, 0, s.m.Count())
	s.m.Iter(func(_ string, ngram []int32) bool {
		out = append(out, ngram)
		return false
	})
	slices.SortFunc(out, func(a, b []int32) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		return slices.Compare(a, b)
	})
	return out
}
