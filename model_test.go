package ngramstore

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func probModel(t *testing.T, opts ...Option) *Model[ProbBackoff] {
	t.Helper()
	src := SliceSource[ProbBackoff]{
		{Ngram: []int32{1}, Value: ProbBackoff{Prob: -1, Backoff: -0.5}},
		{Ngram: []int32{2}, Value: ProbBackoff{Prob: -2, Backoff: -0.25}},
		{Ngram: []int32{3}, Value: ProbBackoff{Prob: -3}},
		{Ngram: []int32{1, 2, 3}, Value: ProbBackoff{Prob: -0.1}},
	}
	m, err := Build(context.Background(), src, append([]Option{WithMaxOrder(3)}, opts...)...)
	require.NoError(t, err)
	return m
}

func TestModel_LongestValue(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{"HashTrie", nil},
		{"Compressed", []Option{WithCompressed()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := probModel(t, tc.opts...)

			v, n, ok := m.LongestValue([]int32{1, 2, 3})
			require.True(t, ok)
			assert.Equal(t, 3, n)
			assert.Equal(t, float32(-0.1), v.Prob)

			// [1 2] is a placeholder, so the lookup backs off to [2].
			v, n, ok = m.LongestValue([]int32{1, 2})
			require.True(t, ok)
			assert.Equal(t, 1, n)
			assert.Equal(t, float32(-2), v.Prob)

			v, n, ok = m.LongestValue([]int32{7, 8, 1, 2, 3})
			require.True(t, ok)
			assert.Equal(t, 3, n)
			assert.Equal(t, float32(-0.1), v.Prob)

			_, _, ok = m.LongestValue([]int32{9})
			assert.False(t, ok)
		})
	}
}

func TestModel_LongestValueReversed(t *testing.T) {
	m := probModel(t, WithReversed())

	v, n, ok := m.LongestValue([]int32{1, 2})
	require.True(t, ok)
	assert.Equal(t, 1, n)
	assert.Equal(t, float32(-1), v.Prob, "reversed models drop the last word")

	v, n, ok = m.LongestValue([]int32{1, 2, 3, 4})
	require.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, float32(-0.1), v.Prob)
}

func TestModel_ReadProbBackoff(t *testing.T) {
	m := probModel(t)

	p, ok := ReadProb(m, []int32{2})
	assert.True(t, ok)
	assert.Equal(t, float32(-2), p)
	assert.Equal(t, float32(-0.25), ReadBackoff(m, []int32{2}))

	_, ok = ReadProb(m, []int32{1, 2})
	assert.False(t, ok)
	assert.Zero(t, ReadBackoff(m, []int32{1, 2}))
	assert.Zero(t, ReadBackoff(m, []int32{42}))
}

func TestModel_Ngrams(t *testing.T) {
	m := probModel(t, WithCompressed())

	var unigrams [][]int32
	for ng, v := range m.Ngrams(0) {
		assert.False(t, v.IsPlaceholder())
		unigrams = append(unigrams, slices.Clone(ng))
	}
	assert.ElementsMatch(t, [][]int32{{1}, {2}, {3}}, unigrams)

	var bigrams int
	for ng, v := range m.Ngrams(1) {
		assert.Equal(t, []int32{1, 2}, ng)
		assert.True(t, v.IsPlaceholder())
		bigrams++
	}
	assert.Equal(t, 1, bigrams)
}

func TestModel_Stats(t *testing.T) {
	t.Run("HashTrie", func(t *testing.T) {
		m := probModel(t)
		s := m.Stats()

		assert.Equal(t, FormatHashTrie, s.Format)
		assert.Equal(t, "forward", s.Direction)
		assert.Equal(t, int64(4), s.VocabSize)
		assert.Positive(t, s.SizeBytes)
		require.Len(t, s.Orders, 3)
		for i, want := range []int64{3, 1, 1} {
			assert.Equal(t, want, s.Orders[i].Entries)
			assert.Equal(t, []string{"unigram", "implicit", "implicit"}[i], s.Orders[i].Table)
			assert.GreaterOrEqual(t, s.Orders[i].Capacity, want)
			assert.Zero(t, s.Orders[i].Blocks)
		}
	})

	t.Run("Compressed", func(t *testing.T) {
		m := probModel(t, WithCompressed(), WithReversed())
		s := m.Stats()

		assert.Equal(t, FormatCompressed, s.Format)
		assert.Equal(t, FormatCompressed, m.Format())
		assert.Equal(t, "reversed", s.Direction)
		require.Len(t, s.Orders, 3)
		assert.Equal(t, int64(1), s.Orders[2].Entries)
		assert.Positive(t, s.Orders[2].Blocks)
		assert.Empty(t, s.Orders[2].Table)
	})

	t.Run("Growth", func(t *testing.T) {
		s := probModel(t, WithGrowth(0.7, 2, 4, 4, 4)).Stats()
		require.Len(t, s.Orders, 3)
		assert.Equal(t, "unigram", s.Orders[0].Table)
		assert.Equal(t, "explicit", s.Orders[2].Table)
	})
}

func TestModel_SuffixOffset(t *testing.T) {
	ngrams := corpus(t, 11, 3)
	m, err := Build(context.Background(), countSource(ngrams), WithMaxOrder(3), WithSuffixOffsets())
	require.NoError(t, err)

	for _, ng := range ngrams {
		if len(ng.Words) == 1 {
			continue
		}
		off, order := m.OffsetForNgram(ng.Words)
		require.Equal(t, len(ng.Words)-1, order)

		want, wantOrder := m.OffsetForNgram(ng.Words[1:])
		require.Equal(t, order-1, wantOrder)

		got, ok := m.SuffixOffset(order, off)
		require.True(t, ok, "n-gram %v", ng.Words)
		assert.Equal(t, want, got)
	}

	c, err := Build(context.Background(), countSource(ngrams), WithMaxOrder(3), WithSuffixOffsets(), WithCompressed())
	require.NoError(t, err)
	_, ok := c.SuffixOffset(1, 0)
	assert.False(t, ok)
}

func TestModel_SuffixOffsetOutOfOrderGrowth(t *testing.T) {
	src := SliceSource[Count]{
		{Ngram: []int32{0}, Value: 5},
		{Ngram: []int32{1}, Value: 4},
		{Ngram: []int32{2}, Value: 3},
		{Ngram: []int32{0, 1}, Value: 2},
		{Ngram: []int32{0, 1, 2}, Value: 1},
		{Ngram: []int32{1, 2}, Value: 2},
	}
	m, err := Build(context.Background(), src, WithMaxOrder(3), WithSuffixOffsets(), WithGrowth(0, 0))
	require.NoError(t, err)

	off, order := m.OffsetForNgram([]int32{0, 1, 2})
	require.Equal(t, 2, order)
	want, wantOrder := m.OffsetForNgram([]int32{1, 2})
	require.Equal(t, 1, wantOrder)

	got, ok := m.SuffixOffset(order, off)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestModel_ConcurrentReaders(t *testing.T) {
	ngrams := corpus(t, 21, 3)

	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{"HashTrie", nil},
		{"Compressed", []Option{WithCompressed()}},
		{"Growth", []Option{WithGrowth(0.7, 2, 16, 16, 16)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Build(context.Background(), countSource(ngrams), append([]Option{WithMaxOrder(3)}, tc.opts...)...)
			require.NoError(t, err)

			var g errgroup.Group
			for r := range 8 {
				g.Go(func() error {
					for i := r; i < len(ngrams); i += 2 {
						ng := ngrams[i]
						if v, ok := m.Get(ng.Words); !ok || v != ng.Count {
							return fmt.Errorf("get %v: got %d, %t", ng.Words, v, ok)
						}
						if _, n, ok := m.LongestValue(ng.Words); !ok || n != len(ng.Words) {
							return fmt.Errorf("longest value %v: length %d, %t", ng.Words, n, ok)
						}
						off, order := NotFound, -1
						for _, w := range ng.Words {
							if off = m.Offset(off, order, w); off == NotFound {
								return fmt.Errorf("offset walk %v stopped at order %d", ng.Words, order)
							}
							order++
						}
						if want, _ := m.OffsetForNgram(ng.Words); want != off {
							return fmt.Errorf("offset %v: walk %d, lookup %d", ng.Words, off, want)
						}
					}
					order := r % m.MaxOrder()
					var n int64
					for range m.Ngrams(order) {
						n++
					}
					if n != m.Len(order) {
						return fmt.Errorf("ngrams order %d: %d of %d", order, n, m.Len(order))
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())
		})
	}
}

func TestModel_LookupMetrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	m := probModel(t, WithMetricsCollector(metrics))

	m.Get([]int32{1})
	m.Get([]int32{1, 2})
	m.Get([]int32{5})

	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats.LookupCount)
	assert.Equal(t, int64(1), stats.LookupHits)
}
